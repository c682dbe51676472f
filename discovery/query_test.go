// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"crypto/sha256"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/crypto/aesgcm"
	"github.com/katzenpost/cds/e164"
)

func TestBuildIntersectionQuery(t *testing.T) {
	require := require.New(t)

	numbers := []e164.E164{e164.MustParse("+15551234567"), e164.MustParse("+4930123456")}
	enclaves := newFakeEnclaves(nil, "a", "b", "c")
	att := enclaves.attest()

	q, err := BuildIntersectionQuery(numbers, att.RemoteAttestations)
	require.NoError(err)
	require.Equal(uint(2), q.AddressCount)
	require.Len(q.Commitment, sha256.Size)
	require.Len(q.IV, aesgcm.NonceSize)
	require.Len(q.MAC, aesgcm.TagSize)
	require.Len(q.Data, QueryNonceSize+2*e164.EncodedSize)
	require.Len(q.Envelopes, 3)

	var queryKey []byte
	for id, ra := range att.RemoteAttestations {
		env := q.Envelopes[id]
		require.NotNil(env)
		require.Equal(ra.RequestID, env.RequestID)

		sealed := &aesgcm.EncryptedData{Nonce: env.IV, Ciphertext: env.Data, AuthenticationTag: env.MAC}
		key, err := sealed.Decrypt(ra.Keys.ClientKey, ra.RequestID)
		require.NoError(err)
		if queryKey == nil {
			queryKey = key
		}
		require.Equal(queryKey, key, "every enclave must receive the same query key")

		// The request id is bound as associated data.
		_, err = sealed.Decrypt(ra.Keys.ClientKey, []byte("other request id"))
		require.ErrorIs(err, aesgcm.ErrAuthentication)
	}

	sealed := &aesgcm.EncryptedData{Nonce: q.IV, Ciphertext: q.Data, AuthenticationTag: q.MAC}
	plaintext, err := sealed.Decrypt(queryKey, nil)
	require.NoError(err)
	sum := sha256.Sum256(plaintext)
	require.Equal(sum[:], q.Commitment)
	require.Equal(e164.Encode(numbers), plaintext[QueryNonceSize:])
}

func TestBuildIntersectionQueryFreshness(t *testing.T) {
	require := require.New(t)

	numbers := []e164.E164{e164.MustParse("+15551234567")}
	att := newFakeEnclaves(nil).attest()

	q1, err := BuildIntersectionQuery(numbers, att.RemoteAttestations)
	require.NoError(err)
	q2, err := BuildIntersectionQuery(numbers, att.RemoteAttestations)
	require.NoError(err)
	require.NotEqual(q1.Commitment, q2.Commitment)
	require.NotEqual(q1.Data, q2.Data)
}

func TestBuildIntersectionQueryBadClientKey(t *testing.T) {
	require := require.New(t)

	att := map[attestation.ID]*attestation.RemoteAttestation{
		"a": {RequestID: []byte("req"), Keys: attestation.Keys{ClientKey: []byte("short")}},
	}
	_, err := BuildIntersectionQuery([]e164.E164{e164.MustParse("+15551234567")}, att)
	require.Error(err)
	var e *Error
	require.ErrorAs(err, &e)
	require.Equal(KindGenericClient, e.Kind)
	require.False(e.Retryable)
}

func TestQueryResponseRoundTrip(t *testing.T) {
	require := require.New(t)

	a := e164.MustParse("+15551234567")
	b := e164.MustParse("+4930123456")
	c := e164.MustParse("+447700900123")
	ua := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	uc := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

	enclaves := newFakeEnclaves(map[e164.E164]uuid.UUID{a: ua, c: uc}, "a", "b")
	att := enclaves.attest()
	numbers := []e164.E164{a, b, c}

	q, err := BuildIntersectionQuery(numbers, att.RemoteAttestations)
	require.NoError(err)
	resp, err := enclaves.answer(q)
	require.NoError(err)

	contacts, err := DecodeIntersectionResponse(numbers, att.RemoteAttestations, resp)
	require.NoError(err)
	require.Equal([]RegisteredContact{{UUID: ua, E164: a}, {UUID: uc, E164: c}}, contacts)
}
