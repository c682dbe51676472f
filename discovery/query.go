// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/katzenpost/hpqc/rand"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/crypto/aesgcm"
	"github.com/katzenpost/cds/e164"
)

// BuildIntersectionQuery encrypts a batch for every attested enclave.
//
// The plaintext is QueryNonceSize random bytes followed by the encoded
// numbers in batch order.  It is sealed once under a fresh query key, and
// that key is sealed again per enclave under the enclave's client key with
// the enclave's request id as associated data.  The commitment is the
// SHA-256 of the plaintext.
func BuildIntersectionQuery(numbers []e164.E164, attestations map[attestation.ID]*attestation.RemoteAttestation) (*IntersectionQuery, error) {
	plaintext := make([]byte, QueryNonceSize, QueryNonceSize+len(numbers)*e164.EncodedSize)
	if _, err := io.ReadFull(rand.Reader, plaintext); err != nil {
		return nil, buildError(err)
	}
	plaintext = append(plaintext, e164.Encode(numbers)...)
	if len(plaintext) != QueryNonceSize+len(numbers)*e164.EncodedSize {
		return nil, assertionError("query plaintext is %d bytes for %d numbers", len(plaintext), len(numbers))
	}

	queryKey, err := aesgcm.GenerateKey()
	if err != nil {
		return nil, buildError(err)
	}
	sealed, err := aesgcm.Encrypt(plaintext, queryKey, nil)
	if err != nil {
		return nil, buildError(err)
	}

	envelopes := make(map[attestation.ID]*EnclaveEnvelope, len(attestations))
	for id, ra := range attestations {
		wrapped, err := aesgcm.Encrypt(queryKey, ra.Keys.ClientKey, ra.RequestID)
		if err != nil {
			return nil, buildError(fmt.Errorf("enclave %s: %w", id, err))
		}
		envelopes[id] = &EnclaveEnvelope{
			RequestID: ra.RequestID,
			Data:      wrapped.Ciphertext,
			IV:        wrapped.Nonce,
			MAC:       wrapped.AuthenticationTag,
		}
	}

	commitment := sha256.Sum256(plaintext)
	return &IntersectionQuery{
		AddressCount: uint(len(numbers)),
		Commitment:   commitment[:],
		Data:         sealed.Ciphertext,
		IV:           sealed.Nonce,
		MAC:          sealed.AuthenticationTag,
		Envelopes:    envelopes,
	}, nil
}

func buildError(err error) *Error {
	return &Error{
		Kind:             KindGenericClient,
		DebugDescription: "failed to build query: " + err.Error(),
		Err:              err,
	}
}
