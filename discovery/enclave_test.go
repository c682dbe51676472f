// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/katzenpost/hpqc/rand"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/crypto/aesgcm"
	"github.com/katzenpost/cds/e164"
)

// fakeEnclaves plays the enclave side of the protocol in memory.
type fakeEnclaves struct {
	sync.Mutex

	ids        []attestation.ID
	registered map[e164.E164]uuid.UUID
	byRequest  map[string]*attestation.RemoteAttestation
}

func newFakeEnclaves(registered map[e164.E164]uuid.UUID, ids ...attestation.ID) *fakeEnclaves {
	if len(ids) == 0 {
		ids = []attestation.ID{"enclave-a"}
	}
	return &fakeEnclaves{
		ids:        ids,
		registered: registered,
		byRequest:  make(map[string]*attestation.RemoteAttestation),
	}
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}

func (f *fakeEnclaves) attest() *attestation.CDSAttestation {
	f.Lock()
	defer f.Unlock()

	att := &attestation.CDSAttestation{
		Auth:               attestation.Auth{Username: "alice", Password: "secret"},
		EnclaveConfig:      attestation.EnclaveConfig{EnclaveName: "test", Host: "cds.example.org"},
		RemoteAttestations: make(map[attestation.ID]*attestation.RemoteAttestation),
	}
	for _, id := range f.ids {
		ra := &attestation.RemoteAttestation{
			RequestID: randomBytes(16),
			Keys: attestation.Keys{
				ClientKey: randomBytes(aesgcm.KeySize),
				ServerKey: randomBytes(aesgcm.KeySize),
			},
		}
		att.RemoteAttestations[id] = ra
		f.byRequest[string(ra.RequestID)] = ra
	}
	return att
}

// answer answers q from the first enclave whose envelope it recognises.
func (f *fakeEnclaves) answer(q *IntersectionQuery) (*IntersectionResponse, error) {
	f.Lock()
	defer f.Unlock()

	for _, env := range q.Envelopes {
		ra, ok := f.byRequest[string(env.RequestID)]
		if !ok {
			continue
		}
		delete(f.byRequest, string(env.RequestID))
		return answerQuery(ra, env, q, f.registered)
	}
	return nil, errors.New("no known request id")
}

func answerQuery(ra *attestation.RemoteAttestation, env *EnclaveEnvelope, q *IntersectionQuery, registered map[e164.E164]uuid.UUID) (*IntersectionResponse, error) {
	wrapped := &aesgcm.EncryptedData{Nonce: env.IV, Ciphertext: env.Data, AuthenticationTag: env.MAC}
	queryKey, err := wrapped.Decrypt(ra.Keys.ClientKey, ra.RequestID)
	if err != nil {
		return nil, err
	}
	sealed := &aesgcm.EncryptedData{Nonce: q.IV, Ciphertext: q.Data, AuthenticationTag: q.MAC}
	plaintext, err := sealed.Decrypt(queryKey, nil)
	if err != nil {
		return nil, err
	}
	if sum := sha256.Sum256(plaintext); !bytes.Equal(sum[:], q.Commitment) {
		return nil, errors.New("commitment mismatch")
	}
	numbers, err := e164.Decode(plaintext[QueryNonceSize:])
	if err != nil {
		return nil, err
	}
	if uint(len(numbers)) != q.AddressCount {
		return nil, fmt.Errorf("address count %d, got %d numbers", q.AddressCount, len(numbers))
	}

	out := make([]byte, 0, len(numbers)*UUIDSize)
	for _, n := range numbers {
		id := registered[n]
		out = append(out, id[:]...)
	}
	resp, err := aesgcm.Encrypt(out, ra.Keys.ServerKey, nil)
	if err != nil {
		return nil, err
	}
	return &IntersectionResponse{
		RequestID: ra.RequestID,
		Data:      resp.Ciphertext,
		IV:        resp.Nonce,
		MAC:       resp.AuthenticationTag,
	}, nil
}

// Exported for the external test package.
type FakeEnclaves = fakeEnclaves

var NewFakeEnclaves = newFakeEnclaves

func (f *fakeEnclaves) Attest() *attestation.CDSAttestation { return f.attest() }

func (f *fakeEnclaves) Answer(q *IntersectionQuery) (*IntersectionResponse, error) {
	return f.answer(q)
}
