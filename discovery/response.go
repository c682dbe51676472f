// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"github.com/google/uuid"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/crypto/aesgcm"
	"github.com/katzenpost/cds/e164"
)

// DecodeIntersectionResponse decrypts the answer to a batch and returns the
// registered members of numbers.  The i-th UUID in the plaintext answers
// the i-th number of the batch, and the all zero UUID marks a number that
// is not registered.
func DecodeIntersectionResponse(numbers []e164.E164, attestations map[attestation.ID]*attestation.RemoteAttestation, resp *IntersectionResponse) ([]RegisteredContact, error) {
	if resp == nil {
		return nil, assertionError("missing response")
	}
	ra := requestIndex(attestations)[string(resp.RequestID)]
	if ra == nil {
		return nil, assertionError("no attestation for response request id")
	}

	sealed := &aesgcm.EncryptedData{
		Nonce:             resp.IV,
		Ciphertext:        resp.Data,
		AuthenticationTag: resp.MAC,
	}
	plaintext, err := sealed.Decrypt(ra.Keys.ServerKey, nil)
	if err != nil {
		return nil, assertionError("failed to decrypt response: %v", err)
	}
	if len(plaintext) != len(numbers)*UUIDSize {
		return nil, assertionError("response is %d bytes for %d numbers", len(plaintext), len(numbers))
	}

	uuids := make([]uuid.UUID, 0, len(numbers))
	for off := 0; off < len(plaintext); off += UUIDSize {
		id, err := uuid.FromBytes(plaintext[off : off+UUIDSize])
		if err != nil {
			return nil, assertionError("invalid uuid at offset %d: %v", off, err)
		}
		uuids = append(uuids, id)
	}
	if len(uuids) != len(numbers) {
		return nil, assertionError("decoded %d uuids for %d numbers", len(uuids), len(numbers))
	}

	var contacts []RegisteredContact
	for i, id := range uuids {
		if id == uuid.Nil {
			continue
		}
		contacts = append(contacts, RegisteredContact{UUID: id, E164: numbers[i]})
	}
	return contacts, nil
}

func requestIndex(attestations map[attestation.ID]*attestation.RemoteAttestation) map[string]*attestation.RemoteAttestation {
	index := make(map[string]*attestation.RemoteAttestation, len(attestations))
	for _, ra := range attestations {
		index[string(ra.RequestID)] = ra
	}
	return index
}
