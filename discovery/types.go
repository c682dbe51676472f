// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"bytes"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/e164"
)

const (
	// BatchSize is the maximum number of phone numbers per query.
	BatchSize = 2048

	// QueryNonceSize is the size of the random prefix of the query
	// plaintext.
	QueryNonceSize = 32

	// UUIDSize is the size of one entry in the response plaintext.
	UUIDSize = 16
)

// DiscoveredContactInfo is a phone number that belongs to a registered user.
type DiscoveredContactInfo struct {
	E164 e164.E164
	UUID uuid.UUID
}

// DiscoveredContacts is the result set of a discovery.
type DiscoveredContacts map[DiscoveredContactInfo]struct{}

// Sorted returns the contacts ordered by phone number, then UUID.
func (d DiscoveredContacts) Sorted() []DiscoveredContactInfo {
	out := make([]DiscoveredContactInfo, 0, len(d))
	for c := range d {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].E164.Uint64(), out[j].E164.Uint64()
		if a != b {
			return a < b
		}
		return bytes.Compare(out[i].UUID[:], out[j].UUID[:]) < 0
	})
	return out
}

// RegisteredContact is one positive match decoded from a single batch.
type RegisteredContact struct {
	UUID uuid.UUID
	E164 e164.E164
}

// EnclaveEnvelope is the query key wrapped for one enclave.
type EnclaveEnvelope struct {
	RequestID []byte
	Data      []byte
	IV        []byte
	MAC       []byte
}

// IntersectionQuery is the encrypted query for one batch.
type IntersectionQuery struct {
	AddressCount uint
	Commitment   []byte
	Data         []byte
	IV           []byte
	MAC          []byte
	Envelopes    map[attestation.ID]*EnclaveEnvelope
}

// IntersectionResponse is the encrypted answer of one enclave.
type IntersectionResponse struct {
	RequestID []byte
	Data      []byte
	IV        []byte
	MAC       []byte
}

// Request is everything the Service needs for one round trip.
type Request struct {
	Query         *IntersectionQuery
	Cookies       []*http.Cookie
	Auth          attestation.Auth
	EnclaveConfig attestation.EnclaveConfig
}
