// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package transport

import (
	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/discovery"
)

// Envelope is the JSON form of discovery.EnclaveEnvelope.
type Envelope struct {
	RequestID []byte `json:"requestId"`
	Data      []byte `json:"data"`
	IV        []byte `json:"iv"`
	MAC       []byte `json:"mac"`
}

// Query is the JSON body of a discovery request.
type Query struct {
	AddressCount uint                         `json:"addressCount"`
	Commitment   []byte                       `json:"commitment"`
	Data         []byte                       `json:"data"`
	IV           []byte                       `json:"iv"`
	MAC          []byte                       `json:"mac"`
	Envelopes    map[attestation.ID]*Envelope `json:"envelopes"`
}

// Response is the JSON body of a discovery response.
type Response struct {
	RequestID []byte `json:"requestId"`
	Data      []byte `json:"data"`
	IV        []byte `json:"iv"`
	MAC       []byte `json:"mac"`
}

// NewQuery converts q to its wire form.
func NewQuery(q *discovery.IntersectionQuery) *Query {
	w := &Query{
		AddressCount: q.AddressCount,
		Commitment:   q.Commitment,
		Data:         q.Data,
		IV:           q.IV,
		MAC:          q.MAC,
		Envelopes:    make(map[attestation.ID]*Envelope, len(q.Envelopes)),
	}
	for id, env := range q.Envelopes {
		w.Envelopes[id] = &Envelope{
			RequestID: env.RequestID,
			Data:      env.Data,
			IV:        env.IV,
			MAC:       env.MAC,
		}
	}
	return w
}

// IntersectionQuery converts w back to the discovery type.
func (w *Query) IntersectionQuery() *discovery.IntersectionQuery {
	q := &discovery.IntersectionQuery{
		AddressCount: w.AddressCount,
		Commitment:   w.Commitment,
		Data:         w.Data,
		IV:           w.IV,
		MAC:          w.MAC,
		Envelopes:    make(map[attestation.ID]*discovery.EnclaveEnvelope, len(w.Envelopes)),
	}
	for id, env := range w.Envelopes {
		if env == nil {
			continue
		}
		q.Envelopes[id] = &discovery.EnclaveEnvelope{
			RequestID: env.RequestID,
			Data:      env.Data,
			IV:        env.IV,
			MAC:       env.MAC,
		}
	}
	return q
}

// NewResponse converts r to its wire form.
func NewResponse(r *discovery.IntersectionResponse) *Response {
	return &Response{
		RequestID: r.RequestID,
		Data:      r.Data,
		IV:        r.IV,
		MAC:       r.MAC,
	}
}

// IntersectionResponse converts w back to the discovery type.
func (w *Response) IntersectionResponse() *discovery.IntersectionResponse {
	return &discovery.IntersectionResponse{
		RequestID: w.RequestID,
		Data:      w.Data,
		IV:        w.IV,
		MAC:       w.MAC,
	}
}
