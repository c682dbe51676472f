// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package attestation holds the remote attestation results consumed by the
// contact discovery client: per enclave request ids and symmetric keys,
// plus the transport credentials issued alongside them.
//
// Quote verification is out of scope for this package; the HTTPAttestor
// talks to development enclaves that do not produce quotes.
package attestation

import (
	"net/http"
)

// ID identifies one attested enclave instance.
type ID string

// Keys are the symmetric keys agreed with one enclave.  ClientKey wraps
// query keys sent to the enclave, ServerKey opens its responses.
type Keys struct {
	ClientKey []byte
	ServerKey []byte
}

// RemoteAttestation is the result of attesting a single enclave.  The
// RequestID is single use.
type RemoteAttestation struct {
	RequestID []byte
	Keys      Keys
}

// Auth is the HTTP basic auth credential for the discovery service.
type Auth struct {
	Username string
	Password string
}

// EnclaveConfig routes discovery requests to an enclave.
type EnclaveConfig struct {
	EnclaveName                   string
	Host                          string
	CensorshipCircumventionPrefix string
}

// CDSAttestation is everything a discovery request needs from one
// attestation round.
type CDSAttestation struct {
	Cookies            []*http.Cookie
	Auth               Auth
	EnclaveConfig      EnclaveConfig
	RemoteAttestations map[ID]*RemoteAttestation
}
