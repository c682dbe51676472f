// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package attestation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/internal/httpclient"
)

const maxResponseSize = 1 << 16

// Request is the body of an attestation request.
type Request struct {
	ClientPublic []byte `json:"clientPublic"`
}

// Quote is what one enclave returns for an attestation request.
type Quote struct {
	ServerEphemeralPublic []byte `json:"serverEphemeralPublic"`
	ServerStaticPublic    []byte `json:"serverStaticPublic"`
	RequestID             []byte `json:"requestId"`
}

// Response is the body of an attestation response.
type Response struct {
	Attestations map[ID]*Quote `json:"attestations"`
}

// HTTPAttestor attests the enclaves behind a discovery service over HTTP.
// Every PerformForCDS call runs a fresh handshake and so yields fresh
// request ids.
type HTTPAttestor struct {
	client  *http.Client
	url     string
	auth    Auth
	enclave EnclaveConfig
	log     *logging.Logger
}

// NewHTTPAttestor returns an attestor posting to
// {attestationURL}/v1/attestation/{enclave name}.
func NewHTTPAttestor(client *http.Client, attestationURL string, auth Auth, enclave EnclaveConfig, log *logging.Logger) (*HTTPAttestor, error) {
	if enclave.EnclaveName == "" {
		return nil, errors.New("attestation: missing enclave name")
	}
	u, err := url.Parse(attestationURL)
	if err != nil {
		return nil, fmt.Errorf("attestation: invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("attestation: URL '%v' is not absolute", attestationURL)
	}
	if enclave.Host == "" {
		enclave.Host = u.Host
	}
	return &HTTPAttestor{
		client:  client,
		url:     u.JoinPath("v1", "attestation", url.PathEscape(enclave.EnclaveName)).String(),
		auth:    auth,
		enclave: enclave,
		log:     log,
	}, nil
}

// PerformForCDS implements discovery.Attestor.
func (a *HTTPAttestor) PerformForCDS(ctx context.Context) (*CDSAttestation, error) {
	clientPrivate, clientPublic, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(&Request{ClientPublic: clientPublic})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.auth.Username, a.auth.Password)

	resp, err := httpclient.Do(a.client, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ar Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&ar); err != nil {
		return nil, fmt.Errorf("attestation: malformed response: %w", err)
	}
	if len(ar.Attestations) == 0 {
		return nil, errors.New("attestation: no enclaves attested")
	}

	att := &CDSAttestation{
		Cookies:            resp.Cookies(),
		Auth:               a.auth,
		EnclaveConfig:      a.enclave,
		RemoteAttestations: make(map[ID]*RemoteAttestation, len(ar.Attestations)),
	}
	for id, q := range ar.Attestations {
		if q == nil || len(q.RequestID) == 0 {
			return nil, fmt.Errorf("attestation: enclave %s: missing request id", id)
		}
		keys, err := DeriveClientKeys(clientPrivate, q.ServerEphemeralPublic, q.ServerStaticPublic)
		if err != nil {
			return nil, fmt.Errorf("attestation: enclave %s: %w", id, err)
		}
		att.RemoteAttestations[id] = &RemoteAttestation{
			RequestID: q.RequestID,
			Keys:      *keys,
		}
	}
	a.log.Debugf("Attested %d enclaves for %s", len(att.RemoteAttestations), a.enclave.EnclaveName)
	return att, nil
}
