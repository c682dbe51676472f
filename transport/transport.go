// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package transport implements discovery.Service over HTTP.
package transport

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

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/discovery"
	"github.com/katzenpost/cds/internal/httpclient"
)

const maxResponseSize = 1 << 20

// Config configures a Service.
type Config struct {
	// URL is the discovery service base URL.  When empty requests go to
	// https://{enclave host}.
	URL string

	// CensorshipCircumvention routes requests through FrontingURL, under
	// the enclave's circumvention path prefix, with the real host carried
	// in the Host header.
	CensorshipCircumvention bool
	FrontingURL             string
}

// Service is a discovery.Service speaking JSON over HTTP.
type Service struct {
	client *http.Client
	cfg    Config
	log    *logging.Logger
}

// New returns a Service sending requests with client.
func New(client *http.Client, cfg *Config, log *logging.Logger) (*Service, error) {
	if client == nil {
		return nil, errors.New("transport: missing http client")
	}
	if cfg.CensorshipCircumvention && cfg.FrontingURL == "" {
		return nil, errors.New("transport: censorship circumvention requires a fronting URL")
	}
	return &Service{
		client: client,
		cfg:    *cfg,
		log:    log,
	}, nil
}

// endpoint returns the request URL and, when fronting, the Host header.
func (s *Service) endpoint(ec attestation.EnclaveConfig) (string, string, error) {
	if ec.EnclaveName == "" {
		return "", "", errors.New("transport: missing enclave name")
	}
	name := url.PathEscape(ec.EnclaveName)

	if s.cfg.CensorshipCircumvention {
		if ec.CensorshipCircumventionPrefix == "" {
			return "", "", errors.New("transport: enclave has no censorship circumvention prefix")
		}
		u, err := url.Parse(s.cfg.FrontingURL)
		if err != nil {
			return "", "", fmt.Errorf("transport: invalid fronting URL: %w", err)
		}
		return u.JoinPath(ec.CensorshipCircumventionPrefix, "v1", "discovery", name).String(), ec.Host, nil
	}

	base := s.cfg.URL
	if base == "" {
		if ec.Host == "" {
			return "", "", errors.New("transport: no service URL and no enclave host")
		}
		base = "https://" + ec.Host
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", "", fmt.Errorf("transport: invalid service URL: %w", err)
	}
	return u.JoinPath("v1", "discovery", name).String(), "", nil
}

// GetRegisteredUsers implements discovery.Service.
func (s *Service) GetRegisteredUsers(ctx context.Context, dr *discovery.Request) (*discovery.IntersectionResponse, error) {
	endpoint, host, err := s.endpoint(dr.EnclaveConfig)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(NewQuery(dr.Query))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if host != "" {
		req.Host = host
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(dr.Auth.Username, dr.Auth.Password)
	for _, c := range dr.Cookies {
		req.AddCookie(c)
	}

	s.log.Debugf("PUT %s (%d addresses)", endpoint, dr.Query.AddressCount)
	resp, err := httpclient.Do(s.client, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wr Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&wr); err != nil {
		return nil, fmt.Errorf("transport: malformed response: %w", err)
	}
	return wr.IntersectionResponse(), nil
}
