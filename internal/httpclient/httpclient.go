// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package httpclient builds the HTTP clients used to reach the attestation
// and discovery services, and maps their failures onto HTTPError and
// ConnectivityError.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quic-go/quic-go/http3"

	"github.com/katzenpost/cds/core/retry"
	"github.com/katzenpost/cds/internal/proxy"
)

const (
	// TransportHTTPS selects HTTP/1.1 or HTTP/2 over TLS.
	TransportHTTPS = "https"

	// TransportHTTP3 selects HTTP/3 over QUIC.
	TransportHTTP3 = "http3"

	maxErrorBody = 4096

	// maxRetryAfterSeconds keeps a delta-seconds Retry-After within
	// time.Duration.
	maxRetryAfterSeconds = int64(math.MaxInt64 / time.Second)
)

// Config configures New.
type Config struct {
	// Transport is TransportHTTPS (default) or TransportHTTP3.
	Transport string

	// Timeout bounds a whole request, zero means no timeout.
	Timeout time.Duration

	// Proxy is the optional upstream proxy, ProxyTag isolates Tor circuits.
	Proxy    *proxy.Config
	ProxyTag string

	// InsecureSkipVerify disables TLS certificate verification.  Only the
	// emulator uses self signed certificates.
	InsecureSkipVerify bool
}

// New returns an *http.Client for cfg.
func New(cfg *Config) (*http.Client, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	var dialFn proxy.DialContextFn
	if cfg.Proxy != nil {
		dialFn = cfg.Proxy.ToDialContext(cfg.ProxyTag)
	}

	var rt http.RoundTripper
	switch strings.ToLower(cfg.Transport) {
	case "", TransportHTTPS:
		if dialFn == nil {
			dialFn = (&net.Dialer{Timeout: 30 * time.Second}).DialContext
		}
		rt = &http.Transport{
			DialContext:         dialFn,
			TLSClientConfig:     tlsCfg,
			ForceAttemptHTTP2:   true,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
		}
	case TransportHTTP3:
		if dialFn != nil {
			return nil, errors.New("httpclient: http3 can not be used with an upstream proxy")
		}
		rt = &http3.Transport{TLSClientConfig: tlsCfg}
	default:
		return nil, fmt.Errorf("httpclient: unknown transport '%v'", cfg.Transport)
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
	}, nil
}

// HTTPError is a non 2xx response.
type HTTPError struct {
	StatusCode  int
	Description string
	RetryAfter  time.Time
}

// Error implements error.
func (e *HTTPError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Description)
}

// HTTPStatusCode returns the response status code.
func (e *HTTPError) HTTPStatusCode() int {
	return e.StatusCode
}

// HTTPRetryAfter returns the Retry-After deadline, if the server sent one.
func (e *HTTPError) HTTPRetryAfter() (time.Time, bool) {
	return e.RetryAfter, !e.RetryAfter.IsZero()
}

// ConnectivityError means the service could not be reached at all.
type ConnectivityError struct {
	Err error
}

// Error implements error.
func (e *ConnectivityError) Error() string {
	return "network connectivity failure: " + e.Err.Error()
}

// Unwrap returns the underlying network error.
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// NetworkConnectivityFailure marks e as an offline condition.
func (e *ConnectivityError) NetworkConnectivityFailure() bool {
	return true
}

// Do sends req.  Non 2xx responses are consumed and returned as *HTTPError,
// transport failures as *ConnectivityError.  Cancellation of the request
// context is returned as is.
func Do(c *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := c.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		if retry.IsTransientError(err) {
			return nil, &ConnectivityError{Err: err}
		}
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	herr := &HTTPError{
		StatusCode:  resp.StatusCode,
		Description: strings.TrimSpace(string(body)),
	}
	if t, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
		herr.RetryAfter = t
	}
	return nil, herr
}

// ParseRetryAfter parses a Retry-After header value, either delta seconds
// or an HTTP date.
func ParseRetryAfter(v string, now time.Time) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return time.Time{}, false
		}
		if secs > maxRetryAfterSeconds {
			secs = maxRetryAfterSeconds
		}
		return now.Add(time.Duration(secs) * time.Second), true
	}
	if t, err := http.ParseTime(v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
