// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/discovery"
	"github.com/katzenpost/cds/internal/httpclient"
)

func testRequest() *discovery.Request {
	return &discovery.Request{
		Query: &discovery.IntersectionQuery{
			AddressCount: 2,
			Commitment:   []byte("commitment"),
			Data:         []byte("data"),
			IV:           []byte("iv"),
			MAC:          []byte("mac"),
			Envelopes: map[attestation.ID]*discovery.EnclaveEnvelope{
				"a": {RequestID: []byte("req-a"), Data: []byte("key-a"), IV: []byte("iv-a"), MAC: []byte("mac-a")},
			},
		},
		Cookies:       []*http.Cookie{{Name: "session", Value: "abc"}},
		Auth:          attestation.Auth{Username: "alice", Password: "secret"},
		EnclaveConfig: attestation.EnclaveConfig{EnclaveName: "enclave", Host: "cds.example.org", CensorshipCircumventionPrefix: "directory"},
	}
}

func TestEndpoint(t *testing.T) {
	require := require.New(t)

	ec := attestation.EnclaveConfig{EnclaveName: "my enclave", Host: "cds.example.org", CensorshipCircumventionPrefix: "directory"}
	log := logging.MustGetLogger("test")

	s, err := New(http.DefaultClient, &Config{URL: "https://api.example.org/"}, log)
	require.NoError(err)
	u, host, err := s.endpoint(ec)
	require.NoError(err)
	require.Equal("https://api.example.org/v1/discovery/my%20enclave", u)
	require.Empty(host)

	s, err = New(http.DefaultClient, &Config{}, log)
	require.NoError(err)
	u, _, err = s.endpoint(ec)
	require.NoError(err)
	require.Equal("https://cds.example.org/v1/discovery/my%20enclave", u)

	s, err = New(http.DefaultClient, &Config{CensorshipCircumvention: true, FrontingURL: "https://front.example.com"}, log)
	require.NoError(err)
	u, host, err = s.endpoint(ec)
	require.NoError(err)
	require.Equal("https://front.example.com/directory/v1/discovery/my%20enclave", u)
	require.Equal("cds.example.org", host)

	_, _, err = s.endpoint(attestation.EnclaveConfig{EnclaveName: "x"})
	require.Error(err)

	_, err = New(http.DefaultClient, &Config{CensorshipCircumvention: true}, log)
	require.Error(err)
	_, err = New(nil, &Config{}, log)
	require.Error(err)
}

func TestGetRegisteredUsers(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/v1/discovery/enclave" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var q Query
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.AddressCount != 2 || q.Envelopes["a"] == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(&Response{
			RequestID: q.Envelopes["a"].RequestID,
			Data:      []byte("answer"),
			IV:        []byte("answer-iv"),
			MAC:       []byte("answer-mac"),
		})
	}))
	defer srv.Close()

	s, err := New(srv.Client(), &Config{URL: srv.URL}, logging.MustGetLogger("test"))
	require.NoError(err)

	resp, err := s.GetRegisteredUsers(context.Background(), testRequest())
	require.NoError(err)
	require.Equal(&discovery.IntersectionResponse{
		RequestID: []byte("req-a"),
		Data:      []byte("answer"),
		IV:        []byte("answer-iv"),
		MAC:       []byte("answer-mac"),
	}, resp)
}

func TestGetRegisteredUsersErrors(t *testing.T) {
	require := require.New(t)

	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusOK {
			w.Write([]byte("{not json"))
			return
		}
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(status)
	}))
	defer srv.Close()

	s, err := New(srv.Client(), &Config{URL: srv.URL}, logging.MustGetLogger("test"))
	require.NoError(err)

	_, err = s.GetRegisteredUsers(context.Background(), testRequest())
	var herr *httpclient.HTTPError
	require.ErrorAs(err, &herr)
	require.Equal(http.StatusTooManyRequests, herr.StatusCode)
	after, ok := herr.HTTPRetryAfter()
	require.True(ok)
	require.False(after.IsZero())

	status = http.StatusOK
	_, err = s.GetRegisteredUsers(context.Background(), testRequest())
	require.Error(err)
	require.False(discovery.IsConnectivityFailure(err))
}

func TestWireRoundTrip(t *testing.T) {
	require := require.New(t)

	q := testRequest().Query
	b, err := json.Marshal(NewQuery(q))
	require.NoError(err)
	require.Contains(string(b), `"addressCount":2`)
	require.Contains(string(b), `"requestId":"cmVxLWE="`)

	var w Query
	require.NoError(json.Unmarshal(b, &w))
	require.Equal(q, w.IntersectionQuery())

	r := &discovery.IntersectionResponse{RequestID: []byte("r"), Data: []byte("d"), IV: []byte("i"), MAC: []byte("m")}
	require.Equal(r, NewResponse(r).IntersectionResponse())
}
