// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package attestation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/internal/httpclient"
)

type testEnclave struct {
	staticPrivate, staticPublic []byte
	serverKeys                  *Keys
}

func newAttestationServer(t *testing.T, enclave *testEnclave) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/attestation/test enclave" {
			http.NotFound(w, r)
			return
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		ephPrivate, ephPublic, err := GenerateKeyPair()
		require.NoError(t, err)
		enclave.serverKeys, err = DeriveServerKeys(ephPrivate, enclave.staticPrivate, req.ClientPublic)
		require.NoError(t, err)

		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&Response{Attestations: map[ID]*Quote{
			"enclave-a": {
				ServerEphemeralPublic: ephPublic,
				ServerStaticPublic:    enclave.staticPublic,
				RequestID:             []byte("request-1"),
			},
		}})
	}))
}

func TestHTTPAttestor(t *testing.T) {
	require := require.New(t)

	staticPrivate, staticPublic, err := GenerateKeyPair()
	require.NoError(err)
	enclave := &testEnclave{staticPrivate: staticPrivate, staticPublic: staticPublic}
	srv := newAttestationServer(t, enclave)
	defer srv.Close()

	auth := Auth{Username: "alice", Password: "secret"}
	a, err := NewHTTPAttestor(srv.Client(), srv.URL, auth, EnclaveConfig{EnclaveName: "test enclave"}, logging.MustGetLogger("test"))
	require.NoError(err)

	att, err := a.PerformForCDS(context.Background())
	require.NoError(err)
	require.Equal(auth, att.Auth)
	require.Equal("test enclave", att.EnclaveConfig.EnclaveName)
	require.NotEmpty(att.EnclaveConfig.Host)
	require.Len(att.Cookies, 1)
	require.Equal("session", att.Cookies[0].Name)

	ra := att.RemoteAttestations["enclave-a"]
	require.NotNil(ra)
	require.Equal([]byte("request-1"), ra.RequestID)
	require.Equal(*enclave.serverKeys, ra.Keys)
}

func TestHTTPAttestorUnauthorized(t *testing.T) {
	require := require.New(t)

	staticPrivate, staticPublic, err := GenerateKeyPair()
	require.NoError(err)
	srv := newAttestationServer(t, &testEnclave{staticPrivate: staticPrivate, staticPublic: staticPublic})
	defer srv.Close()

	a, err := NewHTTPAttestor(srv.Client(), srv.URL, Auth{Username: "mallory"}, EnclaveConfig{EnclaveName: "test enclave"}, logging.MustGetLogger("test"))
	require.NoError(err)

	_, err = a.PerformForCDS(context.Background())
	var herr *httpclient.HTTPError
	require.ErrorAs(err, &herr)
	require.Equal(http.StatusUnauthorized, herr.StatusCode)
}

func TestNewHTTPAttestorValidation(t *testing.T) {
	require := require.New(t)

	log := logging.MustGetLogger("test")
	_, err := NewHTTPAttestor(http.DefaultClient, "https://cds.example.org", Auth{}, EnclaveConfig{}, log)
	require.Error(err)
	_, err = NewHTTPAttestor(http.DefaultClient, "cds.example.org", Auth{}, EnclaveConfig{EnclaveName: "x"}, log)
	require.Error(err)

	a, err := NewHTTPAttestor(http.DefaultClient, "https://cds.example.org/base", Auth{}, EnclaveConfig{EnclaveName: "x"}, log)
	require.NoError(err)
	require.Equal("https://cds.example.org/base/v1/attestation/x", a.url)
	require.Equal("cds.example.org", a.enclave.Host)
}
