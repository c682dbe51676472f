// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package emulator is an in process development enclave.  It speaks the
// attestation and discovery wire protocols, holds the registered user
// directory in memory and enforces single use request ids, which makes it
// suitable for integration tests and local development.  It performs no
// real remote attestation.
package emulator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/katzenpost/hpqc/rand"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/crypto/aesgcm"
	"github.com/katzenpost/cds/discovery"
	"github.com/katzenpost/cds/e164"
	"github.com/katzenpost/cds/transport"
)

const (
	requestIDSize  = 16
	maxRequestSize = 1 << 20
	sessionCookie  = "cds-session"
)

// Config configures an Emulator.
type Config struct {
	// EnclaveName is the only enclave name served, others yield 404.
	EnclaveName string

	// Enclaves are the attestation ids of the emulated enclave instances.
	Enclaves []attestation.ID

	// Auth is the required basic auth credential.
	Auth attestation.Auth

	// CensorshipCircumventionPrefix additionally serves both endpoints
	// under /{prefix}.
	CensorshipCircumventionPrefix string
}

type enclave struct {
	staticPrivate []byte
	staticPublic  []byte
}

type session struct {
	id     attestation.ID
	keys   *attestation.Keys
	cookie string
}

type fault struct {
	status     int
	retryAfter time.Duration
}

// Emulator is a development enclave.
type Emulator struct {
	sync.Mutex

	cfg Config
	log *logging.Logger

	enclaves   map[attestation.ID]*enclave
	registered map[e164.E164]uuid.UUID
	pending    map[string]*session
	used       map[string]struct{}
	faults     []fault
}

// New returns an Emulator for cfg.
func New(cfg *Config, log *logging.Logger) (*Emulator, error) {
	if cfg.EnclaveName == "" {
		return nil, errors.New("emulator: missing enclave name")
	}
	e := &Emulator{
		cfg:        *cfg,
		log:        log,
		enclaves:   make(map[attestation.ID]*enclave),
		registered: make(map[e164.E164]uuid.UUID),
		pending:    make(map[string]*session),
		used:       make(map[string]struct{}),
	}
	if len(e.cfg.Enclaves) == 0 {
		e.cfg.Enclaves = []attestation.ID{"enclave-0"}
	}
	for _, id := range e.cfg.Enclaves {
		priv, pub, err := attestation.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		e.enclaves[id] = &enclave{staticPrivate: priv, staticPublic: pub}
	}
	return e, nil
}

// Register adds a registered user.
func (e *Emulator) Register(number e164.E164, id uuid.UUID) {
	e.Lock()
	defer e.Unlock()
	e.registered[number] = id
}

// Unregister removes a registered user.
func (e *Emulator) Unregister(number e164.E164) {
	e.Lock()
	defer e.Unlock()
	delete(e.registered, number)
}

// FailNext makes the next discovery request fail with status, announcing
// retryAfter when it is non zero.  Calls queue up.
func (e *Emulator) FailNext(status int, retryAfter time.Duration) {
	e.Lock()
	defer e.Unlock()
	e.faults = append(e.faults, fault{status: status, retryAfter: retryAfter})
}

// Handler returns the HTTP handler serving both endpoints.
func (e *Emulator) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(e.requestLogger)
	e.routes(r)
	if p := e.cfg.CensorshipCircumventionPrefix; p != "" {
		r.Route("/"+p, e.routes)
	}
	return r
}

func (e *Emulator) routes(r chi.Router) {
	r.With(e.authenticate).Post("/v1/attestation/{enclave}", e.handleAttestation)
	r.With(e.authenticate).Put("/v1/discovery/{enclave}", e.handleDiscovery)
}

func (e *Emulator) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		e.log.Debugf("%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (e *Emulator) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "enclave") != e.cfg.EnclaveName {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != e.cfg.Auth.Username || pass != e.cfg.Auth.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (e *Emulator) handleAttestation(w http.ResponseWriter, r *http.Request) {
	var req attestation.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	cookie, err := randomBytes(16)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cookieValue := hex.EncodeToString(cookie)

	resp := &attestation.Response{Attestations: make(map[attestation.ID]*attestation.Quote, len(e.enclaves))}
	sessions := make(map[string]*session, len(e.enclaves))
	for id, enc := range e.enclaves {
		ephPrivate, ephPublic, err := attestation.GenerateKeyPair()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		keys, err := attestation.DeriveServerKeys(ephPrivate, enc.staticPrivate, req.ClientPublic)
		if err != nil {
			http.Error(w, "invalid client public key", http.StatusBadRequest)
			return
		}
		requestID, err := randomBytes(requestIDSize)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sessions[string(requestID)] = &session{id: id, keys: keys, cookie: cookieValue}
		resp.Attestations[id] = &attestation.Quote{
			ServerEphemeralPublic: ephPublic,
			ServerStaticPublic:    enc.staticPublic,
			RequestID:             requestID,
		}
	}

	e.Lock()
	for k, s := range sessions {
		e.pending[k] = s
	}
	e.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: cookieValue, HttpOnly: true})
	writeJSON(w, resp)
}

func (e *Emulator) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	var wq transport.Query
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestSize)).Decode(&wq); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	q := wq.IntersectionQuery()

	e.Lock()
	if len(e.faults) > 0 {
		f := e.faults[0]
		e.faults = e.faults[1:]
		e.Unlock()
		if f.retryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(f.retryAfter/time.Second)))
		}
		http.Error(w, http.StatusText(f.status), f.status)
		return
	}
	var cookie string
	if c, err := r.Cookie(sessionCookie); err == nil {
		cookie = c.Value
	}
	s, env, status := e.claim(q, cookie)
	registered := make(map[e164.E164]uuid.UUID, len(e.registered))
	for k, v := range e.registered {
		registered[k] = v
	}
	e.Unlock()

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}

	resp, err := answer(s, env, q, registered)
	if err != nil {
		e.log.Warningf("Rejecting query for %s: %v", s.id, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, transport.NewResponse(resp))
}

// claim consumes the request id of the first envelope addressed to a known
// attestation, provided cookie belongs to its session.  A request with the
// wrong cookie leaves the id pending.  Reusing a consumed request id is a
// conflict.  Must be called with the lock held.
func (e *Emulator) claim(q *discovery.IntersectionQuery, cookie string) (*session, *discovery.EnclaveEnvelope, int) {
	for _, env := range q.Envelopes {
		if env == nil {
			continue
		}
		key := string(env.RequestID)
		if s, ok := e.pending[key]; ok {
			if cookie == "" || cookie != s.cookie {
				return nil, nil, http.StatusUnauthorized
			}
			delete(e.pending, key)
			e.used[key] = struct{}{}
			return s, env, http.StatusOK
		}
	}
	for _, env := range q.Envelopes {
		if env == nil {
			continue
		}
		if _, ok := e.used[string(env.RequestID)]; ok {
			return nil, nil, http.StatusConflict
		}
	}
	return nil, nil, http.StatusBadRequest
}

func answer(s *session, env *discovery.EnclaveEnvelope, q *discovery.IntersectionQuery, registered map[e164.E164]uuid.UUID) (*discovery.IntersectionResponse, error) {
	wrapped := &aesgcm.EncryptedData{Nonce: env.IV, Ciphertext: env.Data, AuthenticationTag: env.MAC}
	queryKey, err := wrapped.Decrypt(s.keys.ClientKey, env.RequestID)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	sealed := &aesgcm.EncryptedData{Nonce: q.IV, Ciphertext: q.Data, AuthenticationTag: q.MAC}
	plaintext, err := sealed.Decrypt(queryKey, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if sum := sha256.Sum256(plaintext); !bytes.Equal(sum[:], q.Commitment) {
		return nil, errors.New("commitment mismatch")
	}
	if len(plaintext) < discovery.QueryNonceSize {
		return nil, errors.New("query too short")
	}
	numbers, err := e164.Decode(plaintext[discovery.QueryNonceSize:])
	if err != nil {
		return nil, err
	}
	if uint(len(numbers)) != q.AddressCount {
		return nil, fmt.Errorf("address count %d does not match %d addresses", q.AddressCount, len(numbers))
	}

	out := make([]byte, 0, len(numbers)*discovery.UUIDSize)
	for _, n := range numbers {
		id := registered[n]
		out = append(out, id[:]...)
	}
	resp, err := aesgcm.Encrypt(out, s.keys.ServerKey, nil)
	if err != nil {
		return nil, err
	}
	return &discovery.IntersectionResponse{
		RequestID: env.RequestID,
		Data:      resp.Ciphertext,
		IV:        resp.Nonce,
		MAC:       resp.AuthenticationTag,
	}, nil
}
