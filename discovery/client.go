// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/attestation"
	"github.com/katzenpost/cds/e164"
	"github.com/katzenpost/cds/internal/instrument"
)

// Attestor performs remote attestation against every enclave serving the
// discovery service.  Each call yields fresh request ids.
type Attestor interface {
	PerformForCDS(ctx context.Context) (*attestation.CDSAttestation, error)
}

// Service performs the single discovery round trip for one batch.
type Service interface {
	GetRegisteredUsers(ctx context.Context, req *Request) (*IntersectionResponse, error)
}

// Client discovers which phone numbers belong to registered users.
type Client struct {
	attestor Attestor
	service  Service
	log      *logging.Logger

	batchSize      int
	maxConcurrency int
	maxRetryAfter  time.Duration
	now            func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithBatchSize overrides BatchSize.
func WithBatchSize(n int) Option {
	return func(c *Client) { c.batchSize = n }
}

// WithMaxConcurrency bounds the number of batches in flight, 0 means
// unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) { c.maxConcurrency = n }
}

// WithMaxRetryAfter overrides DefaultMaxRetryAfter.
func WithMaxRetryAfter(d time.Duration) Option {
	return func(c *Client) { c.maxRetryAfter = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a Client using attestor and service.
func New(attestor Attestor, service Service, opts ...Option) *Client {
	c := &Client{
		attestor:      attestor,
		service:       service,
		batchSize:     BatchSize,
		maxRetryAfter: DefaultMaxRetryAfter,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.MustGetLogger("cds/discovery")
	}
	if c.batchSize <= 0 || c.batchSize > BatchSize {
		c.batchSize = BatchSize
	}
	return c
}

// Discover returns every member of numbers that belongs to a registered
// user.  All batches run concurrently; the result is returned only if all
// of them succeed, otherwise the first failure is returned classified.
func (c *Client) Discover(ctx context.Context, numbers e164.Set) (DiscoveredContacts, error) {
	batches := Batches(numbers, c.batchSize)
	c.log.Debugf("Discovering %d numbers in %d batches", numbers.Len(), len(batches))

	results := make([][]RegisteredContact, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			contacts, err := c.discoverBatch(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = contacts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, c.fail(err)
	}

	discovered := make(DiscoveredContacts)
	for _, contacts := range results {
		for _, rc := range contacts {
			discovered[DiscoveredContactInfo{E164: rc.E164, UUID: rc.UUID}] = struct{}{}
		}
	}
	instrument.ContactsDiscovered(len(discovered))
	c.log.Infof("Discovered %d registered contacts out of %d numbers", len(discovered), numbers.Len())
	return discovered, nil
}

func (c *Client) discoverBatch(ctx context.Context, batch []e164.E164) ([]RegisteredContact, error) {
	defer instrument.BatchStarted()()

	att, err := c.attestor.PerformForCDS(ctx)
	if err != nil {
		return nil, err
	}
	if len(att.RemoteAttestations) == 0 {
		return nil, assertionError("attestation returned no enclaves")
	}
	query, err := BuildIntersectionQuery(batch, att.RemoteAttestations)
	if err != nil {
		return nil, err
	}
	resp, err := c.service.GetRegisteredUsers(ctx, &Request{
		Query:         query,
		Cookies:       att.Cookies,
		Auth:          att.Auth,
		EnclaveConfig: att.EnclaveConfig,
	})
	if err != nil {
		return nil, err
	}
	contacts, err := DecodeIntersectionResponse(batch, att.RemoteAttestations, resp)
	if err != nil {
		return nil, err
	}
	if c.log.IsEnabledFor(logging.DEBUG) {
		for _, rc := range contacts {
			c.log.Debugf("Registered: %s", rc.E164.Redacted())
		}
	}
	return contacts, nil
}

func (c *Client) fail(err error) error {
	err = Classify(err, c.now(), c.maxRetryAfter)

	var e *Error
	switch {
	case errors.As(err, &e):
		instrument.DiscoveryFailed(e.Kind.String())
		switch {
		case e.Kind == KindAssertion:
			c.log.Errorf("Discovery failed: %v", err)
		case e.Retryable:
			c.log.Warningf("Discovery failed: %v", err)
		default:
			c.log.Noticef("Discovery failed: %v", err)
		}
	case IsConnectivityFailure(err):
		instrument.DiscoveryFailed("connectivity")
		c.log.Warningf("Discovery failed: %v", err)
	default:
		instrument.DiscoveryFailed(KindGeneric.String())
		c.log.Noticef("Discovery failed: %v", err)
	}
	return err
}
