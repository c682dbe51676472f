// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/cds/core/retry"
	"github.com/katzenpost/cds/e164"
)

// Ledger remembers retry deadlines across process restarts.
type Ledger interface {
	NotBefore(name string) (time.Time, error)
	Record(name, reason string, until time.Time) error
	Clear(name string) error
}

// Retrier repeats Client.Discover while failures are retryable.
type Retrier struct {
	client *Client
	policy retry.Policy
	ledger Ledger
	name   string
	log    *logging.Logger

	sleep func(context.Context, time.Duration) error
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithLedger persists retry deadlines under name.
func WithLedger(l Ledger, name string) RetrierOption {
	return func(r *Retrier) {
		r.ledger = l
		r.name = name
	}
}

// WithSleep overrides retry.Sleep.
func WithSleep(sleep func(context.Context, time.Duration) error) RetrierOption {
	return func(r *Retrier) { r.sleep = sleep }
}

// NewRetrier wraps client.
func NewRetrier(client *Client, policy retry.Policy, opts ...RetrierOption) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = retry.DefaultMaxAttempts
	}
	r := &Retrier{
		client: client,
		policy: policy,
		log:    client.log,
		sleep:  retry.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover runs Client.Discover, retrying retryable and connectivity
// failures up to the policy's attempt limit.  Each wait is the longer of
// the policy backoff and the server's retry deadline.
func (r *Retrier) Discover(ctx context.Context, numbers e164.Set) (DiscoveredContacts, error) {
	if err := r.checkLedger(); err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		contacts, err := r.client.Discover(ctx, numbers)
		if err == nil {
			if r.ledger != nil {
				if err := r.ledger.Clear(r.name); err != nil {
					r.log.Warningf("Failed to clear backoff ledger: %v", err)
				}
			}
			return contacts, nil
		}

		notBefore, hasDeadline := RetryAfter(err)
		if hasDeadline && r.ledger != nil {
			if lerr := r.ledger.Record(r.name, kindOf(err), notBefore); lerr != nil {
				r.log.Warningf("Failed to record backoff deadline: %v", lerr)
			}
		}
		if !IsRetryable(err) && !IsConnectivityFailure(err) {
			return nil, err
		}
		if attempt+1 >= r.policy.MaxAttempts {
			r.log.Warningf("Giving up after %d attempts: %v", attempt+1, err)
			return nil, err
		}

		d := r.policy.Backoff(attempt, r.client.now(), notBefore)
		r.log.Noticef("Attempt %d failed, retrying in %v: %v", attempt+1, d, err)
		if serr := r.sleep(ctx, d); serr != nil {
			return nil, serr
		}
	}
}

func (r *Retrier) checkLedger() error {
	if r.ledger == nil {
		return nil
	}
	notBefore, err := r.ledger.NotBefore(r.name)
	if err != nil {
		return fmt.Errorf("discovery: failed to read backoff ledger: %w", err)
	}
	if now := r.client.now(); now.Before(notBefore) {
		return &Error{
			Kind:             KindRateLimit,
			DebugDescription: fmt.Sprintf("backing off until %s", notBefore.UTC().Format(time.RFC3339)),
			Retryable:        true,
			RetryAfter:       notBefore,
			Err:              ErrBackingOff,
		}
	}
	return nil
}

func kindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return KindGeneric.String()
}
