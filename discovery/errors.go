// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultMaxRetryAfter caps how far in the future a server supplied retry
// deadline may lie.
const DefaultMaxRetryAfter = 60 * time.Second

// Kind is the category of a discovery failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindUnauthorized
	KindUnexpectedResponse
	KindTimeout
	KindGenericClient
	KindRateLimit
	KindGenericServer
	KindAssertion
)

var kindNames = map[Kind]string{
	KindGeneric:            "generic",
	KindUnauthorized:       "unauthorized",
	KindUnexpectedResponse: "unexpectedResponse",
	KindTimeout:            "timeout",
	KindGenericClient:      "genericClientError",
	KindRateLimit:          "rateLimit",
	KindGenericServer:      "genericServerError",
	KindAssertion:          "assertionError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrBackingOff is wrapped by the error Retrier returns while a previously
// recorded retry deadline has not yet passed.
var ErrBackingOff = errors.New("discovery: backing off")

// Error is a classified discovery failure.
type Error struct {
	Kind             Kind
	DebugDescription string
	Retryable        bool

	// RetryAfter is the earliest time a retry is welcome, zero if the
	// server did not say.
	RetryAfter time.Time

	Err error
}

// Error implements error.
func (e *Error) Error() string {
	if e.DebugDescription == "" {
		return "discovery: " + e.Kind.String()
	}
	return fmt.Sprintf("discovery: %s: %s", e.Kind, e.DebugDescription)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

func assertionError(format string, args ...interface{}) *Error {
	return &Error{
		Kind:             KindAssertion,
		DebugDescription: fmt.Sprintf(format, args...),
	}
}

// Transport errors are recognised through these methods so that the
// classifier does not depend on any particular transport.
type (
	httpStatusCoder interface {
		HTTPStatusCode() int
	}
	httpRetryAfterer interface {
		HTTPRetryAfter() (time.Time, bool)
	}
	connectivityFailure interface {
		NetworkConnectivityFailure() bool
	}
)

// IsConnectivityFailure reports whether err means the service could not be
// reached at all.
func IsConnectivityFailure(err error) bool {
	var cf connectivityFailure
	return errors.As(err, &cf) && cf.NetworkConnectivityFailure()
}

// IsRetryable reports whether err is a classified error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// RetryAfter returns the retry deadline carried by err, if any.
func RetryAfter(err error) (time.Time, bool) {
	var e *Error
	if errors.As(err, &e) && !e.RetryAfter.IsZero() {
		return e.RetryAfter, true
	}
	return time.Time{}, false
}

// Classify maps a raw failure to the error reported to the caller.
//
// Connectivity failures, errors that are already classified and errors
// that carry no HTTP status are returned unchanged.  Everything else
// becomes an *Error whose kind and retryability follow from the status
// code, and whose retry deadline is the server supplied one clamped to at
// most now+maxRetryAfter.
func Classify(err error, now time.Time, maxRetryAfter time.Duration) error {
	if err == nil {
		return nil
	}
	if IsConnectivityFailure(err) {
		return err
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	var sc httpStatusCoder
	if !errors.As(err, &sc) {
		return err
	}

	status := sc.HTTPStatusCode()
	e := &Error{
		DebugDescription: fmt.Sprintf("%d %s: %v", status, http.StatusText(status), err),
		Err:              err,
	}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusNotFound:
		e.Kind = KindUnexpectedResponse
	case status == http.StatusRequestTimeout:
		e.Kind = KindTimeout
		e.Retryable = true
	case status == http.StatusConflict:
		// A reused request id never succeeds on a plain retry.
		e.Kind = KindGenericClient
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.Retryable = true
	case status >= 400 && status <= 499:
		e.Kind = KindGenericClient
	case status >= 500 && status <= 599:
		e.Kind = KindGenericServer
		e.Retryable = true
	default:
		e.Kind = KindGeneric
		e.DebugDescription = fmt.Sprintf("Unknown error (%d): %v", status, err)
	}

	var ra httpRetryAfterer
	if errors.As(err, &ra) {
		if t, ok := ra.HTTPRetryAfter(); ok {
			limit := now.Add(maxRetryAfter)
			if t.After(limit) {
				t = limit
			}
			e.RetryAfter = t
		}
	}
	return e
}
