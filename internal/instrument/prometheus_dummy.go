// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

//go:build noprometheus
// +build noprometheus

package instrument

import "net/http"

// BatchStarted is a noop.
func BatchStarted() func() { return func() {} }

// DiscoveryFailed is a noop.
func DiscoveryFailed(kind string) {}

// ContactsDiscovered is a noop.
func ContactsDiscovered(n int) {}

// Handler returns a handler that always answers 404.
func Handler() http.Handler { return http.NotFoundHandler() }
