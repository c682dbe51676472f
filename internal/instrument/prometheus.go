// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !noprometheus
// +build !noprometheus

// Package instrument exposes contact discovery metrics.
package instrument

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "cds"
	subsystem = "client"
)

var (
	batches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batches_total",
			Help:      "Number of discovery batches started",
		},
	)
	batchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batch_failures_total",
			Help:      "Number of failed discovery operations per error kind",
		},
		[]string{"kind"},
	)
	discoveredContacts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discovered_contacts_total",
			Help:      "Number of registered contacts discovered",
		},
	)
	batchDuration = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a single discovery batch round trip",
		},
	)
)

func init() {
	prometheus.MustRegister(batches)
	prometheus.MustRegister(batchFailures)
	prometheus.MustRegister(discoveredContacts)
	prometheus.MustRegister(batchDuration)
}

// BatchStarted increments the batch counter and returns a func that
// records the batch duration when called.
func BatchStarted() func() {
	batches.Inc()
	start := time.Now()
	return func() {
		batchDuration.Observe(time.Since(start).Seconds())
	}
}

// DiscoveryFailed counts a failed discovery by error kind.
func DiscoveryFailed(kind string) {
	batchFailures.With(prometheus.Labels{"kind": kind}).Inc()
}

// ContactsDiscovered adds n to the discovered contacts counter.
func ContactsDiscovered(n int) {
	discoveredContacts.Add(float64(n))
}

// Handler returns the metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
