// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !noprometheus
// +build !noprometheus

package instrument

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	require := require.New(t)

	before := testutil.ToFloat64(batches)
	done := BatchStarted()
	done()
	require.Equal(before+1, testutil.ToFloat64(batches))

	ContactsDiscovered(3)
	require.GreaterOrEqual(testutil.ToFloat64(discoveredContacts), float64(3))

	DiscoveryFailed("rateLimit")
	DiscoveryFailed("rateLimit")
	require.Equal(float64(2), testutil.ToFloat64(batchFailures.WithLabelValues("rateLimit")))
}

func TestHandler(t *testing.T) {
	require := require.New(t)

	BatchStarted()()
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Contains(string(body), "cds_client_batches_total")
}
