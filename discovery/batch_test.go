// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katzenpost/cds/e164"
)

func numberSet(t *testing.T, n int) e164.Set {
	s := e164.NewSet()
	for i := 0; i < n; i++ {
		e, err := e164.FromUint64(15550000000 + uint64(i))
		require.NoError(t, err)
		s.Add(e)
	}
	return s
}

func TestBatches(t *testing.T) {
	require := require.New(t)

	for _, tc := range []struct {
		n, size int
		want    []int
	}{
		{0, BatchSize, nil},
		{1, BatchSize, []int{1}},
		{BatchSize, BatchSize, []int{BatchSize}},
		{BatchSize + 1, BatchSize, []int{BatchSize, 1}},
		{5000, BatchSize, []int{2048, 2048, 904}},
		{10, 3, []int{3, 3, 3, 1}},
		{4, 0, []int{4}},
	} {
		set := numberSet(t, tc.n)
		batches := Batches(set, tc.size)
		require.Len(batches, len(tc.want), "n=%d size=%d", tc.n, tc.size)

		seen := e164.NewSet()
		for i, b := range batches {
			require.Len(b, tc.want[i])
			for _, e := range b {
				require.False(seen.Contains(e), "duplicate %s", e)
				seen.Add(e)
			}
		}
		require.Equal(set, seen)
	}
}

func TestBatchesDoNotAlias(t *testing.T) {
	require := require.New(t)

	batches := Batches(numberSet(t, 6), 3)
	require.Len(batches, 2)
	second := batches[1][0]
	batches[0] = append(batches[0], e164.MustParse("+4930123456"))
	require.Equal(second, batches[1][0])
}
