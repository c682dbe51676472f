// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package discovery

import (
	"github.com/katzenpost/cds/e164"
)

// Batches splits numbers into disjoint chunks of at most size members that
// together cover the input exactly once.  An empty set yields no chunks.
func Batches(numbers e164.Set, size int) [][]e164.E164 {
	if size <= 0 {
		size = BatchSize
	}
	if numbers.Len() == 0 {
		return nil
	}
	all := numbers.Sorted()
	batches := make([][]e164.E164, 0, (len(all)+size-1)/size)
	for len(all) > 0 {
		n := size
		if n > len(all) {
			n = len(all)
		}
		batches = append(batches, all[:n:n])
		all = all[n:]
	}
	return batches
}
