// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package common

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/katzenpost/cds/e164"
)

// ParseNumbers adds every argument to set.
func ParseNumbers(set e164.Set, args []string) error {
	for _, arg := range args {
		n, err := e164.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid phone number '%v': %w", arg, err)
		}
		set.Add(n)
	}
	return nil
}

// ReadNumbers adds one number per line of r to set, skipping blank lines
// and # comments.
func ReadNumbers(set e164.Set, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		n, err := e164.Parse(text)
		if err != nil {
			return fmt.Errorf("invalid phone number on line %d: %w", line, err)
		}
		set.Add(n)
	}
	return sc.Err()
}
