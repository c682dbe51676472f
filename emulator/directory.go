// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package emulator

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/katzenpost/cds/e164"
)

// LoadDirectory registers every "<e164> <uuid>" line read from r.  Blank
// lines and lines starting with # are skipped.
func (e *Emulator) LoadDirectory(r io.Reader) (int, error) {
	n := 0
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return n, fmt.Errorf("emulator: line %d: expected <e164> <uuid>", line)
		}
		number, err := e164.Parse(fields[0])
		if err != nil {
			return n, fmt.Errorf("emulator: line %d: %w", line, err)
		}
		id, err := uuid.Parse(fields[1])
		if err != nil {
			return n, fmt.Errorf("emulator: line %d: %w", line, err)
		}
		e.Register(number, id)
		n++
	}
	return n, sc.Err()
}
