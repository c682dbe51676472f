// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package e164 implements the E.164 phone number value type that is used
// as the contact discovery query key.
package e164

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

const (
	// EncodedSize is the length in bytes of one number in the query
	// plaintext.
	EncodedSize = 8

	maxDigits = 15
)

// ErrInvalid is returned when a string is not a valid E.164 number.
var ErrInvalid = errors.New("e164: invalid phone number")

var separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\u00a0", "")

// E164 is a validated phone number in "+<digits>" form.  The zero value is
// not a valid number.
type E164 string

// Parse validates and normalizes s.  Full width digits are folded and the
// common visual separators are stripped, anything else is rejected.
func Parse(s string) (E164, error) {
	n := separators.Replace(width.Narrow.String(strings.TrimSpace(s)))
	if !strings.HasPrefix(n, "+") {
		return "", fmt.Errorf("%w: %q has no leading '+'", ErrInvalid, s)
	}
	digits := n[1:]
	if len(digits) == 0 || len(digits) > maxDigits {
		return "", fmt.Errorf("%w: %q must have between 1 and %d digits", ErrInvalid, s, maxDigits)
	}
	if digits[0] == '0' {
		return "", fmt.Errorf("%w: %q has a leading zero country code", ErrInvalid, s)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalid, s, c)
		}
	}
	return E164(n), nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) E164 {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// FromUint64 returns the number whose numeric value is v.
func FromUint64(v uint64) (E164, error) {
	return Parse("+" + strconv.FormatUint(v, 10))
}

// String returns the "+<digits>" form.
func (e E164) String() string {
	return string(e)
}

// Uint64 returns the numeric value of the number, 0 for the zero value.
func (e E164) Uint64() uint64 {
	if len(e) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(string(e[1:]), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Redacted returns the number with all but the last four digits masked,
// suitable for logging.
func (e E164) Redacted() string {
	s := string(e)
	if len(s) <= 5 {
		return "+****"
	}
	return "+" + strings.Repeat("*", len(s)-5) + s[len(s)-4:]
}

// Encode serializes numbers as consecutive 8 byte big endian integers, in
// slice order.
func Encode(numbers []E164) []byte {
	b := make([]byte, len(numbers)*EncodedSize)
	for i, e := range numbers {
		binary.BigEndian.PutUint64(b[i*EncodedSize:], e.Uint64())
	}
	return b
}

// Decode is the inverse of Encode.
func Decode(b []byte) ([]E164, error) {
	if len(b)%EncodedSize != 0 {
		return nil, fmt.Errorf("e164: encoded length %d is not a multiple of %d", len(b), EncodedSize)
	}
	numbers := make([]E164, 0, len(b)/EncodedSize)
	for off := 0; off < len(b); off += EncodedSize {
		e, err := FromUint64(binary.BigEndian.Uint64(b[off:]))
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, e)
	}
	return numbers, nil
}

// Set is an unordered collection of distinct numbers.
type Set map[E164]struct{}

// NewSet returns a Set holding numbers.
func NewSet(numbers ...E164) Set {
	s := make(Set, len(numbers))
	for _, e := range numbers {
		s.Add(e)
	}
	return s
}

// Add inserts e.
func (s Set) Add(e E164) {
	s[e] = struct{}{}
}

// Contains returns true iff e is a member.
func (s Set) Contains(e E164) bool {
	_, ok := s[e]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members ordered by numeric value.
func (s Set) Sorted() []E164 {
	numbers := make([]E164, 0, len(s))
	for e := range s {
		numbers = append(numbers, e)
	}
	sort.Slice(numbers, func(i, j int) bool {
		return numbers[i].Uint64() < numbers[j].Uint64()
	})
	return numbers
}
