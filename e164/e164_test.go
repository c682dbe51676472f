// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package e164

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	require := require.New(t)

	e, err := Parse("+1 (555) 123-4567")
	require.NoError(err)
	require.Equal(E164("+15551234567"), e)
	require.Equal(uint64(15551234567), e.Uint64())

	e, err = Parse("＋４９ ３０ １２３４５６")
	require.NoError(err)
	require.Equal(E164("+4930123456"), e)

	for _, bad := range []string{"", "+", "15551234567", "+0123", "+1555abc", "+1234567890123456"} {
		_, err := Parse(bad)
		require.Error(err, bad)
		require.True(errors.Is(err, ErrInvalid), bad)
	}

	require.Panics(func() { MustParse("nope") })
}

func TestRedacted(t *testing.T) {
	require := require.New(t)

	require.Equal("+*******4567", MustParse("+15551234567").Redacted())
	require.Equal("+****", MustParse("+1234").Redacted())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	require := require.New(t)

	numbers := []E164{
		MustParse("+15551234567"),
		MustParse("+4930123456"),
		MustParse("+999999999999999"),
		MustParse("+1"),
	}
	b := Encode(numbers)
	require.Len(b, len(numbers)*EncodedSize)
	require.Equal([]byte{0x00, 0x00, 0x00, 0x03, 0x9e, 0xed, 0x02, 0x07}, b[:EncodedSize])

	decoded, err := Decode(b)
	require.NoError(err)
	require.Equal(numbers, decoded)

	_, err = Decode(b[:EncodedSize+1])
	require.Error(err)

	_, err = Decode(make([]byte, EncodedSize))
	require.Error(err)
}

func TestSet(t *testing.T) {
	require := require.New(t)

	a := MustParse("+15551234567")
	b := MustParse("+4930123456")
	s := NewSet(a, b, a)
	require.Equal(2, s.Len())
	require.True(s.Contains(a))
	require.False(s.Contains(MustParse("+15550000000")))
	require.Equal([]E164{b, a}, s.Sorted())
}
