// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package aesgcm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	require := require.New(t)

	key, err := GenerateKey()
	require.NoError(err)
	require.Len(key, KeySize)

	plaintext := []byte("nonce and addresses")
	ad := []byte("request id")
	enc, err := Encrypt(plaintext, key, ad)
	require.NoError(err)
	require.Len(enc.Nonce, NonceSize)
	require.Len(enc.AuthenticationTag, TagSize)
	require.Len(enc.Ciphertext, len(plaintext))

	out, err := enc.Decrypt(key, ad)
	require.NoError(err)
	require.Equal(plaintext, out)

	_, err = enc.Decrypt(key, []byte("other request id"))
	require.ErrorIs(err, ErrAuthentication)

	otherKey, err := GenerateKey()
	require.NoError(err)
	_, err = enc.Decrypt(otherKey, ad)
	require.ErrorIs(err, ErrAuthentication)
}

func TestTamperRejection(t *testing.T) {
	require := require.New(t)

	key, err := GenerateKey()
	require.NoError(err)
	enc, err := Encrypt(bytes.Repeat([]byte{0x42}, 64), key, nil)
	require.NoError(err)

	flip := func(b []byte, i int) []byte {
		c := append([]byte{}, b...)
		c[i/8] ^= 1 << (i % 8)
		return c
	}
	for i := 0; i < len(enc.Ciphertext)*8; i += 37 {
		bad := &EncryptedData{Nonce: enc.Nonce, Ciphertext: flip(enc.Ciphertext, i), AuthenticationTag: enc.AuthenticationTag}
		_, err := bad.Decrypt(key, nil)
		require.ErrorIs(err, ErrAuthentication)
	}
	for i := 0; i < TagSize*8; i++ {
		bad := &EncryptedData{Nonce: enc.Nonce, Ciphertext: enc.Ciphertext, AuthenticationTag: flip(enc.AuthenticationTag, i)}
		_, err := bad.Decrypt(key, nil)
		require.ErrorIs(err, ErrAuthentication)
	}
}

func TestInvalidSizes(t *testing.T) {
	require := require.New(t)

	_, err := Encrypt([]byte("x"), make([]byte, 16), nil)
	require.Error(err)

	key, err := GenerateKey()
	require.NoError(err)
	enc, err := Encrypt([]byte("x"), key, nil)
	require.NoError(err)

	_, err = (&EncryptedData{Nonce: enc.Nonce[:8], Ciphertext: enc.Ciphertext, AuthenticationTag: enc.AuthenticationTag}).Decrypt(key, nil)
	require.Error(err)
	_, err = (&EncryptedData{Nonce: enc.Nonce, Ciphertext: enc.Ciphertext, AuthenticationTag: enc.AuthenticationTag[:4]}).Decrypt(key, nil)
	require.Error(err)
}
