// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package aesgcm provides AES-256-GCM with a detached authentication tag,
// the AEAD used by the contact discovery enclave protocol.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	"github.com/katzenpost/hpqc/rand"
)

const (
	// KeySize is the key size in bytes.
	KeySize = 32

	// NonceSize is the nonce size in bytes.
	NonceSize = 12

	// TagSize is the authentication tag size in bytes.
	TagSize = 16
)

// ErrAuthentication is returned when a ciphertext fails to authenticate.
var ErrAuthentication = errors.New("aesgcm: message authentication failed")

// EncryptedData is the output of Encrypt: the ciphertext with its nonce and
// detached tag.
type EncryptedData struct {
	Nonce             []byte
	Ciphertext        []byte
	AuthenticationTag []byte
}

// GenerateKey returns a fresh random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("aesgcm: failed to generate key: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aesgcm: invalid key size %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with a random nonce, binding the
// optional associated data ad.
func Encrypt(plaintext, key, ad []byte) (*EncryptedData, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("aesgcm: failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, ad)
	split := len(sealed) - TagSize
	return &EncryptedData{
		Nonce:             nonce,
		Ciphertext:        sealed[:split:split],
		AuthenticationTag: sealed[split:],
	}, nil
}

// Decrypt authenticates and opens d under key.  Any tampering with the
// nonce, ciphertext, tag or associated data yields ErrAuthentication.
func (d *EncryptedData) Decrypt(key, ad []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(d.Nonce) != NonceSize {
		return nil, fmt.Errorf("aesgcm: invalid nonce size %d", len(d.Nonce))
	}
	if len(d.AuthenticationTag) != TagSize {
		return nil, fmt.Errorf("aesgcm: invalid tag size %d", len(d.AuthenticationTag))
	}
	sealed := make([]byte, 0, len(d.Ciphertext)+TagSize)
	sealed = append(sealed, d.Ciphertext...)
	sealed = append(sealed, d.AuthenticationTag...)
	plaintext, err := aead.Open(nil, d.Nonce, sealed, ad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
