// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package attestation

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/katzenpost/hpqc/rand"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of the X25519 keys and of each derived symmetric key.
const KeySize = 32

// GenerateKeyPair returns a fresh X25519 key pair.
func GenerateKeyPair() (privateKey, publicKey []byte, err error) {
	privateKey = make([]byte, curve25519.ScalarSize)
	if _, err = io.ReadFull(rand.Reader, privateKey); err != nil {
		return nil, nil, err
	}
	publicKey, err = curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	return privateKey, publicKey, nil
}

// DeriveClientKeys derives the session keys on the client side of the
// handshake from the client ephemeral private key and the two enclave
// public keys.
func DeriveClientKeys(clientEphemeralPrivate, serverEphemeralPublic, serverStaticPublic []byte) (*Keys, error) {
	clientEphemeralPublic, err := curve25519.X25519(clientEphemeralPrivate, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	ee, err := curve25519.X25519(clientEphemeralPrivate, serverEphemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("attestation: ephemeral agreement: %w", err)
	}
	es, err := curve25519.X25519(clientEphemeralPrivate, serverStaticPublic)
	if err != nil {
		return nil, fmt.Errorf("attestation: static agreement: %w", err)
	}
	return deriveKeys(ee, es, clientEphemeralPublic, serverEphemeralPublic, serverStaticPublic)
}

// DeriveServerKeys is the enclave side counterpart of DeriveClientKeys.
func DeriveServerKeys(serverEphemeralPrivate, serverStaticPrivate, clientEphemeralPublic []byte) (*Keys, error) {
	serverEphemeralPublic, err := curve25519.X25519(serverEphemeralPrivate, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	serverStaticPublic, err := curve25519.X25519(serverStaticPrivate, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	ee, err := curve25519.X25519(serverEphemeralPrivate, clientEphemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("attestation: ephemeral agreement: %w", err)
	}
	es, err := curve25519.X25519(serverStaticPrivate, clientEphemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("attestation: static agreement: %w", err)
	}
	return deriveKeys(ee, es, clientEphemeralPublic, serverEphemeralPublic, serverStaticPublic)
}

// deriveKeys expands ee || es with the three public keys as salt into the
// client and server keys, in that order.
func deriveKeys(ee, es, clientEphemeralPublic, serverEphemeralPublic, serverStaticPublic []byte) (*Keys, error) {
	secret := make([]byte, 0, 2*KeySize)
	secret = append(secret, ee...)
	secret = append(secret, es...)

	salt := make([]byte, 0, 3*KeySize)
	salt = append(salt, clientEphemeralPublic...)
	salt = append(salt, serverEphemeralPublic...)
	salt = append(salt, serverStaticPublic...)

	okm := make([]byte, 2*KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, nil), okm); err != nil {
		return nil, err
	}
	return &Keys{
		ClientKey: okm[:KeySize:KeySize],
		ServerKey: okm[KeySize:],
	}, nil
}
