/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package testutil provides key material for tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"
)

const rsaKeySize = 2048

// Ed25519Key generates a private Ed25519 JWK.
func Ed25519Key(t *testing.T, kid string) *jose.JSONWebKey {
	t.Helper()

	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return &jose.JSONWebKey{Key: privKey, KeyID: kid, Algorithm: "EdDSA"}
}

// P256Key generates a private P-256 JWK.
func P256Key(t *testing.T, kid string) *jose.JSONWebKey {
	t.Helper()

	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	return &jose.JSONWebKey{Key: privKey, KeyID: kid, Algorithm: "ES256"}
}

// P384Key generates a private P-384 JWK.
func P384Key(t *testing.T, kid string) *jose.JSONWebKey {
	t.Helper()

	privKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	return &jose.JSONWebKey{Key: privKey, KeyID: kid, Algorithm: "ES384"}
}

// RSAKey generates a private RSA JWK without a fixed algorithm.
func RSAKey(t *testing.T, kid string) *jose.JSONWebKey {
	t.Helper()

	privKey, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	require.NoError(t, err)

	return &jose.JSONWebKey{Key: privKey, KeyID: kid}
}

// PublicKey returns the public part of a private JWK.
func PublicKey(t *testing.T, key *jose.JSONWebKey) *jose.JSONWebKey {
	t.Helper()

	pub := key.Public()
	require.True(t, pub.Valid())

	return &pub
}

// CounterReader is a deterministic io.Reader producing 0, 1, 2, ... bytes.
type CounterReader struct {
	next byte
}

// Read fills p with the next counter values.
func (r *CounterReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}

	return len(p), nil
}
