/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"errors"
	"math/big"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/sd-jwt-go/internal/testutil"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

func TestResolveHolderKey(t *testing.T) {
	holderKey := testutil.P256Key(t, "holder-key")
	holderPublic := testutil.PublicKey(t, holderKey)

	otherKey := testutil.PublicKey(t, testutil.Ed25519Key(t, "other-key"))

	jwkClaim, err := jsonutil.ToMap(holderPublic)
	require.NoError(t, err)

	tp, err := holderPublic.Thumbprint(crypto.SHA256)
	require.NoError(t, err)

	certKey, x5t := certifiedKey(t, holderKey)

	decryptionKey := testutil.P256Key(t, "decryption-key")
	jwe := encryptJWK(t, holderPublic, decryptionKey)

	keySet := &gojose.JSONWebKeySet{Keys: []gojose.JSONWebKey{*otherKey, *holderPublic}}
	keySetProvider := KeySetProviderFunc(func(jku string) (*gojose.JSONWebKeySet, error) {
		if jku != "https://example.com/jwks" {
			return nil, errors.New("not found")
		}

		return keySet, nil
	})

	resolve := func(cnf interface{}, opts ...ParseOpt) (*gojose.JSONWebKey, error) {
		return resolveHolderKey(map[string]interface{}{common.CNFKey: cnf}, newParseOpts(opts))
	}

	requireHolderKey := func(t *testing.T, key *gojose.JSONWebKey, err error) {
		t.Helper()

		require.NoError(t, err)
		require.True(t, key.IsPublic())

		resolved, err := key.Thumbprint(crypto.SHA256)
		require.NoError(t, err)
		require.Equal(t, tp, resolved)
	}

	t.Run("success - jwk", func(t *testing.T) {
		key, err := resolve(map[string]interface{}{"jwk": jwkClaim})
		requireHolderKey(t, key, err)
		require.Equal(t, "holder-key", key.KeyID)
	})

	t.Run("success - jwe", func(t *testing.T) {
		key, err := resolve(map[string]interface{}{"jwe": jwe},
			WithDecryptionKeys(*testutil.P256Key(t, "unrelated"), *decryptionKey))
		requireHolderKey(t, key, err)
	})

	t.Run("success - jku and kid", func(t *testing.T) {
		key, err := resolve(map[string]interface{}{"jku": "https://example.com/jwks", "kid": "holder-key"},
			WithKeySetProvider(keySetProvider))
		requireHolderKey(t, key, err)
	})

	t.Run("success - jku with a single key", func(t *testing.T) {
		single := KeySetProviderFunc(func(string) (*gojose.JSONWebKeySet, error) {
			return &gojose.JSONWebKeySet{Keys: []gojose.JSONWebKey{*holderPublic}}, nil
		})

		key, err := resolve(map[string]interface{}{"jku": "https://example.com/jwks"}, WithKeySetProvider(single))
		requireHolderKey(t, key, err)
	})

	t.Run("success - kid", func(t *testing.T) {
		key, err := resolve(map[string]interface{}{"kid": "holder-key"}, WithHolderKeys(*otherKey, *holderPublic))
		requireHolderKey(t, key, err)
	})

	t.Run("success - jkt", func(t *testing.T) {
		key, err := resolve(map[string]interface{}{"jkt": base64.RawURLEncoding.EncodeToString(tp)},
			WithHolderKeys(*otherKey, *holderPublic))
		requireHolderKey(t, key, err)
	})

	t.Run("success - x5t#S256", func(t *testing.T) {
		key, err := resolve(map[string]interface{}{"x5t#S256": x5t}, WithHolderKeys(*otherKey, certKey))
		requireHolderKey(t, key, err)
	})

	t.Run("success - jwk wins over kid", func(t *testing.T) {
		key, err := resolve(map[string]interface{}{"jwk": jwkClaim, "kid": "other-key"},
			WithHolderKeys(*otherKey))
		requireHolderKey(t, key, err)
	})

	t.Run("error - cnf", func(t *testing.T) {
		_, err := resolveHolderKey(map[string]interface{}{}, newParseOpts(nil))
		require.ErrorIs(t, err, common.ErrKeyResolution)

		_, err = resolve("holder-key")
		require.ErrorIs(t, err, common.ErrKeyResolution)

		_, err = resolve(map[string]interface{}{"unknown": "method"})
		require.ErrorIs(t, err, common.ErrKeyResolution)
		require.ErrorContains(t, err, "no supported confirmation method")
	})

	t.Run("error - invalid jwk", func(t *testing.T) {
		_, err := resolve(map[string]interface{}{"jwk": map[string]interface{}{"kty": "EC"}})
		require.ErrorIs(t, err, common.ErrKeyResolution)
		require.ErrorContains(t, err, "cnf.jwk")
	})

	t.Run("error - jwe", func(t *testing.T) {
		_, err := resolve(map[string]interface{}{"jwe": jwe})
		require.ErrorContains(t, err, "decryption keys are not defined")

		_, err = resolve(map[string]interface{}{"jwe": jwe}, WithDecryptionKeys(*testutil.P256Key(t, "unrelated")))
		require.ErrorIs(t, err, common.ErrKeyResolution)
		require.ErrorContains(t, err, "no decryption key matches")

		_, err = resolve(map[string]interface{}{"jwe": "not-a-jwe"}, WithDecryptionKeys(*decryptionKey))
		require.ErrorContains(t, err, "parse JWE")
	})

	t.Run("error - jku", func(t *testing.T) {
		_, err := resolve(map[string]interface{}{"jku": "https://example.com/jwks", "kid": "holder-key"})
		require.ErrorContains(t, err, "key set provider is not defined")

		_, err = resolve(map[string]interface{}{"jku": "https://example.com/other", "kid": "holder-key"},
			WithKeySetProvider(keySetProvider))
		require.ErrorContains(t, err, "not found")

		_, err = resolve(map[string]interface{}{"jku": "https://example.com/jwks", "kid": "unknown"},
			WithKeySetProvider(keySetProvider))
		require.ErrorContains(t, err, "key unknown not found")

		_, err = resolve(map[string]interface{}{"jku": "https://example.com/jwks"}, WithKeySetProvider(keySetProvider))
		require.ErrorContains(t, err, "kid is required")
	})

	t.Run("error - no matching holder key", func(t *testing.T) {
		_, err := resolve(map[string]interface{}{"kid": "holder-key"}, WithHolderKeys(*otherKey))
		require.ErrorIs(t, err, common.ErrKeyResolution)

		_, err = resolve(map[string]interface{}{"jkt": "abc"}, WithHolderKeys(*holderPublic))
		require.ErrorIs(t, err, common.ErrKeyResolution)

		_, err = resolve(map[string]interface{}{"x5t#S256": x5t}, WithHolderKeys(*holderPublic))
		require.ErrorIs(t, err, common.ErrKeyResolution)
	})
}

func certifiedKey(t *testing.T, key *gojose.JSONWebKey) (gojose.JSONWebKey, string) {
	t.Helper()

	privKey, ok := key.Key.(*ecdsa.PrivateKey)
	require.True(t, ok)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "holder"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privKey.PublicKey, privKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	sum := sha256.Sum256(der)

	return gojose.JSONWebKey{
		Key:          &privKey.PublicKey,
		KeyID:        "certified-key",
		Certificates: []*x509.Certificate{cert},
	}, base64.RawURLEncoding.EncodeToString(sum[:])
}

func encryptJWK(t *testing.T, jwk, recipient *gojose.JSONWebKey) string {
	t.Helper()

	recipientKey, ok := recipient.Key.(*ecdsa.PrivateKey)
	require.True(t, ok)

	encrypter, err := gojose.NewEncrypter(gojose.A256GCM,
		gojose.Recipient{Algorithm: gojose.ECDH_ES_A256KW, Key: &recipientKey.PublicKey}, nil)
	require.NoError(t, err)

	plaintext, err := jwk.MarshalJSON()
	require.NoError(t, err)

	encrypted, err := encrypter.Encrypt(plaintext)
	require.NoError(t, err)

	compact, err := encrypted.CompactSerialize()
	require.NoError(t, err)

	return compact
}
