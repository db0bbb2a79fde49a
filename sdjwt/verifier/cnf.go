/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"crypto"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/samber/lo"

	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

// confirmation is the cnf claim of an SD-JWT (RFC 7800).
type confirmation struct {
	JWK     map[string]interface{} `json:"jwk,omitempty"`
	JWE     string                 `json:"jwe,omitempty"`
	JKU     string                 `json:"jku,omitempty"`
	KID     string                 `json:"kid,omitempty"`
	JKT     string                 `json:"jkt,omitempty"`
	X5TS256 string                 `json:"x5t#S256,omitempty"`
}

// resolveHolderKey resolves the holder public key from the cnf claim, the most specific method first.
func resolveHolderKey(payload map[string]interface{}, opts *parseOpts) (*gojose.JSONWebKey, error) {
	cnfObj, err := common.GetCNF(payload)
	if err != nil {
		return nil, err
	}

	var cnf confirmation

	if err = jsonutil.Decode(cnfObj, &cnf); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", common.ErrKeyResolution, common.CNFKey, err)
	}

	var (
		method string
		key    *gojose.JSONWebKey
	)

	switch {
	case cnf.JWK != nil:
		method = "jwk"
		key, err = parseJWK(cnf.JWK)
	case cnf.JWE != "":
		method = "jwe"
		key, err = decryptJWK(cnf.JWE, opts.decryptionKeys)
	case cnf.JKU != "":
		method = "jku"
		key, err = keyFromKeySet(cnf.JKU, cnf.KID, opts.keySetProvider)
	case cnf.KID != "":
		method = "kid"
		key, err = findKey(opts.holderKeys, func(k gojose.JSONWebKey) bool { return k.KeyID == cnf.KID })
	case cnf.JKT != "":
		method = "jkt"
		key, err = findKey(opts.holderKeys, func(k gojose.JSONWebKey) bool { return thumbprint(k) == cnf.JKT })
	case cnf.X5TS256 != "":
		method = "x5t#S256"
		key, err = findKey(opts.holderKeys, func(k gojose.JSONWebKey) bool {
			return lo.Contains(certificateThumbprints(k), cnf.X5TS256)
		})
	default:
		return nil, fmt.Errorf("%w: %s has no supported confirmation method", common.ErrKeyResolution, common.CNFKey)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", common.ErrKeyResolution, common.CNFKey, method, err)
	}

	logger.Debugf("holder key resolved with %s.%s", common.CNFKey, method)

	return key, nil
}

func parseJWK(obj map[string]interface{}) (*gojose.JSONWebKey, error) {
	b, err := jsonutil.Marshal(obj)
	if err != nil {
		return nil, err
	}

	return unmarshalPublicJWK(b)
}

func unmarshalPublicJWK(b []byte) (*gojose.JSONWebKey, error) {
	var key gojose.JSONWebKey

	if err := key.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("unmarshal JWK: %w", err)
	}

	if !key.Valid() {
		return nil, errors.New("invalid JWK")
	}

	public := key.Public()

	return &public, nil
}

func decryptJWK(jwe string, keys []gojose.JSONWebKey) (*gojose.JSONWebKey, error) {
	if len(keys) == 0 {
		return nil, errors.New("decryption keys are not defined")
	}

	encrypted, err := gojose.ParseEncrypted(jwe)
	if err != nil {
		return nil, fmt.Errorf("parse JWE: %w", err)
	}

	for _, k := range keys {
		plaintext, decryptErr := encrypted.Decrypt(k.Key)
		if decryptErr != nil {
			continue
		}

		return unmarshalPublicJWK(plaintext)
	}

	return nil, errors.New("no decryption key matches")
}

func keyFromKeySet(jku, kid string, provider KeySetProvider) (*gojose.JSONWebKey, error) {
	if provider == nil {
		return nil, errors.New("key set provider is not defined")
	}

	keySet, err := provider.KeySet(jku)
	if err != nil {
		return nil, fmt.Errorf("get key set %s: %w", jku, err)
	}

	if kid == "" {
		if len(keySet.Keys) != 1 {
			return nil, fmt.Errorf("kid is required for key set %s with %d keys", jku, len(keySet.Keys))
		}

		public := keySet.Keys[0].Public()

		return &public, nil
	}

	keys := keySet.Key(kid)
	if len(keys) == 0 {
		return nil, fmt.Errorf("key %s not found in key set %s", kid, jku)
	}

	public := keys[0].Public()

	return &public, nil
}

func findKey(keys []gojose.JSONWebKey, match func(k gojose.JSONWebKey) bool) (*gojose.JSONWebKey, error) {
	key, ok := lo.Find(keys, match)
	if !ok {
		return nil, errors.New("no matching holder key")
	}

	public := key.Public()

	return &public, nil
}

func thumbprint(key gojose.JSONWebKey) string {
	public := key.Public()

	tp, err := public.Thumbprint(crypto.SHA256)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(tp)
}

func certificateThumbprints(key gojose.JSONWebKey) []string {
	var thumbprints []string

	if len(key.CertificateThumbprintSHA256) > 0 {
		thumbprints = append(thumbprints, base64.RawURLEncoding.EncodeToString(key.CertificateThumbprintSHA256))
	}

	for _, cert := range key.Certificates {
		sum := sha256.Sum256(cert.Raw)
		thumbprints = append(thumbprints, base64.RawURLEncoding.EncodeToString(sum[:]))
	}

	return thumbprints
}
