/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common holds the SD-JWT building blocks shared by issuer, holder and verifier:
// disclosures, disclosure lists, the reconstruction engine, the structural validator
// and the compact and JSON serializations.
package common

import (
	"crypto"
	_ "crypto/sha256" // register SHA-256
	_ "crypto/sha512" // register SHA-384 and SHA-512
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"
)

var logger = log.New("sd-jwt/common")

// Reserved claim names and separators.
const (
	CombinedFormatSeparator = "~"

	SDAlgorithmKey        = "_sd_alg"
	SDKey                 = "_sd"
	ArrayElementDigestKey = "..."
	CNFKey                = "cnf"

	// DefaultHashAlgorithm is assumed when _sd_alg is absent.
	DefaultHashAlgorithm = "sha-256"
)

// GetHash calculates hash of data using hash function identified by hash.
func GetHash(hash crypto.Hash, value string) (string, error) {
	if !hash.Available() {
		return "", fmt.Errorf("%w: hash function not available for: %d", ErrUnsupportedHash, hash)
	}

	h := hash.New()

	if _, hashErr := h.Write([]byte(value)); hashErr != nil {
		return "", hashErr
	}

	result := h.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(result), nil
}

// GetCryptoHash returns crypto hash from SD algorithm.
func GetCryptoHash(sdAlg string) (crypto.Hash, error) {
	// The hash algorithms MD2, MD4, MD5, RIPEMD-160, and SHA-1 MUST NOT be used.
	switch strings.ToUpper(sdAlg) {
	case crypto.SHA256.String():
		return crypto.SHA256, nil
	case crypto.SHA384.String():
		return crypto.SHA384, nil
	case crypto.SHA512.String():
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %s '%s' not supported", ErrUnsupportedHash, SDAlgorithmKey, sdAlg)
	}
}

// HashName returns the _sd_alg identifier of a hash, e.g. "sha-256".
func HashName(hash crypto.Hash) string {
	return strings.ToLower(hash.String())
}

// ResolveHashAlgorithm returns the hash declared by the top-level _sd_alg claim,
// SHA-256 when the claim is absent.
func ResolveHashAlgorithm(claims map[string]interface{}) (crypto.Hash, error) {
	obj, ok := claims[SDAlgorithmKey]
	if !ok {
		return crypto.SHA256, nil
	}

	alg, ok := obj.(string)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a string", ErrUnsupportedHash, SDAlgorithmKey)
	}

	return GetCryptoHash(alg)
}

// GetCNF returns confirmation claim 'cnf'.
func GetCNF(claims map[string]interface{}) (map[string]interface{}, error) {
	obj, ok := claims[CNFKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s must be present in SD-JWT", ErrKeyResolution, CNFKey)
	}

	cnf, ok := obj.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object", ErrKeyResolution, CNFKey)
	}

	return cnf, nil
}
