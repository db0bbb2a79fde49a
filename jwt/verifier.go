/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/samber/lo"
	"github.com/trustbloc/kms-go/doc/jose"
)

// ProofChecker checks the signature of a JWS.
type ProofChecker interface {
	CheckJWTProof(headers jose.Headers, payload, msg, signature []byte) error
}

// KeyProofChecker checks JWS signatures with a public JSON Web Key.
type KeyProofChecker struct {
	key         gojose.JSONWebKey
	allowedAlgs []string
}

// NewKeyProofChecker creates KeyProofChecker. When allowedAlgs is empty any algorithm except "none"
// supported by the key is accepted.
func NewKeyProofChecker(key gojose.JSONWebKey, allowedAlgs ...string) *KeyProofChecker {
	return &KeyProofChecker{
		key:         key.Public(),
		allowedAlgs: allowedAlgs,
	}
}

// CheckJWTProof verifies the signature over msg.
func (c *KeyProofChecker) CheckJWTProof(headers jose.Headers, _, msg, signature []byte) error {
	alg, ok := headers.Algorithm()
	if !ok {
		return errors.New("alg is not defined")
	}

	if alg == AlgorithmNone {
		return errors.New("alg 'none' is not allowed")
	}

	if len(c.allowedAlgs) > 0 && !lo.Contains(c.allowedAlgs, alg) {
		return fmt.Errorf("alg %s is not allowed", alg)
	}

	if c.key.Algorithm != "" && c.key.Algorithm != alg {
		return fmt.Errorf("alg %s does not match key alg %s", alg, c.key.Algorithm)
	}

	if c.key.Key == nil {
		return errors.New("verification key is not defined")
	}

	compact := string(msg) + "." + base64.RawURLEncoding.EncodeToString(signature)

	jws, err := gojose.ParseSigned(compact)
	if err != nil {
		return fmt.Errorf("parse signed data: %w", err)
	}

	if _, err = jws.Verify(c.key); err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

// ProofCheckerFunc adapts a function to ProofChecker.
type ProofCheckerFunc func(headers jose.Headers, payload, msg, signature []byte) error

// CheckJWTProof calls f.
func (f ProofCheckerFunc) CheckJWTProof(headers jose.Headers, payload, msg, signature []byte) error {
	return f(headers, payload, msg, signature)
}

// NoProofCheck accepts any signature. Use it only to read tokens whose signature is checked elsewhere.
func NoProofCheck() ProofChecker {
	return ProofCheckerFunc(func(jose.Headers, []byte, []byte, []byte) error {
		return nil
	})
}
