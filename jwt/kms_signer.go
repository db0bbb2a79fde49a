/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"errors"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/trustbloc/kms-go/doc/jose"
	"github.com/trustbloc/kms-go/doc/jose/jwk"
	wrapperapi "github.com/trustbloc/kms-go/wrapper/api"
)

// FixedKeySignerProvider provides a signer for the private key of a public JWK held in a KMS.
type FixedKeySignerProvider interface {
	FixedKeySigner(pub *jwk.JWK) (wrapperapi.FixedKeySigner, error)
}

// KMSSigner signs JWTs with a key held in a KMS.
//
// The KMS key must produce JWS signatures: raw R||S (IEEE P1363) for ECDSA keys.
type KMSSigner struct {
	pub    *jwk.JWK
	alg    string
	signer wrapperapi.FixedKeySigner
}

// NewKMSSigner creates a KMSSigner for the given public key. When alg is empty it is resolved
// from the key type.
func NewKMSSigner(kms FixedKeySignerProvider, pub *jwk.JWK, alg string) (*KMSSigner, error) {
	if kms == nil {
		return nil, errors.New("KMS is not defined")
	}

	if pub == nil || pub.Key == nil {
		return nil, errors.New("public key is not defined")
	}

	if alg == "" {
		alg = pub.Algorithm
	}

	if alg == "" {
		resolved, err := AlgorithmForKey(pub.Key)
		if err != nil {
			return nil, err
		}

		alg = resolved
	}

	if alg == AlgorithmNone {
		return nil, errors.New("alg 'none' is not allowed for signing")
	}

	signer, err := kms.FixedKeySigner(pub)
	if err != nil {
		return nil, fmt.Errorf("finding key in KMS for signing operations: %w", err)
	}

	return &KMSSigner{pub: pub, alg: alg, signer: signer}, nil
}

// Algorithm returns the JWS algorithm of the signer.
func (s *KMSSigner) Algorithm() string {
	return s.alg
}

// PublicKey returns the public key of the signer.
func (s *KMSSigner) PublicKey() gojose.JSONWebKey {
	return s.pub.JSONWebKey
}

// CreateJWTHeaders returns alg and kid headers.
func (s *KMSSigner) CreateJWTHeaders(params SignParameters) (jose.Headers, error) {
	if params.JWTAlg != "" && params.JWTAlg != s.alg {
		return nil, fmt.Errorf("alg %s does not match signing key alg %s", params.JWTAlg, s.alg)
	}

	headers := jose.Headers{
		jose.HeaderAlgorithm: s.alg,
	}

	kid := params.KeyID
	if kid == "" {
		kid = s.pub.KeyID
	}

	if kid != "" {
		headers[jose.HeaderKeyID] = kid
	}

	return headers, nil
}

// SignJWT signs data with the KMS key.
func (s *KMSSigner) SignJWT(_ SignParameters, data []byte) ([]byte, error) {
	sig, err := s.signer.Sign(data)
	if err != nil {
		return nil, fmt.Errorf("sign with KMS key: %w", err)
	}

	return sig, nil
}
