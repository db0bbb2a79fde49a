/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/trustbloc/kms-go/doc/jose"
)

// SignParameters contains parameters of signing for jwt vc.
type SignParameters struct {
	KeyID             string
	JWTAlg            string
	AdditionalHeaders jose.Headers
}

// ProofCreator defines signer interface which is used to sign VC JWT.
type ProofCreator interface {
	SignJWT(params SignParameters, data []byte) ([]byte, error)
	CreateJWTHeaders(params SignParameters) (jose.Headers, error)
}

// KeySigner signs JWTs with a private JSON Web Key.
type KeySigner struct {
	key  *gojose.JSONWebKey
	alg  string
	rand io.Reader
}

// NewKeySigner creates KeySigner. When alg is empty it is resolved from the key type.
func NewKeySigner(key *gojose.JSONWebKey, alg string) (*KeySigner, error) {
	if key == nil || key.Key == nil {
		return nil, errors.New("signing key is not defined")
	}

	if key.IsPublic() {
		return nil, errors.New("signing key is not a private key")
	}

	if alg == "" {
		alg = key.Algorithm
	}

	if alg == "" {
		resolved, err := AlgorithmForKey(key.Key)
		if err != nil {
			return nil, err
		}

		alg = resolved
	}

	if alg == AlgorithmNone {
		return nil, errors.New("alg 'none' is not allowed for signing")
	}

	if _, err := hashForAlg(alg); err != nil {
		return nil, err
	}

	return &KeySigner{key: key, alg: alg, rand: rand.Reader}, nil
}

// Algorithm returns the JWS algorithm of the signer.
func (s *KeySigner) Algorithm() string {
	return s.alg
}

// PublicKey returns the public part of the signing key.
func (s *KeySigner) PublicKey() gojose.JSONWebKey {
	return s.key.Public()
}

// CreateJWTHeaders returns alg and kid headers.
func (s *KeySigner) CreateJWTHeaders(params SignParameters) (jose.Headers, error) {
	alg := s.alg
	if params.JWTAlg != "" && params.JWTAlg != alg {
		return nil, fmt.Errorf("alg %s does not match signing key alg %s", params.JWTAlg, alg)
	}

	headers := jose.Headers{
		jose.HeaderAlgorithm: alg,
	}

	kid := params.KeyID
	if kid == "" {
		kid = s.key.KeyID
	}

	if kid != "" {
		headers[jose.HeaderKeyID] = kid
	}

	return headers, nil
}

// SignJWT signs data.
func (s *KeySigner) SignJWT(_ SignParameters, data []byte) ([]byte, error) {
	hash, err := hashForAlg(s.alg)
	if err != nil {
		return nil, err
	}

	switch key := s.key.Key.(type) {
	case ed25519.PrivateKey:
		if s.alg != "EdDSA" {
			return nil, fmt.Errorf("alg %s is not supported by ed25519 key", s.alg)
		}

		return ed25519.Sign(key, data), nil
	case *ecdsa.PrivateKey:
		return signEcdsa(s.rand, data, key, hash)
	case *rsa.PrivateKey:
		return signRSA(s.rand, s.alg, data, key, hash)
	default:
		return nil, fmt.Errorf("unsupported signing key type %T", key)
	}
}

// AlgorithmForKey resolves the default JWS algorithm for a key.
func AlgorithmForKey(key interface{}) (string, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey, ed25519.PublicKey:
		return "EdDSA", nil
	case *ecdsa.PrivateKey:
		return algForCurve(k.Curve)
	case *ecdsa.PublicKey:
		return algForCurve(k.Curve)
	case *rsa.PrivateKey, *rsa.PublicKey:
		return "RS256", nil
	default:
		return "", fmt.Errorf("unsupported key type %T", key)
	}
}

func algForCurve(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return "ES256", nil
	case elliptic.P384():
		return "ES384", nil
	case elliptic.P521():
		return "ES512", nil
	default:
		return "", fmt.Errorf("unsupported curve %s", curve.Params().Name)
	}
}

//nolint:gocyclo
func hashForAlg(alg string) (crypto.Hash, error) {
	switch alg {
	case "EdDSA":
		return 0, nil
	case "ES256", "RS256", "PS256":
		return crypto.SHA256, nil
	case "ES384", "RS384", "PS384":
		return crypto.SHA384, nil
	case "ES512", "RS512", "PS512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("unsupported alg %s", alg)
	}
}

func signRSA(r io.Reader, alg string, msg []byte, key *rsa.PrivateKey, hash crypto.Hash) ([]byte, error) {
	hasher := hash.New()
	_, _ = hasher.Write(msg)
	hashed := hasher.Sum(nil)

	switch alg[:2] {
	case "RS":
		return rsa.SignPKCS1v15(r, key, hash, hashed)
	case "PS":
		return rsa.SignPSS(r, key, hash, hashed, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		})
	default:
		return nil, fmt.Errorf("alg %s is not supported by rsa key", alg)
	}
}

//nolint:gomnd
func signEcdsa(r io.Reader, msg []byte, privateKey *ecdsa.PrivateKey, hash crypto.Hash) ([]byte, error) {
	hasher := hash.New()
	_, _ = hasher.Write(msg)
	hashed := hasher.Sum(nil)

	rInt, sInt, err := ecdsa.Sign(r, privateKey, hashed)
	if err != nil {
		return nil, err
	}

	curveBits := privateKey.Curve.Params().BitSize

	keyBytes := curveBits / 8
	if curveBits%8 > 0 {
		keyBytes++
	}

	copyPadded := func(source []byte, size int) []byte {
		dest := make([]byte, size)
		copy(dest[size-len(source):], source)

		return dest
	}

	return append(copyPadded(rInt.Bytes(), keyBytes), copyPadded(sInt.Bytes(), keyBytes)...), nil
}
