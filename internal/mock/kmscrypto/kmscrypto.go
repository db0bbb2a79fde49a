// Package kmscrypto contains mocks for kmscrypto wrapper APIs.
package kmscrypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/trustbloc/kms-go/doc/jose/jwk"
	wrapperapi "github.com/trustbloc/kms-go/wrapper/api"
)

// MockKMSCrypto mocks the fixed key signer lookup of kmscrypto.KMSCrypto.
// Keys are private JWKs indexed by key ID.
type MockKMSCrypto struct {
	Keys              map[string]*gojose.JSONWebKey
	FixedKeyCryptoErr error
	SignErr           error
}

// Add stores a private key and returns its public JWK.
func (m *MockKMSCrypto) Add(key *gojose.JSONWebKey) *jwk.JWK {
	if m.Keys == nil {
		m.Keys = map[string]*gojose.JSONWebKey{}
	}

	m.Keys[key.KeyID] = key

	return &jwk.JWK{JSONWebKey: key.Public()}
}

// FixedKeySigner mock.
func (m *MockKMSCrypto) FixedKeySigner(pub *jwk.JWK) (wrapperapi.FixedKeySigner, error) {
	if m.FixedKeyCryptoErr != nil {
		return nil, m.FixedKeyCryptoErr
	}

	key, ok := m.Keys[pub.KeyID]
	if !ok {
		return nil, fmt.Errorf("key %s not found", pub.KeyID)
	}

	return &MockFixedKeyCrypto{key: key, SignErr: m.SignErr}, nil
}

// MockFixedKeyCrypto signs with a fixed private key.
type MockFixedKeyCrypto struct {
	key     *gojose.JSONWebKey
	SignErr error
}

// Sign mock. ECDSA signatures are R||S encoded.
func (m *MockFixedKeyCrypto) Sign(msg []byte) ([]byte, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}

	switch key := m.key.Key.(type) {
	case ed25519.PrivateKey:
		return ed25519.Sign(key, msg), nil
	case *ecdsa.PrivateKey:
		hash := crypto.SHA256

		size := (key.Curve.Params().BitSize + 7) / 8 //nolint:gomnd
		if size > 32 {                               //nolint:gomnd
			hash = crypto.SHA384
		}

		h := hash.New()
		h.Write(msg)

		r, s, err := ecdsa.Sign(rand.Reader, key, h.Sum(nil))
		if err != nil {
			return nil, err
		}

		sig := make([]byte, 2*size)
		r.FillBytes(sig[:size])
		s.FillBytes(sig[size:])

		return sig, nil
	default:
		return nil, fmt.Errorf("unsupported key type %T", key)
	}
}
