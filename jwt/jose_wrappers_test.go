/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/kms-go/doc/jose"
)

func TestJoseVerifier(t *testing.T) {
	t.Run("proof checker receives signing input", func(t *testing.T) {
		mock := &mockProofChecker{}
		verifier := &joseVerifier{proofChecker: mock}

		err := verifier.Verify(jose.Headers{"kid": "key-1"}, []byte("payload"), []byte("input"), []byte("sig"))
		require.NoError(t, err)
		require.Equal(t, "key-1", mock.kid)
		require.Equal(t, "input", string(mock.msg))
	})

	t.Run("proof checker error", func(t *testing.T) {
		verifier := &joseVerifier{proofChecker: &mockProofChecker{err: errors.New("bad signature")}}

		err := verifier.Verify(jose.Headers{}, nil, nil, nil)
		require.ErrorContains(t, err, "bad signature")
	})
}

func TestJoseSigner(t *testing.T) {
	t.Run("headers error", func(t *testing.T) {
		_, err := NewJOSESigner(SignParameters{}, &mockProofCreator{err: errors.New("no headers")})
		require.ErrorContains(t, err, "no headers")
	})

	t.Run("sign", func(t *testing.T) {
		s, err := NewJOSESigner(SignParameters{KeyID: "k"}, &mockProofCreator{})
		require.NoError(t, err)
		require.Equal(t, "k", s.Headers()[jose.HeaderKeyID])

		sig, err := s.Sign([]byte("data"))
		require.NoError(t, err)
		require.Equal(t, "sig:data", string(sig))
	})
}

type mockProofChecker struct {
	kid string
	msg []byte
	err error
}

func (m *mockProofChecker) CheckJWTProof(headers jose.Headers, _, msg, _ []byte) error {
	m.kid, _ = headers.KeyID()
	m.msg = msg

	return m.err
}

type mockProofCreator struct {
	err error
}

func (m *mockProofCreator) SignJWT(_ SignParameters, data []byte) ([]byte, error) {
	return append([]byte("sig:"), data...), nil
}

func (m *mockProofCreator) CreateJWTHeaders(params SignParameters) (jose.Headers, error) {
	if m.err != nil {
		return nil, m.err
	}

	return jose.Headers{jose.HeaderAlgorithm: "EdDSA", jose.HeaderKeyID: params.KeyID}, nil
}
