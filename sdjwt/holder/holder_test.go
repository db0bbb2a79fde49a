/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"crypto"
	"fmt"
	"strings"
	"testing"
	"time"

	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sd-jwt-go/internal/testutil"
	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	"github.com/trustbloc/sd-jwt-go/sdjwt/issuer"
)

const (
	testIssuer   = "https://example.com/issuer"
	testAudience = "https://test.com/verifier"
	testNonce    = "nonce"
)

func createClaims() map[string]interface{} {
	return map[string]interface{}{
		"given_name":   "Albert",
		"email":        "albert@example.com",
		"phone_number": "+1-555",
		"address": map[string]interface{}{
			"street_address": "Schulstr. 12",
			"locality":       "Schulpforta",
		},
		"nationalities": []interface{}{"US", "DE"},
	}
}

type testEnv struct {
	signer  *jwt.KeySigner
	checker jwt.ProofChecker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	signer, err := jwt.NewKeySigner(testutil.Ed25519Key(t, "issuer-key"), "")
	require.NoError(t, err)

	return &testEnv{
		signer:  signer,
		checker: jwt.NewKeyProofChecker(signer.PublicKey()),
	}
}

func (e *testEnv) issue(t *testing.T, opts ...issuer.NewOpt) string {
	t.Helper()

	token, err := issuer.New(testIssuer, createClaims(), nil, e.signer, opts...)
	require.NoError(t, err)

	combined, err := token.Serialize(false)
	require.NoError(t, err)

	return combined
}

func TestParse(t *testing.T) {
	env := newTestEnv(t)
	combined := env.issue(t)

	t.Run("success", func(t *testing.T) {
		token, err := Parse(combined, WithProofChecker(env.checker))
		require.NoError(t, err)
		require.Equal(t, len(createClaims()), token.Disclosures.Len())
		require.Equal(t, testIssuer, token.Payload["iss"])
		require.Equal(t, combined, token.Serialize())
	})

	t.Run("success - default is no proof check", func(t *testing.T) {
		token, err := Parse(combined)
		require.NoError(t, err)
		require.Equal(t, len(createClaims()), token.Disclosures.Len())
	})

	t.Run("success - key binding JWT is dropped", func(t *testing.T) {
		token, err := Parse(combined + "a.b.c")
		require.NoError(t, err)
		require.Empty(t, token.KeyBindingJWT)
	})

	t.Run("success - JSON serialization", func(t *testing.T) {
		token, err := issuer.New(testIssuer, createClaims(), nil, env.signer)
		require.NoError(t, err)

		data, err := token.SerializeJSON()
		require.NoError(t, err)

		parsed, err := ParseJSON(data, WithProofChecker(env.checker))
		require.NoError(t, err)
		require.Equal(t, token.Disclosures.Encoded(), parsed.Disclosures.Encoded())
		require.Empty(t, parsed.AdditionalSignatures)
	})

	t.Run("error - additional disclosure", func(t *testing.T) {
		d, err := common.NewObjectDisclosure([]byte("0123456789abcdef"), "extra", "claim")
		require.NoError(t, err)

		_, err = Parse(combined+d.Encoded()+"~", WithProofChecker(env.checker))
		require.ErrorIs(t, err, common.ErrOrphanDisclosure)
	})

	t.Run("error - signature from another key", func(t *testing.T) {
		other := newTestEnv(t)

		_, err := Parse(combined, WithProofChecker(other.checker))
		require.ErrorContains(t, err, "parse issuer JWT")
	})

	t.Run("error - invalid format", func(t *testing.T) {
		_, err := Parse("not-an-sd-jwt")
		require.ErrorIs(t, err, common.ErrInvalidFormat)

		_, err = ParseJSON([]byte("{}"))
		require.ErrorIs(t, err, common.ErrInvalidFormat)
	})

	t.Run("error - malformed disclosure", func(t *testing.T) {
		_, err := Parse(combined + "!!!~")
		require.ErrorIs(t, err, common.ErrMalformedDisclosure)
	})
}

func TestClaims(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success - top-level claims", func(t *testing.T) {
		token, err := Parse(env.issue(t, issuer.WithAlwaysVisible("/given_name")))
		require.NoError(t, err)

		claims, err := Claims(token)
		require.NoError(t, err)
		require.Len(t, claims, len(createClaims())-1)

		paths := make([]string, len(claims))
		for i, c := range claims {
			paths[i] = c.Path.String()
		}

		require.Equal(t, []string{"/address", "/email", "/nationalities", "/phone_number"}, paths)
		require.Equal(t, "email", claims[1].Name)
		require.Equal(t, "albert@example.com", claims[1].Value)
		require.False(t, claims[1].IsArrayElement)
		require.True(t, token.Disclosures.Contains(claims[1].Digest))
	})

	t.Run("success - nested claims and array elements", func(t *testing.T) {
		token, err := Parse(env.issue(t,
			issuer.WithDisclosablePaths("/address/street_address", "/address", "/nationalities/1")))
		require.NoError(t, err)

		claims, err := Claims(token)
		require.NoError(t, err)
		require.Len(t, claims, 3)

		require.Equal(t, "/address", claims[0].Path.String())
		require.Equal(t, "/address/street_address", claims[1].Path.String())
		require.Equal(t, "Schulstr. 12", claims[1].Value)
		require.Equal(t, "/nationalities/1", claims[2].Path.String())
		require.True(t, claims[2].IsArrayElement)
		require.Empty(t, claims[2].Name)
		require.Equal(t, "DE", claims[2].Value)
	})
}

func TestSelectDisclosures(t *testing.T) {
	env := newTestEnv(t)

	token, err := Parse(env.issue(t))
	require.NoError(t, err)

	claims, err := Claims(token)
	require.NoError(t, err)

	email := claimByName(t, claims, "email")

	other, err := common.NewObjectDisclosure([]byte("0123456789abcdef"), "email", "other@example.com")
	require.NoError(t, err)

	selected, err := SelectDisclosures(token, []string{email.Disclosure, other.Encoded()})
	require.NoError(t, err)
	require.Equal(t, []string{email.Disclosure}, selected.Encoded())

	selected, err = SelectDisclosures(token, nil)
	require.NoError(t, err)
	require.Equal(t, 0, selected.Len())
}

func TestSelectByPaths(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success - presentation is minimal", func(t *testing.T) {
		token, err := Parse(env.issue(t))
		require.NoError(t, err)

		selected, err := SelectByPaths(token, jsonpointer.MustParse("/email"))
		require.NoError(t, err)
		require.Equal(t, 1, selected.Len())

		d, ok := selected.Get(selected.Digests()[0])
		require.True(t, ok)

		name, _ := d.Name()
		require.Equal(t, "email", name)
	})

	t.Run("success - ancestors are included", func(t *testing.T) {
		token, err := Parse(env.issue(t,
			issuer.WithDisclosablePaths("/address/street_address", "/address/locality", "/address",
				"/nationalities/0", "/nationalities/1")))
		require.NoError(t, err)

		selected, err := SelectByPaths(token, jsonpointer.MustParse("/address/street_address"))
		require.NoError(t, err)
		require.Equal(t, 2, selected.Len())

		presentation, err := CreatePresentation(token, selected)
		require.NoError(t, err)

		reconstructed, err := presentation.Claims()
		require.NoError(t, err)
		require.Equal(t, map[string]interface{}{"street_address": "Schulstr. 12"}, reconstructed["address"])

		selected, err = SelectByPaths(token, jsonpointer.MustParse("/nationalities/1"))
		require.NoError(t, err)
		require.Equal(t, 1, selected.Len())

		presentation, err = CreatePresentation(token, selected)
		require.NoError(t, err)

		reconstructed, err = presentation.Claims()
		require.NoError(t, err)

		nationalities := reconstructed["nationalities"].([]interface{})
		require.Contains(t, nationalities[0], common.ArrayElementDigestKey)
		require.Equal(t, "DE", nationalities[1])
	})

	t.Run("success - plain and missing paths are ignored", func(t *testing.T) {
		token, err := Parse(env.issue(t, issuer.WithAlwaysVisible("/given_name")))
		require.NoError(t, err)

		selected, err := SelectByPaths(token, jsonpointer.MustParse("/given_name"), jsonpointer.MustParse("/missing"))
		require.NoError(t, err)
		require.Equal(t, 0, selected.Len())
	})
}

func TestCreatePresentation(t *testing.T) {
	env := newTestEnv(t)

	holderKey := testutil.P256Key(t, "holder-key")

	holderSigner, err := jwt.NewKeySigner(holderKey, "")
	require.NoError(t, err)

	token, err := Parse(env.issue(t, issuer.WithHolderPublicKey(testutil.PublicKey(t, holderKey))))
	require.NoError(t, err)

	selected, err := SelectByPaths(token, jsonpointer.MustParse("/email"))
	require.NoError(t, err)

	t.Run("success - without key binding", func(t *testing.T) {
		presentation, err := CreatePresentation(token, selected)
		require.NoError(t, err)
		require.Empty(t, presentation.KeyBindingJWT)
		require.Equal(t, token.IssuerJWT+"~"+selected.Encoded()[0]+"~", presentation.Serialize())

		// the SD-JWT is left untouched
		require.Equal(t, len(createClaims()), token.Disclosures.Len())
	})

	t.Run("success - no disclosures", func(t *testing.T) {
		presentation, err := CreatePresentation(token, nil)
		require.NoError(t, err)
		require.Equal(t, token.IssuerJWT+"~", presentation.Serialize())
	})

	t.Run("success - with key binding", func(t *testing.T) {
		r := require.New(t)
		issuedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

		presentation, err := CreatePresentation(token, selected,
			WithKeyBinding(&BindingInfo{
				Payload: BindingPayload{Nonce: testNonce, Audience: testAudience},
				Signer:  holderSigner,
				Headers: jose.Headers{"custom": "header"},
			}),
			WithTime(func() time.Time { return issuedAt }))
		r.NoError(err)
		r.NotEmpty(presentation.KeyBindingJWT)

		combined := presentation.Serialize()
		r.True(strings.HasSuffix(combined, "~"+presentation.KeyBindingJWT))

		kbJWT, _, err := jwt.Parse(presentation.KeyBindingJWT,
			jwt.WithProofChecker(jwt.NewKeyProofChecker(holderKey.Public())))
		r.NoError(err)
		r.Equal(common.KeyBindingJWTType, kbJWT.LookupStringHeader(jose.HeaderType))
		r.Equal("ES256", kbJWT.LookupStringHeader(jose.HeaderAlgorithm))
		r.Equal("header", kbJWT.LookupStringHeader("custom"))

		var claims common.KeyBindingClaims
		r.NoError(kbJWT.DecodeClaims(&claims))
		r.Equal(testNonce, claims.Nonce)
		r.Equal([]string{testAudience}, claims.Audience)
		r.Equal(issuedAt.Unix(), claims.IssuedAt.Time().Unix())

		expected, err := common.GetHash(crypto.SHA256, token.IssuerJWT+"~"+selected.Encoded()[0])
		r.NoError(err)
		r.Equal(expected, claims.SDHash)

		payload, err := jwt.UnverifiedPayload(presentation.KeyBindingJWT)
		r.NoError(err)
		r.IsType([]interface{}{}, payload["aud"])
	})

	t.Run("success - key binding with issued at", func(t *testing.T) {
		issuedAt := josejwt.NewNumericDate(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

		presentation, err := CreatePresentation(token, selected, WithKeyBinding(&BindingInfo{
			Payload: BindingPayload{Nonce: testNonce, IssuedAt: issuedAt},
			Signer:  holderSigner,
		}))
		require.NoError(t, err)

		payload, err := jwt.UnverifiedPayload(presentation.KeyBindingJWT)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprint(issuedAt.Time().Unix()), fmt.Sprint(payload["iat"]))
		require.NotContains(t, payload, "aud")
	})

	t.Run("error - disclosure of another SD-JWT", func(t *testing.T) {
		other, err := Parse(env.issue(t))
		require.NoError(t, err)

		_, err = CreatePresentation(token, other.Disclosures)
		require.ErrorIs(t, err, common.ErrOrphanDisclosure)
	})

	t.Run("error - key binding signer is not defined", func(t *testing.T) {
		_, err := CreatePresentation(token, selected, WithKeyBinding(&BindingInfo{}))
		require.ErrorContains(t, err, "key binding signer is not defined")
	})

	t.Run("error - alg none", func(t *testing.T) {
		_, err := CreatePresentation(token, selected, WithKeyBinding(&BindingInfo{Signer: &noneSigner{}}))
		require.ErrorIs(t, err, common.ErrAlgorithmNone)
		require.ErrorIs(t, err, common.ErrKeyBinding)
	})

	t.Run("error - signing fails", func(t *testing.T) {
		_, err := CreatePresentation(token, selected, WithKeyBinding(&BindingInfo{
			Signer: &headerSigner{headers: jose.Headers{jose.HeaderAlgorithm: "ES256"}, err: fmt.Errorf("boom")},
		}))
		require.ErrorContains(t, err, "create key binding JWT")
	})
}

func TestAddKeyBindingToJSON(t *testing.T) {
	t.Run("success - flattened", func(t *testing.T) {
		data, err := AddKeyBindingToJSON([]byte(`{"payload":"cA","protected":"aA","signature":"cw",`+
			`"header":{"disclosures":["d1"]}}`), "kb.jwt.sig")
		require.NoError(t, err)

		parsed, err := common.ParseJSON(data)
		require.NoError(t, err)
		require.Equal(t, "kb.jwt.sig", parsed.KeyBindingJWT)
		require.Equal(t, []string{"d1"}, parsed.Disclosures)
	})

	t.Run("success - general", func(t *testing.T) {
		data, err := AddKeyBindingToJSON([]byte(`{"payload":"cA","signatures":[{"protected":"aA","signature":"cw"}]}`),
			"kb.jwt.sig")
		require.NoError(t, err)
		require.Equal(t, "kb.jwt.sig", gjson.GetBytes(data, "signatures.0.header.kb_jwt").String())
	})

	t.Run("error - not JSON", func(t *testing.T) {
		_, err := AddKeyBindingToJSON([]byte("abc"), "kb")
		require.ErrorIs(t, err, common.ErrInvalidFormat)
	})
}

func claimByName(t *testing.T, claims []*Claim, name string) *Claim {
	t.Helper()

	for _, c := range claims {
		if c.Name == name {
			return c
		}
	}

	require.Failf(t, "claim not found", name)

	return nil
}

type headerSigner struct {
	headers jose.Headers
	err     error
}

func (s *headerSigner) SignJWT(jwt.SignParameters, []byte) ([]byte, error) {
	return nil, s.err
}

func (s *headerSigner) CreateJWTHeaders(jwt.SignParameters) (jose.Headers, error) {
	return s.headers, nil
}

type noneSigner struct {
	headerSigner
}

func (s *noneSigner) CreateJWTHeaders(jwt.SignParameters) (jose.Headers, error) {
	return jose.Headers{jose.HeaderAlgorithm: jwt.AlgorithmNone}, nil
}
