/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package verifier enables the Verifier: An entity that requests, checks and
extracts the claims from an SD-JWT and respective Disclosures.
*/
package verifier

import (
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/samber/lo"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
)

var logger = log.New("sd-jwt/verifier")

// DefaultSigningAlgorithms are the issuer and holder signing algorithms accepted by default.
var DefaultSigningAlgorithms = []string{"EdDSA", "ES256", "ES384", "ES512", "RS256", "PS256"}

// parseOpts holds options for the SD-JWT verification.
type parseOpts struct {
	proofChecker    jwt.ProofChecker
	detachedPayload []byte

	issuerSigningAlgorithms []string
	holderSigningAlgorithms []string
	expectedTyp             string

	leeway time.Duration
	now    func() time.Time

	keyBindingRequired bool
	expectedNonce      string
	expectedAudience   string

	decryptionKeys []gojose.JSONWebKey
	keySetProvider KeySetProvider
	holderKeys     []gojose.JSONWebKey
}

// ParseOpt is the SD-JWT Verifier option.
type ParseOpt func(opts *parseOpts)

// WithProofChecker option defines the checker of the issuer signature. It is mandatory.
func WithProofChecker(checker jwt.ProofChecker) ParseOpt {
	return func(opts *parseOpts) {
		opts.proofChecker = checker
	}
}

// WithIssuerPublicKey option checks the issuer signature with the given public key.
func WithIssuerPublicKey(key gojose.JSONWebKey) ParseOpt {
	return func(opts *parseOpts) {
		opts.proofChecker = jwt.NewKeyProofChecker(key)
	}
}

// WithJWTDetachedPayload option is for definition of JWT detached payload.
func WithJWTDetachedPayload(payload []byte) ParseOpt {
	return func(opts *parseOpts) {
		opts.detachedPayload = payload
	}
}

// WithIssuerSigningAlgorithms option is for defining secure signing algorithms (for issuer).
func WithIssuerSigningAlgorithms(algorithms []string) ParseOpt {
	return func(opts *parseOpts) {
		opts.issuerSigningAlgorithms = algorithms
	}
}

// WithHolderSigningAlgorithms option is for defining secure signing algorithms (for holder).
func WithHolderSigningAlgorithms(algorithms []string) ParseOpt {
	return func(opts *parseOpts) {
		opts.holderSigningAlgorithms = algorithms
	}
}

// WithExpectedTyp option requires the typ header of the issuer JWT.
func WithExpectedTyp(typ string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedTyp = typ
	}
}

// WithLeewayForClaimsValidation is an option for claims time(s) validation.
func WithLeewayForClaimsValidation(duration time.Duration) ParseOpt {
	return func(opts *parseOpts) {
		opts.leeway = duration
	}
}

// WithTime sets the clock for claims time(s) validation.
func WithTime(now func() time.Time) ParseOpt {
	return func(opts *parseOpts) {
		opts.now = now
	}
}

// WithKeyBindingRequired option is for enforcing key binding.
func WithKeyBindingRequired(flag bool) ParseOpt {
	return func(opts *parseOpts) {
		opts.keyBindingRequired = flag
	}
}

// WithExpectedNonce option is to pass nonce value for key binding.
func WithExpectedNonce(nonce string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedNonce = nonce
	}
}

// WithExpectedAudience option is to pass expected audience for key binding.
func WithExpectedAudience(audience string) ParseOpt {
	return func(opts *parseOpts) {
		opts.expectedAudience = audience
	}
}

// WithDecryptionKeys option defines the keys used to decrypt an encrypted holder key (cnf.jwe).
func WithDecryptionKeys(keys ...gojose.JSONWebKey) ParseOpt {
	return func(opts *parseOpts) {
		opts.decryptionKeys = append(opts.decryptionKeys, keys...)
	}
}

// WithKeySetProvider option defines the provider of key sets referenced by cnf.jku.
func WithKeySetProvider(provider KeySetProvider) ParseOpt {
	return func(opts *parseOpts) {
		opts.keySetProvider = provider
	}
}

// WithHolderKeys option defines the holder public keys known to the Verifier, matched by cnf.kid,
// cnf.jkt or cnf.x5t#S256.
func WithHolderKeys(keys ...gojose.JSONWebKey) ParseOpt {
	return func(opts *parseOpts) {
		opts.holderKeys = append(opts.holderKeys, keys...)
	}
}

func newParseOpts(opts []ParseOpt) *parseOpts {
	pOpts := &parseOpts{
		issuerSigningAlgorithms: DefaultSigningAlgorithms,
		holderSigningAlgorithms: DefaultSigningAlgorithms,
		leeway:                  jwt.DefaultLeeway,
		now:                     time.Now,
	}

	for _, opt := range opts {
		opt(pOpts)
	}

	return pOpts
}

func (o *parseOpts) jwtOpts() []jwt.ParseOpt {
	var jwtOpts []jwt.ParseOpt

	if o.proofChecker != nil {
		jwtOpts = append(jwtOpts, jwt.WithProofChecker(&issuerProofChecker{
			checker:     o.proofChecker,
			allowedAlgs: o.issuerSigningAlgorithms,
		}))
	}

	if o.detachedPayload != nil {
		jwtOpts = append(jwtOpts, jwt.WithJWTDetachedPayload(o.detachedPayload))
	}

	return jwtOpts
}

// issuerProofChecker restricts the issuer signing algorithm before delegating to the configured checker.
type issuerProofChecker struct {
	checker     jwt.ProofChecker
	allowedAlgs []string
}

func (c *issuerProofChecker) CheckJWTProof(headers jose.Headers, payload, msg, signature []byte) error {
	alg, _ := headers.Algorithm()

	if err := checkSigningAlgorithm(alg, c.allowedAlgs); err != nil {
		return fmt.Errorf("issuer JWT: %w", err)
	}

	return c.checker.CheckJWTProof(headers, payload, msg, signature)
}

func checkSigningAlgorithm(alg string, allowed []string) error {
	if alg == "" || alg == jwt.AlgorithmNone {
		return fmt.Errorf("alg '%s' is not allowed", alg)
	}

	if !lo.Contains(allowed, alg) {
		return fmt.Errorf("alg '%s' is not in the allowed list %v", alg, allowed)
	}

	return nil
}

// Parse parses combined format for presentation and returns verified claims.
// The Verifier has to verify that all disclosed claim values were part of the original, Issuer-signed SD-JWT.
//
// At a high level, the Verifier:
//   - receives the Combined Format for Presentation from the Holder and verifies the signature of the SD-JWT using the
//     Issuer's public key,
//   - calculates the digests over the Holder-Selected Disclosures and verifies that each digest
//     is contained in the SD-JWT,
//   - verifies the Key Binding JWT, if it is present or required by the Verifier's policy,
//     using the holder public key referenced by the cnf claim of the SD-JWT.
//
// The Verifier will not, however, learn any claim values not disclosed in the Disclosures.
func Parse(combinedFormatForPresentation string, opts ...ParseOpt) (map[string]interface{}, error) {
	pOpts := newParseOpts(opts)

	token, err := common.Parse(combinedFormatForPresentation, pOpts.jwtOpts()...)
	if err != nil {
		return nil, err
	}

	return verify(token, pOpts)
}

// ParseJSON parses the flattened or general JSON serialization of a presentation and returns verified claims.
// Only the first signature is checked.
func ParseJSON(data []byte, opts ...ParseOpt) (map[string]interface{}, error) {
	pOpts := newParseOpts(opts)

	token, err := common.ParseJSONSerialization(data, pOpts.jwtOpts()...)
	if err != nil {
		return nil, err
	}

	return verify(token, pOpts)
}

// Verify runs the verification of Parse on an assembled presentation. The issuer JWT is parsed again,
// so the payload carried by token is not trusted.
func Verify(token *common.SDJWT, opts ...ParseOpt) (map[string]interface{}, error) {
	if token == nil {
		return nil, errors.New("SD-JWT is not defined")
	}

	pOpts := newParseOpts(opts)

	parsed, err := common.ParseCombined(token.CombinedFormat(), pOpts.jwtOpts()...)
	if err != nil {
		return nil, err
	}

	return verify(parsed, pOpts)
}

func verify(token *common.SDJWT, opts *parseOpts) (map[string]interface{}, error) {
	if opts.expectedTyp != "" {
		if typ, _ := token.Headers.Type(); typ != opts.expectedTyp {
			return nil, fmt.Errorf("issuer JWT: unexpected typ '%s', expected '%s'", typ, opts.expectedTyp)
		}
	}

	if err := jwt.CheckTime(token.Payload, opts.now(), opts.leeway); err != nil {
		return nil, fmt.Errorf("issuer JWT: %w", err)
	}

	if err := token.Validate(); err != nil {
		return nil, fmt.Errorf("validate SD-JWT: %w", err)
	}

	if token.KeyBindingJWT != "" {
		if err := verifyKeyBinding(token, opts); err != nil {
			return nil, err
		}
	} else if opts.keyBindingRequired {
		return nil, common.ErrKeyBindingRequired
	}

	return token.Claims()
}
