/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package issuer enables the Issuer: An entity that creates SD-JWTs.

An SD-JWT is a digitally signed document containing digests over the claims
(per claim: a random salt, the claim name, the claim value).
It allows an Issuer to sign a claim set in such a way that a Holder can later
reveal a subset of the claims to a Verifier without breaking the signature.

The claims to conceal are selected by a Policy. By default every top-level
claim is concealed. The registered claims set by the Issuer (iss, sub, aud,
jti, iat, nbf, exp) and the confirmation claim (cnf) are always visible.
*/
package issuer

import (
	"crypto"
	"errors"
	"fmt"
	"io"

	gojose "github.com/go-jose/go-jose/v3"
	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

var logger = log.New("sd-jwt/issuer")

// TypeSDJWT is the default typ header of an issuer-signed SD-JWT.
const TypeSDJWT = "sd+jwt"

// SelectiveDisclosureJWT defines Selective Disclosure JSON Web Token (https://tools.ietf.org/html/rfc7519)
type SelectiveDisclosureJWT struct {
	SignedJWT   *jwt.JSONWebToken
	Disclosures *common.DisclosureList
}

// newOpts holds options for creating new SD-JWT.
type newOpts struct {
	Subject  string
	Audience string
	JTI      string

	Expiry    *josejwt.NumericDate
	NotBefore *josejwt.NumericDate
	IssuedAt  *josejwt.NumericDate

	HolderPublicKey *gojose.JSONWebKey
	confirmation    map[string]interface{}

	HashAlg crypto.Hash

	policy      Policy
	decoys      int
	saltSize    int
	random      io.Reader
	strictPaths bool
}

// NewOpt is the SD-JWT New option.
type NewOpt func(opts *newOpts)

// WithPolicy sets the policy selecting the claims to conceal.
func WithPolicy(policy Policy) NewOpt {
	return func(opts *newOpts) {
		opts.policy = policy
	}
}

// WithAlwaysVisible keeps the given top-level claims in plain text.
// For example []string{"/given_name"} leaves given_name visible and conceals every other top-level claim.
func WithAlwaysVisible(pointers ...string) NewOpt {
	return func(opts *newOpts) {
		opts.policy.AlwaysVisible = append(opts.policy.AlwaysVisible, jsonpointer.ParseAll(pointers...)...)
	}
}

// WithDisclosablePaths conceals exactly the claims at the given JSON pointers, at any depth.
//
// For example []string{"/address/street_address", "/address", "/nationalities/1"} conceals the street
// address inside the address object, then the address object itself and the second nationality.
func WithDisclosablePaths(pointers ...string) NewOpt {
	return func(opts *newOpts) {
		if opts.policy.DisclosablePaths == nil {
			opts.policy.DisclosablePaths = []jsonpointer.Pointer{}
		}

		opts.policy.DisclosablePaths = append(opts.policy.DisclosablePaths, jsonpointer.ParseAll(pointers...)...)
	}
}

// WithDecoyDigests is an option for adding n decoy digests to the top-level _sd array (default is none).
func WithDecoyDigests(n int) NewOpt {
	return func(opts *newOpts) {
		opts.decoys = n
	}
}

// WithHashAlgorithm is an option for hashing disclosures.
func WithHashAlgorithm(alg crypto.Hash) NewOpt {
	return func(opts *newOpts) {
		opts.HashAlg = alg
	}
}

// WithRandomSource sets the source of salts, decoys and digest shuffling. Default is crypto/rand.
func WithRandomSource(r io.Reader) NewOpt {
	return func(opts *newOpts) {
		opts.random = r
	}
}

// WithSaltSize sets the salt size in bytes (default is 16).
func WithSaltSize(size int) NewOpt {
	return func(opts *newOpts) {
		opts.saltSize = size
	}
}

// WithStrictPaths makes a policy target which does not address a value an error.
func WithStrictPaths(flag bool) NewOpt {
	return func(opts *newOpts) {
		opts.strictPaths = flag
	}
}

// WithIssuedAt is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithIssuedAt(issuedAt *josejwt.NumericDate) NewOpt {
	return func(opts *newOpts) {
		opts.IssuedAt = issuedAt
	}
}

// WithAudience is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithAudience(audience string) NewOpt {
	return func(opts *newOpts) {
		opts.Audience = audience
	}
}

// WithExpiry is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithExpiry(expiry *josejwt.NumericDate) NewOpt {
	return func(opts *newOpts) {
		opts.Expiry = expiry
	}
}

// WithNotBefore is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithNotBefore(notBefore *josejwt.NumericDate) NewOpt {
	return func(opts *newOpts) {
		opts.NotBefore = notBefore
	}
}

// WithSubject is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithSubject(subject string) NewOpt {
	return func(opts *newOpts) {
		opts.Subject = subject
	}
}

// WithJTI is an option for SD-JWT payload. This is a clear-text claim that is always disclosed.
func WithJTI(jti string) NewOpt {
	return func(opts *newOpts) {
		opts.JTI = jti
	}
}

// WithHolderPublicKey is an option for SD-JWT payload.
// The Holder can prove legitimate possession of an SD-JWT by proving control over the same private key during
// the issuance and presentation. The key is added to the payload as cnf.jwk. Only the public part is used.
func WithHolderPublicKey(jwk *gojose.JSONWebKey) NewOpt {
	return func(opts *newOpts) {
		opts.HolderPublicKey = jwk
	}
}

// WithHolderConfirmation sets the cnf claim as is, e.g. {"kid": "..."} or {"jkt": "..."}.
// It is ignored when WithHolderPublicKey is used.
func WithHolderConfirmation(cnf map[string]interface{}) NewOpt {
	return func(opts *newOpts) {
		opts.confirmation = cnf
	}
}

// payload holds the claims set by the Issuer in plain text.
type payload struct {
	Issuer    string               `json:"iss,omitempty"`
	Subject   string               `json:"sub,omitempty"`
	Audience  string               `json:"aud,omitempty"`
	JTI       string               `json:"jti,omitempty"`
	IssuedAt  *josejwt.NumericDate `json:"iat,omitempty"`
	NotBefore *josejwt.NumericDate `json:"nbf,omitempty"`
	Expiry    *josejwt.NumericDate `json:"exp,omitempty"`

	CNF map[string]interface{} `json:"cnf,omitempty"`
}

// registeredClaims are never concealed by the default policy.
var registeredClaims = []string{"iss", "sub", "aud", "jti", "iat", "nbf", "exp", common.CNFKey}

// New creates new signed Selective Disclosure JWT based on input claims.
// The Issuer MUST create a Disclosure for each selectively disclosable claim as follows:
// Create an array of three elements in this order:
//
//	A salt value. Generated by the system, the salt value MUST be unique for each claim that is to be selectively
//	disclosed.
//	The claim name, or key, as it would be used in a regular JWT body. This MUST be a string.
//	The claim's value, as it would be used in a regular JWT body. The value MAY be of any type that is allowed in JSON,
//	including numbers, strings, booleans, arrays, and objects.
//
// Then JSON-encode the array such that an UTF-8 string is produced.
// Then base64url-encode the byte representation of the UTF-8 string to create the Disclosure.
//
// A concealed array element is disclosed by an array of two elements: the salt and the value.
func New(issuer string, claims interface{}, headers jose.Headers,
	signer jwt.ProofCreator, opts ...NewOpt) (*SelectiveDisclosureJWT, error) {
	if signer == nil {
		return nil, errors.New("signer is not defined")
	}

	nOpts := defaultOpts()

	for _, opt := range opts {
		opt(nOpts)
	}

	claimsMap, err := jwt.PayloadToMap(claims)
	if err != nil {
		return nil, fmt.Errorf("convert payload to map: %w", err)
	}

	plain, err := jsonutil.ToMap(createPayload(issuer, nOpts))
	if err != nil {
		return nil, fmt.Errorf("convert registered claims to map: %w", err)
	}

	policy := nOpts.policy
	if policy.DisclosablePaths == nil {
		policy = policy.withAlwaysVisible(jsonpointer.ParseAll(prefixAll(registeredClaims)...)...)
	}

	concealed, err := conceal(claimsMap, policy, nOpts)
	if err != nil {
		return nil, err
	}

	for _, p := range concealed.Paths {
		last, _ := p.Last()
		if _, set := plain[last.Key()]; set && p.Len() == 1 {
			return nil, fmt.Errorf("claim '%s' is set by the issuer and cannot be concealed", last.Key())
		}
	}

	// registered claims set by the issuer win over the same claims in the input.
	for k, v := range plain {
		concealed.Claims[k] = v
	}

	signHeaders := jose.Headers{jose.HeaderType: TypeSDJWT}
	for k, v := range headers {
		signHeaders[k] = v
	}

	signedJWT, err := jwt.NewSigned(concealed.Claims, jwt.SignParameters{AdditionalHeaders: signHeaders}, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create SD-JWT from payload: %w", err)
	}

	logger.Debugf("issued SD-JWT with %d disclosures, %d decoys", concealed.Disclosures.Len(), nOpts.decoys)

	return &SelectiveDisclosureJWT{
		SignedJWT:   signedJWT,
		Disclosures: concealed.Disclosures,
	}, nil
}

func createPayload(issuer string, nOpts *newOpts) *payload {
	var cnf map[string]interface{}

	switch {
	case nOpts.HolderPublicKey != nil:
		key := *nOpts.HolderPublicKey
		if !key.IsPublic() {
			key = key.Public()
		}

		cnf = map[string]interface{}{"jwk": &key}
	case nOpts.confirmation != nil:
		cnf = nOpts.confirmation
	}

	return &payload{
		Issuer:    issuer,
		Subject:   nOpts.Subject,
		Audience:  nOpts.Audience,
		JTI:       nOpts.JTI,
		IssuedAt:  nOpts.IssuedAt,
		NotBefore: nOpts.NotBefore,
		Expiry:    nOpts.Expiry,
		CNF:       cnf,
	}
}

func prefixAll(names []string) []string {
	pointers := make([]string, len(names))

	for i, name := range names {
		pointers[i] = jsonpointer.New(jsonpointer.Key(name)).String()
	}

	return pointers
}

// Serialize makes the combined format for issuance: <issuer JWT>~<disclosure 1>~...~<disclosure N>~.
func (j *SelectiveDisclosureJWT) Serialize(detached bool) (string, error) {
	if j == nil || j.SignedJWT == nil {
		return "", errors.New("SD-JWT is not defined")
	}

	signedJWT, err := j.SignedJWT.Serialize(detached)
	if err != nil {
		return "", err
	}

	cf := common.CombinedFormat{
		IssuerJWT:   signedJWT,
		Disclosures: j.Disclosures.Encoded(),
	}

	return cf.Serialize(), nil
}

// SDJWT returns the SD-JWT with all its disclosures.
func (j *SelectiveDisclosureJWT) SDJWT() (*common.SDJWT, error) {
	compact, err := j.Serialize(false)
	if err != nil {
		return nil, err
	}

	cf, err := common.ParseCombinedFormat(compact)
	if err != nil {
		return nil, err
	}

	return &common.SDJWT{
		IssuerJWT:   cf.IssuerJWT,
		Headers:     j.SignedJWT.Headers,
		Payload:     j.SignedJWT.Payload,
		Disclosures: j.Disclosures,
	}, nil
}

// SerializeJSON makes the flattened JSON serialization with the disclosures in the unprotected header.
func (j *SelectiveDisclosureJWT) SerializeJSON() ([]byte, error) {
	token, err := j.SDJWT()
	if err != nil {
		return nil, err
	}

	return token.SerializeJSON()
}
