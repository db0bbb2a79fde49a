/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"errors"
	"fmt"
	"time"

	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/trustbloc/kms-go/doc/jose"

	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
)

// BindingPayload represents the Verifier supplied claims of a key binding JWT.
type BindingPayload struct {
	Nonce    string               `json:"nonce,omitempty"`
	Audience string               `json:"aud,omitempty"`
	IssuedAt *josejwt.NumericDate `json:"iat,omitempty"`
}

// BindingInfo defines the key binding JWT: its payload, the Holder signer and additional headers.
type BindingInfo struct {
	Payload BindingPayload
	Signer  jwt.ProofCreator
	Headers jose.Headers
}

// options holds options for the presentation.
type options struct {
	binding *BindingInfo
	now     func() time.Time
}

// Option is a CreatePresentation option.
type Option func(opts *options)

// WithKeyBinding adds a key binding JWT to the presentation.
func WithKeyBinding(info *BindingInfo) Option {
	return func(opts *options) {
		opts.binding = info
	}
}

// WithTime sets the clock used for the iat claim of the key binding JWT when the payload has none.
func WithTime(now func() time.Time) Option {
	return func(opts *options) {
		opts.now = now
	}
}

// CreatePresentation assembles the presentation of the SD-JWT with the selected disclosures, which must
// belong to the SD-JWT. The key binding JWT, if requested, covers the issuer JWT and exactly those disclosures.
func CreatePresentation(token *common.SDJWT, selected *common.DisclosureList,
	opts ...Option) (*common.SDJWT, error) {
	pOpts := &options{now: time.Now}

	for _, opt := range opts {
		opt(pOpts)
	}

	var digests []string

	for _, digest := range selected.Digests() {
		if !token.Disclosures.Contains(digest) {
			return nil, fmt.Errorf("%w: %s is not a disclosure of the SD-JWT", common.ErrOrphanDisclosure, digest)
		}

		digests = append(digests, digest)
	}

	presentation := token.WithDisclosures(token.Disclosures.Subset(digests))

	if err := presentation.Validate(); err != nil {
		return nil, fmt.Errorf("validate presentation: %w", err)
	}

	if pOpts.binding == nil {
		return presentation, nil
	}

	kb, err := CreateKeyBindingJWT(presentation, pOpts.binding, pOpts.now)
	if err != nil {
		return nil, err
	}

	presentation.KeyBindingJWT = kb

	return presentation, nil
}

// CreateKeyBindingJWT signs a key binding JWT over the presentation: its sd_hash is the digest of the
// issuer JWT followed by the presented disclosures, computed with the algorithm of the SD-JWT.
func CreateKeyBindingJWT(presentation *common.SDJWT, info *BindingInfo, now func() time.Time) (string, error) {
	if info == nil || info.Signer == nil {
		return "", errors.New("key binding signer is not defined")
	}

	headers, err := info.Signer.CreateJWTHeaders(jwt.SignParameters{})
	if err != nil {
		return "", fmt.Errorf("create key binding headers: %w", err)
	}

	if alg, _ := headers.Algorithm(); alg == "" || alg == jwt.AlgorithmNone {
		return "", fmt.Errorf("%w: holder signer alg '%s'", common.ErrAlgorithmNone, alg)
	}

	hash, err := common.ResolveHashAlgorithm(presentation.Payload)
	if err != nil {
		return "", err
	}

	sdHash, err := common.GetHash(hash, presentation.PresentationString())
	if err != nil {
		return "", fmt.Errorf("compute sd_hash: %w", err)
	}

	issuedAt := info.Payload.IssuedAt
	if issuedAt == nil {
		if now == nil {
			now = time.Now
		}

		issuedAt = josejwt.NewNumericDate(now())
	}

	claims := &common.KeyBindingClaims{
		IssuedAt: issuedAt,
		Nonce:    info.Payload.Nonce,
		SDHash:   sdHash,
	}

	if info.Payload.Audience != "" {
		claims.Audience = []string{info.Payload.Audience}
	}

	kbHeaders := jose.Headers{}
	for k, v := range info.Headers {
		kbHeaders[k] = v
	}

	kbHeaders[jose.HeaderType] = common.KeyBindingJWTType

	kbJWT, err := jwt.NewSigned(claims, jwt.SignParameters{AdditionalHeaders: kbHeaders}, info.Signer)
	if err != nil {
		return "", fmt.Errorf("create key binding JWT: %w", err)
	}

	return kbJWT.Serialize(false)
}

// AddKeyBindingToJSON adds the key binding JWT to the unprotected header of the first signature of a
// flattened or general JSON serialization.
func AddKeyBindingToJSON(data []byte, keyBindingJWT string) ([]byte, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not a JSON document", common.ErrInvalidFormat)
	}

	path := "header." + common.KeyBindingJWTHeader
	if gjson.GetBytes(data, "signatures").IsArray() {
		path = "signatures.0." + path
	}

	result, err := sjson.SetBytes(data, path, keyBindingJWT)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", common.KeyBindingJWTHeader, err)
	}

	return result, nil
}
