/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

/*
Package holder enables the Holder: an entity that receives SD-JWTs from the Issuer and has control over them.

The Holder parses the SD-JWT received from the Issuer, lists the claims it may disclose, selects the
disclosures to present to a Verifier and optionally proves possession of the key bound to the SD-JWT
with a key binding JWT.
*/
package holder

import (
	"fmt"
	"sort"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
)

var logger = log.New("sd-jwt/holder")

// Claim is a selectively disclosable claim of an SD-JWT.
type Claim struct {
	// Disclosure is the encoded disclosure of the claim.
	Disclosure string
	// Digest is the digest of the disclosure.
	Digest string
	// Name is the claim name, empty for an array element.
	Name string
	// Value is the disclosed value. Nested disclosable claims are listed separately.
	Value interface{}
	// Path is the location of the claim in the reconstructed claims.
	Path jsonpointer.Pointer
	// IsArrayElement reports whether the claim is an array element.
	IsArrayElement bool
}

// parseOpts holds options for the SD-JWT parsing.
type parseOpts struct {
	proofChecker    jwt.ProofChecker
	detachedPayload []byte
}

// ParseOpt is the SD-JWT Parser option.
type ParseOpt func(opts *parseOpts)

// WithProofChecker option defines the checker of the issuer signature.
// The issuer signature is not checked by default.
func WithProofChecker(checker jwt.ProofChecker) ParseOpt {
	return func(opts *parseOpts) {
		opts.proofChecker = checker
	}
}

// WithJWTDetachedPayload option is for definition of JWT detached payload.
func WithJWTDetachedPayload(payload []byte) ParseOpt {
	return func(opts *parseOpts) {
		opts.detachedPayload = payload
	}
}

func (o *parseOpts) jwtOpts() []jwt.ParseOpt {
	checker := o.proofChecker
	if checker == nil {
		checker = jwt.NoProofCheck()
	}

	jwtOpts := []jwt.ParseOpt{jwt.WithProofChecker(checker)}

	if o.detachedPayload != nil {
		jwtOpts = append(jwtOpts, jwt.WithJWTDetachedPayload(o.detachedPayload))
	}

	return jwtOpts
}

func newParseOpts(opts []ParseOpt) *parseOpts {
	pOpts := &parseOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	return pOpts
}

// Parse parses the combined format for issuance and checks that every disclosure is referenced by the
// issuer-signed JWT.
func Parse(combinedFormatForIssuance string, opts ...ParseOpt) (*common.SDJWT, error) {
	token, err := common.Parse(combinedFormatForIssuance, newParseOpts(opts).jwtOpts()...)
	if err != nil {
		return nil, err
	}

	return checkIssued(token)
}

// ParseJSON parses the flattened or general JSON serialization of an SD-JWT.
func ParseJSON(data []byte, opts ...ParseOpt) (*common.SDJWT, error) {
	token, err := common.ParseJSONSerialization(data, newParseOpts(opts).jwtOpts()...)
	if err != nil {
		return nil, err
	}

	return checkIssued(token)
}

func checkIssued(token *common.SDJWT) (*common.SDJWT, error) {
	if err := token.Validate(); err != nil {
		return nil, fmt.Errorf("validate SD-JWT: %w", err)
	}

	if token.KeyBindingJWT != "" {
		logger.Debugf("SD-JWT for issuance carries a key binding JWT, dropped")

		token.KeyBindingJWT = ""
	}

	return token, nil
}

// Claims lists the selectively disclosable claims of the SD-JWT with their location.
func Claims(token *common.SDJWT) ([]*Claim, error) {
	index, err := indexDisclosures(token)
	if err != nil {
		return nil, err
	}

	claims := index.claims

	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].Path.String() < claims[j].Path.String()
	})

	return claims, nil
}
