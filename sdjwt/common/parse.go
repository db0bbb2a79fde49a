/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"

	"github.com/trustbloc/sd-jwt-go/jwt"
)

// Parse splits a compact SD-JWT, checks the issuer JWT with the proof checker given in opts and
// parses the disclosures with the digest algorithm of the payload.
// The structure of the SD-JWT is not validated, call Validate.
func Parse(combined string, opts ...jwt.ParseOpt) (*SDJWT, error) {
	cf, err := ParseCombinedFormat(combined)
	if err != nil {
		return nil, err
	}

	return ParseCombined(cf, opts...)
}

// ParseCombined parses the segments of a compact SD-JWT.
func ParseCombined(cf *CombinedFormat, opts ...jwt.ParseOpt) (*SDJWT, error) {
	signedJWT, _, err := jwt.Parse(cf.IssuerJWT, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse issuer JWT: %w", err)
	}

	if signedJWT.Payload == nil {
		return nil, fmt.Errorf("%w: issuer JWT payload is empty", ErrInvalidFormat)
	}

	hash, err := ResolveHashAlgorithm(signedJWT.Payload)
	if err != nil {
		return nil, err
	}

	disclosures, err := ParseDisclosureList(cf.Disclosures, hash)
	if err != nil {
		return nil, err
	}

	return &SDJWT{
		IssuerJWT:     cf.IssuerJWT,
		Headers:       signedJWT.Headers,
		Payload:       signedJWT.Payload,
		Disclosures:   disclosures,
		KeyBindingJWT: cf.KeyBindingJWT,
	}, nil
}

// ParseJSONSerialization parses a flattened or general JSON serialization. Only the first signature
// is checked, the others are kept in AdditionalSignatures.
func ParseJSONSerialization(data []byte, opts ...jwt.ParseOpt) (*SDJWT, error) {
	j, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}

	token, err := ParseCombined(&CombinedFormat{
		IssuerJWT:     j.Compact(0),
		Disclosures:   j.Disclosures,
		KeyBindingJWT: j.KeyBindingJWT,
	}, opts...)
	if err != nil {
		return nil, err
	}

	token.AdditionalSignatures = j.Signatures[1:]

	return token, nil
}
