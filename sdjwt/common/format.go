/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	"fmt"
	"strings"

	"github.com/trustbloc/kms-go/doc/jose"
)

// CombinedFormat holds the segments of a compact SD-JWT:
// <IssuerJWT>~<Disclosure 1>~...~<Disclosure N>~<optional KB-JWT>.
type CombinedFormat struct {
	IssuerJWT     string
	Disclosures   []string
	KeyBindingJWT string
}

// ParseCombinedFormat splits a compact SD-JWT into its segments.
func ParseCombinedFormat(combined string) (*CombinedFormat, error) {
	parts := strings.Split(combined, CombinedFormatSeparator)
	if len(parts) < 2 { //nolint:gomnd
		return nil, fmt.Errorf("%w: separator '%s' not found", ErrInvalidFormat, CombinedFormatSeparator)
	}

	if parts[0] == "" {
		return nil, fmt.Errorf("%w: issuer JWT is empty", ErrInvalidFormat)
	}

	disclosures := parts[1 : len(parts)-1]
	for i, d := range disclosures {
		if d == "" {
			return nil, fmt.Errorf("%w: disclosure %d is empty", ErrInvalidFormat, i)
		}
	}

	return &CombinedFormat{
		IssuerJWT:     parts[0],
		Disclosures:   disclosures,
		KeyBindingJWT: parts[len(parts)-1],
	}, nil
}

// Serialize assembles the compact form. Without a KB-JWT the result ends with the separator.
func (cf *CombinedFormat) Serialize() string {
	return cf.PresentationString() + CombinedFormatSeparator + cf.KeyBindingJWT
}

// PresentationString returns the issuer JWT followed by the disclosures, without a trailing
// separator and without the KB-JWT. Its hash is the sd_hash of a key binding JWT.
func (cf *CombinedFormat) PresentationString() string {
	var sb strings.Builder

	sb.WriteString(cf.IssuerJWT)

	for _, d := range cf.Disclosures {
		sb.WriteString(CombinedFormatSeparator)
		sb.WriteString(d)
	}

	return sb.String()
}

// SDJWT is a parsed SD-JWT: the issuer JWT with its redacted payload, the disclosures
// and the optional key binding JWT.
type SDJWT struct {
	IssuerJWT     string
	Headers       jose.Headers
	Payload       map[string]interface{}
	Disclosures   *DisclosureList
	KeyBindingJWT string

	// AdditionalSignatures are signatures of a JSON serialization beyond the one in IssuerJWT.
	AdditionalSignatures []JWSSignature
}

// Hash returns the digest algorithm of the SD-JWT.
func (s *SDJWT) Hash() crypto.Hash {
	return s.Disclosures.Hash()
}

// CombinedFormat returns the compact segments.
func (s *SDJWT) CombinedFormat() *CombinedFormat {
	return &CombinedFormat{
		IssuerJWT:     s.IssuerJWT,
		Disclosures:   s.Disclosures.Encoded(),
		KeyBindingJWT: s.KeyBindingJWT,
	}
}

// Serialize returns the compact form.
func (s *SDJWT) Serialize() string {
	return s.CombinedFormat().Serialize()
}

// PresentationString returns the sd_hash input of the SD-JWT.
func (s *SDJWT) PresentationString() string {
	return s.CombinedFormat().PresentationString()
}

// SDHash computes the sd_hash of the SD-JWT with its own digest algorithm.
func (s *SDJWT) SDHash() (string, error) {
	return GetHash(s.Hash(), s.PresentationString())
}

// Claims reconstructs the claims from the disclosures of the SD-JWT.
func (s *SDJWT) Claims() (map[string]interface{}, error) {
	return Reconstruct(s.Payload, s.Disclosures)
}

// Validate runs the structural validation of the SD-JWT.
func (s *SDJWT) Validate() error {
	return ValidateStructure(s.Payload, s.Disclosures)
}

// WithDisclosures returns a copy of the SD-JWT presenting the given disclosures and no KB-JWT.
func (s *SDJWT) WithDisclosures(disclosures *DisclosureList) *SDJWT {
	return &SDJWT{
		IssuerJWT:            s.IssuerJWT,
		Headers:              s.Headers,
		Payload:              s.Payload,
		Disclosures:          disclosures,
		AdditionalSignatures: s.AdditionalSignatures,
	}
}
