/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	"encoding/base64"
	"fmt"

	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

const (
	disclosureElementsObject = 3
	disclosureElementsArray  = 2
)

// Disclosure reveals one concealed object member or array element.
// A Disclosure without a name reveals an array element.
type Disclosure struct {
	salt    string
	name    string
	hasName bool
	value   interface{}
	encoded string
}

// NewObjectDisclosure creates a disclosure for the object member name.
func NewObjectDisclosure(salt []byte, name string, value interface{}) (*Disclosure, error) {
	if err := checkClaimName(name); err != nil {
		return nil, err
	}

	return newDisclosure(base64.RawURLEncoding.EncodeToString(salt), name, true, value)
}

// NewArrayElementDisclosure creates a disclosure for an array element.
func NewArrayElementDisclosure(salt []byte, value interface{}) (*Disclosure, error) {
	return newDisclosure(base64.RawURLEncoding.EncodeToString(salt), "", false, value)
}

func newDisclosure(salt, name string, hasName bool, value interface{}) (*Disclosure, error) {
	normalized, err := jsonutil.Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("normalize disclosure value: %w", err)
	}

	elements := []interface{}{salt}
	if hasName {
		elements = append(elements, name)
	}

	elements = append(elements, normalized)

	b, err := jsonutil.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("marshal disclosure: %w", err)
	}

	return &Disclosure{
		salt:    salt,
		name:    name,
		hasName: hasName,
		value:   normalized,
		encoded: base64.RawURLEncoding.EncodeToString(b),
	}, nil
}

// ParseDisclosure decodes a disclosure from its encoded form. The encoded string is kept as is,
// so the digest matches the one computed by the issuer.
func ParseDisclosure(encoded string) (*Disclosure, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrMalformedDisclosure, err)
	}

	tree, err := jsonutil.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrMalformedDisclosure, err)
	}

	elements, ok := tree.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: disclosure is not an array", ErrMalformedDisclosure)
	}

	if len(elements) != disclosureElementsObject && len(elements) != disclosureElementsArray {
		return nil, fmt.Errorf("%w: disclosure array size[%d] must be %d or %d", ErrMalformedDisclosure,
			len(elements), disclosureElementsArray, disclosureElementsObject)
	}

	salt, ok := elements[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: disclosure salt type[%T] must be string", ErrMalformedDisclosure, elements[0])
	}

	d := &Disclosure{
		salt:    salt,
		value:   elements[len(elements)-1],
		encoded: encoded,
	}

	if len(elements) == disclosureElementsObject {
		name, ok := elements[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: disclosure name type[%T] must be string", ErrMalformedDisclosure, elements[1])
		}

		if err := checkClaimName(name); err != nil {
			return nil, err
		}

		d.name = name
		d.hasName = true
	}

	return d, nil
}

func checkClaimName(name string) error {
	if name == SDKey || name == ArrayElementDigestKey {
		return fmt.Errorf("%w: claim name '%s' is reserved", ErrMalformedDisclosure, name)
	}

	return nil
}

// Encoded returns the base64url encoded disclosure.
func (d *Disclosure) Encoded() string {
	return d.encoded
}

// Salt returns the salt as it appears in the disclosure.
func (d *Disclosure) Salt() string {
	return d.salt
}

// Name returns the claim name. The second value is false for array element disclosures.
func (d *Disclosure) Name() (string, bool) {
	return d.name, d.hasName
}

// IsArrayElement reports whether the disclosure reveals an array element.
func (d *Disclosure) IsArrayElement() bool {
	return !d.hasName
}

// Value returns a copy of the disclosed value.
func (d *Disclosure) Value() interface{} {
	return jsonutil.DeepCopy(d.value)
}

// Digest computes the digest of the encoded disclosure.
func (d *Disclosure) Digest(hash crypto.Hash) (string, error) {
	return GetHash(hash, d.encoded)
}
