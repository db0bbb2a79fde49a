/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"errors"
	"fmt"
)

// Malformed input.
var (
	ErrMalformedInput = errors.New("malformed input")

	ErrMalformedDisclosure    = fmt.Errorf("%w: malformed disclosure", ErrMalformedInput)
	ErrDisclosureTypeMismatch = fmt.Errorf("%w: disclosure type does not match its position", ErrMalformedInput)
	ErrClaimNameConflict      = fmt.Errorf("%w: claim name already exists at the same level", ErrMalformedInput)
	ErrInvalidFormat          = fmt.Errorf("%w: invalid SD-JWT format", ErrMalformedInput)
)

// Structural integrity failures.
var (
	ErrStructure = errors.New("structural integrity failure")

	ErrDuplicateDigest  = fmt.Errorf("%w: digest is included in more than one place", ErrStructure)
	ErrOrphanDisclosure = fmt.Errorf("%w: disclosure digest is not referenced by the SD-JWT", ErrStructure)
)

// Key binding failures.
var (
	ErrKeyBinding = errors.New("key binding failure")

	ErrKeyBindingRequired  = fmt.Errorf("%w: key binding JWT is required", ErrKeyBinding)
	ErrAlgorithmNone       = fmt.Errorf("%w: alg 'none' is not allowed", ErrKeyBinding)
	ErrUnexpectedTyp       = fmt.Errorf("%w: unexpected typ header", ErrKeyBinding)
	ErrNonceMismatch       = fmt.Errorf("%w: nonce mismatch", ErrKeyBinding)
	ErrAudienceMismatch    = fmt.Errorf("%w: audience mismatch", ErrKeyBinding)
	ErrSDHashMismatch      = fmt.Errorf("%w: sd_hash mismatch", ErrKeyBinding)
	ErrKeyBindingSignature = fmt.Errorf("%w: invalid key binding JWT", ErrKeyBinding)
)

var (
	// ErrKeyResolution is returned when no holder key can be resolved from the cnf claim.
	ErrKeyResolution = errors.New("holder key resolution failure")

	// ErrPathNotFound is returned by concealment in strict mode for a target that does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrUnsupportedHash is returned for an unknown _sd_alg.
	ErrUnsupportedHash = errors.New("unsupported hash algorithm")
)
