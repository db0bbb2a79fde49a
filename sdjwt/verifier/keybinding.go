/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"fmt"

	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
)

// verifyKeyBinding checks the key binding JWT of the presentation against the holder key bound to the SD-JWT.
func verifyKeyBinding(token *common.SDJWT, opts *parseOpts) error {
	headers, err := jwt.ParseHeaders(token.KeyBindingJWT)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrKeyBindingSignature, err)
	}

	alg, _ := headers.Algorithm()
	if alg == "" || alg == jwt.AlgorithmNone {
		return fmt.Errorf("%w: key binding JWT alg '%s'", common.ErrAlgorithmNone, alg)
	}

	if typ, _ := headers.Type(); typ != common.KeyBindingJWTType {
		return fmt.Errorf("%w: '%s', expected '%s'", common.ErrUnexpectedTyp, typ, common.KeyBindingJWTType)
	}

	if err = checkSigningAlgorithm(alg, opts.holderSigningAlgorithms); err != nil {
		return fmt.Errorf("%w: %w", common.ErrKeyBindingSignature, err)
	}

	holderKey, err := resolveHolderKey(token.Payload, opts)
	if err != nil {
		return err
	}

	kbJWT, _, err := jwt.Parse(token.KeyBindingJWT,
		jwt.WithProofChecker(jwt.NewKeyProofChecker(*holderKey, opts.holderSigningAlgorithms...)))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrKeyBindingSignature, err)
	}

	if err = jwt.CheckTime(kbJWT.Payload, opts.now(), opts.leeway); err != nil {
		return fmt.Errorf("%w: %w", common.ErrKeyBinding, err)
	}

	var claims common.KeyBindingClaims

	if err = kbJWT.DecodeClaims(&claims); err != nil {
		return fmt.Errorf("%w: decode claims: %w", common.ErrKeyBinding, err)
	}

	if claims.IssuedAt == nil {
		return fmt.Errorf("%w: iat is missing", common.ErrKeyBinding)
	}

	if opts.expectedNonce != "" && claims.Nonce != opts.expectedNonce {
		return fmt.Errorf("%w: got '%s'", common.ErrNonceMismatch, claims.Nonce)
	}

	if opts.expectedAudience != "" && !claims.HasAudience(opts.expectedAudience) {
		return fmt.Errorf("%w: %v does not contain '%s'", common.ErrAudienceMismatch,
			claims.Audience, opts.expectedAudience)
	}

	sdHash, err := token.SDHash()
	if err != nil {
		return fmt.Errorf("%w: compute sd_hash: %w", common.ErrKeyBinding, err)
	}

	if claims.SDHash != sdHash {
		return common.ErrSDHashMismatch
	}

	return nil
}
