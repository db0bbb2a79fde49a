/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/samber/lo"
)

// KeyBindingJWTType is the typ header of a key binding JWT.
const KeyBindingJWTType = "kb+jwt"

// KeyBindingClaims are the claims of a key binding JWT.
type KeyBindingClaims struct {
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	Audience  []string         `json:"aud,omitempty"`
	Nonce     string           `json:"nonce,omitempty"`
	SDHash    string           `json:"sd_hash,omitempty"`
	Expiry    *jwt.NumericDate `json:"exp,omitempty"`
	NotBefore *jwt.NumericDate `json:"nbf,omitempty"`
}

// HasAudience reports whether aud contains audience.
func (c *KeyBindingClaims) HasAudience(audience string) bool {
	return lo.Contains(c.Audience, audience)
}
