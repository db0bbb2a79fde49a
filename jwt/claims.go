/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"

	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

// DefaultLeeway is the default clock skew tolerated by CheckTime.
const DefaultLeeway = jwt.DefaultLeeway

// DecodeClaims reads the registered claims from a JWT payload.
func DecodeClaims(payload map[string]interface{}) (*Claims, error) {
	var claims Claims

	if err := jsonutil.Decode(payload, &claims); err != nil {
		return nil, fmt.Errorf("decode registered claims: %w", err)
	}

	return &claims, nil
}

// CheckTime validates the exp, nbf and iat claims of a JWT payload.
// A zero now means the current time.
func CheckTime(payload map[string]interface{}, now time.Time, leeway time.Duration) error {
	claims, err := DecodeClaims(payload)
	if err != nil {
		return err
	}

	return jwt.Claims(*claims).ValidateWithLeeway(jwt.Expected{Time: now}, leeway)
}
