/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"sort"

	"github.com/samber/lo"

	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
)

// Policy selects the claims to conceal.
//
// When DisclosablePaths is not nil it is used as is and may target any depth, AlwaysVisible is
// then ignored. Otherwise every top-level claim except the AlwaysVisible ones is concealed and
// nested claims stay in plain text.
type Policy struct {
	AlwaysVisible    []jsonpointer.Pointer
	DisclosablePaths []jsonpointer.Pointer
}

// DefaultPolicy conceals every top-level claim.
func DefaultPolicy() Policy {
	return Policy{}
}

// Targets returns the locations to conceal in claims, without duplicates.
func (p Policy) Targets(claims map[string]interface{}) []jsonpointer.Pointer {
	if p.DisclosablePaths != nil {
		return lo.UniqBy(p.DisclosablePaths, jsonpointer.Pointer.String)
	}

	visible := lo.SliceToMap(p.AlwaysVisible, func(ptr jsonpointer.Pointer) (string, struct{}) {
		return ptr.String(), struct{}{}
	})

	keys := lo.Keys(claims)
	sort.Strings(keys)

	var targets []jsonpointer.Pointer

	for _, key := range keys {
		if key == common.SDAlgorithmKey {
			continue
		}

		ptr := jsonpointer.New(jsonpointer.Key(key))
		if _, ok := visible[ptr.String()]; ok {
			continue
		}

		targets = append(targets, ptr)
	}

	return targets
}

func (p Policy) withAlwaysVisible(pointers ...jsonpointer.Pointer) Policy {
	return Policy{
		AlwaysVisible:    append(append([]jsonpointer.Pointer{}, p.AlwaysVisible...), pointers...),
		DisclosablePaths: p.DisclosablePaths,
	}
}
