/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectDigests(t *testing.T) {
	digests, err := CollectDigests(map[string]interface{}{
		SDKey: []interface{}{"a", "b"},
		"address": map[string]interface{}{
			SDKey: []interface{}{"c"},
		},
		"list": []interface{}{
			map[string]interface{}{ArrayElementDigestKey: "d"},
			[]interface{}{map[string]interface{}{ArrayElementDigestKey: "e"}},
			map[string]interface{}{SDKey: []interface{}{"a"}},
		},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "a", "b", "c", "d", "e"}, digests)

	_, err = CollectDigests(map[string]interface{}{SDKey: []interface{}{1}})
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestValidateStructure(t *testing.T) {
	t.Run("success - all disclosures anchored", func(t *testing.T) {
		f := newDisclosureFactory(t)

		email := f.object("email", "a@example.com")
		de := f.element("DE")

		redacted := map[string]interface{}{
			SDKey:           []interface{}{email, "decoy"},
			"nationalities": []interface{}{map[string]interface{}{ArrayElementDigestKey: de}},
		}

		require.NoError(t, ValidateStructure(redacted, f.list))
		require.NoError(t, ValidateStructure(redacted, f.list.Subset([]string{de})))
		require.NoError(t, ValidateStructure(redacted, nil))
	})

	t.Run("success - nested disclosure anchored by its parent", func(t *testing.T) {
		f := newDisclosureFactory(t)

		street := f.object("street_address", "Schulstr. 12")
		address := f.object("address", map[string]interface{}{SDKey: []interface{}{street}})

		redacted := map[string]interface{}{SDKey: []interface{}{address}}

		require.NoError(t, ValidateStructure(redacted, f.list))
	})

	t.Run("error - duplicate digest", func(t *testing.T) {
		f := newDisclosureFactory(t)

		email := f.object("email", "a@example.com")

		redacted := map[string]interface{}{
			SDKey:     []interface{}{email},
			"address": map[string]interface{}{SDKey: []interface{}{email}},
		}

		err := ValidateStructure(redacted, f.list)
		require.ErrorIs(t, err, ErrDuplicateDigest)
		require.ErrorIs(t, err, ErrStructure)
	})

	t.Run("error - duplicate digest without disclosures", func(t *testing.T) {
		redacted := map[string]interface{}{
			SDKey:  []interface{}{"x"},
			"list": []interface{}{map[string]interface{}{ArrayElementDigestKey: "x"}},
		}

		require.ErrorIs(t, ValidateStructure(redacted, nil), ErrDuplicateDigest)
	})

	t.Run("error - orphan disclosure", func(t *testing.T) {
		f := newDisclosureFactory(t)

		email := f.object("email", "a@example.com")
		f.object("phone_number", "+1-555")

		redacted := map[string]interface{}{SDKey: []interface{}{email}}

		err := ValidateStructure(redacted, f.list)
		require.ErrorIs(t, err, ErrOrphanDisclosure)
		require.ErrorIs(t, err, ErrStructure)
	})

	t.Run("error - nested disclosure without its parent", func(t *testing.T) {
		f := newDisclosureFactory(t)

		street := f.object("street_address", "Schulstr. 12")
		address := f.object("address", map[string]interface{}{SDKey: []interface{}{street}})

		redacted := map[string]interface{}{SDKey: []interface{}{address}}

		err := ValidateStructure(redacted, f.list.Subset([]string{street}))
		require.ErrorIs(t, err, ErrOrphanDisclosure)
	})

	t.Run("error - malformed redacted payload", func(t *testing.T) {
		err := ValidateStructure(map[string]interface{}{SDKey: "x"}, nil)
		require.ErrorIs(t, err, ErrMalformedInput)
	})
}
