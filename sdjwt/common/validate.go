/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"

	"github.com/samber/lo"
)

// CollectDigests returns every digest referenced from an _sd array or a "..." marker
// at any depth of the value. Duplicates are kept.
func CollectDigests(v interface{}) ([]string, error) {
	var digests []string

	if err := collectDigests(v, &digests); err != nil {
		return nil, err
	}

	return digests, nil
}

func collectDigests(v interface{}, digests *[]string) error {
	switch val := v.(type) {
	case map[string]interface{}:
		sd, err := sdDigests(val)
		if err != nil {
			return err
		}

		*digests = append(*digests, sd...)

		for k, nested := range val {
			if k == SDKey {
				continue
			}

			if err := collectDigests(nested, digests); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, elem := range val {
			digest, isMarker, err := arrayElementDigest(elem)
			if err != nil {
				return err
			}

			if isMarker {
				*digests = append(*digests, digest)
				continue
			}

			if err := collectDigests(elem, digests); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateStructure checks that no digest is referenced from more than one place and that
// every presented disclosure is referenced. Digests referenced from the values of presented
// disclosures count as referenced, so nested disclosures are anchored through their parent.
func ValidateStructure(redacted map[string]interface{}, presented *DisclosureList) error {
	known, err := CollectDigests(redacted)
	if err != nil {
		return err
	}

	for _, d := range presented.Disclosures() {
		nested, err := CollectDigests(d.Value())
		if err != nil {
			return err
		}

		known = append(known, nested...)
	}

	if duplicates := lo.FindDuplicates(known); len(duplicates) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateDigest, duplicates[0])
	}

	knownSet := lo.SliceToMap(known, func(digest string) (string, struct{}) {
		return digest, struct{}{}
	})

	for _, digest := range presented.Digests() {
		if _, ok := knownSet[digest]; !ok {
			return fmt.Errorf("%w: %s", ErrOrphanDisclosure, digest)
		}
	}

	return nil
}
