/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"fmt"

	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

// disclosureIndex locates the disclosures of an SD-JWT in the reconstructed claims.
type disclosureIndex struct {
	disclosures *common.DisclosureList
	claims      []*Claim
	byPath      map[string]*Claim
	applied     map[string]struct{}
}

func indexDisclosures(token *common.SDJWT) (*disclosureIndex, error) {
	idx := &disclosureIndex{
		disclosures: token.Disclosures,
		byPath:      map[string]*Claim{},
		applied:     map[string]struct{}{},
	}

	if err := idx.object(token.Payload, jsonpointer.Root()); err != nil {
		return nil, err
	}

	return idx, nil
}

func (idx *disclosureIndex) value(v interface{}, path jsonpointer.Pointer) error {
	switch val := v.(type) {
	case map[string]interface{}:
		return idx.object(val, path)
	case []interface{}:
		return idx.array(val, path)
	default:
		return nil
	}
}

func (idx *disclosureIndex) object(obj map[string]interface{}, path jsonpointer.Pointer) error {
	digests, err := jsonutil.StringArray(obj[common.SDKey])
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrMalformedInput, common.SDKey, err)
	}

	for _, digest := range digests {
		d, ok := idx.resolve(digest)
		if !ok {
			continue
		}

		name, hasName := d.Name()
		if !hasName {
			return fmt.Errorf("%w: array element disclosure %s referenced from %s",
				common.ErrDisclosureTypeMismatch, digest, common.SDKey)
		}

		claimPath := path.Append(jsonpointer.Key(name))
		idx.add(&Claim{
			Disclosure: d.Encoded(),
			Digest:     digest,
			Name:       name,
			Value:      d.Value(),
			Path:       claimPath,
		})

		if err = idx.value(d.Value(), claimPath); err != nil {
			return err
		}
	}

	for k, v := range obj {
		if k == common.SDKey {
			continue
		}

		if err = idx.value(v, path.Append(jsonpointer.Key(k))); err != nil {
			return err
		}
	}

	return nil
}

func (idx *disclosureIndex) array(arr []interface{}, path jsonpointer.Pointer) error {
	for i, elem := range arr {
		elemPath := path.Append(jsonpointer.Index(i))

		if digest, isMarker := markerDigest(elem); isMarker {
			d, ok := idx.resolve(digest)
			if !ok {
				continue
			}

			if !d.IsArrayElement() {
				return fmt.Errorf("%w: object member disclosure %s referenced from an array element",
					common.ErrDisclosureTypeMismatch, digest)
			}

			idx.add(&Claim{
				Disclosure:     d.Encoded(),
				Digest:         digest,
				Value:          d.Value(),
				Path:           elemPath,
				IsArrayElement: true,
			})

			elem = d.Value()
		}

		if err := idx.value(elem, elemPath); err != nil {
			return err
		}
	}

	return nil
}

func (idx *disclosureIndex) resolve(digest string) (*common.Disclosure, bool) {
	if _, applied := idx.applied[digest]; applied {
		return nil, false
	}

	d, ok := idx.disclosures.Get(digest)
	if ok {
		idx.applied[digest] = struct{}{}
	}

	return d, ok
}

func (idx *disclosureIndex) add(c *Claim) {
	idx.claims = append(idx.claims, c)
	idx.byPath[c.Path.String()] = c
}

// lookup returns the digests of the disclosures needed to disclose path: the disclosure at path and
// the disclosures of its concealed ancestors.
func (idx *disclosureIndex) lookup(path jsonpointer.Pointer) ([]string, bool) {
	c, ok := idx.byPath[path.String()]
	if !ok {
		return nil, false
	}

	digests := []string{c.Digest}

	for p := path.Parent(); !p.IsRoot(); p = p.Parent() {
		if ancestor, found := idx.byPath[p.String()]; found {
			digests = append(digests, ancestor.Digest)
		}
	}

	return digests, true
}

func markerDigest(v interface{}) (string, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok || len(obj) != 1 {
		return "", false
	}

	digest, ok := obj[common.ArrayElementDigestKey].(string)

	return digest, ok
}
