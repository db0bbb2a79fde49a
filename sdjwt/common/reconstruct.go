/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"

	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

// Reconstruct returns the claims of a redacted payload with every disclosure of the list applied.
// Digests which are not in the list are withheld claims: they are dropped from objects and left
// as "..." markers in arrays. The top-level _sd_alg claim is removed. The input is not modified.
//
// Reconstruct does not check the structure of the token, run ValidateStructure first.
func Reconstruct(redacted map[string]interface{}, disclosures *DisclosureList) (map[string]interface{}, error) {
	r := &reconstructor{
		disclosures: disclosures,
		applied:     map[string]struct{}{},
	}

	claims, err := r.object(redacted)
	if err != nil {
		return nil, err
	}

	delete(claims, SDAlgorithmKey)

	return claims, nil
}

type reconstructor struct {
	disclosures *DisclosureList
	applied     map[string]struct{}
}

func (r *reconstructor) value(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		return r.object(val)
	case []interface{}:
		return r.array(val)
	default:
		return v, nil
	}
}

func (r *reconstructor) object(obj map[string]interface{}) (map[string]interface{}, error) {
	result := jsonutil.CopyExcept(obj, SDKey)

	digests, err := sdDigests(obj)
	if err != nil {
		return nil, err
	}

	for _, digest := range digests {
		d, ok := r.resolve(digest)
		if !ok {
			continue
		}

		name, hasName := d.Name()
		if !hasName {
			return nil, fmt.Errorf("%w: array element disclosure %s referenced from %s", ErrDisclosureTypeMismatch,
				digest, SDKey)
		}

		if _, exists := result[name]; exists {
			return nil, fmt.Errorf("%w: '%s'", ErrClaimNameConflict, name)
		}

		result[name] = d.Value()
	}

	for k, v := range result {
		rv, err := r.value(v)
		if err != nil {
			return nil, err
		}

		result[k] = rv
	}

	return result, nil
}

func (r *reconstructor) array(arr []interface{}) ([]interface{}, error) {
	result := make([]interface{}, len(arr))

	for i, elem := range arr {
		digest, isMarker, err := arrayElementDigest(elem)
		if err != nil {
			return nil, err
		}

		if isMarker {
			if d, ok := r.resolve(digest); ok {
				if !d.IsArrayElement() {
					name, _ := d.Name()

					return nil, fmt.Errorf("%w: disclosure of claim '%s' referenced from an array element",
						ErrDisclosureTypeMismatch, name)
				}

				elem = d.Value()
			}
		}

		rv, err := r.value(elem)
		if err != nil {
			return nil, err
		}

		result[i] = rv
	}

	return result, nil
}

func (r *reconstructor) resolve(digest string) (*Disclosure, bool) {
	d, ok := r.disclosures.Get(digest)
	if !ok {
		logger.Debugf("digest is not disclosed, claim withheld")

		return nil, false
	}

	if _, applied := r.applied[digest]; applied {
		// each digest is applied at most once.
		return nil, false
	}

	r.applied[digest] = struct{}{}

	return d, true
}

// sdDigests reads the _sd array of an object.
func sdDigests(obj map[string]interface{}) ([]string, error) {
	raw, ok := obj[SDKey]
	if !ok {
		return nil, nil
	}

	digests, err := jsonutil.StringArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedInput, SDKey, err)
	}

	return digests, nil
}

// arrayElementDigest reports whether v is a {"...": digest} marker and returns the digest.
func arrayElementDigest(v interface{}) (string, bool, error) {
	obj, ok := v.(map[string]interface{})
	if !ok || len(obj) != 1 {
		return "", false, nil
	}

	raw, ok := obj[ArrayElementDigestKey]
	if !ok {
		return "", false, nil
	}

	digest, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("%w: array element digest type[%T] must be string", ErrMalformedInput, raw)
	}

	return digest, true, nil
}
