/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package json

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/exp/slices"
)

// MergeCustomFields converts value to the JSON-like map and merges it with custom fields map cf.
// Fields of the value win over custom fields with the same name.
func MergeCustomFields(v interface{}, cf map[string]interface{}) (map[string]interface{}, error) {
	kf, err := ToMap(v)
	if err != nil {
		return nil, err
	}

	for k, v := range cf {
		if _, exists := kf[k]; !exists {
			kf[k] = v
		}
	}

	return kf, nil
}

// CopyExcept copies all fields except fields with given names.
func CopyExcept(obj map[string]interface{}, flds ...string) map[string]interface{} {
	newObj := make(map[string]interface{}, len(obj))

	for k, v := range obj {
		if slices.Contains(flds, k) {
			continue
		}

		newObj[k] = v
	}

	return newObj
}

// DeepCopy copies a JSON value tree. Objects and arrays are duplicated at every level,
// scalars are shared.
func DeepCopy(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return CopyMap(val)
	case []interface{}:
		arr := make([]interface{}, len(val))

		for i, e := range val {
			arr[i] = DeepCopy(e)
		}

		return arr
	default:
		return v
	}
}

// CopyMap performs deep copy of a JSON object.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}

	cm := make(map[string]interface{}, len(m))

	for k, v := range m {
		cm[k] = DeepCopy(v)
	}

	return cm
}

// KeyExistsInMap checks if key exists at any level of the JSON value.
func KeyExistsInMap(key string, v interface{}) bool {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, nested := range val {
			if k == key || KeyExistsInMap(key, nested) {
				return true
			}
		}
	case []interface{}:
		for _, nested := range val {
			if KeyExistsInMap(key, nested) {
				return true
			}
		}
	}

	return false
}

// Normalize converts a JSON-like Go value into the canonical tree representation used by this module:
// objects are map[string]interface{}, arrays are []interface{}, numbers are json.Number and
// byte blobs are base64url strings without padding.
func Normalize(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool, json.Number:
		return val, nil
	case []byte:
		return base64.RawURLEncoding.EncodeToString(val), nil
	case map[string]interface{}:
		obj := make(map[string]interface{}, len(val))

		for k, e := range val {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}

			obj[k] = n
		}

		return obj, nil
	case []interface{}:
		arr := make([]interface{}, len(val))

		for i, e := range val {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}

			arr[i] = n
		}

		return arr, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("marshal value[%T]: %w", val, err)
		}

		return Unmarshal(b)
	}
}

// Unmarshal decodes JSON bytes into a tree, preserving numbers as json.Number.
func Unmarshal(data []byte) (interface{}, error) {
	var v interface{}

	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()

	if err := d.Decode(&v); err != nil {
		return nil, err
	}

	return v, nil
}

// ToMap convert object, string or bytes to json object represented by map.
func ToMap(v interface{}) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)

	switch cv := v.(type) {
	case map[string]interface{}:
		n, nErr := Normalize(cv)
		if nErr != nil {
			return nil, nErr
		}

		return n.(map[string]interface{}), nil
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(v)
		if err != nil {
			return nil, err
		}
	}

	tree, err := Unmarshal(b)
	if err != nil {
		return nil, err
	}

	m, ok := tree.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected JSON object but got %T", tree)
	}

	return m, nil
}

// Marshal encodes a JSON value compactly without escaping HTML characters.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// StringArray converts a JSON array of strings into []string.
func StringArray(entry interface{}) ([]string, error) {
	if entry == nil {
		return nil, nil
	}

	switch arr := entry.(type) {
	case []string:
		return arr, nil
	case []interface{}:
		result := make([]string, len(arr))

		for i, e := range arr {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("entry item type[%T] is not a string", e)
			}

			result[i] = s
		}

		return result, nil
	default:
		return nil, fmt.Errorf("entry type[%T] is not an array", entry)
	}
}

// Decode decodes JSON-like map into the struct pointed by out, using json tags.
// JSON numbers are converted into jwt.NumericDate when the target field requires it.
func Decode(input interface{}, out interface{}) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook:       JSONNumberToJwtNumericDate(),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	return d.Decode(input)
}

// JSONNumberToJwtNumericDate hook for mapstructure library to decode json.Number to jwt.NumericDate.
func JSONNumberToJwtNumericDate() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.String() != "json.Number" || !strings.Contains(t.String(), "jwt.NumericDate") {
			return data, nil
		}

		parsedFloat, err := strconv.ParseFloat(fmt.Sprint(data), 64)
		if err != nil {
			return nil, err
		}

		// pointer targets are allocated by mapstructure, the element is decoded from the value.
		return *jwt.NewNumericDate(time.Unix(int64(parsedFloat), 0)), nil
	}
}
