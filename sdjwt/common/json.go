/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

// Unprotected header members of the JSON serialization.
const (
	DisclosuresHeader   = "disclosures"
	KeyBindingJWTHeader = "kb_jwt"
)

//nolint:lll
const jsonSerializationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "b64": {"type": "string", "pattern": "^[A-Za-z0-9_-]*$"},
    "header": {
      "type": "object",
      "properties": {
        "disclosures": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "kb_jwt": {"type": "string"}
      }
    },
    "signature": {
      "type": "object",
      "required": ["protected", "signature"],
      "properties": {
        "protected": {"$ref": "#/definitions/b64"},
        "signature": {"$ref": "#/definitions/b64"},
        "header": {"$ref": "#/definitions/header"}
      }
    }
  },
  "type": "object",
  "required": ["payload"],
  "properties": {
    "payload": {"$ref": "#/definitions/b64"}
  },
  "oneOf": [
    {
      "required": ["protected", "signature"],
      "not": {"required": ["signatures"]},
      "properties": {
        "protected": {"$ref": "#/definitions/b64"},
        "signature": {"$ref": "#/definitions/b64"},
        "header": {"$ref": "#/definitions/header"}
      }
    },
    {
      "required": ["signatures"],
      "not": {"anyOf": [{"required": ["protected"]}, {"required": ["signature"]}]},
      "properties": {
        "signatures": {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/signature"}}
      }
    }
  ]
}`

var jsonSerializationSchemaLoader = gojsonschema.NewStringLoader(jsonSerializationSchema)

// JWSSignature is one signature of a JWS JSON serialization.
type JWSSignature struct {
	Protected string                 `json:"protected"`
	Header    map[string]interface{} `json:"header,omitempty"`
	Signature string                 `json:"signature"`
}

// JSONSerialization is an SD-JWT in JWS JSON serialization. Disclosures and the KB-JWT are carried
// in the unprotected header of the first signature.
type JSONSerialization struct {
	Payload       string
	Signatures    []JWSSignature
	Disclosures   []string
	KeyBindingJWT string
}

// Compact returns the compact JWS of the i-th signature.
func (j *JSONSerialization) Compact(i int) string {
	s := j.Signatures[i]

	return s.Protected + "." + j.Payload + "." + s.Signature
}

// Marshal produces the flattened form for one signature, the general form otherwise.
func (j *JSONSerialization) Marshal() ([]byte, error) {
	if len(j.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures", ErrInvalidFormat)
	}

	signatures := make([]interface{}, len(j.Signatures))

	for i, s := range j.Signatures {
		sig := map[string]interface{}{
			"protected": s.Protected,
			"signature": s.Signature,
		}

		header := jsonutil.CopyExcept(s.Header, DisclosuresHeader, KeyBindingJWTHeader)

		if i == 0 {
			header[DisclosuresHeader] = append([]string{}, j.Disclosures...)

			if j.KeyBindingJWT != "" {
				header[KeyBindingJWTHeader] = j.KeyBindingJWT
			}
		}

		if len(header) > 0 {
			sig["header"] = header
		}

		signatures[i] = sig
	}

	if len(signatures) == 1 {
		flattened := signatures[0].(map[string]interface{})
		flattened["payload"] = j.Payload

		return jsonutil.Marshal(flattened)
	}

	return jsonutil.Marshal(map[string]interface{}{
		"payload":    j.Payload,
		"signatures": signatures,
	})
}

// ParseJSON parses the flattened or general JWS JSON serialization of an SD-JWT.
func ParseJSON(data []byte) (*JSONSerialization, error) {
	result, err := gojsonschema.Validate(jsonSerializationSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, describeSchemaErrors(result))
	}

	parsed := gjson.ParseBytes(data)

	j := &JSONSerialization{
		Payload: parsed.Get("payload").String(),
	}

	if sigs := parsed.Get("signatures"); sigs.Exists() {
		for _, s := range sigs.Array() {
			j.Signatures = append(j.Signatures, parseSignature(s))
		}
	} else {
		j.Signatures = []JWSSignature{parseSignature(parsed)}
	}

	first := j.Signatures[0].Header

	if raw, ok := first[DisclosuresHeader]; ok {
		if j.Disclosures, err = jsonutil.StringArray(raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFormat, DisclosuresHeader, err)
		}
	}

	if kb, ok := first[KeyBindingJWTHeader].(string); ok {
		j.KeyBindingJWT = kb
	}

	return j, nil
}

func parseSignature(r gjson.Result) JWSSignature {
	s := JWSSignature{
		Protected: r.Get("protected").String(),
		Signature: r.Get("signature").String(),
	}

	if h := r.Get("header"); h.IsObject() {
		header, err := jsonutil.ToMap(h.Raw)
		if err == nil {
			s.Header = header
		}
	}

	return s
}

// JSONSerialization returns the JSON serialization of the SD-JWT.
func (s *SDJWT) JSONSerialization() (*JSONSerialization, error) {
	parts := strings.Split(s.IssuerJWT, ".")
	if len(parts) != 3 { //nolint:gomnd
		return nil, fmt.Errorf("%w: issuer JWT is not a compact JWS", ErrInvalidFormat)
	}

	return &JSONSerialization{
		Payload: parts[1],
		Signatures: append([]JWSSignature{{Protected: parts[0], Signature: parts[2]}},
			s.AdditionalSignatures...),
		Disclosures:   s.Disclosures.Encoded(),
		KeyBindingJWT: s.KeyBindingJWT,
	}, nil
}

// SerializeJSON returns the flattened JSON serialization, or the general one
// when the SD-JWT carries additional signatures.
func (s *SDJWT) SerializeJSON() ([]byte, error) {
	j, err := s.JSONSerialization()
	if err != nil {
		return nil, err
	}

	return j.Marshal()
}

func describeSchemaErrors(result *gojsonschema.Result) string {
	msgs := make([]string, 0, len(result.Errors()))

	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return strings.Join(msgs, "; ")
}
