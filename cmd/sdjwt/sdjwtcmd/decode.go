/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	"github.com/trustbloc/sd-jwt-go/sdjwt/holder"
)

type decodedDisclosure struct {
	Path           string      `json:"path"`
	Name           string      `json:"name,omitempty"`
	Value          interface{} `json:"value"`
	Digest         string      `json:"digest"`
	IsArrayElement bool        `json:"array_element,omitempty"`
}

type decodedKeyBinding struct {
	Header  map[string]interface{} `json:"header"`
	Payload map[string]interface{} `json:"payload"`
}

type decoded struct {
	Header         map[string]interface{} `json:"header"`
	Payload        map[string]interface{} `json:"payload"`
	Disclosures    []decodedDisclosure    `json:"disclosures"`
	Claims         map[string]interface{} `json:"claims,omitempty"`
	KeyBinding     *decodedKeyBinding     `json:"key_binding,omitempty"`
	StructureError string                 `json:"structure_error,omitempty"`
}

func decodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode an SD-JWT",
		Long: "Print the issuer JWT, the disclosures with their location and the reconstructed claims." +
			" Signatures are not checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := getUserSetVar(cmd, sdJWTFlagName, sdJWTEnvKey, false)
			if err != nil {
				return err
			}

			return decode(cmd, path)
		},
	}

	cmd.Flags().String(sdJWTFlagName, "", sdJWTFlagUsage)

	return cmd
}

func decode(cmd *cobra.Command, path string) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}

	data = bytes.TrimSpace(data)

	var token *common.SDJWT

	if isJSONSerialization(data) {
		token, err = common.ParseJSONSerialization(data, jwt.WithProofChecker(jwt.NoProofCheck()))
	} else {
		token, err = common.Parse(string(data), jwt.WithProofChecker(jwt.NoProofCheck()))
	}

	if err != nil {
		return fmt.Errorf("decode SD-JWT: %w", err)
	}

	result, err := describe(token)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	return writeOutput(cmd, string(out))
}

func describe(token *common.SDJWT) (*decoded, error) {
	result := &decoded{
		Header:      token.Headers,
		Payload:     token.Payload,
		Disclosures: []decodedDisclosure{},
	}

	if err := token.Validate(); err != nil {
		result.StructureError = err.Error()
	} else {
		claims, err := token.Claims()
		if err != nil {
			return nil, fmt.Errorf("reconstruct claims: %w", err)
		}

		result.Claims = claims
	}

	disclosed, err := holder.Claims(token)
	if err != nil {
		return nil, fmt.Errorf("list disclosures: %w", err)
	}

	for _, c := range disclosed {
		result.Disclosures = append(result.Disclosures, decodedDisclosure{
			Path:           c.Path.String(),
			Name:           c.Name,
			Value:          c.Value,
			Digest:         c.Digest,
			IsArrayElement: c.IsArrayElement,
		})
	}

	if token.KeyBindingJWT != "" {
		headers, err := jwt.ParseHeaders(token.KeyBindingJWT)
		if err != nil {
			return nil, fmt.Errorf("decode key binding JWT: %w", err)
		}

		payload, err := jwt.UnverifiedPayload(token.KeyBindingJWT)
		if err != nil {
			return nil, fmt.Errorf("decode key binding JWT: %w", err)
		}

		result.KeyBinding = &decodedKeyBinding{Header: headers, Payload: payload}
	}

	return result, nil
}
