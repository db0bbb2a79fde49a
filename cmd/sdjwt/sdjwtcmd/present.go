/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	"github.com/trustbloc/sd-jwt-go/sdjwt/holder"
)

const (
	sdJWTFlagName  = "sd-jwt"
	sdJWTEnvKey    = "SDJWT_SD_JWT"
	sdJWTFlagUsage = "Path to the SD-JWT, in combined format or JWS JSON serialization." +
		" Alternatively, this can be set with the following environment variable: " + sdJWTEnvKey

	discloseFlagName  = "disclose"
	discloseEnvKey    = "SDJWT_DISCLOSE"
	discloseFlagUsage = "JSON pointer of a claim to disclose. This flag can be repeated." +
		" No claim is disclosed if not set." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + discloseEnvKey

	discloseAllFlagName  = "disclose-all"
	discloseAllEnvKey    = "SDJWT_DISCLOSE_ALL"
	discloseAllFlagUsage = "Disclose every claim of the SD-JWT." +
		" Alternatively, this can be set with the following environment variable: " + discloseAllEnvKey

	holderKeyFlagName  = "holder-key"
	holderKeyEnvKey    = "SDJWT_HOLDER_KEY"
	holderKeyFlagUsage = "Path to the holder private JWK. A key binding JWT is added if set." +
		" Alternatively, this can be set with the following environment variable: " + holderKeyEnvKey

	nonceFlagName  = "nonce"
	nonceEnvKey    = "SDJWT_NONCE"
	nonceFlagUsage = "Nonce of the key binding JWT. Defaults to a random UUID when presenting." +
		" Alternatively, this can be set with the following environment variable: " + nonceEnvKey

	audienceFlagName  = "audience"
	audienceEnvKey    = "SDJWT_AUDIENCE"
	audienceFlagUsage = "Audience of the key binding JWT." +
		" Alternatively, this can be set with the following environment variable: " + audienceEnvKey
)

func presentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "present",
		Short: "Create a presentation of an SD-JWT",
		Long:  "Select the disclosures of an SD-JWT to present to a verifier, optionally with a key binding JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := presentOptions(cmd)
			if err != nil {
				return err
			}

			return present(cmd, params)
		},
	}

	cmd.Flags().String(sdJWTFlagName, "", sdJWTFlagUsage)
	cmd.Flags().StringSlice(discloseFlagName, nil, discloseFlagUsage)
	cmd.Flags().Bool(discloseAllFlagName, false, discloseAllFlagUsage)
	cmd.Flags().String(holderKeyFlagName, "", holderKeyFlagUsage)
	cmd.Flags().String(nonceFlagName, "", nonceFlagUsage)
	cmd.Flags().String(audienceFlagName, "", audienceFlagUsage)
	cmd.Flags().String(issuerKeyFlagName, "", "Path to the issuer public JWK. The issuer signature is checked if set."+
		" Alternatively, this can be set with the following environment variable: "+issuerKeyEnvKey)

	return cmd
}

type presentParameters struct {
	sdJWTPath     string
	disclose      []jsonpointer.Pointer
	discloseAll   bool
	holderKeyPath string
	issuerKeyPath string
	nonce         string
	audience      string
}

func presentOptions(cmd *cobra.Command) (*presentParameters, error) {
	params := &presentParameters{}

	var err error

	if params.sdJWTPath, err = getUserSetVar(cmd, sdJWTFlagName, sdJWTEnvKey, false); err != nil {
		return nil, err
	}

	disclose, err := getUserSetVars(cmd, discloseFlagName, discloseEnvKey, true)
	if err != nil {
		return nil, err
	}

	params.disclose = jsonpointer.ParseAll(disclose...)

	if params.discloseAll, err = getUserSetBool(cmd, discloseAllFlagName, discloseAllEnvKey); err != nil {
		return nil, err
	}

	if params.holderKeyPath, err = getUserSetVar(cmd, holderKeyFlagName, holderKeyEnvKey, true); err != nil {
		return nil, err
	}

	if params.issuerKeyPath, err = getUserSetVar(cmd, issuerKeyFlagName, issuerKeyEnvKey, true); err != nil {
		return nil, err
	}

	if params.nonce, err = getUserSetVar(cmd, nonceFlagName, nonceEnvKey, true); err != nil {
		return nil, err
	}

	if params.nonce == "" {
		params.nonce = uuid.NewString()
	}

	if params.audience, err = getUserSetVar(cmd, audienceFlagName, audienceEnvKey, true); err != nil {
		return nil, err
	}

	return params, nil
}

func present(cmd *cobra.Command, params *presentParameters) error {
	data, err := readInput(params.sdJWTPath)
	if err != nil {
		return err
	}

	var parseOpts []holder.ParseOpt

	if params.issuerKeyPath != "" {
		issuerKey, keyErr := readPublicJWK(params.issuerKeyPath)
		if keyErr != nil {
			return keyErr
		}

		parseOpts = append(parseOpts, holder.WithProofChecker(jwt.NewKeyProofChecker(*issuerKey)))
	}

	isJSON := isJSONSerialization(data)

	token, err := parseSDJWT(data, isJSON, parseOpts...)
	if err != nil {
		return err
	}

	selected := token.Disclosures
	if !params.discloseAll {
		if selected, err = holder.SelectByPaths(token, params.disclose...); err != nil {
			return err
		}
	}

	var presentOpts []holder.Option

	if params.holderKeyPath != "" {
		signer, signerErr := newSigner(params.holderKeyPath)
		if signerErr != nil {
			return signerErr
		}

		presentOpts = append(presentOpts, holder.WithKeyBinding(&holder.BindingInfo{
			Payload: holder.BindingPayload{Nonce: params.nonce, Audience: params.audience},
			Signer:  signer,
		}))
	}

	presentation, err := holder.CreatePresentation(token, selected, presentOpts...)
	if err != nil {
		return fmt.Errorf("create presentation: %w", err)
	}

	logger.Debugf("presenting %d of %d disclosures", presentation.Disclosures.Len(), token.Disclosures.Len())

	if isJSON {
		out, jsonErr := presentation.SerializeJSON()
		if jsonErr != nil {
			return jsonErr
		}

		return writeOutput(cmd, string(out))
	}

	return writeOutput(cmd, presentation.Serialize())
}

func isJSONSerialization(data []byte) bool {
	trimmed := bytes.TrimSpace(data)

	return len(trimmed) > 0 && trimmed[0] == '{' && gjson.ValidBytes(trimmed)
}

func parseSDJWT(data []byte, isJSON bool, opts ...holder.ParseOpt) (*common.SDJWT, error) {
	if isJSON {
		return holder.ParseJSON(bytes.TrimSpace(data), opts...)
	}

	return holder.Parse(string(bytes.TrimSpace(data)), opts...)
}
