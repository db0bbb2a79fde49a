/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"fmt"
	"time"

	josejwt "github.com/go-jose/go-jose/v3/jwt"
	"github.com/spf13/cobra"

	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	"github.com/trustbloc/sd-jwt-go/sdjwt/issuer"
	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

const (
	claimsFlagName  = "claims"
	claimsEnvKey    = "SDJWT_CLAIMS"
	claimsFlagUsage = "Path to the JSON file with the claims to issue." +
		" Alternatively, this can be set with the following environment variable: " + claimsEnvKey

	issuerFlagName  = "issuer"
	issuerEnvKey    = "SDJWT_ISSUER"
	issuerFlagUsage = "Issuer identifier (iss claim)." +
		" Alternatively, this can be set with the following environment variable: " + issuerEnvKey

	issuerKeyFlagName  = "issuer-key"
	issuerKeyEnvKey    = "SDJWT_ISSUER_KEY"
	issuerKeyFlagUsage = "Path to the issuer JWK: the private key to sign with, or the public key to verify with." +
		" Alternatively, this can be set with the following environment variable: " + issuerKeyEnvKey

	concealFlagName  = "conceal"
	concealEnvKey    = "SDJWT_CONCEAL"
	concealFlagUsage = "JSON pointer of a claim to conceal, at any depth. This flag can be repeated." +
		" All top-level claims are concealed if not set." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + concealEnvKey

	alwaysVisibleFlagName  = "always-visible"
	alwaysVisibleEnvKey    = "SDJWT_ALWAYS_VISIBLE"
	alwaysVisibleFlagUsage = "JSON pointer of a top-level claim kept in plain text. This flag can be repeated." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " +
		alwaysVisibleEnvKey

	decoysFlagName  = "decoys"
	decoysEnvKey    = "SDJWT_DECOYS"
	decoysFlagUsage = "Number of decoy digests. Defaults to 0 if not set." +
		" Alternatively, this can be set with the following environment variable: " + decoysEnvKey

	hashFlagName  = "hash"
	hashEnvKey    = "SDJWT_HASH"
	hashFlagUsage = "Digest algorithm. Possible values [sha-256] [sha-384] [sha-512]. Defaults to sha-256 if not set." +
		" Alternatively, this can be set with the following environment variable: " + hashEnvKey

	holderPublicKeyFlagName  = "holder-public-key"
	holderPublicKeyEnvKey    = "SDJWT_HOLDER_PUBLIC_KEY"
	holderPublicKeyFlagUsage = "Path to the holder public JWK, added as cnf.jwk." +
		" Alternatively, this can be set with the following environment variable: " + holderPublicKeyEnvKey

	subjectFlagName  = "subject"
	subjectEnvKey    = "SDJWT_SUBJECT"
	subjectFlagUsage = "Subject (sub claim)." +
		" Alternatively, this can be set with the following environment variable: " + subjectEnvKey

	validityFlagName  = "validity"
	validityEnvKey    = "SDJWT_VALIDITY"
	validityFlagUsage = "Validity period of the SD-JWT, e.g. 24h. Sets iat and exp if set." +
		" Alternatively, this can be set with the following environment variable: " + validityEnvKey

	jsonFlagName  = "json"
	jsonEnvKey    = "SDJWT_JSON"
	jsonFlagUsage = "Output the JWS JSON serialization instead of the compact form." +
		" Alternatively, this can be set with the following environment variable: " + jsonEnvKey
)

func issueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an SD-JWT",
		Long:  "Conceal claims and sign them into an SD-JWT in combined format for issuance",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := issueOptions(cmd)
			if err != nil {
				return err
			}

			return issue(cmd, opts)
		},
	}

	cmd.Flags().String(claimsFlagName, "", claimsFlagUsage)
	cmd.Flags().String(issuerFlagName, "", issuerFlagUsage)
	cmd.Flags().String(issuerKeyFlagName, "", issuerKeyFlagUsage)
	cmd.Flags().StringSlice(concealFlagName, nil, concealFlagUsage)
	cmd.Flags().StringSlice(alwaysVisibleFlagName, nil, alwaysVisibleFlagUsage)
	cmd.Flags().String(decoysFlagName, "", decoysFlagUsage)
	cmd.Flags().String(hashFlagName, "", hashFlagUsage)
	cmd.Flags().String(holderPublicKeyFlagName, "", holderPublicKeyFlagUsage)
	cmd.Flags().String(subjectFlagName, "", subjectFlagUsage)
	cmd.Flags().String(validityFlagName, "", validityFlagUsage)
	cmd.Flags().Bool(jsonFlagName, false, jsonFlagUsage)

	return cmd
}

type issueParameters struct {
	claimsPath string
	issuer     string
	keyPath    string
	json       bool
	newOpts    []issuer.NewOpt
}

//nolint:funlen,gocyclo
func issueOptions(cmd *cobra.Command) (*issueParameters, error) {
	params := &issueParameters{}

	var err error

	if params.claimsPath, err = getUserSetVar(cmd, claimsFlagName, claimsEnvKey, false); err != nil {
		return nil, err
	}

	if params.issuer, err = getUserSetVar(cmd, issuerFlagName, issuerEnvKey, false); err != nil {
		return nil, err
	}

	if params.keyPath, err = getUserSetVar(cmd, issuerKeyFlagName, issuerKeyEnvKey, false); err != nil {
		return nil, err
	}

	if params.json, err = getUserSetBool(cmd, jsonFlagName, jsonEnvKey); err != nil {
		return nil, err
	}

	conceal, err := getUserSetVars(cmd, concealFlagName, concealEnvKey, true)
	if err != nil {
		return nil, err
	}

	if len(conceal) > 0 {
		params.newOpts = append(params.newOpts, issuer.WithDisclosablePaths(conceal...))
	}

	alwaysVisible, err := getUserSetVars(cmd, alwaysVisibleFlagName, alwaysVisibleEnvKey, true)
	if err != nil {
		return nil, err
	}

	if len(alwaysVisible) > 0 {
		params.newOpts = append(params.newOpts, issuer.WithAlwaysVisible(alwaysVisible...))
	}

	decoys, err := getUserSetInt(cmd, decoysFlagName, decoysEnvKey)
	if err != nil {
		return nil, err
	}

	params.newOpts = append(params.newOpts, issuer.WithDecoyDigests(decoys))

	hashName, err := getUserSetVar(cmd, hashFlagName, hashEnvKey, true)
	if err != nil {
		return nil, err
	}

	if hashName != "" {
		hash, hashErr := common.GetCryptoHash(hashName)
		if hashErr != nil {
			return nil, hashErr
		}

		params.newOpts = append(params.newOpts, issuer.WithHashAlgorithm(hash))
	}

	holderKeyPath, err := getUserSetVar(cmd, holderPublicKeyFlagName, holderPublicKeyEnvKey, true)
	if err != nil {
		return nil, err
	}

	if holderKeyPath != "" {
		holderKey, keyErr := readPublicJWK(holderKeyPath)
		if keyErr != nil {
			return nil, keyErr
		}

		params.newOpts = append(params.newOpts, issuer.WithHolderPublicKey(holderKey))
	}

	subject, err := getUserSetVar(cmd, subjectFlagName, subjectEnvKey, true)
	if err != nil {
		return nil, err
	}

	if subject != "" {
		params.newOpts = append(params.newOpts, issuer.WithSubject(subject))
	}

	validity, err := getUserSetVar(cmd, validityFlagName, validityEnvKey, true)
	if err != nil {
		return nil, err
	}

	if validity != "" {
		d, parseErr := time.ParseDuration(validity)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid value of %s: %w", validityFlagName, parseErr)
		}

		now := time.Now()

		params.newOpts = append(params.newOpts,
			issuer.WithIssuedAt(josejwt.NewNumericDate(now)),
			issuer.WithExpiry(josejwt.NewNumericDate(now.Add(d))))
	}

	return params, nil
}

func issue(cmd *cobra.Command, params *issueParameters) error {
	data, err := readInput(params.claimsPath)
	if err != nil {
		return err
	}

	claims, err := jsonutil.ToMap(data)
	if err != nil {
		return fmt.Errorf("parse claims: %w", err)
	}

	signer, err := newSigner(params.keyPath)
	if err != nil {
		return err
	}

	token, err := issuer.New(params.issuer, claims, nil, signer, params.newOpts...)
	if err != nil {
		return fmt.Errorf("issue SD-JWT: %w", err)
	}

	if params.json {
		out, jsonErr := token.SerializeJSON()
		if jsonErr != nil {
			return jsonErr
		}

		return writeOutput(cmd, string(out))
	}

	combined, err := token.Serialize(false)
	if err != nil {
		return err
	}

	return writeOutput(cmd, combined)
}

func writeOutput(cmd *cobra.Command, s string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), s)

	return err
}
