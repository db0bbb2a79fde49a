/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustbloc/sd-jwt-go/sdjwt/verifier"
)

const (
	presentationFlagName  = "presentation"
	presentationEnvKey    = "SDJWT_PRESENTATION"
	presentationFlagUsage = "Path to the presentation, in combined format or JWS JSON serialization." +
		" Alternatively, this can be set with the following environment variable: " + presentationEnvKey

	requireKBFlagName  = "require-kb"
	requireKBEnvKey    = "SDJWT_REQUIRE_KB"
	requireKBFlagUsage = "Require a key binding JWT." +
		" Alternatively, this can be set with the following environment variable: " + requireKBEnvKey

	holderKeysFlagName  = "holder-keys"
	holderKeysEnvKey    = "SDJWT_HOLDER_KEYS"
	holderKeysFlagUsage = "Path to a JWK set with the holder keys referenced by cnf.kid, cnf.jkt or cnf.x5t#S256." +
		" Alternatively, this can be set with the following environment variable: " + holderKeysEnvKey

	decryptionKeyFlagName  = "decryption-key"
	decryptionKeyEnvKey    = "SDJWT_DECRYPTION_KEY"
	decryptionKeyFlagUsage = "Path to the private JWK decrypting cnf.jwe." +
		" Alternatively, this can be set with the following environment variable: " + decryptionKeyEnvKey

	jwksTimeoutFlagName  = "jwks-timeout"
	jwksTimeoutEnvKey    = "SDJWT_JWKS_TIMEOUT"
	jwksTimeoutDefault   = 10 * time.Second
	jwksTimeoutFlagUsage = "Timeout of cnf.jku key set fetches, e.g. 5s. Defaults to 10s if not set." +
		" Alternatively, this can be set with the following environment variable: " + jwksTimeoutEnvKey
)

func verifyCmd() *cobra.Command {
	return verifyCmdWithClient(http.DefaultClient)
}

func verifyCmdWithClient(client httpClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a presentation",
		Long:  "Verify the issuer signature, the disclosures and the key binding of a presentation and print the claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, opts, err := verifyOptions(cmd, client)
			if err != nil {
				return err
			}

			return verify(cmd, path, opts)
		},
	}

	cmd.Flags().String(presentationFlagName, "", presentationFlagUsage)
	cmd.Flags().String(issuerKeyFlagName, "", issuerKeyFlagUsage)
	cmd.Flags().String(nonceFlagName, "", "Expected nonce of the key binding JWT."+
		" Alternatively, this can be set with the following environment variable: "+nonceEnvKey)
	cmd.Flags().String(audienceFlagName, "", "Expected audience of the key binding JWT."+
		" Alternatively, this can be set with the following environment variable: "+audienceEnvKey)
	cmd.Flags().Bool(requireKBFlagName, false, requireKBFlagUsage)
	cmd.Flags().String(holderKeysFlagName, "", holderKeysFlagUsage)
	cmd.Flags().String(decryptionKeyFlagName, "", decryptionKeyFlagUsage)
	cmd.Flags().String(jwksTimeoutFlagName, "", jwksTimeoutFlagUsage)

	return cmd
}

//nolint:funlen,gocyclo
func verifyOptions(cmd *cobra.Command, client httpClient) (string, []verifier.ParseOpt, error) {
	path, err := getUserSetVar(cmd, presentationFlagName, presentationEnvKey, false)
	if err != nil {
		return "", nil, err
	}

	issuerKeyPath, err := getUserSetVar(cmd, issuerKeyFlagName, issuerKeyEnvKey, false)
	if err != nil {
		return "", nil, err
	}

	issuerKey, err := readPublicJWK(issuerKeyPath)
	if err != nil {
		return "", nil, err
	}

	opts := []verifier.ParseOpt{verifier.WithIssuerPublicKey(*issuerKey)}

	nonce, err := getUserSetVar(cmd, nonceFlagName, nonceEnvKey, true)
	if err != nil {
		return "", nil, err
	}

	audience, err := getUserSetVar(cmd, audienceFlagName, audienceEnvKey, true)
	if err != nil {
		return "", nil, err
	}

	requireKB, err := getUserSetBool(cmd, requireKBFlagName, requireKBEnvKey)
	if err != nil {
		return "", nil, err
	}

	opts = append(opts,
		verifier.WithExpectedNonce(nonce),
		verifier.WithExpectedAudience(audience),
		verifier.WithKeyBindingRequired(requireKB))

	holderKeysPath, err := getUserSetVar(cmd, holderKeysFlagName, holderKeysEnvKey, true)
	if err != nil {
		return "", nil, err
	}

	if holderKeysPath != "" {
		keySet, keyErr := readKeySet(holderKeysPath)
		if keyErr != nil {
			return "", nil, keyErr
		}

		opts = append(opts, verifier.WithHolderKeys(keySet.Keys...))
	}

	decryptionKeyPath, err := getUserSetVar(cmd, decryptionKeyFlagName, decryptionKeyEnvKey, true)
	if err != nil {
		return "", nil, err
	}

	if decryptionKeyPath != "" {
		key, keyErr := readJWK(decryptionKeyPath)
		if keyErr != nil {
			return "", nil, keyErr
		}

		opts = append(opts, verifier.WithDecryptionKeys(*key))
	}

	timeout := jwksTimeoutDefault

	timeoutValue, err := getUserSetVar(cmd, jwksTimeoutFlagName, jwksTimeoutEnvKey, true)
	if err != nil {
		return "", nil, err
	}

	if timeoutValue != "" {
		if timeout, err = time.ParseDuration(timeoutValue); err != nil {
			return "", nil, fmt.Errorf("invalid value of %s: %w", jwksTimeoutFlagName, err)
		}
	}

	opts = append(opts, verifier.WithKeySetProvider(newKeySetProvider(client, timeout)))

	return path, opts, nil
}

func verify(cmd *cobra.Command, path string, opts []verifier.ParseOpt) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}

	var claims map[string]interface{}

	if isJSONSerialization(data) {
		claims, err = verifier.ParseJSON(bytes.TrimSpace(data), opts...)
	} else {
		claims, err = verifier.Parse(string(bytes.TrimSpace(data)), opts...)
	}

	if err != nil {
		return fmt.Errorf("verify presentation: %w", err)
	}

	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return err
	}

	return writeOutput(cmd, string(out))
}
