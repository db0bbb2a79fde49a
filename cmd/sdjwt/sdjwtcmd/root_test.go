/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/log"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestRootCmdContents(t *testing.T) {
	cmd := New()

	require.Equal(t, "sdjwt", cmd.Use)
	require.Equal(t, "Selective Disclosure JWT tool", cmd.Short)
	require.Len(t, cmd.Commands(), 4)

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	require.ElementsMatch(t, []string{"issue", "present", "verify", "decode"}, names)

	flag := cmd.PersistentFlags().Lookup(logLevelFlagName)
	require.NotNil(t, flag)
	require.Equal(t, logLevelFlagUsage, flag.Usage)
}

func TestIssueCmdContents(t *testing.T) {
	cmd := issueCmd()

	require.Equal(t, "issue", cmd.Use)
	require.Equal(t, "Issue an SD-JWT", cmd.Short)

	checkFlagPropertiesCorrect(t, cmd, claimsFlagName, claimsFlagUsage, "")
	checkFlagPropertiesCorrect(t, cmd, issuerKeyFlagName, issuerKeyFlagUsage, "")
	checkFlagPropertiesCorrect(t, cmd, concealFlagName, concealFlagUsage, "[]")
	checkFlagPropertiesCorrect(t, cmd, alwaysVisibleFlagName, alwaysVisibleFlagUsage, "[]")
	checkFlagPropertiesCorrect(t, cmd, jsonFlagName, jsonFlagUsage, "false")
}

func TestPresentCmdContents(t *testing.T) {
	cmd := presentCmd()

	require.Equal(t, "present", cmd.Use)

	checkFlagPropertiesCorrect(t, cmd, sdJWTFlagName, sdJWTFlagUsage, "")
	checkFlagPropertiesCorrect(t, cmd, discloseFlagName, discloseFlagUsage, "[]")
	checkFlagPropertiesCorrect(t, cmd, discloseAllFlagName, discloseAllFlagUsage, "false")
	checkFlagPropertiesCorrect(t, cmd, holderKeyFlagName, holderKeyFlagUsage, "")
}

func TestVerifyCmdContents(t *testing.T) {
	cmd := verifyCmd()

	require.Equal(t, "verify", cmd.Use)

	checkFlagPropertiesCorrect(t, cmd, presentationFlagName, presentationFlagUsage, "")
	checkFlagPropertiesCorrect(t, cmd, requireKBFlagName, requireKBFlagUsage, "false")
	checkFlagPropertiesCorrect(t, cmd, holderKeysFlagName, holderKeysFlagUsage, "")
	checkFlagPropertiesCorrect(t, cmd, jwksTimeoutFlagName, jwksTimeoutFlagUsage, "")
}

func checkFlagPropertiesCorrect(t *testing.T, cmd *cobra.Command, flagName, flagUsage, expectedVal string) {
	t.Helper()

	flag := cmd.Flag(flagName)

	require.NotNil(t, flag)
	require.Equal(t, flagName, flag.Name)
	require.Equal(t, flagUsage, flag.Usage)
	require.Equal(t, expectedVal, flag.Value.String())
	require.Nil(t, flag.Annotations)
}

func TestLogLevel(t *testing.T) {
	defer log.SetLevel("", spi.INFO)

	t.Run("success - flag", func(t *testing.T) {
		_, err := execute(t, "--log-level", "DEBUG")
		require.NoError(t, err)
		require.Equal(t, spi.DEBUG, log.GetLevel(""))
	})

	t.Run("success - env", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "WARNING")

		_, err := execute(t)
		require.NoError(t, err)
		require.Equal(t, spi.WARNING, log.GetLevel(""))
	})

	t.Run("error - invalid level", func(t *testing.T) {
		_, err := execute(t, "--log-level", "loud")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to parse log level 'loud'")
	})
}

func TestGetUserSetVars(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().StringSlice(concealFlagName, nil, "")
		cmd.Flags().String(decoysFlagName, "", "")
		cmd.Flags().Bool(jsonFlagName, false, "")

		return cmd
	}

	t.Run("success - env in CSV format", func(t *testing.T) {
		t.Setenv(concealEnvKey, "/a,/b/c")

		values, err := getUserSetVars(newCmd(), concealFlagName, concealEnvKey, false)
		require.NoError(t, err)
		require.Equal(t, []string{"/a", "/b/c"}, values)
	})

	t.Run("error - not set", func(t *testing.T) {
		_, err := getUserSetVars(newCmd(), concealFlagName, concealEnvKey, false)
		require.Error(t, err)
		require.Contains(t, err.Error(), "conceal not set")
	})

	t.Run("error - invalid int", func(t *testing.T) {
		t.Setenv(decoysEnvKey, "many")

		_, err := getUserSetInt(newCmd(), decoysFlagName, decoysEnvKey)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid value of decoys")
	})

	t.Run("error - invalid bool", func(t *testing.T) {
		t.Setenv(jsonEnvKey, "maybe")

		_, err := getUserSetBool(newCmd(), jsonFlagName, jsonEnvKey)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid value of SDJWT_JSON")
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	return executeCmd(t, New(), args...)
}

func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)

	if args == nil {
		args = []string{}
	}

	cmd.SetArgs(args)

	err := cmd.Execute()

	return strings.TrimSpace(out.String()), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func writeJWK(t *testing.T, name string, key *jose.JSONWebKey) string {
	t.Helper()

	data, err := key.MarshalJSON()
	require.NoError(t, err)

	return writeFile(t, name, data)
}
