/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwtcmd holds the commands of the sdjwt tool.
package sdjwtcmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"
)

const (
	// log level.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "SDJWT_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey
)

var logger = log.New("sd-jwt/cli")

// New creates the sdjwt root command.
func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sdjwt",
		Short:         "Selective Disclosure JWT tool",
		Long:          "Issue, present, verify and decode Selective Disclosure JWTs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			return setLogLevel(logLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.PersistentFlags().String(logLevelFlagName, "", logLevelFlagUsage)

	rootCmd.AddCommand(issueCmd(), presentCmd(), verifyCmd(), decodeCmd())

	return rootCmd
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Debugf("logger level set to %s", logLevel)
	}

	return nil
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet && value != "" {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func getUserSetBool(cmd *cobra.Command, flagName, envKey string) (bool, error) {
	if cmd.Flags().Changed(flagName) {
		return cmd.Flags().GetBool(flagName)
	}

	value, isSet := os.LookupEnv(envKey)
	if !isSet || value == "" {
		return false, nil
	}

	flag, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value of %s: %w", envKey, err)
	}

	return flag, nil
}

func getUserSetInt(cmd *cobra.Command, flagName, envKey string) (int, error) {
	value, err := getUserSetVar(cmd, flagName, envKey, true)
	if err != nil || value == "" {
		return 0, err
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value of %s: %w", flagName, err)
	}

	return n, nil
}
