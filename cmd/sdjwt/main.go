/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main is the sdjwt command line tool.
package main

import (
	"os"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/trustbloc/sd-jwt-go/cmd/sdjwt/sdjwtcmd"
)

func main() {
	logger := log.New("sd-jwt/cli")

	if err := sdjwtcmd.New().Execute(); err != nil {
		logger.Errorf("Failed to run sdjwt: %s", err)

		os.Exit(1)
	}
}
