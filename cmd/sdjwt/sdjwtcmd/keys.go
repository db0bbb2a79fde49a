/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdjwtcmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gojose "github.com/go-jose/go-jose/v3"

	"github.com/trustbloc/sd-jwt-go/jwt"
	"github.com/trustbloc/sd-jwt-go/sdjwt/verifier"
)

const (
	keySetCacheSize = 100
	keySetCacheTTL  = 5 * time.Minute
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

func readJWK(path string) (*gojose.JSONWebKey, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var key gojose.JSONWebKey

	if err = key.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parse JWK %s: %w", path, err)
	}

	if !key.Valid() {
		return nil, fmt.Errorf("invalid JWK %s", path)
	}

	return &key, nil
}

func readPublicJWK(path string) (*gojose.JSONWebKey, error) {
	key, err := readJWK(path)
	if err != nil {
		return nil, err
	}

	if !key.IsPublic() {
		public := key.Public()

		return &public, nil
	}

	return key, nil
}

func readKeySet(path string) (*gojose.JSONWebKeySet, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	return parseKeySet(data)
}

func parseKeySet(data []byte) (*gojose.JSONWebKeySet, error) {
	var keySet gojose.JSONWebKeySet

	if err := json.Unmarshal(data, &keySet); err != nil {
		return nil, fmt.Errorf("parse JWK set: %w", err)
	}

	return &keySet, nil
}

func newSigner(path string) (*jwt.KeySigner, error) {
	key, err := readJWK(path)
	if err != nil {
		return nil, err
	}

	if key.IsPublic() {
		return nil, fmt.Errorf("JWK %s is not a private key", path)
	}

	return jwt.NewKeySigner(key, "")
}

// httpKeySetProvider fetches the key sets referenced by cnf.jku.
type httpKeySetProvider struct {
	client  httpClient
	timeout time.Duration
}

func newKeySetProvider(client httpClient, timeout time.Duration) verifier.KeySetProvider {
	return verifier.NewCachingKeySetProvider(&httpKeySetProvider{client: client, timeout: timeout},
		keySetCacheSize, keySetCacheTTL)
}

func (p *httpKeySetProvider) KeySet(jku string) (*gojose.JSONWebKeySet, error) {
	if !strings.HasPrefix(jku, "https://") && !strings.HasPrefix(jku, "http://") {
		return nil, fmt.Errorf("unsupported key set URL: %s", jku)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jku, http.NoBody)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("create key set request: %s", jku))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("fetch key set: %s", jku))
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set fetch failed with status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("read key set: %s", jku))
	}

	logger.Debugf("fetched key set %s", jku)

	return parseKeySet(data)
}
