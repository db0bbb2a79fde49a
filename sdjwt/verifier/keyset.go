/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"time"

	gojose "github.com/go-jose/go-jose/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// KeySetProvider returns the key set published at a jku URL. Fetching, timeouts and retries belong to
// the implementation.
type KeySetProvider interface {
	KeySet(jku string) (*gojose.JSONWebKeySet, error)
}

// KeySetProviderFunc adapts a function to KeySetProvider.
type KeySetProviderFunc func(jku string) (*gojose.JSONWebKeySet, error)

// KeySet calls f.
func (f KeySetProviderFunc) KeySet(jku string) (*gojose.JSONWebKeySet, error) {
	return f(jku)
}

// CachingKeySetProvider caches the key sets returned by another provider.
type CachingKeySetProvider struct {
	provider KeySetProvider
	cache    *expirable.LRU[string, *gojose.JSONWebKeySet]
}

// NewCachingKeySetProvider creates a provider keeping up to size key sets for ttl. Failed fetches are not cached.
func NewCachingKeySetProvider(provider KeySetProvider, size int, ttl time.Duration) *CachingKeySetProvider {
	return &CachingKeySetProvider{
		provider: provider,
		cache:    expirable.NewLRU[string, *gojose.JSONWebKeySet](size, nil, ttl),
	}
}

// KeySet returns the cached key set of jku, fetching it on a miss.
func (p *CachingKeySetProvider) KeySet(jku string) (*gojose.JSONWebKeySet, error) {
	if keySet, ok := p.cache.Get(jku); ok {
		return keySet, nil
	}

	keySet, err := p.provider.KeySet(jku)
	if err != nil {
		return nil, err
	}

	p.cache.Add(jku, keySet)

	return keySet, nil
}
