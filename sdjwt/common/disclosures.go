/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	"fmt"

	"golang.org/x/exp/slices"
)

// DisclosureList is a digest-indexed collection of disclosures which keeps insertion order.
// A list is bound to one hash algorithm.
type DisclosureList struct {
	hash     crypto.Hash
	digests  []string
	byDigest map[string]*Disclosure
}

// NewDisclosureList creates an empty list for the hash algorithm.
func NewDisclosureList(hash crypto.Hash) *DisclosureList {
	return &DisclosureList{
		hash:     hash,
		byDigest: map[string]*Disclosure{},
	}
}

// ParseDisclosureList parses encoded disclosures. A disclosure appearing twice is rejected.
func ParseDisclosureList(encoded []string, hash crypto.Hash) (*DisclosureList, error) {
	list := NewDisclosureList(hash)

	for _, e := range encoded {
		d, err := ParseDisclosure(e)
		if err != nil {
			return nil, err
		}

		if _, err = list.Add(d); err != nil {
			return nil, err
		}
	}

	return list, nil
}

// Hash returns the hash algorithm of the list.
func (l *DisclosureList) Hash() crypto.Hash {
	return l.hash
}

// Add appends the disclosure and returns its digest.
func (l *DisclosureList) Add(d *Disclosure) (string, error) {
	digest, err := d.Digest(l.hash)
	if err != nil {
		return "", err
	}

	if _, exists := l.byDigest[digest]; exists {
		return "", fmt.Errorf("%w: disclosure with digest %s is listed twice", ErrDuplicateDigest, digest)
	}

	l.byDigest[digest] = d
	l.digests = append(l.digests, digest)

	return digest, nil
}

// Get returns the disclosure with the digest.
func (l *DisclosureList) Get(digest string) (*Disclosure, bool) {
	if l == nil {
		return nil, false
	}

	d, ok := l.byDigest[digest]

	return d, ok
}

// Contains reports whether a disclosure with the digest is in the list.
func (l *DisclosureList) Contains(digest string) bool {
	_, ok := l.Get(digest)

	return ok
}

// Len returns the number of disclosures.
func (l *DisclosureList) Len() int {
	if l == nil {
		return 0
	}

	return len(l.digests)
}

// Digests returns the digests in insertion order.
func (l *DisclosureList) Digests() []string {
	if l == nil {
		return nil
	}

	return slices.Clone(l.digests)
}

// Disclosures returns the disclosures in insertion order.
func (l *DisclosureList) Disclosures() []*Disclosure {
	if l == nil {
		return nil
	}

	result := make([]*Disclosure, len(l.digests))

	for i, digest := range l.digests {
		result[i] = l.byDigest[digest]
	}

	return result
}

// Encoded returns the encoded disclosures in insertion order.
func (l *DisclosureList) Encoded() []string {
	if l == nil {
		return nil
	}

	result := make([]string, len(l.digests))

	for i, digest := range l.digests {
		result[i] = l.byDigest[digest].Encoded()
	}

	return result
}

// Merge adds the disclosures of other which are not in the list yet.
func (l *DisclosureList) Merge(other *DisclosureList) error {
	if other == nil {
		return nil
	}

	if other.hash != l.hash {
		return fmt.Errorf("merge disclosure lists: hash %s does not match %s",
			HashName(other.hash), HashName(l.hash))
	}

	for _, digest := range other.digests {
		if l.Contains(digest) {
			continue
		}

		l.byDigest[digest] = other.byDigest[digest]
		l.digests = append(l.digests, digest)
	}

	return nil
}

// Filter returns a new list with the disclosures for which keep returns true.
func (l *DisclosureList) Filter(keep func(digest string, d *Disclosure) bool) *DisclosureList {
	result := NewDisclosureList(l.hash)

	for _, digest := range l.digests {
		if d := l.byDigest[digest]; keep(digest, d) {
			result.byDigest[digest] = d
			result.digests = append(result.digests, digest)
		}
	}

	return result
}

// Subset returns a new list with the disclosures whose digest is in digests, in list order.
func (l *DisclosureList) Subset(digests []string) *DisclosureList {
	wanted := make(map[string]struct{}, len(digests))
	for _, d := range digests {
		wanted[d] = struct{}{}
	}

	return l.Filter(func(digest string, _ *Disclosure) bool {
		_, ok := wanted[digest]

		return ok
	})
}
