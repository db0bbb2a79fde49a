/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/require"
)

type disclosureFactory struct {
	t    *testing.T
	list *DisclosureList
	next byte
}

func newDisclosureFactory(t *testing.T) *disclosureFactory {
	return &disclosureFactory{t: t, list: NewDisclosureList(crypto.SHA256)}
}

func (f *disclosureFactory) salt() []byte {
	f.next++

	s := make([]byte, 16)
	s[0] = f.next

	return s
}

// object creates an object member disclosure, adds it to the factory list and returns its digest.
func (f *disclosureFactory) object(name string, value interface{}) string {
	d, err := NewObjectDisclosure(f.salt(), name, value)
	require.NoError(f.t, err)

	digest, err := f.list.Add(d)
	require.NoError(f.t, err)

	return digest
}

// element creates an array element disclosure, adds it to the factory list and returns its digest.
func (f *disclosureFactory) element(value interface{}) string {
	d, err := NewArrayElementDisclosure(f.salt(), value)
	require.NoError(f.t, err)

	digest, err := f.list.Add(d)
	require.NoError(f.t, err)

	return digest
}

func TestDisclosureList(t *testing.T) {
	f := newDisclosureFactory(t)

	email := f.object("email", "a@example.com")
	phone := f.object("phone_number", "+1-555")
	country := f.element("DE")

	list := f.list

	t.Run("success - lookup and order", func(t *testing.T) {
		r := require.New(t)

		r.Equal(3, list.Len())
		r.Equal(crypto.SHA256, list.Hash())
		r.Equal([]string{email, phone, country}, list.Digests())
		r.True(list.Contains(phone))
		r.False(list.Contains("unknown"))

		d, ok := list.Get(email)
		r.True(ok)

		name, _ := d.Name()
		r.Equal("email", name)

		disclosures := list.Disclosures()
		r.Len(disclosures, 3)
		r.True(disclosures[2].IsArrayElement())
		r.Equal(disclosures[1].Encoded(), list.Encoded()[1])
	})

	t.Run("success - parse keeps order", func(t *testing.T) {
		parsed, err := ParseDisclosureList(list.Encoded(), crypto.SHA256)
		require.NoError(t, err)
		require.Equal(t, list.Digests(), parsed.Digests())
	})

	t.Run("success - subset and filter", func(t *testing.T) {
		sub := list.Subset([]string{country, email, "unknown"})
		require.Equal(t, []string{email, country}, sub.Digests())

		objects := list.Filter(func(_ string, d *Disclosure) bool { return !d.IsArrayElement() })
		require.Equal(t, []string{email, phone}, objects.Digests())
	})

	t.Run("success - merge skips known digests", func(t *testing.T) {
		merged := list.Subset([]string{email})
		require.NoError(t, merged.Merge(list.Subset([]string{email, phone})))
		require.Equal(t, []string{email, phone}, merged.Digests())
		require.NoError(t, merged.Merge(nil))
	})

	t.Run("success - nil list", func(t *testing.T) {
		var empty *DisclosureList

		require.Equal(t, 0, empty.Len())
		require.Nil(t, empty.Digests())
		require.Nil(t, empty.Encoded())
		require.Nil(t, empty.Disclosures())
		require.False(t, empty.Contains(email))
	})

	t.Run("error - merge with another hash", func(t *testing.T) {
		other := NewDisclosureList(crypto.SHA512)
		require.ErrorContains(t, list.Subset(nil).Merge(other), "does not match")
	})

	t.Run("error - duplicate disclosure", func(t *testing.T) {
		encoded := list.Encoded()

		_, err := ParseDisclosureList([]string{encoded[0], encoded[0]}, crypto.SHA256)
		require.ErrorIs(t, err, ErrDuplicateDigest)
	})

	t.Run("error - malformed disclosure", func(t *testing.T) {
		_, err := ParseDisclosureList([]string{"!!"}, crypto.SHA256)
		require.ErrorIs(t, err, ErrMalformedDisclosure)
	})

	t.Run("error - unavailable hash", func(t *testing.T) {
		d, err := NewObjectDisclosure(testSalt, "a", "b")
		require.NoError(t, err)

		_, err = NewDisclosureList(crypto.MD4).Add(d)
		require.ErrorIs(t, err, ErrUnsupportedHash)
	})
}
