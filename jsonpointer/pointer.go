/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jsonpointer implements JSON Pointer (RFC 6901) addressing over JSON value trees.
//
// A Pointer is an immutable sequence of components. Each component is either an object key or
// a non-negative array index. Parsing never fails: input that is not a well-formed pointer is
// treated as a single object key.
package jsonpointer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonpointer"
	"golang.org/x/exp/slices"
)

const separator = "/"

// Component is a single reference token of a Pointer.
type Component struct {
	key     string
	index   int
	isIndex bool
}

// Key creates an object key component.
func Key(key string) Component {
	return Component{key: key}
}

// Index creates an array index component. Negative indexes are clamped to zero.
func Index(i int) Component {
	if i < 0 {
		i = 0
	}

	return Component{index: i, isIndex: true}
}

// IsIndex reports whether the component is an array index.
func (c Component) IsIndex() bool {
	return c.isIndex
}

// Index returns the array index of the component.
func (c Component) Index() (int, bool) {
	return c.index, c.isIndex
}

// Key returns the object key of the component.
// An index component is addressed by its decimal form when used against an object.
func (c Component) Key() string {
	if c.isIndex {
		return strconv.Itoa(c.index)
	}

	return c.key
}

// String returns the escaped reference token.
func (c Component) String() string {
	return escape(c.Key())
}

// Pointer is a JSON Pointer. The zero value is the root pointer.
type Pointer struct {
	components []Component
}

// Root returns the pointer to the whole document.
func Root() Pointer {
	return Pointer{}
}

// New creates a pointer from components.
func New(components ...Component) Pointer {
	return Pointer{components: slices.Clone(components)}
}

// Parse parses the RFC 6901 string form of a pointer.
// A malformed input (not starting with "/" or containing an invalid escape) becomes
// a pointer with a single key component holding the raw input.
func Parse(s string) Pointer {
	if s == "" {
		return Root()
	}

	if !strings.HasPrefix(s, separator) {
		return New(Key(s))
	}

	tokens := strings.Split(s[1:], separator)
	components := make([]Component, 0, len(tokens))

	for _, token := range tokens {
		unescaped, ok := unescape(token)
		if !ok {
			return New(Key(s))
		}

		if i, isIndex := parseIndex(unescaped); isIndex {
			components = append(components, Index(i))
			continue
		}

		components = append(components, Key(unescaped))
	}

	return Pointer{components: components}
}

// MustParse parses s and panics if s is not a well-formed pointer.
func MustParse(s string) Pointer {
	if s != "" && !strings.HasPrefix(s, separator) {
		panic(fmt.Sprintf("jsonpointer: %q does not start with %q", s, separator))
	}

	return Parse(s)
}

// ParseAll parses a list of pointers.
func ParseAll(values ...string) []Pointer {
	pointers := make([]Pointer, len(values))

	for i, v := range values {
		pointers[i] = Parse(v)
	}

	return pointers
}

// String returns the RFC 6901 serialization.
func (p Pointer) String() string {
	if len(p.components) == 0 {
		return ""
	}

	var sb strings.Builder

	for _, c := range p.components {
		sb.WriteString(separator)
		sb.WriteString(c.String())
	}

	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Pointer) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pointer) UnmarshalText(text []byte) error {
	*p = Parse(string(text))

	return nil
}

// Components returns a copy of the pointer components.
func (p Pointer) Components() []Component {
	return slices.Clone(p.components)
}

// Len returns the number of components.
func (p Pointer) Len() int {
	return len(p.components)
}

// IsRoot reports whether the pointer addresses the whole document.
func (p Pointer) IsRoot() bool {
	return len(p.components) == 0
}

// Parent returns the pointer without its last component. The parent of the root is the root.
func (p Pointer) Parent() Pointer {
	if p.IsRoot() {
		return p
	}

	return Pointer{components: slices.Clone(p.components[:len(p.components)-1])}
}

// Last returns the last component.
func (p Pointer) Last() (Component, bool) {
	if p.IsRoot() {
		return Component{}, false
	}

	return p.components[len(p.components)-1], true
}

// Append returns a new pointer with the components appended.
func (p Pointer) Append(components ...Component) Pointer {
	result := make([]Component, 0, len(p.components)+len(components))
	result = append(result, p.components...)
	result = append(result, components...)

	return Pointer{components: result}
}

// Join returns a new pointer with the components of other appended.
func (p Pointer) Join(other Pointer) Pointer {
	return p.Append(other.components...)
}

// Equal reports whether two pointers address the same location.
func (p Pointer) Equal(other Pointer) bool {
	return p.String() == other.String()
}

// IsPrefixOf reports whether p is an ancestor of, or equal to, other.
func (p Pointer) IsPrefixOf(other Pointer) bool {
	if len(p.components) > len(other.components) {
		return false
	}

	for i, c := range p.components {
		if c.Key() != other.components[i].Key() {
			return false
		}
	}

	return true
}

// RelativePath returns the path from p to other, so that p.Join(rel) equals other.
// The second value is false when p is not a prefix of other.
func (p Pointer) RelativePath(other Pointer) (Pointer, bool) {
	if !p.IsPrefixOf(other) {
		return Pointer{}, false
	}

	return Pointer{components: slices.Clone(other.components[len(p.components):])}, true
}

// Resolve returns the value the pointer addresses in the document.
func (p Pointer) Resolve(document interface{}) (interface{}, error) {
	if p.IsRoot() {
		return document, nil
	}

	ptr, err := gojsonpointer.NewJsonPointer(p.String())
	if err != nil {
		return nil, fmt.Errorf("pointer %q: %w", p.String(), err)
	}

	value, _, err := ptr.Get(document)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", p.String(), err)
	}

	return value, nil
}

func escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescape(token string) (string, bool) {
	if !strings.Contains(token, "~") {
		return token, true
	}

	var sb strings.Builder

	for i := 0; i < len(token); i++ {
		if token[i] != '~' {
			sb.WriteByte(token[i])
			continue
		}

		if i+1 >= len(token) {
			return "", false
		}

		switch token[i+1] {
		case '0':
			sb.WriteByte('~')
		case '1':
			sb.WriteByte('/')
		default:
			return "", false
		}

		i++
	}

	return sb.String(), true
}

// parseIndex accepts RFC 6901 array indexes: "0" or digits without a leading zero.
func parseIndex(token string) (int, bool) {
	if token == "" || (len(token) > 1 && token[0] == '0') {
		return 0, false
	}

	for _, r := range token {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	i, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}

	return i, true
}
