package cache

import (
	"net/url"
	"strings"
)

// Key is a hierarchical cache address. Two keys are equal when their segments are.
type Key []string

// NewKey copies the given segments into a fresh key.
func NewKey(segments ...string) Key {
	k := make(Key, len(segments))
	copy(k, segments)
	return k
}

// Append returns a new key extended with more segments; k itself is not modified.
func (k Key) Append(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// Equal reports structural equality.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading run of k's segments.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	return k[:len(prefix)].Equal(prefix)
}

// String encodes the key so that distinct keys never collide, e.g. "scope:workspace/connections/list".
func (k Key) String() string {
	escaped := make([]string, len(k))
	for i, s := range k {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}
