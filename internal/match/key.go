// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match pairs holdings items with archival top containers.
//
// A Profile turns each record's descriptive fields into a normalized Key.
// BuildIndex keys one side while quarantining colliding keys, Match joins
// the two indexes and copies the barcode from each item onto its container,
// and Classify folds everything into a Report where every input record lands
// in exactly one bucket.
package match

import (
	"errors"
	"strings"
)

// restrictedSuffix marks access-restricted boxes in item descriptions.
const restrictedSuffix = " RESTRICTED"

const maxArity = 3

var (
	// ErrMalformed reports a descriptor that cannot be parsed into a key.
	ErrMalformed = errors.New("malformed descriptor")

	// ErrUnknownProfile reports a profile name missing from the registry.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrUnbalanced reports a Report whose buckets do not add up to the input.
	ErrUnbalanced = errors.New("report does not account for every record")
)

// Key is the normalized join key: indicator, then type, then series,
// truncated to the arity of the profile that built it. Keys are comparable
// and usable as map keys.
type Key struct {
	parts [maxArity]string
	arity int
}

// NewKey builds a key from up to three components. Extra components are
// dropped.
func NewKey(parts ...string) Key {
	var k Key
	k.arity = min(len(parts), maxArity)
	copy(k.parts[:], parts[:k.arity])
	return k
}

// Parts returns the key components in order.
func (k Key) Parts() []string {
	out := make([]string, k.arity)
	copy(out, k.parts[:k.arity])
	return out
}

// Arity returns the number of components.
func (k Key) Arity() int {
	return k.arity
}

// Indicator returns the first component.
func (k Key) Indicator() string {
	return k.parts[0]
}

// Valid reports whether the key has at least one component and none are empty.
func (k Key) Valid() bool {
	if k.arity == 0 {
		return false
	}
	for _, p := range k.parts[:k.arity] {
		if p == "" {
			return false
		}
	}
	return true
}

// Less orders keys by arity, then component by component.
func (k Key) Less(other Key) bool {
	if k.arity != other.arity {
		return k.arity < other.arity
	}
	for i := 0; i < k.arity; i++ {
		if k.parts[i] != other.parts[i] {
			return k.parts[i] < other.parts[i]
		}
	}
	return false
}

// String renders the key as a tuple, e.g. "(5, box)".
func (k Key) String() string {
	return "(" + strings.Join(k.Parts(), ", ") + ")"
}

// MarshalText renders the key for JSON and YAML map keys and values.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NormalizeIndicator strips leading zeroes and then a trailing " RESTRICTED".
// Every profile applies it to every indicator it extracts, on both sides.
func NormalizeIndicator(s string) string {
	s = strings.TrimLeft(s, "0")
	return strings.TrimSuffix(s, restrictedSuffix)
}
