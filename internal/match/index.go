// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/internal/logging"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Side names which record system a record came from.
type Side string

const (
	SourceSide Side = "source"
	TargetSide Side = "target"
)

// KeyFunc extracts a key from one record.
type KeyFunc func(types.Record) (Key, error)

// Index maps keys to the single record holding them, in insertion order.
type Index struct {
	keys    []Key
	records map[Key]types.Record
}

func newIndex(capacity int) *Index {
	return &Index{records: make(map[Key]types.Record, capacity)}
}

func (ix *Index) insert(k Key, r types.Record) {
	ix.keys = append(ix.keys, k)
	ix.records[k] = r
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// Keys returns the indexed keys in insertion order.
func (ix *Index) Keys() []Key {
	out := make([]Key, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// Get returns the record stored under k.
func (ix *Index) Get(k Key) (types.Record, bool) {
	r, ok := ix.records[k]
	return r, ok
}

// Has reports whether k is indexed.
func (ix *Index) Has(k Key) bool {
	_, ok := ix.records[k]
	return ok
}

// Duplicate is a record dropped because another record produced its key.
type Duplicate struct {
	ID     string       `json:"id" yaml:"id"`
	Key    Key          `json:"key" yaml:"key"`
	Record types.Record `json:"-" yaml:"-"`
}

// Malformed is a record whose descriptor could not be parsed.
type Malformed struct {
	ID     string       `json:"id" yaml:"id"`
	Reason string       `json:"reason" yaml:"reason"`
	Record types.Record `json:"-" yaml:"-"`
}

// IndexOptions configures BuildIndex.
type IndexOptions struct {
	Side    Side
	IDField string
	Logger  *zerolog.Logger
}

// BuildIndex keys records in input order. When a key turns up a second time,
// both records are dropped and reported as duplicates, the later one first.
// Pairing restarts after a drop, so a third record with the same key is
// indexed as if new, and a fourth collides with it again. Records whose key
// cannot be extracted, or has an empty component, are returned as Malformed
// and never counted as duplicates.
func BuildIndex(records []types.Record, key KeyFunc, opts IndexOptions) (*Index, []Duplicate, []Malformed) {
	log := orNop(opts.Logger)

	keys, usable, malformed := extractAll(records, key, opts.IDField, opts.Side, log)
	groups := make(map[Key][]int, len(records))
	for i, k := range keys {
		if usable[i] {
			groups[k] = append(groups[k], i)
		}
	}

	ix := newIndex(len(groups))
	var dups []Duplicate
	seen := make(map[Key]int, len(groups))

	for i, r := range records {
		if !usable[i] {
			continue
		}
		k := keys[i]
		n := seen[k]
		seen[k] = n + 1
		group := groups[k]

		if n%2 == 1 {
			prev := records[group[n-1]]
			cur, old := r.String(opts.IDField), prev.String(opts.IDField)
			log.Error().Str("side", string(opts.Side)).Stringer("key", k).
				Str("id", cur).Str("existing_id", old).
				Msgf("Duplicate %s key %s for %s. Existing record: %s. Skipping both.", opts.Side, k, cur, old)
			dups = append(dups,
				Duplicate{ID: cur, Key: k, Record: r},
				Duplicate{ID: old, Key: k, Record: prev},
			)
			continue
		}
		if n == len(group)-1 {
			ix.insert(k, r)
		}
	}

	return ix, dups, malformed
}

func errEmptyComponent(k Key) error {
	return fmt.Errorf("%w: key %s has an empty component", ErrMalformed, k)
}

func orNop(l *zerolog.Logger) *zerolog.Logger {
	if l == nil {
		return logging.Nop()
	}
	return l
}
