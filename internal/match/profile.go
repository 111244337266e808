// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Profile is a matching convention for one collection: how item descriptions
// and container indicators are parsed into comparable keys. Implementations
// must be pure and must not mutate the record.
type Profile interface {
	Name() string
	SourceKey(r types.Record) (Key, error)
	TargetKey(r types.Record) (Key, error)
}

// Layout names the record fields the engine reads besides the key.
type Layout struct {
	// SourceEnvelope is non-empty when source records arrive as full API
	// envelopes with the item fields nested under this field.
	SourceEnvelope string

	SourceID   string
	SourceCode string
	TargetID   string
	TargetCode string
}

// DefaultLayout matches flattened Alma item_data against ArchivesSpace top
// containers.
func DefaultLayout() Layout {
	return Layout{
		SourceID:   "pid",
		SourceCode: "barcode",
		TargetID:   "uri",
		TargetCode: "barcode",
	}
}

// LayoutOf returns the profile's own layout when it declares one.
func LayoutOf(p Profile) Layout {
	if l, ok := p.(interface{ Layout() Layout }); ok {
		return l.Layout()
	}
	return DefaultLayout()
}

// IsLinear reports whether the profile asks for the nested-scan matcher
// instead of keyed indexes.
func IsLinear(p Profile) bool {
	l, ok := p.(interface{ Linear() bool })
	return ok && l.Linear()
}

type registration struct {
	description string
	factory     func() Profile
}

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

// Register adds a profile factory under name, replacing any previous entry.
func Register(name, description string, factory func() Profile) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = registration{description: description, factory: factory}
}

// Lookup builds the profile registered under name.
func Lookup(name string) (Profile, error) {
	registryMu.RLock()
	reg, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q: choose one of %v", ErrUnknownProfile, name, Names())
	}
	return reg.factory(), nil
}

// Names lists registered profiles in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the one-line description registered with name.
func Describe(name string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name].description
}

func init() {
	Register(IndicatorOnlyName,
		`items "{type}.{indicator}" vs container indicator`,
		func() Profile { return IndicatorOnly{} })
	Register(IndicatorTypeName,
		`items "{type}.{indicator}" vs container indicator and type`,
		func() Profile { return IndicatorType{} })
	Register(SeriesName,
		`items "ser.{series} {type}.{indicator}" vs indicators like "330M" or "SR-130"`,
		func() Profile { return Series{} })
	Register(SeriesStrictName,
		`series, rejecting container indicators that do not parse cleanly`,
		func() Profile { return Series{Strict: true} })
	Register(BradleyName,
		`Tom Bradley papers: full Alma item envelopes, nested-scan matching`,
		func() Profile { return Bradley{} })
}
