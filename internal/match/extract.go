// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Profile names as accepted by Lookup and the --profile flag.
const (
	IndicatorOnlyName = "indicator-only"
	IndicatorTypeName = "indicator-type"
	SeriesName        = "series"
	SeriesStrictName  = "series-strict"
	BradleyName       = "bradley"
)

// Field names read by the built-in profiles.
const (
	fieldDescription = "description"
	fieldIndicator   = "indicator"
	fieldType        = "type"
)

var (
	// digitSeriesPattern matches the whole of "330M": indicator then series
	// letters.
	digitSeriesPattern = regexp.MustCompile(`^(\d+)([A-Za-z]*)$`)

	// letterSeriesPattern matches the whole of "SR-130": series, hyphen,
	// indicator.
	letterSeriesPattern = regexp.MustCompile(`^([A-Za-z]+)-(\d+)$`)
)

// IndicatorOnly keys on the normalized indicator alone.
type IndicatorOnly struct{}

func (IndicatorOnly) Name() string { return IndicatorOnlyName }

func (IndicatorOnly) SourceKey(r types.Record) (Key, error) {
	_, indicator, err := parseTypeIndicator(r.String(fieldDescription))
	if err != nil {
		return Key{}, err
	}
	return NewKey(indicator), nil
}

func (IndicatorOnly) TargetKey(r types.Record) (Key, error) {
	return NewKey(NormalizeIndicator(r.String(fieldIndicator))), nil
}

// IndicatorType keys on (indicator, type).
type IndicatorType struct{}

func (IndicatorType) Name() string { return IndicatorTypeName }

func (IndicatorType) SourceKey(r types.Record) (Key, error) {
	typ, indicator, err := parseTypeIndicator(r.String(fieldDescription))
	if err != nil {
		return Key{}, err
	}
	return NewKey(indicator, typ), nil
}

func (IndicatorType) TargetKey(r types.Record) (Key, error) {
	return NewKey(NormalizeIndicator(r.String(fieldIndicator)), r.String(fieldType)), nil
}

// Series keys on (indicator, type, series) for collections whose container
// indicators carry the series inline. Strict rejects indicators that do not
// match exactly one recognized form instead of splitting them loosely.
type Series struct {
	Strict bool
}

func (s Series) Name() string {
	if s.Strict {
		return SeriesStrictName
	}
	return SeriesName
}

func (Series) SourceKey(r types.Record) (Key, error) {
	series, typ, indicator, err := parseSeriesDescription(r.String(fieldDescription))
	if err != nil {
		return Key{}, err
	}
	return NewKey(indicator, typ, series), nil
}

func (s Series) TargetKey(r types.Record) (Key, error) {
	raw := r.String(fieldIndicator)
	split := splitSeriesIndicator
	if s.Strict {
		split = strictSeriesIndicator
	}
	indicator, series, err := split(raw)
	if err != nil {
		return Key{}, err
	}
	return NewKey(NormalizeIndicator(indicator), r.String(fieldType), series), nil
}

// Bradley handles the Tom Bradley papers, the first collection barcoded.
// Its items arrive as full Alma envelopes and are matched by nested scan.
type Bradley struct{}

func (Bradley) Name() string { return BradleyName }

func (Bradley) SourceKey(r types.Record) (Key, error) {
	typ, indicator, err := parseTypeIndicator(r.String("item_data." + fieldDescription))
	if err != nil {
		return Key{}, err
	}
	return NewKey(indicator, typ), nil
}

func (Bradley) TargetKey(r types.Record) (Key, error) {
	return IndicatorType{}.TargetKey(r)
}

func (Bradley) Linear() bool { return true }

func (Bradley) Layout() Layout {
	l := DefaultLayout()
	l.SourceEnvelope = "item_data"
	l.SourceID = "item_data.pid"
	l.SourceCode = "item_data.barcode"
	return l
}

// parseTypeIndicator splits "box.0011" into ("box", "11").
func parseTypeIndicator(desc string) (typ, indicator string, err error) {
	fields := strings.Split(desc, ".")
	if len(fields) < 2 || fields[0] == "" {
		return "", "", fmt.Errorf("%w: %q is not {type}.{indicator}", ErrMalformed, desc)
	}
	return fields[0], NormalizeIndicator(fields[1]), nil
}

// parseSeriesDescription splits "ser.P box.0011" into ("P", "box", "11").
func parseSeriesDescription(desc string) (series, typ, indicator string, err error) {
	head, tail, ok := strings.Cut(desc, " ")
	if !ok {
		return "", "", "", fmt.Errorf("%w: %q is not ser.{series} {type}.{indicator}", ErrMalformed, desc)
	}
	_, series, ok = strings.Cut(head, ".")
	if !ok || series == "" {
		return "", "", "", fmt.Errorf("%w: %q has no series", ErrMalformed, desc)
	}
	typ, indicator, err = parseTypeIndicator(tail)
	if err != nil {
		return "", "", "", err
	}
	return series, typ, indicator, nil
}

// splitSeriesIndicator splits "330M" into ("330", "M") and "SR-130" into
// ("130", "SR"). Anything with neither a leading digit nor a hyphen is
// malformed.
func splitSeriesIndicator(raw string) (indicator, series string, err error) {
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty indicator", ErrMalformed)
	}
	if startsWithDigit(raw) {
		end := strings.IndexFunc(raw, func(r rune) bool { return r < '0' || r > '9' })
		if end < 0 {
			return raw, "", nil
		}
		return raw[:end], raw[end:], nil
	}
	fields := strings.Split(raw, "-")
	if len(fields) < 2 {
		return "", "", fmt.Errorf("%w: indicator %q has no series", ErrMalformed, raw)
	}
	return fields[1], fields[0], nil
}

// strictSeriesIndicator accepts the same two forms as splitSeriesIndicator
// but requires the whole indicator to be exactly one of them.
func strictSeriesIndicator(raw string) (indicator, series string, err error) {
	pattern := letterSeriesPattern
	if startsWithDigit(raw) {
		pattern = digitSeriesPattern
	}
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", fmt.Errorf("%w: indicator %q is neither {indicator}{series} nor {series}-{indicator}", ErrMalformed, raw)
	}
	if pattern == digitSeriesPattern {
		return m[1], m[2], nil
	}
	return m[2], m[1], nil
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
