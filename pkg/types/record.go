// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines data structures shared by the barcode-sync stages:
// the Record attribute bag handed over by both record systems and the
// configuration consumed by the CLI.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is an opaque attribute bag as returned by either record system.
// Values are whatever encoding/json produced: strings, float64, bool,
// nested map[string]any, and []any.
type Record map[string]any

// Lookup returns the value at a dotted path such as "item_data.barcode".
// Nested records may be either Record or map[string]any.
func (r Record) Lookup(path string) (any, bool) {
	if r == nil || path == "" {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, field := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[field]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the value at path rendered as a string. Missing and null
// values yield "". Numbers are formatted without a trailing ".0" so that
// JSON-decoded integers such as 12 read back as "12".
func (r Record) String(path string) string {
	v, ok := r.Lookup(path)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Bool returns the value at path as a bool; anything but true is false.
func (r Record) Bool(path string) bool {
	v, ok := r.Lookup(path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Has reports whether path holds a non-empty value.
func (r Record) Has(path string) bool {
	return r.String(path) != ""
}

// Set assigns value at a dotted path, creating intermediate objects.
func (r Record) Set(path string, value any) {
	fields := strings.Split(path, ".")
	cur := map[string]any(r)
	for _, field := range fields[:len(fields)-1] {
		next, ok := asMap(cur[field])
		if !ok {
			next = map[string]any{}
			cur[field] = next
		}
		cur = next
	}
	cur[fields[len(fields)-1]] = value
}

// Delete removes the top-level field.
func (r Record) Delete(field string) {
	delete(r, field)
}

// Sub returns the nested object stored under field, or nil.
func (r Record) Sub(field string) Record {
	v, ok := r.Lookup(field)
	if !ok {
		return nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	return Record(m)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
