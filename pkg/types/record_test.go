// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordString(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"pid": "23123",
		"indicator": 12,
		"ratio": 1.5,
		"published": true,
		"missing": null,
		"item_data": {"barcode": "A001", "description": "box.1"}
	}`), &r))

	tests := []struct {
		path string
		want string
	}{
		{"pid", "23123"},
		{"indicator", "12"},
		{"ratio", "1.5"},
		{"published", "true"},
		{"missing", ""},
		{"absent", ""},
		{"item_data.barcode", "A001"},
		{"item_data.description", "box.1"},
		{"item_data.nope", ""},
		{"pid.nested", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.String(tt.path))
		})
	}
}

func TestRecordSetNested(t *testing.T) {
	r := Record{"uri": "/repositories/2/top_containers/1"}
	r.Set("barcode", "B123")
	r.Set("item_data.barcode", "C456")

	assert.Equal(t, "B123", r.String("barcode"))
	assert.Equal(t, "C456", r.String("item_data.barcode"))
	assert.True(t, r.Has("barcode"))

	r.Delete("barcode")
	assert.False(t, r.Has("barcode"))
}

func TestRecordSub(t *testing.T) {
	r := Record{"item_data": map[string]any{"pid": "1"}, "flat": "x"}
	assert.Equal(t, "1", r.Sub("item_data").String("pid"))
	assert.Nil(t, r.Sub("flat"))
	assert.Nil(t, r.Sub("absent"))
}

func TestRecordBool(t *testing.T) {
	r := Record{"is_linked_to_published_record": true, "other": "true"}
	assert.True(t, r.Bool("is_linked_to_published_record"))
	assert.False(t, r.Bool("other"))
	assert.False(t, r.Bool("absent"))
}
