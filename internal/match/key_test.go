// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIndicator(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "12", "12"},
		{"leading zeroes", "0007", "7"},
		{"restricted", "12 RESTRICTED", "12"},
		{"zeroes and restricted", "0012 RESTRICTED", "12"},
		{"inner zero kept", "105", "105"},
		{"trailing zero kept", "100", "100"},
		{"lowercase suffix kept", "12 restricted", "12 restricted"},
		{"all zeroes", "000", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIndicator(tt.input))
		})
	}
}

func TestNormalizeIndicator_Idempotent(t *testing.T) {
	for _, s := range []string{"7", "12", "100", "25C", "SR-130", "0012 RESTRICTED", "0"} {
		once := NormalizeIndicator(s)
		assert.Equal(t, once, NormalizeIndicator(once), "input %q", s)
	}
}

func TestKey(t *testing.T) {
	k := NewKey("5", "box")
	assert.Equal(t, []string{"5", "box"}, k.Parts())
	assert.Equal(t, 2, k.Arity())
	assert.Equal(t, "5", k.Indicator())
	assert.Equal(t, "(5, box)", k.String())
	assert.True(t, k.Valid())
	assert.Equal(t, k, NewKey("5", "box"))
	assert.NotEqual(t, k, NewKey("5"))

	assert.False(t, Key{}.Valid())
	assert.False(t, NewKey("", "box").Valid())
	assert.False(t, NewKey("5", "box", "").Valid())
	assert.Equal(t, 3, NewKey("1", "2", "3", "4").Arity())
}

func TestKey_Less(t *testing.T) {
	keys := []Key{
		NewKey("7", "box"),
		NewKey("12", "box"),
		NewKey("12", "folder"),
		NewKey("5"),
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	assert.Equal(t, []Key{
		NewKey("5"),
		NewKey("12", "box"),
		NewKey("12", "folder"),
		NewKey("7", "box"),
	}, keys)
	assert.False(t, NewKey("5").Less(NewKey("5")))
}

func TestKey_MarshalText(t *testing.T) {
	data, err := json.Marshal(map[string]Key{"key": NewKey("25", "box", "C")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "(25, box, C)"}`, string(data))
}
