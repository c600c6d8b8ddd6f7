package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTagTable_Normalization(t *testing.T) {
	table, err := NewTagTable(map[string]any{
		"hello":       "greeting",
		"sounds good": []string{"yes", "agreement"},
		"nope":        []any{"no"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"greeting"}, table["hello"])
	assert.Equal(t, []string{"yes", "agreement"}, table["sounds good"])
	assert.Equal(t, []string{"no"}, table["nope"])
}

func TestNewTagTable_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		value any
	}{
		{"number", 42},
		{"nil", nil},
		{"mixed list", []any{"ok", 7}},
		{"map", map[string]string{"a": "b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTagTable(map[string]any{"phrase": tc.value})
			require.Error(t, err)

			var tagErr *TagValueError
			require.ErrorAs(t, err, &tagErr)
			assert.Equal(t, "phrase", tagErr.Phrase)
		})
	}
}

func TestTagTable_CopiesSliceValues(t *testing.T) {
	src := []string{"yes"}
	table, err := NewTagTable(map[string]any{"ok": src})
	require.NoError(t, err)

	src[0] = "mutated"
	assert.Equal(t, []string{"yes"}, table["ok"])
}

func TestTagTable_Sets(t *testing.T) {
	table, err := NewTagTable(map[string]any{
		"ok":    []string{"yes"},
		"okay":  []string{"yes"},
		"hello": "greeting",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "ok", "okay"}, table.Phrases())
	assert.Equal(t, []string{"greeting", "yes"}, table.TagSet())
}

func TestTagCount(t *testing.T) {
	tc := TagCount{}
	tc.Add("yes", "agreement")
	tc.Add("yes")

	assert.True(t, tc.Has("yes"))
	assert.False(t, tc.Has("no"))
	assert.Equal(t, 2, tc.Count("yes"))
	assert.Equal(t, 1, tc.Count("agreement"))
	assert.Equal(t, 0, tc.Count("no"))
	assert.Equal(t, []string{"agreement", "yes"}, tc.Tags())
	assert.Equal(t, 3, tc.Total())
}

func TestTagCount_ZeroValueReads(t *testing.T) {
	var tc TagCount
	assert.False(t, tc.Has("anything"))
	assert.Equal(t, 0, tc.Count("anything"))
	assert.Empty(t, tc.Tags())
}
