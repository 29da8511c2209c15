package generate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", NormalizeWhitespace("  a\n\n  b\t\tc  "))
	assert.Equal(t, "", NormalizeWhitespace(" \n\t "))
	assert.Equal(t, "ya normalizado", NormalizeWhitespace("ya normalizado"))
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{name: "bare object", raw: `{"a":1}`, want: map[string]any{"a": 1.0}},
		{name: "surrounding garbage", raw: `garbage {"a":1} trailing`, want: map[string]any{"a": 1.0}},
		{name: "markdown fence", raw: "```json\n{\"t\":\"x\"}\n```", want: map[string]any{"t": "x"}},
		{name: "nested braces", raw: `Aquí tienes: {"o":{"k":"v"}} fin`, want: map[string]any{"o": map[string]any{"k": "v"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseJSON(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"no braces here",
		"} reversed {",
		`{"a": broken}`,
		"null",
		"[1,2,3]",
	} {
		_, err := ParseJSON(raw)
		require.Error(t, err, raw)

		var me *MalformedOutputError
		require.True(t, errors.As(err, &me), raw)
		assert.Equal(t, raw, me.Raw)
	}
}
