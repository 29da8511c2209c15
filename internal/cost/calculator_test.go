package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"mini":   {Input: 0.15, Output: 0.60},
			"sonnet": {Input: 3.00, Output: 15.00},
		},
		SearchPerQuery: 0.001,
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		input  int
		output int
		want   float64
	}{
		{
			name: "mini simple", model: "mini",
			input: 1000000, output: 100000,
			want: 0.15 + 0.06,
		},
		{
			name: "sonnet", model: "sonnet",
			input: 1000000, output: 100000,
			want: 3.00 + 1.50,
		},
		{
			name: "unknown model returns 0", model: "unknown",
			input: 1000000, output: 1000000,
			want: 0,
		},
		{
			name: "zero tokens returns 0", model: "mini",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Tokens(tt.model, tt.input, tt.output)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.005, calc.Search(5), 0.00001)
	assert.InDelta(t, 0, calc.Search(0), 0.00001)
}

func TestKnown(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.True(t, calc.Known("mini"))
	assert.False(t, calc.Known("gpt-5"))
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	r := DefaultRates()
	assert.Contains(t, r.Models, "gpt-4o-mini")
	assert.Contains(t, r.Models, "claude-sonnet-4-5-20250929")
	assert.Positive(t, r.SearchPerQuery)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := DefaultRates()
	merged := base.Merge(Rates{
		Models: map[string]ModelRate{
			"gpt-4o-mini": {Input: 1, Output: 2},
			"local-model": {Input: 0, Output: 0},
		},
	})

	assert.InDelta(t, 1.0, merged.Models["gpt-4o-mini"].Input, 0.0001)
	assert.Contains(t, merged.Models, "local-model")
	assert.Contains(t, merged.Models, "claude-sonnet-4-5-20250929")
	assert.InDelta(t, base.SearchPerQuery, merged.SearchPerQuery, 0.00001)
	// The receiver is not modified.
	assert.InDelta(t, 0.15, base.Models["gpt-4o-mini"].Input, 0.0001)

	merged = base.Merge(Rates{SearchPerQuery: 0.01})
	assert.InDelta(t, 0.01, merged.SearchPerQuery, 0.00001)
}
