package cost

// Rates holds pricing configuration.
type Rates struct {
	Models         map[string]ModelRate `yaml:"models" mapstructure:"models"`
	SearchPerQuery float64              `yaml:"search_per_query" mapstructure:"search_per_query"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the cost of one completion call. Unknown models cost 0.
func (c *Calculator) Tokens(model string, input, output int) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// Known reports whether the model has a configured rate.
func (c *Calculator) Known(model string) bool {
	_, ok := c.rates.Models[model]
	return ok
}

// Search returns the flat cost of n search queries.
func (c *Calculator) Search(n int) float64 {
	return float64(n) * c.rates.SearchPerQuery
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
			"gpt-4o":                     {Input: 2.50, Output: 10.00},
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		SearchPerQuery: 0.001,
	}
}

// Merge overlays o onto r. Models present in o replace those in r; a zero
// search price in o keeps r's.
func (r Rates) Merge(o Rates) Rates {
	out := Rates{Models: make(map[string]ModelRate, len(r.Models)+len(o.Models)), SearchPerQuery: r.SearchPerQuery}
	for k, v := range r.Models {
		out.Models[k] = v
	}
	for k, v := range o.Models {
		out.Models[k] = v
	}
	if o.SearchPerQuery > 0 {
		out.SearchPerQuery = o.SearchPerQuery
	}
	return out
}
