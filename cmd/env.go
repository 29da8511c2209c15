package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/localpages-cli/internal/config"
	"github.com/sells-group/localpages-cli/internal/cost"
	"github.com/sells-group/localpages-cli/internal/evidence"
	"github.com/sells-group/localpages-cli/internal/generate"
	anthropicpkg "github.com/sells-group/localpages-cli/pkg/anthropic"
	"github.com/sells-group/localpages-cli/pkg/jina"
	"github.com/sells-group/localpages-cli/pkg/openai"
	"github.com/sells-group/localpages-cli/pkg/serper"
)

// initSearcher builds the configured search provider.
func initSearcher(c *config.Config) (evidence.Searcher, error) {
	timeout := time.Duration(c.Search.TimeoutSecs) * time.Second
	switch c.Search.Provider {
	case "serper":
		opts := []serper.Option{}
		if c.Search.BaseURL != "" {
			opts = append(opts, serper.WithBaseURL(c.Search.BaseURL))
		}
		if timeout > 0 {
			opts = append(opts, serper.WithTimeout(timeout))
		}
		client := serper.NewClient(c.Search.Key, opts...)
		return evidence.NewSerperSearcher(client, c.Search.Country, c.Search.Language, c.Search.ResultCount), nil
	case "jina":
		opts := []jina.Option{}
		if c.Jina.SearchBaseURL != "" {
			opts = append(opts, jina.WithBaseURL(c.Jina.SearchBaseURL))
		}
		if timeout > 0 {
			opts = append(opts, jina.WithTimeout(timeout))
		}
		client := jina.NewClient(c.Jina.Key, opts...)
		return evidence.NewJinaSearcher(client, c.Search.ResultCount), nil
	default:
		return nil, eris.Errorf("unsupported search provider: %s", c.Search.Provider)
	}
}

// initCollector wraps the searcher with spacing and the evidence cap.
func initCollector(c *config.Config, log *zap.Logger) (*evidence.Collector, error) {
	s, err := initSearcher(c)
	if err != nil {
		return nil, err
	}
	return evidence.NewCollector(s, log,
		evidence.WithDelay(time.Duration(c.Search.DelayMs)*time.Millisecond),
		evidence.WithMaxItems(c.Search.MaxItems),
	), nil
}

// initCompleter builds the configured inference provider.
func initCompleter(c *config.Config) (generate.Completer, error) {
	timeout := time.Duration(c.Inference.TimeoutSecs) * time.Second
	switch c.Inference.Provider {
	case "openai":
		opts := []openai.Option{openai.WithModel(c.OpenAI.Model)}
		if c.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.OpenAI.BaseURL))
		}
		if timeout > 0 {
			opts = append(opts, openai.WithTimeout(timeout))
		}
		return generate.NewOpenAICompleter(openai.NewClient(c.OpenAI.Key, opts...), c.OpenAI.Model), nil
	case "anthropic":
		var opts []anthropicpkg.Option
		if timeout > 0 {
			opts = append(opts, anthropicpkg.WithTimeout(timeout))
		}
		return generate.NewAnthropicCompleter(anthropicpkg.NewClient(c.Anthropic.Key, opts...), c.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("unsupported inference provider: %s", c.Inference.Provider)
	}
}

// initExecutor builds the step executor from the inference and pipeline
// settings.
func initExecutor(c *config.Config, log *zap.Logger) (*generate.Executor, error) {
	comp, err := initCompleter(c)
	if err != nil {
		return nil, err
	}
	return generate.NewExecutor(comp, generate.Settings{
		Temperature:      c.Inference.Temperature,
		TokenBudgetScale: c.Pipeline.TokenBudgetScale,
		ForbiddenPhrases: c.Pipeline.ForbiddenPhrases,
	}, log), nil
}

// initCosts overlays configured pricing onto the defaults.
func initCosts(c *config.Config) *cost.Calculator {
	override := cost.Rates{
		Models:         make(map[string]cost.ModelRate, len(c.Pricing.Models)),
		SearchPerQuery: c.Pricing.SearchPerQuery,
	}
	for name, p := range c.Pricing.Models {
		override.Models[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	return cost.NewCalculator(cost.DefaultRates().Merge(override))
}
