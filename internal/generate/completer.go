package generate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/localpages-cli/pkg/anthropic"
	"github.com/sells-group/localpages-cli/pkg/openai"
)

// CompletionRequest is one synchronous JSON-object completion.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completion is the raw model reply plus token accounting.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer calls a language model. A non-nil Completion returned with an
// error means the call was billed anyway and carries its token counts.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// OpenAICompleter uses an OpenAI-compatible API in JSON-object mode.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a Completer backed by an OpenAI-compatible API.
func NewOpenAICompleter(c openai.Client, model string) *OpenAICompleter {
	return &OpenAICompleter{client: c, model: model}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temp := req.Temperature
	maxTokens := req.MaxTokens
	resp, err := c.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: openai.JSONObject,
	})
	if err != nil {
		return nil, err
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// AnthropicCompleter uses the Anthropic Messages API. There is no JSON
// mode, so the reply relies on the prompt and brace recovery.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a Completer backed by Anthropic.
func NewAnthropicCompleter(c anthropic.Client, model string) *AnthropicCompleter {
	return &AnthropicCompleter{client: c, model: model}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	temp := req.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   int64(req.MaxTokens),
		System:      []anthropic.SystemBlock{{Text: req.System}},
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	comp := &Completion{
		Text:         resp.Text(),
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	if resp.StopReason == "max_tokens" {
		return comp, eris.Errorf("anthropic: reply truncated at %d tokens", req.MaxTokens)
	}
	return comp, nil
}
