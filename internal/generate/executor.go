// Package generate runs single generation steps against a language model.
package generate

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/localpages-cli/internal/steps"
)

// Settings are the run-wide inference parameters.
type Settings struct {
	Temperature      float64
	TokenBudgetScale float64
	ForbiddenPhrases []string
}

// Usage is the token accounting of one step call.
type Usage struct {
	Step         steps.ID
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Executor runs one step at a time. It never retries: a failed call, an
// unparseable reply or a rejected result fails the step.
type Executor struct {
	completer Completer
	settings  Settings
	log       *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(c Completer, settings Settings, log *zap.Logger) *Executor {
	if settings.TokenBudgetScale <= 0 {
		settings.TokenBudgetScale = 1
	}
	return &Executor{completer: c, settings: settings, log: log}
}

// Execute builds the step prompts from sc, calls the model, parses and
// validates the reply. Usage is returned whenever the model was called,
// including when the reply is later rejected.
func (e *Executor) Execute(ctx context.Context, step steps.Step, sc steps.Context) (steps.Result, *Usage, error) {
	log := e.log.With(zap.String("step", string(step.ID)))

	user, err := step.UserPrompt(sc)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "generate: step %s: build prompt", step.ID)
	}
	req := CompletionRequest{
		System:      NormalizeWhitespace(step.System),
		User:        NormalizeWhitespace(user),
		MaxTokens:   int(math.Ceil(float64(step.TokenBudget) * e.settings.TokenBudgetScale)),
		Temperature: e.settings.Temperature,
	}

	start := time.Now()
	comp, err := e.completer.Complete(ctx, req)
	if comp == nil {
		if err == nil {
			err = eris.New("empty completion")
		}
		return nil, nil, &InferenceError{Step: step.ID, Err: err}
	}
	usage := &Usage{
		Step:         step.ID,
		Model:        comp.Model,
		InputTokens:  comp.InputTokens,
		OutputTokens: comp.OutputTokens,
		Duration:     time.Since(start),
	}
	if err != nil {
		log.Warn("step call failed after billing",
			zap.Int("input_tokens", comp.InputTokens),
			zap.Int("output_tokens", comp.OutputTokens),
			zap.Error(err),
		)
		return nil, usage, &InferenceError{Step: step.ID, Err: err}
	}
	log.Debug("step completion received",
		zap.String("model", comp.Model),
		zap.Int("input_tokens", comp.InputTokens),
		zap.Int("output_tokens", comp.OutputTokens),
		zap.Duration("duration", usage.Duration),
	)

	obj, err := ParseJSON(comp.Text)
	if err != nil {
		var me *MalformedOutputError
		if errors.As(err, &me) {
			me.Step = step.ID
			return nil, usage, me
		}
		return nil, usage, &MalformedOutputError{Step: step.ID, Raw: comp.Text, Err: err}
	}

	res, err := step.Decode(obj, steps.Rules{
		ForbiddenPhrases: e.settings.ForbiddenPhrases,
		LocalityName:     sc.Item.LocalityName,
	})
	if err != nil {
		return nil, usage, &ValidationError{Step: step.ID, Err: err}
	}
	return res, usage, nil
}
