package generate

import (
	"errors"
	"fmt"

	"github.com/sells-group/localpages-cli/internal/steps"
)

// InferenceError reports a failed call to the completion service.
type InferenceError struct {
	Step steps.ID
	Err  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("generate: step %s: inference: %v", e.Step, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// MalformedOutputError reports a completion that could not be parsed as a
// JSON object, even after brace recovery.
type MalformedOutputError struct {
	Step steps.ID
	Raw  string
	Err  error
}

func (e *MalformedOutputError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("generate: malformed output: %v", e.Err)
	}
	return fmt.Sprintf("generate: step %s: malformed output: %v", e.Step, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// ValidationError reports parsed output that violates a step constraint.
type ValidationError struct {
	Step steps.ID
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generate: step %s: validation: %v", e.Step, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StepOf returns the step an executor error belongs to.
func StepOf(err error) (steps.ID, bool) {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie.Step, true
	}
	var me *MalformedOutputError
	if errors.As(err, &me) && me.Step != "" {
		return me.Step, true
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Step, true
	}
	return "", false
}
