package batch

import (
	"context"
	"errors"

	"github.com/sells-group/localpages-cli/internal/evidence"
	"github.com/sells-group/localpages-cli/internal/generate"
	"github.com/sells-group/localpages-cli/internal/persist"
)

// Failure kinds reported in summaries, logs and metrics.
const (
	KindEvidenceFetch   = "evidence_fetch"
	KindInference       = "inference"
	KindMalformedOutput = "malformed_output"
	KindValidation      = "validation"
	KindPersistence     = "persistence"
	KindCanceled        = "canceled"
	KindOther           = "other"
)

// FailureKind classifies an item error.
func FailureKind(err error) string {
	var fetchErr *evidence.FetchError
	var inferErr *generate.InferenceError
	var malformedErr *generate.MalformedOutputError
	var validationErr *generate.ValidationError
	var persistErr *persist.Error

	switch {
	case errors.As(err, &fetchErr):
		return KindEvidenceFetch
	case errors.As(err, &malformedErr):
		return KindMalformedOutput
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &persistErr):
		return KindPersistence
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &inferErr):
		return KindInference
	default:
		return KindOther
	}
}
