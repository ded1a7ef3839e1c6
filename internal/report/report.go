package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/voicepipe/internal/pipeline"
)

// Record is the externally-reportable rendering of one failure. Immutable
// after creation; the correlation id is unique per call for traceability.
type Record struct {
	Error         string `json:"error"`
	Stage         string `json:"stage,omitempty"`
	Details       string `json:"details,omitempty"`
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id"`
}

// New converts any error into a Record. A *pipeline.Failure contributes its
// own stage and detail; anything else is attributed to fallbackStage with
// the error's message as detail. Pure transformation: never re-raises.
func New(err error, fallbackStage pipeline.Stage) Record {
	rec := Record{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		CorrelationID: uuid.NewString(),
	}
	if err == nil {
		rec.Error = "unknown error"
		rec.Stage = string(fallbackStage)
		return rec
	}

	var fail *pipeline.Failure
	if errors.As(err, &fail) {
		rec.Error = fail.Message
		rec.Stage = string(fail.Stage)
		rec.Details = fail.Detail
		return rec
	}

	rec.Error = err.Error()
	rec.Stage = string(fallbackStage)
	rec.Details = err.Error()
	return rec
}
