package report

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lucasnoah/voicepipe/internal/pipeline"
)

func TestNewFromStageFailure(t *testing.T) {
	err := &pipeline.Failure{
		Stage:   pipeline.StageSynthesize,
		Message: "speech synthesis failed",
		Detail:  "tts request failed: status 502: bad gateway",
	}

	rec := New(err, pipeline.StageValidation)

	if rec.Error != "speech synthesis failed" {
		t.Errorf("Error = %q, want failure message", rec.Error)
	}
	if rec.Stage != string(pipeline.StageSynthesize) {
		t.Errorf("Stage = %q, want %q (failure tag wins over fallback)", rec.Stage, pipeline.StageSynthesize)
	}
	if rec.Details != err.Detail {
		t.Errorf("Details = %q, want %q", rec.Details, err.Detail)
	}
}

func TestNewFromWrappedFailure(t *testing.T) {
	inner := &pipeline.Failure{Stage: pipeline.StageTranscribe, Message: "transcription failed"}
	err := fmt.Errorf("handling upload: %w", inner)

	rec := New(err, pipeline.StageValidation)
	if rec.Stage != string(pipeline.StageTranscribe) {
		t.Errorf("Stage = %q, want wrapped failure's stage", rec.Stage)
	}
	if rec.Error != "transcription failed" {
		t.Errorf("Error = %q, want wrapped failure's message", rec.Error)
	}
}

func TestNewFromPlainError(t *testing.T) {
	rec := New(errors.New("disk full"), pipeline.StageAssembly)

	if rec.Error != "disk full" {
		t.Errorf("Error = %q, want %q", rec.Error, "disk full")
	}
	if rec.Stage != string(pipeline.StageAssembly) {
		t.Errorf("Stage = %q, want fallback stage", rec.Stage)
	}
	if rec.Details != "disk full" {
		t.Errorf("Details = %q, want plain error message", rec.Details)
	}
}

func TestNewFromNilError(t *testing.T) {
	rec := New(nil, pipeline.StageValidation)
	if rec.Error != "unknown error" {
		t.Errorf("Error = %q, want %q", rec.Error, "unknown error")
	}
	if rec.Stage != string(pipeline.StageValidation) {
		t.Errorf("Stage = %q, want fallback stage", rec.Stage)
	}
}

func TestNewIsIdempotentOnContent(t *testing.T) {
	err := &pipeline.Failure{
		Stage:   pipeline.StageRespond,
		Message: "response generation failed",
		Detail:  "chat request failed: status 502: bad gateway",
	}

	a := New(err, pipeline.StageValidation)
	time.Sleep(time.Millisecond)
	b := New(err, pipeline.StageValidation)

	if a.Error != b.Error || a.Stage != b.Stage || a.Details != b.Details {
		t.Errorf("records differ in content: %+v vs %+v", a, b)
	}
	if a.CorrelationID == b.CorrelationID {
		t.Error("correlation ids equal across calls, want unique per call")
	}
	if a.Timestamp == b.Timestamp {
		t.Error("timestamps equal across calls, want fresh stamp per call")
	}
}

func TestNewAssignsUniqueCorrelationIDs(t *testing.T) {
	err := errors.New("boom")
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		rec := New(err, pipeline.StageValidation)
		if rec.CorrelationID == "" {
			t.Fatal("empty correlation id")
		}
		if seen[rec.CorrelationID] {
			t.Fatalf("duplicate correlation id %q", rec.CorrelationID)
		}
		seen[rec.CorrelationID] = true
	}
}

func TestNewTimestampIsRFC3339UTC(t *testing.T) {
	rec := New(errors.New("boom"), pipeline.StageValidation)

	ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		t.Fatalf("timestamp %q does not parse: %v", rec.Timestamp, err)
	}
	if ts.Location() != time.UTC {
		t.Errorf("timestamp %q not in UTC", rec.Timestamp)
	}
	if d := time.Since(ts); d < 0 || d > time.Minute {
		t.Errorf("timestamp %q not near now", rec.Timestamp)
	}
}
