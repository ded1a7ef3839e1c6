package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lucasnoah/voicepipe/internal/artifact"
)

// fakeClock advances a fixed step on every reading, making stage durations
// deterministic.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

// callCounts tracks how often each adapter ran.
type callCounts struct {
	transcribe int
	generate   int
	synthesize int
}

// testDeps builds a fully successful adapter set and returns call counters.
func testDeps(transcript, reply, audio string) (Dependencies, *callCounts) {
	counts := &callCounts{}
	deps := Dependencies{
		Transcribe: func(ctx context.Context, in []byte) (string, error) {
			counts.transcribe++
			return transcript, nil
		},
		Generate: func(ctx context.Context, in string) (string, error) {
			counts.generate++
			return reply, nil
		},
		Synthesize: func(ctx context.Context, in string) (string, error) {
			counts.synthesize++
			return audio, nil
		},
	}
	return deps, counts
}

func wavArtifact(size int) artifact.Input {
	return artifact.Input{Name: "clip.wav", MediaType: "audio/wav", Data: make([]byte, size)}
}

func TestRunSuccess(t *testing.T) {
	deps, counts := testDeps("hello world", "Hi there!", "UklGRg==")
	clock := &fakeClock{step: 10 * time.Millisecond}
	runner := NewRunner(deps, Options{Clock: clock})

	result, outcomes, err := runner.Run(context.Background(), wavArtifact(1024), RunOpts{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.TranscriptLength != 11 {
		t.Errorf("TranscriptLength = %d, want 11", result.TranscriptLength)
	}
	if result.Audio != "UklGRg==" {
		t.Errorf("Audio = %q, want synthesized payload", result.Audio)
	}
	if result.Reply != "Hi there!" {
		t.Errorf("Reply = %q, want %q", result.Reply, "Hi there!")
	}
	if got := result.EstimatedInputSeconds; got != 1024.0/16000.0 {
		t.Errorf("EstimatedInputSeconds = %v, want %v", got, 1024.0/16000.0)
	}

	if len(outcomes) != 5 {
		t.Fatalf("len(outcomes) = %d, want 5", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Stage != Stages[i] {
			t.Errorf("outcomes[%d].Stage = %q, want %q", i, o.Stage, Stages[i])
		}
		if !o.Success {
			t.Errorf("outcomes[%d] (%s) not successful", i, o.Stage)
		}
	}

	// Each external stage spans two clock readings 10ms apart.
	for _, stage := range []Stage{StageTranscribe, StageRespond, StageSynthesize} {
		if got := findOutcome(t, outcomes, stage).DurationMs; got != 10 {
			t.Errorf("%s duration = %dms, want 10ms", stage, got)
		}
	}
	if result.TotalDurationMs != 70 {
		t.Errorf("TotalDurationMs = %d, want 70", result.TotalDurationMs)
	}

	if counts.transcribe != 1 || counts.generate != 1 || counts.synthesize != 1 {
		t.Errorf("adapter calls = %+v, want one each", *counts)
	}
}

func TestRunOversizedArtifact(t *testing.T) {
	deps, counts := testDeps("t", "r", "a")
	runner := NewRunner(deps, Options{MaxUploadBytes: 1024, Clock: &fakeClock{}})

	in := wavArtifact(2048)
	result, outcomes, err := runner.Run(context.Background(), in, RunOpts{})
	if err == nil {
		t.Fatal("Run() succeeded for oversized artifact")
	}
	if result != nil {
		t.Error("Run() returned a result alongside an error")
	}

	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("error %T is not a *Failure", err)
	}
	if fail.Stage != StageValidation {
		t.Errorf("failure stage = %q, want %q", fail.Stage, StageValidation)
	}

	if len(outcomes) != 1 {
		t.Fatalf("len(outcomes) = %d, want 1", len(outcomes))
	}
	if outcomes[0].Stage != StageValidation || outcomes[0].Success {
		t.Errorf("outcomes[0] = %+v, want failed validation", outcomes[0])
	}

	if counts.transcribe != 0 || counts.generate != 0 || counts.synthesize != 0 {
		t.Errorf("external calls made for invalid input: %+v", *counts)
	}
}

func TestRunTranscriberFailure(t *testing.T) {
	deps, counts := testDeps("", "", "")
	deps.Transcribe = func(ctx context.Context, in []byte) (string, error) {
		return "", fmt.Errorf("transcription request failed: status 503: upstream down")
	}
	runner := NewRunner(deps, Options{Clock: &fakeClock{step: time.Millisecond}})

	_, outcomes, err := runner.Run(context.Background(), wavArtifact(100), RunOpts{})

	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("error %T is not a *Failure", err)
	}
	if fail.Stage != StageTranscribe {
		t.Errorf("failure stage = %q, want %q", fail.Stage, StageTranscribe)
	}
	if fail.Detail == "" || !strings.Contains(fail.Detail, "status 503") {
		t.Errorf("Detail = %q, want original adapter message preserved", fail.Detail)
	}

	if len(outcomes) != 2 {
		t.Fatalf("len(outcomes) = %d, want 2", len(outcomes))
	}
	if !outcomes[0].Success || outcomes[0].Stage != StageValidation {
		t.Errorf("outcomes[0] = %+v, want successful validation", outcomes[0])
	}
	if outcomes[1].Success || outcomes[1].Stage != StageTranscribe {
		t.Errorf("outcomes[1] = %+v, want failed transcription", outcomes[1])
	}

	if counts.generate != 0 || counts.synthesize != 0 {
		t.Errorf("later stages invoked after transcription failure: %+v", *counts)
	}
}

func TestRunOutputValidationFailure(t *testing.T) {
	deps, counts := testDeps("", "Hi there!", "audio")
	runner := NewRunner(deps, Options{Clock: &fakeClock{step: time.Millisecond}})

	_, outcomes, err := runner.Run(context.Background(), wavArtifact(100), RunOpts{})

	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("error %T is not a *Failure", err)
	}
	if fail.Stage != StageAssembly {
		t.Errorf("failure stage = %q, want %q", fail.Stage, StageAssembly)
	}
	if fail.Message != "output validation failed" {
		t.Errorf("Message = %q, want %q", fail.Message, "output validation failed")
	}

	if counts.synthesize != 0 {
		t.Error("synthesizer invoked despite output validation failure")
	}

	if len(outcomes) != 4 {
		t.Fatalf("len(outcomes) = %d, want 4", len(outcomes))
	}
	last := outcomes[3]
	if last.Stage != StageAssembly || last.Success {
		t.Errorf("outcomes[3] = %+v, want failed assembly", last)
	}
	if last.DurationMs != 0 {
		t.Errorf("output check duration = %dms, want 0 (no external work)", last.DurationMs)
	}
}

func TestRunWhitespaceReplyFailsOutputCheck(t *testing.T) {
	deps, _ := testDeps("hello", "   \n\t", "audio")
	runner := NewRunner(deps, Options{Clock: &fakeClock{}})

	_, _, err := runner.Run(context.Background(), wavArtifact(100), RunOpts{})

	var fail *Failure
	if !errors.As(err, &fail) || fail.Stage != StageAssembly {
		t.Fatalf("err = %v, want assembly-tagged failure", err)
	}
}

func TestRunSynthesizerFailure(t *testing.T) {
	deps, _ := testDeps("hello", "world", "")
	deps.Synthesize = func(ctx context.Context, in string) (string, error) {
		return "", fmt.Errorf("tts request failed: status 500: internal error")
	}
	runner := NewRunner(deps, Options{Clock: &fakeClock{step: time.Millisecond}})

	_, outcomes, err := runner.Run(context.Background(), wavArtifact(100), RunOpts{})

	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("error %T is not a *Failure", err)
	}
	if fail.Stage != StageSynthesize {
		t.Errorf("failure stage = %q, want %q", fail.Stage, StageSynthesize)
	}
	if !strings.Contains(fail.Detail, "status 500") {
		t.Errorf("Detail = %q, want provider status code surfaced", fail.Detail)
	}
	if len(outcomes) != 4 {
		t.Errorf("len(outcomes) = %d, want 4", len(outcomes))
	}
}

func TestRunCanceledBeforeExternalWork(t *testing.T) {
	deps, counts := testDeps("t", "r", "a")
	runner := NewRunner(deps, Options{Clock: &fakeClock{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, outcomes, err := runner.Run(ctx, wavArtifact(100), RunOpts{})

	// Validation is local and still runs; the cancellation is attributed to
	// transcription, the stage in flight when external work would begin.
	var fail *Failure
	if !errors.As(err, &fail) {
		t.Fatalf("error %T is not a *Failure", err)
	}
	if fail.Stage != StageTranscribe {
		t.Errorf("failure stage = %q, want %q", fail.Stage, StageTranscribe)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("failure does not unwrap to context.Canceled")
	}
	if counts.transcribe != 0 {
		t.Error("transcriber invoked after cancellation")
	}
	if len(outcomes) != 2 {
		t.Errorf("len(outcomes) = %d, want 2", len(outcomes))
	}
}

func TestRunEmitsStagesInOrder(t *testing.T) {
	deps, _ := testDeps("hello", "there", "audio")
	runner := NewRunner(deps, Options{Clock: &fakeClock{}})

	var seen []Stage
	_, _, err := runner.Run(context.Background(), wavArtifact(100), RunOpts{
		OnStage: func(stage Stage) { seen = append(seen, stage) },
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(seen) != len(Stages) {
		t.Fatalf("len(seen) = %d, want %d", len(seen), len(Stages))
	}
	for i, stage := range Stages {
		if seen[i] != stage {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], stage)
		}
	}
}

func TestRunRetriesTransientAdapterFailure(t *testing.T) {
	deps, counts := testDeps("hello", "there", "audio")
	attempts := 0
	deps.Transcribe = func(ctx context.Context, in []byte) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("transient network blip")
		}
		return "hello", nil
	}
	runner := NewRunner(deps, Options{RetryAttempts: 2, Clock: &fakeClock{}})

	result, outcomes, err := runner.Run(context.Background(), wavArtifact(100), RunOpts{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("transcribe attempts = %d, want 2", attempts)
	}
	if result.Transcript != "hello" {
		t.Errorf("Transcript = %q, want %q", result.Transcript, "hello")
	}
	// The retried stage still records exactly one outcome.
	if len(outcomes) != 5 {
		t.Errorf("len(outcomes) = %d, want 5", len(outcomes))
	}
	if counts.generate != 1 {
		t.Errorf("generate calls = %d, want 1", counts.generate)
	}
}

// findOutcome returns the outcome for a stage, failing the test if absent.
func findOutcome(t *testing.T, outcomes []StageOutcome, stage Stage) StageOutcome {
	t.Helper()
	for _, o := range outcomes {
		if o.Stage == stage {
			return o
		}
	}
	t.Fatalf("no outcome recorded for stage %q", stage)
	return StageOutcome{}
}

