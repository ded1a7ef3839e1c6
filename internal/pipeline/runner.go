package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasnoah/voicepipe/internal/artifact"
)

// bytesPerSecond approximates compressed speech audio at 128 kbit/s; used
// only for the advisory input-duration estimate in the final result.
const bytesPerSecond = 16000

// Dependencies are the three external stage adapters injected into a run.
// Each takes the prior stage's output and returns the next stage's input.
type Dependencies struct {
	Transcribe AdapterFunc[[]byte, string]
	Generate   AdapterFunc[string, string]
	Synthesize AdapterFunc[string, string]
}

// Options tunes a Runner.
type Options struct {
	// MaxUploadBytes caps accepted artifact size; 0 means the default 25 MiB.
	MaxUploadBytes int64
	// RetryAttempts is the bounded attempt count applied uniformly to the
	// three adapter calls. <= 1 means a single attempt (no retry).
	RetryAttempts int
	// Clock measures stage durations; nil means the system clock.
	Clock Clock
}

// Runner drives an input artifact through the fixed stage sequence. A Runner
// is safe for concurrent use: each Run owns its own outcome log and timers.
type Runner struct {
	deps     Dependencies
	clock    Clock
	maxBytes int64
}

// NewRunner creates a Runner with the given adapters and options.
func NewRunner(deps Dependencies, opts Options) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = artifact.MaxUploadBytes
	}
	if opts.RetryAttempts > 1 {
		deps.Transcribe = Retry(opts.RetryAttempts, deps.Transcribe)
		deps.Generate = Retry(opts.RetryAttempts, deps.Generate)
		deps.Synthesize = Retry(opts.RetryAttempts, deps.Synthesize)
	}
	return &Runner{deps: deps, clock: clock, maxBytes: maxBytes}
}

// RunOpts configures one pipeline run.
type RunOpts struct {
	// OnStage is called with each stage as it becomes active. Optional.
	OnStage func(Stage)
}

// run is the per-run mutable state: the outcome log and the active stage.
type run struct {
	clock    Clock
	outcomes []StageOutcome
	onStage  func(Stage)
}

// enter marks a stage active.
func (r *run) enter(stage Stage) {
	if r.onStage != nil {
		r.onStage(stage)
	}
}

// record appends exactly one outcome for an attempted stage.
func (r *run) record(stage Stage, success bool, durationMs int64, errMsg string) {
	r.outcomes = append(r.outcomes, StageOutcome{
		Stage:      stage,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
	})
}

// Run executes the five stages in order, failing fast on the first stage
// error. On success the returned Result carries outcomes for all five
// stages; on failure the error is always a *Failure tagged with the stage
// that raised it and the outcome log covers every attempted stage.
func (r *Runner) Run(ctx context.Context, in artifact.Input, opts RunOpts) (*Result, []StageOutcome, error) {
	start := r.clock.Now()
	st := &run{clock: r.clock, onStage: opts.OnStage}

	// Validating
	st.enter(StageValidation)
	vres := artifact.Validate(in, r.maxBytes)
	if !vres.Valid {
		st.record(StageValidation, false, 0, vres.Reason)
		return nil, st.outcomes, &Failure{
			Stage:   StageValidation,
			Message: vres.Reason,
			Detail: fmt.Sprintf("max_size_exceeded=%t unsupported_format=%t observed_bytes=%d observed_type=%q",
				vres.MaxSizeExceeded, vres.UnsupportedFormat, vres.ObservedBytes, vres.ObservedType),
		}
	}
	st.record(StageValidation, true, 0, "")

	// Transcribing
	transcript, err := runStage(ctx, st, StageTranscribe, r.deps.Transcribe, in.Data, "transcription failed")
	if err != nil {
		return nil, st.outcomes, err
	}

	// Generating
	reply, err := runStage(ctx, st, StageRespond, r.deps.Generate, transcript, "response generation failed")
	if err != nil {
		return nil, st.outcomes, err
	}

	// OutputChecking: both texts must be non-empty after trimming. No
	// external work happens here, so a failed check records duration 0.
	if strings.TrimSpace(transcript) == "" || strings.TrimSpace(reply) == "" {
		fail := &Failure{
			Stage:   StageAssembly,
			Message: "output validation failed",
			Detail:  fmt.Sprintf("transcript_empty=%t reply_empty=%t", strings.TrimSpace(transcript) == "", strings.TrimSpace(reply) == ""),
		}
		st.record(StageAssembly, false, 0, fail.Message)
		return nil, st.outcomes, fail
	}

	// Synthesizing
	audio, err := runStage(ctx, st, StageSynthesize, r.deps.Synthesize, reply, "speech synthesis failed")
	if err != nil {
		return nil, st.outcomes, err
	}

	// Assembling
	st.enter(StageAssembly)
	st.record(StageAssembly, true, 0, "")
	res := &Result{
		Audio:                 audio,
		Transcript:            transcript,
		Reply:                 reply,
		TranscriptLength:      len(transcript),
		EstimatedInputSeconds: float64(in.Size()) / bytesPerSecond,
		TotalDurationMs:       r.clock.Now().Sub(start).Milliseconds(),
		Outcomes:              st.outcomes,
	}
	return res, st.outcomes, nil
}

// runStage times one adapter call, records its outcome, and wraps any error
// into a Failure tagged with the active stage. A context already expired on
// entry is attributed to this stage, since it was the one in flight.
func runStage[In, Out any](ctx context.Context, st *run, stage Stage, fn AdapterFunc[In, Out], in In, failMsg string) (Out, error) {
	var zero Out

	st.enter(stage)
	if err := ctx.Err(); err != nil {
		fail := failf(stage, err, "run canceled")
		st.record(stage, false, 0, fail.Message)
		return zero, fail
	}

	stageStart := st.clock.Now()
	out, err := fn(ctx, in)
	durationMs := st.clock.Now().Sub(stageStart).Milliseconds()
	if err != nil {
		var fail *Failure
		if !errors.As(err, &fail) {
			fail = failf(stage, err, "%s", failMsg)
		}
		st.record(stage, false, durationMs, fail.Message)
		return zero, fail
	}

	st.record(stage, true, durationMs, "")
	return out, nil
}
