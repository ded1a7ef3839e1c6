package pipeline

import "fmt"

// Stage identifies one unit of work in the fixed pipeline sequence.
type Stage string

// The five stages, in execution order.
const (
	StageValidation Stage = "validation"
	StageTranscribe Stage = "transcription"
	StageRespond    Stage = "response_generation"
	StageSynthesize Stage = "synthesis"
	StageAssembly   Stage = "assembly"
)

// Stages is the fixed execution order of the pipeline.
var Stages = []Stage{
	StageValidation,
	StageTranscribe,
	StageRespond,
	StageSynthesize,
	StageAssembly,
}

// StageOutcome is the audit record of one attempted stage: appended exactly
// once per stage, in execution order, success or not.
type StageOutcome struct {
	Stage      Stage  `json:"stage"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Failure is a stage-tagged error that terminates a run. The stage always
// names the stage whose work raised it; it is never relabeled downstream.
type Failure struct {
	Stage   Stage
	Message string
	Detail  string
	Err     error
}

// Error formats the failure with its stage tag.
func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", f.Stage, f.Message, f.Detail)
	}
	return fmt.Sprintf("%s: %s", f.Stage, f.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// failf builds a stage-tagged failure wrapping err.
func failf(stage Stage, err error, format string, args ...any) *Failure {
	f := &Failure{
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
	if err != nil {
		f.Detail = err.Error()
	}
	return f
}

// Result is the product of a fully successful run. It is constructed only
// after all five stages report success and is owned by the caller.
type Result struct {
	Audio                 string         `json:"audio"`
	Transcript            string         `json:"transcript"`
	Reply                 string         `json:"reply"`
	TranscriptLength      int            `json:"transcript_length"`
	EstimatedInputSeconds float64        `json:"estimated_input_seconds"`
	TotalDurationMs       int64          `json:"total_duration_ms"`
	Outcomes              []StageOutcome `json:"pipeline_stages"`
}
