package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lucasnoah/voicepipe/internal/artifact"
	"github.com/lucasnoah/voicepipe/internal/db"
	"github.com/lucasnoah/voicepipe/internal/pipeline"
	"github.com/lucasnoah/voicepipe/internal/report"
)

// voiceResponse is the success body for one pipeline run.
type voiceResponse struct {
	RunID string `json:"run_id"`
	*pipeline.Result
}

// handleVoice accepts a multipart audio upload and drives it through the
// pipeline. Failures render a diagnostic record with the status class of the
// failing stage: validation 400, any other stage 422, unclassified 500.
func (s *Server) handleVoice(c *gin.Context) {
	in, ok := s.readUpload(c)
	if !ok {
		return
	}

	runner := pipeline.NewRunner(pipeline.Dependencies{
		Transcribe: func(ctx context.Context, audio []byte) (string, error) {
			return s.adapters.Transcribe(ctx, audio, in.Name)
		},
		Generate:   s.adapters.Generate,
		Synthesize: s.adapters.Synthesize,
	}, pipeline.Options{
		MaxUploadBytes: s.cfg.Limits.MaxUploadBytes(),
		RetryAttempts:  s.cfg.Retry.Attempts,
	})

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.Limits.RequestTimeoutDuration())
	defer cancel()

	// Track the stage in flight so a request timeout is attributed to it.
	active := pipeline.StageValidation
	runID := uuid.NewString()
	result, outcomes, err := runner.Run(ctx, in, pipeline.RunOpts{
		OnStage: func(stage pipeline.Stage) { active = stage },
	})

	if err != nil {
		rec := report.New(err, active)
		s.recordRun(runID, in, nil, outcomes, rec)
		c.JSON(statusFor(err), rec)
		return
	}

	s.recordRun(runID, in, result, outcomes, report.Record{})
	c.JSON(http.StatusOK, voiceResponse{RunID: runID, Result: result})
}

// readUpload extracts the audio artifact from the multipart form. The body
// read is capped just past the configured maximum; the header's declared
// size is carried separately so the validator reports the true upload size.
func (s *Server) readUpload(c *gin.Context) (artifact.Input, bool) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		file, header, err = c.Request.FormFile("file")
	}
	if err != nil {
		rec := report.New(errors.New("no audio file in request"), pipeline.StageValidation)
		c.JSON(http.StatusBadRequest, rec)
		return artifact.Input{}, false
	}
	defer file.Close()

	maxBytes := s.cfg.Limits.MaxUploadBytes()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		rec := report.New(err, pipeline.StageValidation)
		c.JSON(http.StatusBadRequest, rec)
		return artifact.Input{}, false
	}

	return artifact.Input{
		Name:          header.Filename,
		MediaType:     header.Header.Get("Content-Type"),
		Data:          data,
		DeclaredBytes: header.Size,
	}, true
}

// recordRun persists the run and its stage outcomes. Best-effort: the event
// log never fails a request.
func (s *Server) recordRun(runID string, in artifact.Input, result *pipeline.Result, outcomes []pipeline.StageOutcome, rec report.Record) {
	if s.events == nil {
		return
	}

	run := db.Run{
		ID:            runID,
		Status:        "completed",
		ArtifactName:  in.Name,
		ArtifactBytes: in.Size(),
	}
	if result != nil {
		run.TranscriptLen = result.TranscriptLength
		run.DurationMs = result.TotalDurationMs
	} else {
		run.Status = "failed"
		run.FailedStage = rec.Stage
		run.Error = rec.Error
	}

	_ = s.events.LogRun(run)
	_ = s.events.LogStageOutcomes(runID, outcomes)
}

// statusFor maps a pipeline error to an HTTP status class.
func statusFor(err error) int {
	var fail *pipeline.Failure
	if errors.As(err, &fail) {
		if fail.Stage == pipeline.StageValidation {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// handleRuns lists recent pipeline runs from the event log.
func (s *Server) handleRuns(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []db.Run{}})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := s.events.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// handleRunStages returns the stage outcome sequence for one run.
func (s *Server) handleRunStages(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusOK, gin.H{"stages": []db.StageEvent{}})
		return
	}
	stages, err := s.events.RunStages(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if stages == nil {
		stages = []db.StageEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// handleHealthz reports liveness and whether provider keys are present.
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"openai_key_present": s.cfg.OpenAI.APIKey() != "",
		"hume_key_present":   s.cfg.Hume.APIKey() != "",
	})
}
