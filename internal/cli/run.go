package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/voicepipe/internal/artifact"
	"github.com/lucasnoah/voicepipe/internal/config"
	"github.com/lucasnoah/voicepipe/internal/db"
	"github.com/lucasnoah/voicepipe/internal/pipeline"
	"github.com/lucasnoah/voicepipe/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run <audio-file>",
	Short: "Run one audio file through the pipeline",
	Long: `Run a single audio file through validation, transcription, response
generation, speech synthesis, and assembly, printing the result as JSON.
Requires the provider API keys in the environment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read audio file: %w", err)
		}
		in := artifact.Input{Name: filepath.Base(args[0]), Data: data}

		asr, tts := providerClients(cfg)
		runner := pipeline.NewRunner(pipeline.Dependencies{
			Transcribe: func(ctx context.Context, audio []byte) (string, error) {
				return asr.Transcribe(ctx, audio, in.Name)
			},
			Generate:   asr.Respond,
			Synthesize: tts.Synthesize,
		}, pipeline.Options{
			MaxUploadBytes: cfg.Limits.MaxUploadBytes(),
			RetryAttempts:  cfg.Retry.Attempts,
		})

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Limits.RequestTimeoutDuration())
		defer cancel()

		quiet, _ := cmd.Flags().GetBool("quiet")
		active := pipeline.StageValidation
		result, outcomes, runErr := runner.Run(ctx, in, pipeline.RunOpts{
			OnStage: func(stage pipeline.Stage) {
				active = stage
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "  → %s\n", stage)
				}
			},
		})

		runID := uuid.NewString()
		logRun(cfg, runID, in, result, outcomes, runErr)

		if runErr != nil {
			rec := report.New(runErr, active)
			out, _ := json.MarshalIndent(rec, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return fmt.Errorf("pipeline failed at %s", rec.Stage)
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	runCmd.Flags().String("config", "", "Path to voicepipe.yaml")
	runCmd.Flags().Bool("quiet", false, "Suppress stage progress output")
}

// logRun records a CLI-invoked run in the event log. Best-effort.
func logRun(cfg *config.Config, runID string, in artifact.Input, result *pipeline.Result, outcomes []pipeline.StageOutcome, runErr error) {
	database, err := openEventLog(cfg)
	if err != nil {
		return
	}
	defer database.Close()

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
		var fail *pipeline.Failure
		if errors.As(runErr, &fail) {
			run.FailedStage = string(fail.Stage)
			run.Error = fail.Message
		} else if runErr != nil {
			run.Error = runErr.Error()
		}
	}
	_ = database.LogRun(run)
	_ = database.LogStageOutcomes(runID, outcomes)
}
