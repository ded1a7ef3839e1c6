package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "voicepipe",
	Short: "Voice assistant pipeline server",
	Long: `voicepipe drives audio through a five-stage pipeline: validation,
transcription, response generation, speech synthesis, and assembly.

Run it as an HTTP service (voicepipe serve) or one-shot from the command
line (voicepipe run). Run history is stored in ~/.voicepipe/ (SQLite).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
