package cli

import (
	"github.com/spf13/cobra"

	"github.com/lucasnoah/voicepipe/internal/config"
	"github.com/lucasnoah/voicepipe/internal/providers/hume"
	"github.com/lucasnoah/voicepipe/internal/providers/openai"
)

// loadConfig loads the config named by --config, or the default search path.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// providerClients builds the real provider clients for a config.
func providerClients(cfg *config.Config) (*openai.Client, *hume.Client) {
	asr := openai.NewClient(openai.Config{
		BaseURL:         cfg.OpenAI.BaseURL,
		APIKey:          cfg.OpenAI.APIKey(),
		TranscribeModel: cfg.OpenAI.TranscribeModel,
		ChatModel:       cfg.OpenAI.ChatModel,
		SystemPrompt:    cfg.OpenAI.SystemPrompt,
	})
	tts := hume.NewClient(hume.Config{
		BaseURL: cfg.Hume.BaseURL,
		APIKey:  cfg.Hume.APIKey(),
		Voice:   cfg.Hume.Voice,
	})
	return asr, tts
}
