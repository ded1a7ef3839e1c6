package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/voicepipe/internal/config"
	"github.com/lucasnoah/voicepipe/internal/db"
	"github.com/lucasnoah/voicepipe/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voice pipeline HTTP API",
	Long: `Start the HTTP API on the configured port. POST /api/voice accepts a
multipart audio upload and returns synthesized speech plus per-stage timing;
GET /api/runs exposes run history from the event log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}

		database, err := openEventLog(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		asr, tts := providerClients(cfg)
		return web.NewServer(cfg, web.ProviderAdapters(asr, tts), database).Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to voicepipe.yaml")
}

// openEventLog opens and migrates the run-event database for a config.
func openEventLog(cfg *config.Config) (*db.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		var err error
		path, err = db.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("db path: %w", err)
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}
