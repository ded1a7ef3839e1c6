package config

import (
	"os"
	"time"

	"github.com/lucasnoah/voicepipe/internal/artifact"
)

// Config is the top-level configuration structure parsed from voicepipe YAML.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Limits LimitsConfig `yaml:"limits"`
	Retry  RetryConfig  `yaml:"retry"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Hume   HumeConfig   `yaml:"hume"`
	DB     DBConfig     `yaml:"db"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LimitsConfig bounds upload size and per-request wall-clock budget.
type LimitsConfig struct {
	MaxUploadMB    int    `yaml:"max_upload_mb"`
	RequestTimeout string `yaml:"request_timeout"`
}

// MaxUploadBytes converts the configured MiB limit to bytes.
func (l LimitsConfig) MaxUploadBytes() int64 {
	if l.MaxUploadMB <= 0 {
		return artifact.MaxUploadBytes
	}
	return int64(l.MaxUploadMB) << 20
}

// RequestTimeoutDuration parses the request timeout, defaulting to 2m.
func (l LimitsConfig) RequestTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(l.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return 2 * time.Minute
}

// RetryConfig controls the bounded-retry decorator applied to adapter calls.
// Attempts of 1 means a single attempt per call (no retry).
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
}

// OpenAIConfig configures the transcription and response-generation provider.
// The API key is read from the named environment variable, never from file.
type OpenAIConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	TranscribeModel string `yaml:"transcribe_model"`
	ChatModel       string `yaml:"chat_model"`
	SystemPrompt    string `yaml:"system_prompt"`
}

// APIKey reads the provider key from the configured environment variable.
func (c OpenAIConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// HumeConfig configures the speech-synthesis provider.
type HumeConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Voice     string `yaml:"voice"`
}

// APIKey reads the provider key from the configured environment variable.
func (c HumeConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// DBConfig locates the run-event log database.
type DBConfig struct {
	Path string `yaml:"path"`
}
