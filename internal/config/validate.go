package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, ValidationError{Field: "server.port", Message: fmt.Sprintf("port %d out of range", cfg.Server.Port)})
	}
	if cfg.Limits.MaxUploadMB < 1 {
		errs = append(errs, ValidationError{Field: "limits.max_upload_mb", Message: "must be at least 1"})
	}
	if cfg.Limits.RequestTimeout != "" {
		if _, err := time.ParseDuration(cfg.Limits.RequestTimeout); err != nil {
			errs = append(errs, ValidationError{Field: "limits.request_timeout", Message: fmt.Sprintf("invalid duration %q", cfg.Limits.RequestTimeout)})
		}
	}
	if cfg.Retry.Attempts < 1 {
		errs = append(errs, ValidationError{Field: "retry.attempts", Message: "must be at least 1"})
	}
	if cfg.Retry.Attempts > 5 {
		errs = append(errs, ValidationError{Field: "retry.attempts", Message: "more than 5 attempts per call is not supported"})
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		errs = append(errs, ValidationError{Field: "openai.api_key_env", Message: "is required"})
	}
	if cfg.Hume.APIKeyEnv == "" {
		errs = append(errs, ValidationError{Field: "hume.api_key_env", Message: "is required"})
	}

	return errs
}
