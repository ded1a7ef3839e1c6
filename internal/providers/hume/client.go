package hume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the Hume API root.
const DefaultBaseURL = "https://api.hume.ai"

// Config holds client settings. APIKey is required for real calls.
type Config struct {
	BaseURL string
	APIKey  string
	// Voice is an optional natural-language voice description applied to
	// every utterance.
	Voice   string
	Timeout time.Duration
}

// Client calls the Hume text-to-speech endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	voice      string
	httpClient *http.Client
}

// NewClient creates a Client, applying defaults for unset fields.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		voice:      cfg.Voice,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// utterance is one piece of text to synthesize.
type utterance struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
}

// Synthesize converts text to speech and returns the base64-encoded audio of
// the first generation. A non-success status surfaces the provider's status
// code and body text; a response with zero generations or a missing audio
// field is rejected.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	payload := struct {
		Utterances []utterance `json:"utterances"`
	}{
		Utterances: []utterance{{Text: text, Description: c.voice}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("build tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v0/tts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("X-Hume-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("tts request failed: status %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var parsed struct {
		Generations []struct {
			Audio string `json:"audio"`
		} `json:"generations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse tts response: %w", err)
	}
	if len(parsed.Generations) == 0 {
		return "", fmt.Errorf("tts response contained no generations")
	}
	if parsed.Generations[0].Audio == "" {
		return "", fmt.Errorf("tts response generation missing audio field")
	}
	return parsed.Generations[0].Audio, nil
}

// readBody drains a response body, truncated for error messages.
func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
