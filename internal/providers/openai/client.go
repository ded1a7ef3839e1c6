package openai

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds client settings. APIKey is required for real calls.
type Config struct {
	BaseURL         string
	APIKey          string
	TranscribeModel string
	ChatModel       string
	SystemPrompt    string
	Timeout         time.Duration
}

// Client calls the OpenAI transcription and chat-completion endpoints. It
// never lets a transport error escape unwrapped: every failure mode becomes
// a single descriptive error.
type Client struct {
	baseURL         string
	apiKey          string
	transcribeModel string
	chatModel       string
	systemPrompt    string
	httpClient      *http.Client
}

// NewClient creates a Client, applying defaults for unset fields.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = "whisper-1"
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:         baseURL,
		apiKey:          cfg.APIKey,
		transcribeModel: transcribeModel,
		chatModel:       chatModel,
		systemPrompt:    systemPrompt,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// defaultSystemPrompt is the fixed instruction sent with every transcript.
const defaultSystemPrompt = "You are a helpful voice assistant. Reply briefly and conversationally; your answer will be read aloud."

// readBody drains a response body, truncated for error messages.
func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
