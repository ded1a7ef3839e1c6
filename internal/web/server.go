package web

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucasnoah/voicepipe/internal/config"
	"github.com/lucasnoah/voicepipe/internal/db"
	"github.com/lucasnoah/voicepipe/internal/providers/hume"
	"github.com/lucasnoah/voicepipe/internal/providers/openai"
)

// Adapters groups the three provider calls the pipeline depends on. The
// indirection lets tests drive the server with fakes.
type Adapters struct {
	Transcribe func(ctx context.Context, audio []byte, filename string) (string, error)
	Generate   func(ctx context.Context, transcript string) (string, error)
	Synthesize func(ctx context.Context, text string) (string, error)
}

// ProviderAdapters wires the real provider clients into an Adapters set.
func ProviderAdapters(asr *openai.Client, tts *hume.Client) Adapters {
	return Adapters{
		Transcribe: asr.Transcribe,
		Generate:   asr.Respond,
		Synthesize: tts.Synthesize,
	}
}

// Server is the HTTP front door: it parses uploads, runs one pipeline per
// request, and renders results or diagnostic records as JSON.
type Server struct {
	cfg      *config.Config
	adapters Adapters
	events   *db.DB
	router   *gin.Engine
}

// NewServer creates a Server with registered routes. events may be nil, in
// which case run history is not recorded.
func NewServer(cfg *config.Config, adapters Adapters, events *db.DB) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:      cfg,
		adapters: adapters,
		events:   events,
	}

	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())
	router.GET("/healthz", s.handleHealthz)
	api := router.Group("/api")
	api.POST("/voice", s.handleVoice)
	api.GET("/runs", s.handleRuns)
	api.GET("/runs/:id/stages", s.handleRunStages)

	s.router = router
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	log.Printf("voicepipe API: http://localhost%s", addr)
	return s.router.Run(addr)
}

// corsMiddleware allows browser clients to call the API from any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
