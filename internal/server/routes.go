package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /presets", h.Presets)
	mux.HandleFunc("GET /loudness", h.Loudness)
	mux.HandleFunc("GET /info", h.Info)
	mux.HandleFunc("POST /uploads", h.Upload)

	mux.HandleFunc("POST /tasks/trim", h.Trim)
	mux.HandleFunc("POST /tasks/cut", h.Cut)
	mux.HandleFunc("POST /tasks/composite", h.Composite)
	mux.HandleFunc("POST /tasks/watermark", h.Watermark)
	mux.HandleFunc("POST /tasks/snapshot", h.Snapshot)
	mux.HandleFunc("POST /tasks/convert", h.Convert)
	mux.HandleFunc("POST /tasks/volume", h.Volume)

	mux.HandleFunc("GET /tasks", h.ListTasks)
	mux.HandleFunc("GET /tasks/{id}", h.GetTask)
	mux.HandleFunc("POST /tasks/{id}/cancel", h.CancelTask)
	mux.HandleFunc("POST /cancel", h.CancelActive)

	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
