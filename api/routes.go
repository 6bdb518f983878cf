package api

import (
	"log/slog"
	"net/http"
)

// RegisterRoutes attaches the handler's endpoints to mux.
func RegisterRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /match/", handler.HandleMatch)
	mux.HandleFunc("GET /health", handler.HandleHealth)
}

// NewRouter returns the complete HTTP surface for matcher, with request IDs.
func NewRouter(matcher Matcher, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHandler(matcher, logger))
	return withRequestID(logger.With("component", "http"), mux)
}
