// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poiesic/rostermatch/core"
)

// DefaultTopN is used when a request omits top_n.
const DefaultTopN = 5

// Matcher is the subset of rostermatch.Matcher the handler needs.
type Matcher interface {
	Match(ctx context.Context, query string, topN int) ([]core.Match, error)
	Ready() bool
	Dataset() *core.Dataset
}

// MatchRequest is the body of POST /match/.
type MatchRequest struct {
	Query string `json:"query"`
	TopN  *int   `json:"top_n,omitempty"`
}

// HealthResponse is the body of GET /health. Records is set once the
// matcher is ready, including when the roster is empty.
type HealthResponse struct {
	Status  string `json:"status"`
	Records *int   `json:"records,omitempty"`
}

// Handler serves the matching endpoints.
type Handler struct {
	matcher Matcher
	logger  *slog.Logger
}

// NewHandler creates a handler backed by matcher.
func NewHandler(matcher Matcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		matcher: matcher,
		logger:  logger.With("component", "api"),
	}
}

// HandleMatch serves POST /match/.
func (h *Handler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := RequestID(ctx)

	var req MatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("JSON decode error", "reqid", reqID, "err", err)
		HandleError(w, err)
		return
	}

	topN := DefaultTopN
	if req.TopN != nil {
		topN = *req.TopN
	}
	if topN < 0 {
		HandleError(w, &HTTPError{Code: http.StatusBadRequest, Message: msgNegativeTopN})
		return
	}

	matches, err := h.matcher.Match(ctx, req.Query, topN)
	if err != nil {
		code, _ := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("match failed", "reqid", reqID, "err", err)
		} else {
			h.logger.Debug("match rejected", "reqid", reqID, "err", err)
		}
		HandleError(w, err)
		return
	}

	h.logger.Debug("matched", "reqid", reqID, "query", req.Query, "top_n", topN, "results", len(matches))
	if err := JSONResponse(w, http.StatusOK, matches); err != nil {
		h.logger.Error("error sending response", "reqid", reqID, "err", err)
	}
}

// HandleHealth serves GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !h.matcher.Ready() {
		JSONResponse(w, http.StatusServiceUnavailable, HealthResponse{Status: "initializing"})
		return
	}
	records := 0
	if ds := h.matcher.Dataset(); ds != nil {
		records = len(ds.Records)
	}
	JSONResponse(w, http.StatusOK, HealthResponse{Status: "ok", Records: &records})
}
