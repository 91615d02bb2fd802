// Package wrappedapi is the HTTP frontdoor for the wrapped report
// pipeline: request validation, SSE setup, and the liveness and archive
// read endpoints.
package wrappedapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/x-wrapped/internal/config"
	xaiprovider "github.com/tjfontaine/x-wrapped/internal/provider/xai"
	"github.com/tjfontaine/x-wrapped/internal/server"
	"github.com/tjfontaine/x-wrapped/internal/storage"
	"github.com/tjfontaine/x-wrapped/internal/tokens"
	"github.com/tjfontaine/x-wrapped/internal/wrapped"
)

// ClientFactory builds an analysis client for one request. Factored out
// so tests can substitute a deterministic double.
type ClientFactory func(apiKey string) wrapped.AnalysisClient

// Handler serves the wrapped API routes.
type Handler struct {
	cfg       *config.Config
	logger    *slog.Logger
	schema    *wrapped.ReportSchema
	archive   storage.RunStore
	estimator *tokens.Estimator
	newClient ClientFactory
}

// HandlerOption configures the handler.
type HandlerOption func(*Handler)

// WithArchive enables run archiving and the recent-runs endpoint.
func WithArchive(store storage.RunStore) HandlerOption {
	return func(h *Handler) { h.archive = store }
}

// WithTokenEstimator enables prompt token logging.
func WithTokenEstimator(est *tokens.Estimator) HandlerOption {
	return func(h *Handler) { h.estimator = est }
}

// WithClientFactory replaces the default xAI client factory.
func WithClientFactory(factory ClientFactory) HandlerOption {
	return func(h *Handler) { h.newClient = factory }
}

// NewHandler creates the frontdoor handler. The report schema comes from
// configuration; an unknown name is a startup error.
func NewHandler(cfg *config.Config, logger *slog.Logger, opts ...HandlerOption) (*Handler, error) {
	schema, err := wrapped.SchemaByName(cfg.Report.Schema)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		cfg:    cfg,
		logger: logger,
		schema: schema,
	}
	h.newClient = func(apiKey string) wrapped.AnalysisClient {
		return xaiprovider.New(apiKey,
			xaiprovider.WithBaseURL(cfg.XAI.BaseURL),
			xaiprovider.WithModel(cfg.XAI.Model),
		)
	}

	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the API routes. OPTIONS preflight is answered by the
// CORS middleware in the server package.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api", h.HandleHealth)
	r.Get("/api/wrapped/stream", h.HandleHealth)
	r.Post("/api/wrapped/stream", h.HandleStream)
	r.Get("/api/wrapped/recent", h.HandleRecent)
}

type streamRequest struct {
	Username string `json:"username"`
	Year     int    `json:"year,omitempty"`
}

// HandleStream runs one report pipeline over an SSE response.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	username := wrapped.NormalizeUsername(req.Username)
	if username == "" {
		// Validation failures never reach the orchestrator: plain 400,
		// no stream.
		writeJSONError(w, http.StatusBadRequest, "Username is required")
		return
	}
	server.AddLogField(r.Context(), "username", username)

	if _, ok := w.(http.Flusher); !ok {
		writeJSONError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	em := wrapped.NewEmitter(w)

	// The credential is read per request; its absence is a terminal
	// error event on the already-open stream, never a crash.
	apiKey := h.cfg.ResolveAPIKey()
	if apiKey == "" {
		_ = em.Emit(wrapped.ErrorEvent{Type: "error", Error: "XAI_API_KEY environment variable is not set"})
		return
	}

	ctx := r.Context()
	if timeout := h.cfg.RunTimeout(); timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var orchOpts []wrapped.Option
	orchOpts = append(orchOpts, wrapped.WithLogger(h.logger))
	if h.archive != nil {
		orchOpts = append(orchOpts, wrapped.WithArchive(h.archive))
	}
	if h.estimator != nil {
		orchOpts = append(orchOpts, wrapped.WithTokenEstimator(h.estimator, h.cfg.XAI.Model))
	}

	orch := wrapped.New(h.newClient(apiKey), h.schema, orchOpts...)
	if err := orch.Run(ctx, em, username, req.Year); err != nil {
		server.AddError(r.Context(), err)
	}
}

// HandleHealth is the liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "X Wrapped API - Use POST to generate wrapped",
	})
}

// runSummary is the archive row shape served by HandleRecent; full
// report bodies stay in the archive.
type runSummary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Year      int       `json:"year"`
	Schema    string    `json:"schema"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleRecent lists the most recently archived runs.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.archive == nil {
		json.NewEncoder(w).Encode(map[string]any{"runs": []runSummary{}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.archive.RecentRuns(r.Context(), limit)
	if err != nil {
		server.AddError(r.Context(), err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runSummary{
			ID:        run.ID,
			Username:  run.Username,
			Year:      run.Year,
			Schema:    run.Schema,
			Status:    run.Status,
			Error:     run.Error,
			CreatedAt: run.CreatedAt,
		})
	}
	json.NewEncoder(w).Encode(map[string]any{"runs": summaries})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
