package wrapped

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/x-wrapped/internal/storage"
	"github.com/tjfontaine/x-wrapped/internal/tokens"
)

// ErrNoAnalysis is the empty-output failure: phase 1 finished without
// producing any text. Distinct from a remote-call error.
var ErrNoAnalysis = errors.New("no analysis data was generated")

// Orchestrator runs one report pipeline per request: a streamed agentic
// analysis phase followed by a silent structured format phase. It owns no
// state beyond a single run.
type Orchestrator struct {
	client    AnalysisClient
	schema    *ReportSchema
	logger    *slog.Logger
	archive   storage.RunStore
	estimator *tokens.Estimator
	model     string
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithArchive enables best-effort run archiving.
func WithArchive(store storage.RunStore) Option {
	return func(o *Orchestrator) { o.archive = store }
}

// WithTokenEstimator enables prompt token estimation logging for the
// given model name.
func WithTokenEstimator(est *tokens.Estimator, model string) Option {
	return func(o *Orchestrator) {
		o.estimator = est
		o.model = model
	}
}

// New creates an orchestrator for the given client and report schema.
func New(client AnalysisClient, schema *ReportSchema, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		schema: schema,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives one request end to end, emitting events on em. The username
// must already be normalized. Run never panics across this boundary: the
// client sees exactly one terminal event (complete or error), except on
// disconnect where the run is abandoned silently.
//
// The returned error is for logging only; it is nil on success and on
// silent cancellation.
func (o *Orchestrator) Run(ctx context.Context, em *Emitter, username string, year int) error {
	start := time.Now()
	rotator := newMessageRotator()

	// Cancelling on return releases the client's stream goroutines when a
	// run is abandoned mid-stream without draining the event channel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracer := otel.Tracer("x-wrapped")
	ctx, span := tracer.Start(ctx, "wrapped.run", trace.WithAttributes(
		attribute.String("wrapped.username", username),
		attribute.String("wrapped.schema", o.schema.Name),
	))
	defer span.End()

	if err := em.Emit(progress(fmt.Sprintf("🚀 Firing up Grok for @%s...", username), 0)); err != nil {
		o.logger.Debug("client disconnected before first event", slog.String("username", username))
		return nil
	}

	// Phase 1: agentic analysis with tools, streamed through as it
	// arrives.
	prompt := AnalysisPrompt(username, year)
	o.logPromptTokens("analysis", prompt)

	analysisCtx, analysisSpan := tracer.Start(ctx, "wrapped.analysis")
	events, err := o.client.StreamAnalysis(analysisCtx, prompt)
	if err != nil {
		analysisSpan.End()
		return o.fail(ctx, em, username, year, start, 0, err)
	}

	var (
		raw       strings.Builder
		citations []string
		chunks    int
	)
	for event := range events {
		if event.Err != nil {
			analysisSpan.End()
			return o.fail(ctx, em, username, year, start, chunks, event.Err)
		}
		if event.ToolName != "" {
			if err := em.Emit(progress(rotator.Next(event.ToolName), 1)); err != nil {
				analysisSpan.End()
				return o.abandon(ctx, username, err)
			}
		}
		if event.ContentDelta != "" {
			raw.WriteString(event.ContentDelta)
			chunks++
			if err := em.Emit(chunk(event.ContentDelta)); err != nil {
				analysisSpan.End()
				return o.abandon(ctx, username, err)
			}
		}
		if len(event.Citations) > 0 {
			citations = event.Citations
		}
	}
	analysisSpan.End()

	if err := ctx.Err(); err != nil {
		return o.fail(ctx, em, username, year, start, chunks, err)
	}
	if raw.Len() == 0 {
		return o.fail(ctx, em, username, year, start, chunks, ErrNoAnalysis)
	}

	// Phase 2: silent structured format pass. No tools, no chunk events;
	// just one progress line while the client waits.
	if err := em.Emit(progress("✨ Generating your wrapped...", 2)); err != nil {
		return o.abandon(ctx, username, err)
	}

	formatPrompt := FormatPrompt(username, year, raw.String(), o.schema)
	o.logPromptTokens("format", formatPrompt)

	formatCtx, formatSpan := tracer.Start(ctx, "wrapped.format")
	report, err := o.client.ParseStructured(formatCtx, formatPrompt, o.schema)
	formatSpan.End()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return o.fail(ctx, em, username, year, start, chunks, ctxErr)
		}
		// Structured parsing is best-effort enrichment: never surface
		// its failure, recover from the phase-1 text instead.
		o.logger.Warn("structured parse failed, recovering from raw text",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		report = Recover(raw.String(), o.schema, citations)
	} else {
		if citations == nil {
			citations = []string{}
		}
		report["citations"] = citations
	}

	if err := em.Emit(complete(report)); err != nil {
		return o.abandon(ctx, username, err)
	}

	o.record(ctx, &storage.Run{
		ID:         uuid.New().String(),
		Username:   username,
		Year:       yearOrCurrent(year),
		Schema:     o.schema.Name,
		Status:     storage.StatusComplete,
		Chunks:     chunks,
		DurationMS: time.Since(start).Milliseconds(),
		Report:     marshalReport(report),
		Citations:  citations,
	})

	o.logger.Info("wrapped run complete",
		slog.String("username", username),
		slog.Int("chunks", chunks),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// fail emits the terminal error event and archives the failed run. A
// cancelled context means the client went away; that is a silent
// abandonment, not an error.
func (o *Orchestrator) fail(ctx context.Context, em *Emitter, username string, year int, start time.Time, chunks int, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return o.abandon(ctx, username, cause)
	}

	message := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		message = "request timed out"
	}

	o.logger.Error("wrapped run failed",
		slog.String("username", username),
		slog.String("error", cause.Error()),
	)

	// Best effort: the sink may already be gone.
	_ = em.Emit(errEvent(message))

	o.record(ctx, &storage.Run{
		ID:         uuid.New().String(),
		Username:   username,
		Year:       yearOrCurrent(year),
		Schema:     o.schema.Name,
		Status:     storage.StatusError,
		Error:      message,
		Chunks:     chunks,
		DurationMS: time.Since(start).Milliseconds(),
	})
	return cause
}

// abandon handles a broken sink: stop everything, emit nothing further.
func (o *Orchestrator) abandon(ctx context.Context, username string, cause error) error {
	o.logger.Info("client disconnected during stream",
		slog.String("username", username),
		slog.String("cause", cause.Error()),
	)
	return nil
}

// record archives a terminal run. Archive failures are logged and
// swallowed; they never affect the stream, which has already terminated.
func (o *Orchestrator) record(ctx context.Context, run *storage.Run) {
	if o.archive == nil {
		return
	}
	// The request context may already be cancelled or past its deadline.
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.archive.RecordRun(archiveCtx, run); err != nil {
		o.logger.Warn("failed to archive run",
			slog.String("username", run.Username),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) logPromptTokens(phase, prompt string) {
	if o.estimator == nil {
		return
	}
	count, err := o.estimator.Count(o.model, prompt)
	if err != nil {
		o.logger.Debug("token estimation failed", slog.String("error", err.Error()))
		return
	}
	o.logger.Info("dispatching phase",
		slog.String("phase", phase),
		slog.Int("prompt_tokens_est", count),
	)
}

func marshalReport(report map[string]any) json.RawMessage {
	data, err := json.Marshal(report)
	if err != nil {
		return nil
	}
	return data
}
