package wrapped

import "context"

// StreamEvent is one item from the analysis stream. A single event
// carries a tool-invocation notice, a text delta, citations from the
// final aggregate, or a stream error.
type StreamEvent struct {
	// ToolName is set when the model invoked a tool.
	ToolName string

	// ContentDelta is an incremental piece of the model's text output.
	ContentDelta string

	// Citations is set on the final event of the stream.
	Citations []string

	// Err terminates the stream when set.
	Err error
}

// AnalysisClient is the consumed contract of the remote model provider.
// Streaming with tools and schema-constrained parsing are mutually
// exclusive capabilities: ParseStructured has no tools available.
type AnalysisClient interface {
	// StreamAnalysis runs the prompt with the provider's search and code
	// tools enabled and yields incremental output. The channel closes
	// after the final aggregate event.
	StreamAnalysis(ctx context.Context, prompt string) (<-chan StreamEvent, error)

	// ParseStructured runs the prompt with output constrained to the
	// schema and blocks until the object resolves or the call fails.
	ParseStructured(ctx context.Context, prompt string, schema *ReportSchema) (map[string]any, error)
}
