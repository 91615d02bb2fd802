// Package wrapped contains the streaming report pipeline: prompt
// construction, the progress event protocol, structured-result recovery,
// and the orchestrator that sequences the remote analysis phases.
package wrapped

// ProgressEvent tells the client what the pipeline is currently doing.
// Step is monotonic within a run; Month is only set by pipelines that
// walk the year month by month.
type ProgressEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Month   string `json:"month,omitempty"`
}

// AnalysisChunk carries one text delta from the analysis phase. The
// concatenation of all chunks in emission order is the phase's full raw
// output.
type AnalysisChunk struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// CompletionEvent is the terminal success event. Data always has every
// schema field populated, either model-produced or defaulted.
type CompletionEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ErrorEvent is the terminal failure event. No further events follow it.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// totalSteps is the step budget announced to the client: the analysis
// phase and the format phase.
const totalSteps = 2

func progress(message string, step int) ProgressEvent {
	return ProgressEvent{Type: "progress", Message: message, Step: step, Total: totalSteps}
}

func chunk(content string) AnalysisChunk {
	return AnalysisChunk{Type: "analysis_chunk", Content: content}
}

func complete(data map[string]any) CompletionEvent {
	return CompletionEvent{Type: "complete", Data: data}
}

func errEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Error: message}
}
