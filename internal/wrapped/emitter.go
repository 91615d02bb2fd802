package wrapped

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Emitter writes pipeline events to an SSE sink. Every event is written
// as a single `data: <json>` record and flushed immediately so the client
// observes events as they happen rather than at connection close.
type Emitter struct {
	w io.Writer
	f http.Flusher
}

// NewEmitter wraps a sink. If the writer supports http.Flusher (a real
// ResponseWriter does), each event is flushed after it is written.
func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.f = f
	}
	return e
}

// Emit marshals the event and writes one SSE record. A write error means
// the client went away; callers must stop emitting and abandon the run.
func (e *Emitter) Emit(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("client write failed: %w", err)
	}
	if e.f != nil {
		e.f.Flush()
	}
	return nil
}
