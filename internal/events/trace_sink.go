package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// TraceHeader is written as the first line of a trace file, grounded in
// the teacher's internal/agent.TraceHeader versioning pattern.
type TraceHeader struct {
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// JSONLSink writes each event as one JSON line, flushed immediately for
// crash safety, preceded by a TraceHeader. It is a durable debugging
// trace of a session's turns, independent of the in-memory clinical
// trace attached to the completion event.
type JSONLSink struct {
	mu      sync.Mutex
	w       io.Writer
	started bool
	header  TraceHeader
}

// NewJSONLSink builds a sink writing to w for the given session.
func NewJSONLSink(w io.Writer, sessionID string) *JSONLSink {
	return &JSONLSink{
		w: w,
		header: TraceHeader{
			Version:   1,
			SessionID: sessionID,
			StartedAt: time.Now(),
		},
	}
}

func (s *JSONLSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		if line, err := json.Marshal(s.header); err == nil {
			s.w.Write(append(line, '\n'))
		}
	}

	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	s.w.Write(append(line, '\n'))
}
