package log

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Sink receives finished log entries. Implementations must be safe for
// concurrent use through the owning Logger.
type Sink interface {
	Write(e Entry) error
	Close() error
}

// Entry is a single structured log record.
type Entry struct {
	Time      time.Time
	Level     Level
	Message   string
	RequestID string
	Fields    map[string]any
}

// MarshalJSON flattens fields into the root object. The request id is
// omitted when empty.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+4)
	for k, v := range e.Fields {
		m[k] = v
	}
	m["time"] = e.Time.UTC().Format(time.RFC3339)
	m["level"] = e.Level.String()
	m["msg"] = e.Message
	if e.RequestID != "" {
		m["request_id"] = e.RequestID
	}
	return json.Marshal(m)
}

// JSONSink writes one JSON object per line to an io.Writer.
type JSONSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONSink creates a sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

// NewStdoutSink creates a sink writing to os.Stdout.
func NewStdoutSink() *JSONSink {
	return NewJSONSink(os.Stdout)
}

// Write serializes the entry and appends a newline.
func (s *JSONSink) Write(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	_, err = s.w.Write([]byte{'\n'})
	return err
}

// Close is a no-op; the sink does not own its writer.
func (s *JSONSink) Close() error { return nil }
