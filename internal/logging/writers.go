package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// ConsoleWriter renders events as plain, human-readable lines ("time
// level [service] eventType: message"), with no ANSI color codes.
type ConsoleWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleWriter creates a ConsoleWriter writing to out.
func NewConsoleWriter(out io.Writer) *ConsoleWriter {
	return &ConsoleWriter{out: out}
}

func (c *ConsoleWriter) Write(evt LogEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	service := evt.Service
	if service == "" {
		service = "-"
	}
	fmt.Fprintf(c.out, "%s %-5s [%s] %s: %s\n",
		formatTimestamp(evt.Time), evt.Level, service, evt.EventType, evt.Message)
}

// JSONWriter renders each event as one line of JSON.
type JSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

type jsonLogLine struct {
	Time      string            `json:"time"`
	Level     string            `json:"level"`
	Service   string            `json:"service,omitempty"`
	EventType string            `json:"event_type"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// NewJSONWriter creates a JSONWriter writing one JSON object per line to out.
func NewJSONWriter(out io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(out)}
}

func (j *JSONWriter) Write(evt LogEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	// A marshal failure here has no reasonable recovery and no second
	// logger to report it to; best-effort and move on.
	_ = j.enc.Encode(jsonLogLine{
		Time:      formatTimestamp(evt.Time),
		Level:     evt.Level.String(),
		Service:   evt.Service,
		EventType: evt.EventType,
		Message:   evt.Message,
		Meta:      evt.Meta,
	})
}

// RotatingFileWriter renders events as plain lines to a FileSink, giving
// the daemon-level log itself the same rotation behavior as a per-service
// stdout/stderr sink.
type RotatingFileWriter struct {
	sink *FileSink
}

// NewRotatingFileWriter opens path as a rotating plain-text log writer.
func NewRotatingFileWriter(path string, rotateSize int64, timestampSuffix bool) (*RotatingFileWriter, error) {
	sink, err := NewFileSink(path, rotateSize, timestampSuffix)
	if err != nil {
		return nil, err
	}
	return &RotatingFileWriter{sink: sink}, nil
}

func (r *RotatingFileWriter) Write(evt LogEvent) {
	service := evt.Service
	if service == "" {
		service = "-"
	}
	line := fmt.Sprintf("%s %-5s [%s] %s: %s\n",
		formatTimestamp(evt.Time), evt.Level, service, evt.EventType, evt.Message)
	_, _ = r.sink.Write([]byte(line))
}

// Close closes the underlying file.
func (r *RotatingFileWriter) Close() error {
	return r.sink.Close()
}
