package logging

import "time"

// MultiLogger fans every LogEvent out to N writers, filtering first
// against a minimum level shared across all of them.
type MultiLogger struct {
	minLevel Level
	writers  []Writer
}

// NewMultiLogger creates a Logger emitting to writers, dropping events
// below minLevel before they reach any writer.
func NewMultiLogger(minLevel Level, writers ...Writer) *MultiLogger {
	return &MultiLogger{minLevel: minLevel, writers: writers}
}

func (m *MultiLogger) Debug(service, eventType, message string, meta map[string]string) {
	m.emit(LevelDebug, service, eventType, message, meta)
}

func (m *MultiLogger) Info(service, eventType, message string, meta map[string]string) {
	m.emit(LevelInfo, service, eventType, message, meta)
}

func (m *MultiLogger) Warn(service, eventType, message string, meta map[string]string) {
	m.emit(LevelWarn, service, eventType, message, meta)
}

func (m *MultiLogger) Error(service, eventType, message string, meta map[string]string) {
	m.emit(LevelError, service, eventType, message, meta)
}

func (m *MultiLogger) emit(level Level, service, eventType, message string, meta map[string]string) {
	m.Log(LogEvent{
		Level:     level,
		Service:   service,
		EventType: eventType,
		Message:   message,
		Meta:      meta,
	})
}

// Log dispatches evt to every writer once it clears minLevel, stamping
// Time if the caller left it zero.
func (m *MultiLogger) Log(evt LogEvent) {
	if evt.Level < m.minLevel {
		return
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	for _, w := range m.writers {
		w.Write(evt)
	}
}
