package logging

import "time"

// LogEvent is one structured observation made by the supervisor itself —
// a state transition, a spawn, a signal delivered, a probe result. It is
// distinct from anything written to a service's stdout/stderr sink.
type LogEvent struct {
	Level     Level
	Service   string // empty for engine-wide events
	EventType string
	Message   string
	Meta      map[string]string
	Time      time.Time
}

// Logger is the port every component logs through. Debug/Info/Warn/Error
// are convenience constructors around Log.
type Logger interface {
	Debug(service, eventType, message string, meta map[string]string)
	Info(service, eventType, message string, meta map[string]string)
	Warn(service, eventType, message string, meta map[string]string)
	Error(service, eventType, message string, meta map[string]string)
	Log(evt LogEvent)
}

// Writer receives each LogEvent its Logger passes on; MultiLogger drops
// events below its minimum level before they reach any Writer.
type Writer interface {
	Write(evt LogEvent)
}
