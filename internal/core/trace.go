package core

import (
	"fmt"
	"strings"
	"time"
)

// Severity ranks a trace event. Lower values are more severe.
type Severity uint8

const (
	SeverityFatal Severity = iota
	SeverityError
	SeverityWarning
	SeverityInfo
	SeverityDebug
)

var severityNames = [...]string{"fatal", "error", "warning", "info", "debug"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// MarshalText renders the severity by name in JSON and YAML documents.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity converts a level name into a Severity. "warn" is accepted for "warning".
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(name) {
	case "fatal":
		return SeverityFatal, nil
	case "error":
		return SeverityError, nil
	case "warn", "warning":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	case "debug":
		return SeverityDebug, nil
	default:
		return SeverityInfo, fmt.Errorf("%w: unknown severity %q", ErrConfigInvalid, name)
	}
}

// Field is one synopsis value of a trace event, e.g. {"ip.src", "10.0.0.1"}.
type Field struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// TraceEvent is a single line of the dissection trace.
// Events are handed to a Sink and never retained by the engine.
type TraceEvent struct {
	Layer    string   `json:"layer" yaml:"layer"`
	Message  string   `json:"message" yaml:"message"`
	Fields   []Field  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Depth    int      `json:"depth" yaml:"depth"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Field returns the value stored under key, if any.
func (e TraceEvent) Field(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// FrameInfo describes a top-level frame before it is decoded.
type FrameInfo struct {
	Index      uint64
	Timestamp  time.Time
	LinkType   string
	CaptureLen int
	OrigLen    int
}

// Sink accepts trace events.
type Sink interface {
	Emit(ev TraceEvent)
}

// FrameObserver is implemented by sinks that group events per frame.
type FrameObserver interface {
	BeginFrame(info FrameInfo)
	EndFrame()
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev TraceEvent)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev TraceEvent) { f(ev) }
