package log

import (
	"context"
	"log/slog"

	"firestige.xyz/pktrace/internal/core"
)

// LevelFatal sits above slog.LevelError for fatal trace events.
const LevelFatal = slog.LevelError + 4

// TraceSink writes trace events as structured log records.
// It is selected with trace.format=slog.
type TraceSink struct {
	logger *slog.Logger
	frame  *core.FrameInfo
}

// NewTraceSink returns a sink logging through l.
func NewTraceSink(l *slog.Logger) *TraceSink {
	return &TraceSink{logger: l}
}

func (s *TraceSink) Emit(ev core.TraceEvent) {
	level := SeverityLevel(ev.Severity)
	ctx := context.Background()
	if !s.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 4)
	if s.frame != nil {
		attrs = append(attrs, slog.Uint64("frame", s.frame.Index))
	}
	attrs = append(attrs, slog.String("layer", ev.Layer), slog.Int("depth", ev.Depth))
	if len(ev.Fields) > 0 {
		fields := make([]any, len(ev.Fields))
		for i, f := range ev.Fields {
			fields[i] = slog.String(f.Key, f.Value)
		}
		attrs = append(attrs, slog.Group("fields", fields...))
	}
	s.logger.LogAttrs(ctx, level, ev.Message, attrs...)
}

func (s *TraceSink) BeginFrame(info core.FrameInfo) {
	s.frame = &info
}

func (s *TraceSink) EndFrame() {
	s.frame = nil
}

// SeverityLevel maps a trace severity onto a slog level.
func SeverityLevel(sev core.Severity) slog.Level {
	switch sev {
	case core.SeverityFatal:
		return LevelFatal
	case core.SeverityError:
		return slog.LevelError
	case core.SeverityWarning:
		return slog.LevelWarn
	case core.SeverityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
