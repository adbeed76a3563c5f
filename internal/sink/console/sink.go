// Package console prints the trace as indented text lines.
package console

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"firestige.xyz/pktrace/internal/core"
)

// Options configures a console Sink.
type Options struct {
	Level      core.Severity // most verbose severity printed
	Color      bool
	Pattern    string // defaults to DefaultPattern
	TimeFormat string // used by %time
}

// Sink writes one line per trace event and a header line per frame.
type Sink struct {
	logger *logrus.Logger
}

// New returns a console sink writing to w.
func New(w io.Writer, opts Options) *Sink {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04:05.000000"
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(toLogrus(opts.Level))
	l.SetFormatter(&formatter{
		pattern: opts.Pattern,
		time:    opts.TimeFormat,
		color:   opts.Color,
	})
	return &Sink{logger: l}
}

func (s *Sink) Emit(ev core.TraceEvent) {
	level := toLogrus(ev.Severity)
	if !s.logger.IsLevelEnabled(level) {
		return
	}
	s.logger.WithFields(logrus.Fields{
		keyLayer:    ev.Layer,
		keyDepth:    ev.Depth,
		keySeverity: ev.Severity,
		keyFields:   ev.Fields,
	}).Log(level, ev.Message)
}

func (s *Sink) BeginFrame(info core.FrameInfo) {
	msg := fmt.Sprintf("frame %d: %d bytes captured (%d on wire)", info.Index, info.CaptureLen, info.OrigLen)
	if info.LinkType != "" {
		msg += ", " + info.LinkType
	}
	if !info.Timestamp.IsZero() {
		msg += ", " + info.Timestamp.Format("2006-01-02 15:04:05.000000")
	}
	s.Emit(core.TraceEvent{Layer: core.LayerFrame, Message: msg, Severity: core.SeverityInfo})
}

func (s *Sink) EndFrame() {}
