// Package document serializes the trace of each frame as one JSON or YAML document.
package document

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"firestige.xyz/pktrace/internal/core"
)

// Frame is the serialized form of one decoded frame.
type Frame struct {
	Index      uint64            `json:"index" yaml:"index"`
	Timestamp  *time.Time        `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	LinkType   string            `json:"link_type,omitempty" yaml:"link_type,omitempty"`
	CaptureLen int               `json:"capture_len" yaml:"capture_len"`
	OrigLen    int               `json:"orig_len" yaml:"orig_len"`
	Events     []core.TraceEvent `json:"events" yaml:"events"`
}

// NewFrame starts a document for info with no events.
func NewFrame(info core.FrameInfo) *Frame {
	f := &Frame{
		Index:      info.Index,
		LinkType:   info.LinkType,
		CaptureLen: info.CaptureLen,
		OrigLen:    info.OrigLen,
		Events:     []core.TraceEvent{},
	}
	if !info.Timestamp.IsZero() {
		ts := info.Timestamp.UTC()
		f.Timestamp = &ts
	}
	return f
}

// Builder collects the events of one frame at a time. Events emitted
// outside a frame are gathered into a frame with index 0.
type Builder struct {
	Level core.Severity
	cur   *Frame
}

// Add appends ev to the current frame if it passes the level threshold.
func (b *Builder) Add(ev core.TraceEvent) {
	if ev.Severity > b.Level {
		return
	}
	if b.cur == nil {
		b.cur = NewFrame(core.FrameInfo{})
	}
	b.cur.Events = append(b.cur.Events, ev)
}

// Start discards any unfinished frame and begins a new one.
func (b *Builder) Start(info core.FrameInfo) {
	b.cur = NewFrame(info)
}

// Finish returns the current frame, or nil if none is open.
func (b *Builder) Finish() *Frame {
	f := b.cur
	b.cur = nil
	return f
}

// Encoder writes a single document.
type Encoder interface {
	Encode(v any) error
}

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Sink writes one document per frame to an io.Writer.
type Sink struct {
	mu  sync.Mutex
	b   Builder
	enc Encoder
	c   io.Closer
	err error
}

// New returns a document sink writing frames in format f.
func New(w io.Writer, f Format, level core.Severity) (*Sink, error) {
	s := &Sink{b: Builder{Level: level}}
	switch f {
	case FormatJSON:
		s.enc = json.NewEncoder(w)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		s.enc, s.c = enc, enc
	default:
		return nil, fmt.Errorf("%w: unknown document format %q", core.ErrConfigInvalid, f)
	}
	return s, nil
}

func (s *Sink) Emit(ev core.TraceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.Add(ev)
}

func (s *Sink) BeginFrame(info core.FrameInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b.Start(info)
}

func (s *Sink) EndFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
}

func (s *Sink) flush() {
	f := s.b.Finish()
	if f == nil || s.err != nil {
		return
	}
	s.err = s.enc.Encode(f)
}

// Close writes any frame still open and terminates the stream.
// It returns the first encoding error seen.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	if s.c != nil {
		if err := s.c.Close(); err != nil && s.err == nil {
			s.err = err
		}
	}
	return s.err
}
