// Package sink provides trace sinks that do not depend on an output format.
package sink

import (
	"sync"

	"firestige.xyz/pktrace/internal/core"
)

// Fanout forwards every event to each of its sinks in order.
// Frame boundaries are forwarded to the sinks that observe them.
type Fanout []core.Sink

// NewFanout drops nil sinks and collapses a single sink.
func NewFanout(sinks ...core.Sink) core.Sink {
	var f Fanout
	for _, s := range sinks {
		if s != nil {
			f = append(f, s)
		}
	}
	if len(f) == 1 {
		return f[0]
	}
	return f
}

func (f Fanout) Emit(ev core.TraceEvent) {
	for _, s := range f {
		s.Emit(ev)
	}
}

func (f Fanout) BeginFrame(info core.FrameInfo) {
	for _, s := range f {
		if o, ok := s.(core.FrameObserver); ok {
			o.BeginFrame(info)
		}
	}
}

func (f Fanout) EndFrame() {
	for _, s := range f {
		if o, ok := s.(core.FrameObserver); ok {
			o.EndFrame()
		}
	}
}

// Discard drops every event.
var Discard core.Sink = core.SinkFunc(func(core.TraceEvent) {})

// Frame is one frame as seen by a Recorder.
type Frame struct {
	Info   core.FrameInfo
	Events []core.TraceEvent
}

// Recorder keeps every event in memory. Events emitted outside BeginFrame/EndFrame
// are still available from Events.
type Recorder struct {
	mu     sync.Mutex
	events []core.TraceEvent
	frames []Frame
	open   bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(ev core.TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.open {
		f := &r.frames[len(r.frames)-1]
		f.Events = append(f.Events, ev)
	}
}

func (r *Recorder) BeginFrame(info core.FrameInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, Frame{Info: info})
	r.open = true
}

func (r *Recorder) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
}

// Events returns a copy of every recorded event.
func (r *Recorder) Events() []core.TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.TraceEvent(nil), r.events...)
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events, r.frames, r.open = nil, nil, false
}
