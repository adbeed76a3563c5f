// Package metrics implements Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/pktrace/internal/core"
)

// Metrics holds the collectors of one pktrace process.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	// FramesTotal counts frames handed to the decoder by link type
	FramesTotal *prometheus.CounterVec

	// FramesFilteredTotal counts frames rejected by the capture filter
	FramesFilteredTotal prometheus.Counter

	// ReadErrorsTotal counts source read failures
	ReadErrorsTotal prometheus.Counter

	// CaptureDropsTotal counts frames the kernel dropped before they were read
	CaptureDropsTotal prometheus.Counter

	// EventsTotal counts trace events by layer and severity
	EventsTotal *prometheus.CounterVec

	// DecodeLatencySeconds measures the time spent decoding one frame
	DecodeLatencySeconds prometheus.Histogram
}

// New registers the pktrace collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pktrace_frames_total",
				Help: "Total number of frames decoded",
			},
			[]string{"link_type"},
		),
		FramesFilteredTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "pktrace_frames_filtered_total",
			Help: "Total number of frames rejected by the capture filter",
		}),
		ReadErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "pktrace_read_errors_total",
			Help: "Total number of frame source read errors",
		}),
		CaptureDropsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "pktrace_capture_drops_total",
			Help: "Total number of frames dropped by the kernel",
		}),
		EventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pktrace_trace_events_total",
				Help: "Total number of trace events emitted",
			},
			[]string{"layer", "severity"},
		),
		DecodeLatencySeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pktrace_decode_latency_seconds",
			Help:    "Latency of decoding one frame in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		}),
	}
}

// ObserveFrame records one decoded frame.
func (m *Metrics) ObserveFrame(linkType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(linkType).Inc()
	m.DecodeLatencySeconds.Observe(elapsed.Seconds())
}

// FrameFiltered records one frame rejected by the filter.
func (m *Metrics) FrameFiltered() {
	if m == nil {
		return
	}
	m.FramesFilteredTotal.Inc()
}

// ReadError records one source read failure.
func (m *Metrics) ReadError() {
	if m == nil {
		return
	}
	m.ReadErrorsTotal.Inc()
}

// AddDrops adds n kernel drops.
func (m *Metrics) AddDrops(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.CaptureDropsTotal.Add(float64(n))
}

// Sink counts every event before passing it on.
type Sink struct {
	next core.Sink
	m    *Metrics
}

// Wrap returns a Sink counting events into m and forwarding them to next.
// A nil m returns next unchanged.
func (m *Metrics) Wrap(next core.Sink) core.Sink {
	if m == nil {
		return next
	}
	return &Sink{next: next, m: m}
}

func (s *Sink) Emit(ev core.TraceEvent) {
	s.m.EventsTotal.WithLabelValues(ev.Layer, ev.Severity.String()).Inc()
	s.next.Emit(ev)
}

func (s *Sink) BeginFrame(info core.FrameInfo) {
	if o, ok := s.next.(core.FrameObserver); ok {
		o.BeginFrame(info)
	}
}

func (s *Sink) EndFrame() {
	if o, ok := s.next.(core.FrameObserver); ok {
		o.EndFrame()
	}
}
