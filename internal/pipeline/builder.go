package pipeline

import (
	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/core/decoder"
	"firestige.xyz/pktrace/internal/metrics"
	"firestige.xyz/pktrace/internal/source"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{
		config: Config{
			BufferSize: defaultBufferSize,
		},
	}
}

// WithSource sets the frame source.
func (b *Builder) WithSource(s source.Source) *Builder {
	b.config.Source = s
	return b
}

// WithDecoder sets the frame decoder.
func (b *Builder) WithDecoder(d decoder.FrameDecoder) *Builder {
	b.config.Decoder = d
	return b
}

// WithSink sets the sink notified of frame boundaries.
func (b *Builder) WithSink(s core.Sink) *Builder {
	b.config.Sink = s
	return b
}

// WithFilter sets a user-space filter.
func (b *Builder) WithFilter(f *source.Filter) *Builder {
	b.config.Filter = f
	return b
}

// WithMetrics sets the metrics collectors.
func (b *Builder) WithMetrics(m *metrics.Metrics) *Builder {
	b.config.Metrics = m
	return b
}

// WithBufferSize sets the frame channel capacity.
func (b *Builder) WithBufferSize(size int) *Builder {
	b.config.BufferSize = size
	return b
}

// WithLimit stops the pipeline after n decoded frames.
func (b *Builder) WithLimit(n uint64) *Builder {
	b.config.Limit = n
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.config)
}
