// Package pipeline moves frames from a source through the dissector.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/core/decoder"
	"firestige.xyz/pktrace/internal/metrics"
	"firestige.xyz/pktrace/internal/source"
)

const defaultBufferSize = 1024

// Pipeline reads frames on one goroutine and decodes them on another.
// Frames are decoded in capture order.
type Pipeline struct {
	source  source.Source
	decoder decoder.FrameDecoder
	sink    core.Sink
	filter  *source.Filter
	metrics *metrics.Metrics
	limit   uint64

	frames chan capturedFrame
	stats  counters
}

// Config contains pipeline configuration.
type Config struct {
	Source     source.Source
	Decoder    decoder.FrameDecoder
	Sink       core.Sink // receives frame boundaries, if it observes them
	Filter     *source.Filter
	Metrics    *metrics.Metrics
	BufferSize int    // frame channel capacity
	Limit      uint64 // stop after this many decoded frames, 0 for no limit
}

type capturedFrame struct {
	data []byte
	ci   gopacket.CaptureInfo
}

// New creates a new pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("pipeline requires a source")
	}
	if cfg.Decoder == nil {
		return nil, fmt.Errorf("pipeline requires a decoder")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return &Pipeline{
		source:  cfg.Source,
		decoder: cfg.Decoder,
		sink:    cfg.Sink,
		filter:  cfg.Filter,
		metrics: cfg.Metrics,
		limit:   cfg.Limit,
		frames:  make(chan capturedFrame, cfg.BufferSize),
	}, nil
}

// Run decodes frames until the source is exhausted, the limit is reached or
// ctx is cancelled. It returns the read error that stopped the source, if any.
// The source is not closed.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	link := p.source.LinkType()
	slog.Info("pipeline starting", "link_type", link.String(), "filter", p.filter.String())

	var (
		wg      sync.WaitGroup
		readErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(p.frames)
		readErr = p.readLoop(ctx)
	}()

	p.processLoop(ctx, cancel, link)
	cancel()
	wg.Wait()

	p.collectDrops()
	p.logSummary()

	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return readErr
	}
	return nil
}

// readLoop reads packets from the source and sends them to the processing channel.
func (p *Pipeline) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, ci, err := p.source.ReadPacketData()
		switch {
		case err == nil:
		case errors.Is(err, source.ErrTimeout):
			continue
		case errors.Is(err, io.EOF):
			return nil
		default:
			p.stats.readErrors.Add(1)
			p.metrics.ReadError()
			slog.Error("read failed", "error", err)
			return fmt.Errorf("read frame: %w", err)
		}

		select {
		case p.frames <- capturedFrame{data: data, ci: ci}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// processLoop is the main processing loop.
func (p *Pipeline) processLoop(ctx context.Context, stop context.CancelFunc, link layers.LinkType) {
	obs, _ := p.sink.(core.FrameObserver)
	linkName := link.String()

	for {
		select {
		case <-ctx.Done():
			return
		case fr, ok := <-p.frames:
			if !ok {
				return
			}
			index := p.stats.received.Add(1)
			p.stats.bytes.Add(uint64(len(fr.data)))

			if !p.filter.Match(fr.data) {
				p.stats.filtered.Add(1)
				p.metrics.FrameFiltered()
				continue
			}

			if obs != nil {
				obs.BeginFrame(core.FrameInfo{
					Index:      index,
					Timestamp:  fr.ci.Timestamp,
					LinkType:   linkName,
					CaptureLen: fr.ci.CaptureLength,
					OrigLen:    fr.ci.Length,
				})
			}
			start := time.Now()
			p.decoder.DecodeFrame(link, fr.data)
			p.metrics.ObserveFrame(linkName, time.Since(start))
			if obs != nil {
				obs.EndFrame()
			}

			if n := p.stats.decoded.Add(1); p.limit > 0 && n >= p.limit {
				stop()
				return
			}
		}
	}
}

func (p *Pipeline) collectDrops() {
	dc, ok := p.source.(source.DropCounter)
	if !ok {
		return
	}
	drops, err := dc.Drops()
	if err != nil {
		slog.Debug("drop counter unavailable", "error", err)
		return
	}
	p.stats.drops.Store(drops)
	p.metrics.AddDrops(drops)
}

func (p *Pipeline) logSummary() {
	st := p.Stats()
	slog.Info("pipeline stopped",
		"received", st.Received,
		"decoded", st.Decoded,
		"filtered", st.Filtered,
		"read_errors", st.ReadErrors,
		"drops", st.Drops,
		"bytes", units.BytesSize(float64(st.Bytes)),
	)
}
