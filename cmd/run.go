package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/core/decoder"
	"firestige.xyz/pktrace/internal/metrics"
	"firestige.xyz/pktrace/internal/pipeline"
	"firestige.xyz/pktrace/internal/source"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func decoderConfig(tc config.TraceConfig) decoder.Config {
	return decoder.Config{
		MaxDepth:            tc.MaxDepth,
		DumpUnknownPayloads: tc.DumpUnknownPayloads,
	}
}

// runCapture decodes every frame of src and writes the trace to w.
func runCapture(ctx context.Context, c *config.Config, src source.Source, filter *source.Filter, limit uint64, w io.Writer) (err error) {
	out, err := buildOutput(c.Trace, w)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close trace output: %w", cerr)
		}
	}()

	var m *metrics.Metrics
	if c.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		srv := metrics.NewServer(c.Metrics.Listen, c.Metrics.Path, reg)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if serr := srv.Stop(context.Background()); serr != nil {
				slog.Error("metrics server stop failed", "error", serr)
			}
		}()
	}

	s := m.Wrap(out.sink)
	p, err := pipeline.NewBuilder().
		WithSource(src).
		WithDecoder(decoder.NewDissector(decoderConfig(c.Trace), s)).
		WithSink(s).
		WithFilter(filter).
		WithMetrics(m).
		WithBufferSize(c.Capture.QueueSize).
		WithLimit(limit).
		Build()
	if err != nil {
		return err
	}

	err = p.Run(ctx)
	slog.Debug("capture summary", "stats", p.Stats().String())
	if errors.Is(ctx.Err(), context.Canceled) {
		slog.Info("interrupted")
	}
	return err
}
