package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/log"
	"firestige.xyz/pktrace/internal/sink"
	"firestige.xyz/pktrace/internal/sink/console"
	"firestige.xyz/pktrace/internal/sink/document"
	"firestige.xyz/pktrace/internal/sink/kafka"
)

// output is the trace destination assembled from the configuration.
type output struct {
	sink    core.Sink
	closers []io.Closer
}

// Close flushes and closes every sink that needs it.
func (o *output) Close() error {
	var errs []error
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildOutput creates the configured trace sinks writing to w.
func buildOutput(tc config.TraceConfig, w io.Writer) (*output, error) {
	level, err := core.ParseSeverity(tc.Level)
	if err != nil {
		return nil, err
	}

	o := &output{}
	var primary core.Sink
	switch tc.Format {
	case "text", "":
		primary = console.New(w, console.Options{Level: level, Color: tc.Color})
	case "slog":
		primary = log.NewTraceSink(slog.Default())
	case "json", "yaml":
		d, err := document.New(w, document.Format(tc.Format), level)
		if err != nil {
			return nil, err
		}
		primary = d
		o.closers = append(o.closers, d)
	default:
		return nil, fmt.Errorf("%w: trace format %q", core.ErrConfigInvalid, tc.Format)
	}

	sinks := []core.Sink{primary}
	if tc.Kafka.Enabled {
		k, err := kafka.New(tc.Kafka, level)
		if err != nil {
			return nil, err
		}
		slog.Info("publishing trace to kafka", "brokers", tc.Kafka.Brokers, "topic", tc.Kafka.Topic)
		sinks = append(sinks, k)
		o.closers = append(o.closers, k)
	}
	o.sink = sink.NewFanout(sinks...)
	return o, nil
}
