// Package kafka publishes the trace of each frame to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/sink/document"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultMaxAttempts  = 3
	writeTimeout        = 10 * time.Second
)

// MessageWriter is the subset of *kafka.Writer used by Sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink sends one JSON message per frame. The message key is the frame index.
//
// A Sink created by New writes asynchronously: EndFrame only queues the
// message and delivery results are counted by the writer's completion callback.
type Sink struct {
	mu     sync.Mutex
	writer MessageWriter
	b      document.Builder
	topic  string
	async  bool

	reportedCount atomic.Uint64
	errorCount    atomic.Uint64
}

// New creates a Sink backed by a kafka.Writer for cfg.
func New(cfg config.KafkaConfig, level core.Severity) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers is required", core.ErrConfigInvalid)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka topic is required", core.ErrConfigInvalid)
	}
	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	s := NewWithWriter(nil, cfg.Topic, level)
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		MaxAttempts:  defaultMaxAttempts,
		Async:        true,
		Completion:   s.completed,
	}
	if codec != nil {
		w.Compression = kafka.Compression(codec.Code())
	}
	s.writer = w
	s.async = true
	return s, nil
}

// NewWithWriter wraps an existing writer. WriteMessages is treated as
// synchronous: a nil error counts the frame as reported.
func NewWithWriter(w MessageWriter, topic string, level core.Severity) *Sink {
	return &Sink{writer: w, topic: topic, b: document.Builder{Level: level}}
}

func compressionCodec(name string) (compress.Codec, error) {
	switch name {
	case "none", "":
		return nil, nil
	case "gzip":
		return compress.Gzip.Codec(), nil
	case "snappy":
		return compress.Snappy.Codec(), nil
	case "lz4":
		return compress.Lz4.Codec(), nil
	case "zstd":
		return compress.Zstd.Codec(), nil
	default:
		return nil, fmt.Errorf("%w: invalid compression type: %s", core.ErrConfigInvalid, name)
	}
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
	f := s.b.Finish()
	s.mu.Unlock()
	if f == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.publish(ctx, f); err != nil {
		s.errorCount.Add(1)
		slog.Warn("kafka publish failed", "topic", s.topic, "frame", f.Index, "error", err)
		return
	}
	if !s.async {
		s.reportedCount.Add(1)
	}
}

// completed is the async writer's delivery callback.
func (s *Sink) completed(msgs []kafka.Message, err error) {
	if err != nil {
		s.errorCount.Add(uint64(len(msgs)))
		slog.Warn("kafka delivery failed", "topic", s.topic, "messages", len(msgs), "error", err)
		return
	}
	s.reportedCount.Add(uint64(len(msgs)))
}

func (s *Sink) publish(ctx context.Context, f *document.Frame) error {
	value, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("serialize frame failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(f.Index, 10)),
		Value: value,
	}
	if f.Timestamp != nil {
		msg.Time = *f.Timestamp
	}
	if f.LinkType != "" {
		msg.Headers = []kafka.Header{{Key: "link_type", Value: []byte(f.LinkType)}}
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Stats returns the number of frames published and failed so far.
func (s *Sink) Stats() (reported, failed uint64) {
	return s.reportedCount.Load(), s.errorCount.Load()
}

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	err := s.writer.Close()
	slog.Info("kafka sink stopped",
		"topic", s.topic,
		"total_reported", s.reportedCount.Load(),
		"total_errors", s.errorCount.Load(),
	)
	return err
}
