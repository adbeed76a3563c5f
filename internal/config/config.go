// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/pktrace/internal/core"
)

// Config is the top-level configuration.
// Maps to the `pktrace:` root key in YAML.
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Trace   TraceConfig   `mapstructure:"trace" yaml:"trace"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ─── Log ───

// LogConfig configures the process logger (not the trace output).
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains log destinations besides stderr.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Trace ───

// TraceConfig controls the dissector and where its trace goes.
type TraceConfig struct {
	Format              string      `mapstructure:"format" yaml:"format"` // text / slog / json / yaml
	Level               string      `mapstructure:"level" yaml:"level"`   // most verbose severity printed
	MaxDepth            int         `mapstructure:"max_depth" yaml:"max_depth"`
	DumpUnknownPayloads bool        `mapstructure:"dump_unknown_payloads" yaml:"dump_unknown_payloads"`
	Color               bool        `mapstructure:"color" yaml:"color"`
	Kafka               KafkaConfig `mapstructure:"kafka" yaml:"kafka"`
}

// KafkaConfig configures publishing of per-frame trace documents.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Brokers      []string      `mapstructure:"brokers" yaml:"brokers"`
	Topic        string        `mapstructure:"topic" yaml:"topic"`
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	Compression  string        `mapstructure:"compression" yaml:"compression"` // none / gzip / snappy / lz4 / zstd
}

// ─── Capture ───

// CaptureConfig configures frame acquisition.
type CaptureConfig struct {
	SnapLen      int    `mapstructure:"snap_len" yaml:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"`
	TimeoutMS    int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	FanoutID     uint16 `mapstructure:"fanout_id" yaml:"fanout_id"` // 0 = no fanout
	Filter       string `mapstructure:"filter" yaml:"filter"`       // BPF expression
	QueueSize    int    `mapstructure:"queue_size" yaml:"queue_size"`
	SupportVLAN  bool   `mapstructure:"support_vlan" yaml:"support_vlan"` // reinsert 802.1Q tags stripped by the kernel
}

// Timeout returns the poll timeout as a duration.
func (c CaptureConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pktrace: ...`.
type configRoot struct {
	Pktrace Config `mapstructure:"pktrace"`
}

// Load loads configuration from path. An empty path yields the defaults, still subject
// to environment overrides.
// Env vars follow the key path, e.g. key "pktrace.trace.max_depth" → PKTRACE_TRACE_MAX_DEPTH.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&root, hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pktrace

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "pktrace." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pktrace.log.level", "info")
	v.SetDefault("pktrace.log.format", "text")
	v.SetDefault("pktrace.log.outputs.file.enabled", false)
	v.SetDefault("pktrace.log.outputs.file.path", "/var/log/pktrace/pktrace.log")
	v.SetDefault("pktrace.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pktrace.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pktrace.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pktrace.log.outputs.file.rotation.compress", true)

	// Trace defaults
	v.SetDefault("pktrace.trace.format", "text")
	v.SetDefault("pktrace.trace.level", "info")
	v.SetDefault("pktrace.trace.max_depth", 32)
	v.SetDefault("pktrace.trace.dump_unknown_payloads", false)
	v.SetDefault("pktrace.trace.color", false)
	v.SetDefault("pktrace.trace.kafka.enabled", false)
	v.SetDefault("pktrace.trace.kafka.brokers", []string{})
	v.SetDefault("pktrace.trace.kafka.topic", "pktrace")
	v.SetDefault("pktrace.trace.kafka.batch_size", 100)
	v.SetDefault("pktrace.trace.kafka.batch_timeout", "100ms")
	v.SetDefault("pktrace.trace.kafka.compression", "snappy")

	// Capture defaults
	v.SetDefault("pktrace.capture.snap_len", 262144)
	v.SetDefault("pktrace.capture.buffer_size_mb", 8)
	v.SetDefault("pktrace.capture.timeout_ms", 100)
	v.SetDefault("pktrace.capture.fanout_id", 0)
	v.SetDefault("pktrace.capture.filter", "")
	v.SetDefault("pktrace.capture.queue_size", 1024)
	v.SetDefault("pktrace.capture.support_vlan", true)

	// Metrics defaults
	v.SetDefault("pktrace.metrics.enabled", false)
	v.SetDefault("pktrace.metrics.listen", ":9091")
	v.SetDefault("pktrace.metrics.path", "/metrics")
}

var (
	validLogLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validTraceFormats = map[string]bool{"text": true, "slog": true, "json": true, "yaml": true}
	validCompressions = map[string]bool{"": true, "none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true}
)

// ValidateAndApplyDefaults validates configuration and fills in zero values.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: log format %q (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Trace validation ──
	if !validTraceFormats[cfg.Trace.Format] {
		return fmt.Errorf("%w: trace format %q (must be text/slog/json/yaml)", core.ErrConfigInvalid, cfg.Trace.Format)
	}
	if _, err := core.ParseSeverity(cfg.Trace.Level); err != nil {
		return fmt.Errorf("trace level: %w", err)
	}
	if cfg.Trace.MaxDepth < 0 {
		return fmt.Errorf("%w: trace.max_depth %d must not be negative", core.ErrConfigInvalid, cfg.Trace.MaxDepth)
	}
	if cfg.Trace.MaxDepth == 0 {
		cfg.Trace.MaxDepth = 32
	}

	// ── Kafka validation ──
	k := &cfg.Trace.Kafka
	if k.Enabled {
		if len(k.Brokers) == 0 {
			return fmt.Errorf("%w: trace.kafka.brokers is required when trace.kafka.enabled=true", core.ErrConfigInvalid)
		}
		if k.Topic == "" {
			return fmt.Errorf("%w: trace.kafka.topic is required when trace.kafka.enabled=true", core.ErrConfigInvalid)
		}
	}
	if !validCompressions[k.Compression] {
		return fmt.Errorf("%w: trace.kafka.compression %q", core.ErrConfigInvalid, k.Compression)
	}
	if k.BatchSize <= 0 {
		k.BatchSize = 100
	}
	if k.BatchTimeout <= 0 {
		k.BatchTimeout = 100 * time.Millisecond
	}

	// ── Capture defaults ──
	if cfg.Capture.SnapLen <= 0 {
		cfg.Capture.SnapLen = 262144
	}
	if cfg.Capture.BufferSizeMB <= 0 {
		cfg.Capture.BufferSizeMB = 8
	}
	if cfg.Capture.TimeoutMS <= 0 {
		cfg.Capture.TimeoutMS = 100
	}
	if cfg.Capture.QueueSize <= 0 {
		cfg.Capture.QueueSize = 1024
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}

// ApplyVerbosity raises verbosity for each -v given on the command line: the first
// prints debug trace events, the second also enables debug logging.
func (cfg *Config) ApplyVerbosity(n int) {
	if n >= 1 {
		cfg.Trace.Level = core.SeverityDebug.String()
	}
	if n >= 2 {
		cfg.Log.Level = "debug"
	}
}

// TraceSeverity returns the parsed trace threshold.
func (cfg *Config) TraceSeverity() core.Severity {
	sev, err := core.ParseSeverity(cfg.Trace.Level)
	if err != nil {
		return core.SeverityInfo
	}
	return sev
}
