package decoder

import (
	"fmt"

	"firestige.xyz/pktrace/internal/core"
)

// scope carries the per-frame decoding context down the call chain. It is passed by
// value, so a nested layer's depth disappears as soon as that layer returns.
type scope struct {
	sink  core.Sink
	cfg   *Config
	depth int
}

// nested returns the scope for an encapsulated layer. When the depth bound is reached
// it emits a single warning and reports false; the caller must stop decoding.
func (s scope) nested() (scope, bool) {
	if s.depth >= s.cfg.MaxDepth {
		s.warn(core.LayerFrame, fmt.Errorf("%w (%d)", core.ErrDepthExceeded, s.cfg.MaxDepth))
		return s, false
	}
	s.depth++
	return s, true
}

func (s scope) emit(sev core.Severity, layer, msg string, fields []core.Field) {
	s.sink.Emit(core.TraceEvent{
		Layer:    layer,
		Message:  msg,
		Fields:   fields,
		Depth:    s.depth,
		Severity: sev,
	})
}

func (s scope) info(layer, msg string, fields ...core.Field) {
	s.emit(core.SeverityInfo, layer, msg, fields)
}

func (s scope) debug(layer, msg string, fields ...core.Field) {
	s.emit(core.SeverityDebug, layer, msg, fields)
}

func (s scope) warn(layer string, err error, fields ...core.Field) {
	s.emit(core.SeverityWarning, layer, err.Error(), fields)
}

func (s scope) fail(layer string, err error, fields ...core.Field) {
	s.emit(core.SeverityError, layer, err.Error(), fields)
}

func field(key string, v any) core.Field {
	return core.Field{Key: key, Value: fmt.Sprint(v)}
}

func hexField(key string, v uint16) core.Field {
	return core.Field{Key: key, Value: fmt.Sprintf("0x%04x", v)}
}
