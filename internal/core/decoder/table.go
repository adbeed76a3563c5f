package decoder

import (
	"firestige.xyz/pktrace/internal/core"
)

// decodeFunc decodes one layer from the cursor and emits its events through s.
type decodeFunc func(s scope, c *Cursor)

type entry struct {
	name   string
	decode decodeFunc // nil marks a code that is known but not decoded
}

// table maps a protocol code to its decoder. Tables are filled once in init and
// only read afterwards.
type table[K comparable] struct {
	layer   string
	format  func(K) string
	entries map[K]entry
}

func newTable[K comparable](layer string, format func(K) string) *table[K] {
	return &table[K]{layer: layer, format: format, entries: make(map[K]entry)}
}

func (t *table[K]) register(k K, name string, fn decodeFunc) {
	t.entries[k] = entry{name: name, decode: fn}
}

func (t *table[K]) lookup(k K) (entry, bool) {
	e, ok := t.entries[k]
	return e, ok
}

// dispatch runs the decoder registered for k and reports whether k is known.
// Known codes without a decoder produce a single debug event.
func (t *table[K]) dispatch(s scope, c *Cursor, k K) bool {
	e, ok := t.entries[k]
	if !ok {
		return false
	}
	if e.decode == nil {
		s.debug(t.layer, "unhandled "+e.name, core.Field{Key: core.FieldCode, Value: t.format(k)})
		return true
	}
	e.decode(s, c)
	return true
}
