package decoder

import (
	"fmt"
	"iter"

	"firestige.xyz/pktrace/internal/core"
)

const (
	optionPad = 0
	optionEnd = 255
)

// Option is one type-length-value record. Payload aliases the scanned region.
type Option struct {
	Type    uint8
	Length  uint8
	Payload []byte
}

// OptionScanner walks a region of TLV options as used by DHCP: pad bytes are skipped,
// the end marker stops the walk, and every other type is followed by a length byte and
// that many payload bytes. A scanner makes a single pass.
type OptionScanner struct {
	c    *Cursor
	err  error
	done bool
}

// NewOptionScanner returns a scanner over b.
func NewOptionScanner(b []byte) *OptionScanner {
	return &OptionScanner{c: NewCursor(b)}
}

// Next returns the next option. It reports false at the end marker, at the end of the
// region, or when an option overruns the region; Err tells the last case apart.
func (s *OptionScanner) Next() (Option, bool) {
	for !s.done {
		t, err := s.c.TakeFixed(1)
		if err != nil {
			// Region exhausted without an end marker.
			s.done = true
			break
		}
		switch t[0] {
		case optionPad:
			continue
		case optionEnd:
			s.done = true
			return Option{}, false
		}
		l, err := s.c.TakeFixed(1)
		if err != nil {
			s.fail(fmt.Errorf("%w: option %d has no length byte", core.ErrMalformed, t[0]))
			break
		}
		payload, err := s.c.TakeVariable(int(l[0]))
		if err != nil {
			s.fail(fmt.Errorf("option %d: %w", t[0], err))
			break
		}
		return Option{Type: t[0], Length: l[0], Payload: payload}, true
	}
	return Option{}, false
}

func (s *OptionScanner) fail(err error) {
	s.err = err
	s.done = true
}

// Err returns the error that stopped the scan, if any.
func (s *OptionScanner) Err() error { return s.err }

// All returns an iterator over the remaining options.
func (s *OptionScanner) All() iter.Seq[Option] {
	return func(yield func(Option) bool) {
		for {
			opt, ok := s.Next()
			if !ok || !yield(opt) {
				return
			}
		}
	}
}
