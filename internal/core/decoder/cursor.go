// Package decoder implements layered protocol dissection.
package decoder

import (
	"fmt"

	"firestige.xyz/pktrace/internal/core"
)

// Cursor is a bounded reader over one captured frame.
// The offset never passes the end of the buffer; every failed take leaves it unchanged.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a cursor positioned at the start of b.
func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unconsumed bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Rest returns the unconsumed bytes without advancing.
func (c *Cursor) Rest() []byte { return c.buf[c.off:] }

// TakeFixed returns the next n bytes of a fixed-size header and advances past them.
func (c *Cursor) TakeFixed(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", core.ErrTruncated, n, c.Remaining())
	}
	return c.take(n), nil
}

// TakeVariable returns the next n bytes where n was read from the frame itself.
// A negative or oversized length means the frame lies about its own layout.
func (c *Cursor) TakeVariable(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: length %d exceeds remaining %d bytes", core.ErrMalformed, n, c.Remaining())
	}
	return c.take(n), nil
}

// TakeRest consumes and returns every remaining byte.
func (c *Cursor) TakeRest() []byte {
	return c.take(c.Remaining())
}

func (c *Cursor) take(n int) []byte {
	b := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return b
}
