// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// Decoding errors, always local to the layer that detects them.
	ErrTruncated     = errors.New("pktrace: truncated")
	ErrMalformed     = errors.New("pktrace: malformed")
	ErrUnrecognized  = errors.New("pktrace: unrecognized")
	ErrDepthExceeded = errors.New("pktrace: maximum nesting depth exceeded")

	// Source errors
	ErrSourceClosed      = errors.New("pktrace: source closed")
	ErrUnsupportedSource = errors.New("pktrace: unsupported capture source")

	// Configuration errors
	ErrConfigInvalid = errors.New("pktrace: invalid configuration")
)
