// Package source provides the frame sources pktrace reads from.
package source

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrTimeout is returned by live sources when no frame arrived within the poll timeout.
// The caller may retry.
var ErrTimeout = errors.New("pktrace: source read timeout")

// Source yields captured frames together with the link type they start at.
type Source interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
	Close() error
}

// DropCounter is implemented by sources that can report kernel drops.
type DropCounter interface {
	Drops() (uint64, error)
}
