//go:build !linux

package source

import (
	"fmt"
	"runtime"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/core"
)

// LiveSource is only available on linux.
type LiveSource struct{}

func OpenLive(iface string, cfg config.CaptureConfig) (*LiveSource, error) {
	return nil, fmt.Errorf("%w: live capture on %s", core.ErrUnsupportedSource, runtime.GOOS)
}

func (s *LiveSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return nil, gopacket.CaptureInfo{}, core.ErrSourceClosed
}

func (s *LiveSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (s *LiveSource) Drops() (uint64, error) { return 0, nil }

func (s *LiveSource) Close() error { return nil }
