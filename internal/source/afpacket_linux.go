//go:build linux

package source

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/core"
)

// LiveSource captures from a network interface through a TPACKET_V3 ring.
type LiveSource struct {
	handle *afpacket.TPacket
	device string
	closed atomic.Bool
}

// OpenLive opens iface. The capture filter, if any, runs in the kernel.
func OpenLive(iface string, cfg config.CaptureConfig) (*LiveSource, error) {
	if iface == "" {
		return nil, fmt.Errorf("%w: interface name is required", core.ErrConfigInvalid)
	}
	frameSize, blockSize, numBlocks, err := recomputeSize(cfg.BufferSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}

	tp, err := afpacket.NewTPacket(tpacketOptions(iface, cfg, frameSize, blockSize, numBlocks)...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", iface, err)
	}

	if cfg.FanoutID > 0 {
		if err := tp.SetFanout(afpacket.FanoutHashWithDefrag, cfg.FanoutID); err != nil {
			tp.Close()
			return nil, fmt.Errorf("failed to join fanout group %d: %w", cfg.FanoutID, err)
		}
	}

	if cfg.Filter != "" {
		raw, err := CompileFilter(layers.LinkTypeEthernet, frameSize, cfg.Filter)
		if err != nil {
			tp.Close()
			return nil, err
		}
		if err := tp.SetBPF(raw); err != nil {
			tp.Close()
			return nil, fmt.Errorf("failed to attach BPF filter: %w", err)
		}
	}

	return &LiveSource{handle: tp, device: iface}, nil
}

func tpacketOptions(iface string, cfg config.CaptureConfig, frameSize, blockSize, numBlocks int) []interface{} {
	return []interface{}{
		afpacket.OptInterface(iface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptAddVLANHeader(cfg.SupportVLAN),
		afpacket.OptPollTimeout(cfg.Timeout()),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	}
}

// ReadPacketData returns ErrTimeout when the poll timeout expires.
func (s *LiveSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if s.closed.Load() {
		return nil, gopacket.CaptureInfo{}, core.ErrSourceClosed
	}
	data, ci, err := s.handle.ReadPacketData()
	if errors.Is(err, afpacket.ErrTimeout) {
		return nil, ci, ErrTimeout
	}
	return data, ci, err
}

func (s *LiveSource) LinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

// Drops returns the kernel drop counter accumulated since the socket was opened.
func (s *LiveSource) Drops() (uint64, error) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return 0, err
	}
	return uint64(v3.Drops()), nil
}

// Close must not be called while ReadPacketData is running.
func (s *LiveSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.handle.Close()
	return nil
}
