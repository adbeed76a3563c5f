package source

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pktrace/internal/core"
)

// Section header block type. The value reads the same in either byte order.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// LinkTypeUnsupported stands in for capture link types above 255, which
// layers.LinkType cannot hold. No decoder is registered for it.
const LinkTypeUnsupported layers.LinkType = 0xff

// headerPeek is how much of the capture is inspected for the link type.
const headerPeek = 512

type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// FileSource reads a classic pcap or a pcapng capture.
type FileSource struct {
	path   string
	closer io.Closer
	reader packetReader
	ng     bool
	dlt    uint32

	mu     sync.Mutex
	closed bool
}

// OpenFile opens a capture file. "-" reads from standard input.
// The format is detected from the first four bytes.
func OpenFile(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	var rc io.ReadCloser
	if path == "-" {
		rc = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
		}
		rc = f
	}

	s, err := NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to read capture file %s: %w", path, err)
	}
	s.path = path
	s.closer = rc
	return s, nil
}

// NewReader reads a capture from r. Close does not close r.
func NewReader(r io.Reader) (*FileSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		return nil, fmt.Errorf("%w: capture header: %v", core.ErrUnsupportedSource, err)
	}

	s := &FileSource{}
	if bytes.Equal(magic, pcapngMagic) {
		head, _ := br.Peek(headerPeek)
		dlt, ok := ngLinkType(head)
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedSource, err)
		}
		s.reader, s.ng = ng, true
		s.setDLT(dlt, ok)
		return s, nil
	}
	head, _ := br.Peek(headerPeek)
	dlt, ok := pcapLinkType(head)
	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedSource, err)
	}
	s.reader = pr
	s.setDLT(dlt, ok)
	return s, nil
}

func (s *FileSource) setDLT(dlt uint32, ok bool) {
	if !ok {
		dlt = uint32(s.reader.LinkType())
	}
	s.dlt = dlt
}

// pcapLinkType reads the link type from a classic pcap file header.
// The upper bits of the field carry FCS information and are ignored.
func pcapLinkType(b []byte) (uint32, bool) {
	if len(b) < 24 {
		return 0, false
	}
	var order binary.ByteOrder
	switch binary.BigEndian.Uint32(b) {
	case 0xa1b2c3d4, 0xa1b23c4d:
		order = binary.BigEndian
	case 0xd4c3b2a1, 0x4d3cb2a1:
		order = binary.LittleEndian
	default:
		return 0, false
	}
	return order.Uint32(b[20:24]) & 0xffff, true
}

// ngLinkType reads the link type of the first interface description block,
// which must follow the section header block.
func ngLinkType(b []byte) (uint32, bool) {
	if len(b) < 12 {
		return 0, false
	}
	var order binary.ByteOrder
	switch binary.BigEndian.Uint32(b[8:]) {
	case 0x1a2b3c4d:
		order = binary.BigEndian
	case 0x4d3c2b1a:
		order = binary.LittleEndian
	default:
		return 0, false
	}
	off := int(order.Uint32(b[4:8]))
	if off < 12 || off+10 > len(b) || order.Uint32(b[off:]) != 1 {
		return 0, false
	}
	return uint32(order.Uint16(b[off+8:])), true
}

// ReadPacketData returns io.EOF at the end of the capture.
func (s *FileSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, gopacket.CaptureInfo{}, core.ErrSourceClosed
	}
	return s.reader.ReadPacketData()
}

// LinkType returns LinkTypeUnsupported when the capture's link type does
// not fit in a layers.LinkType.
func (s *FileSource) LinkType() layers.LinkType {
	if s.dlt > 0xff {
		return LinkTypeUnsupported
	}
	return s.reader.LinkType()
}

// DLT returns the link type as recorded in the capture header.
func (s *FileSource) DLT() uint32 {
	return s.dlt
}

// IsNg reports whether the capture is pcapng.
func (s *FileSource) IsNg() bool {
	return s.ng
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
