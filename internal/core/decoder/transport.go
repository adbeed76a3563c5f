package decoder

import (
	"fmt"
	"strings"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/core"
)

func decodeICMPv4(s scope, c *Cursor) {
	decodeICMP(s, c, core.LayerICMP, func(t, code uint8) string {
		return layers.CreateICMPv4TypeCode(t, code).String()
	})
}

func decodeICMPv6(s scope, c *Cursor) {
	decodeICMP(s, c, core.LayerICMPv6, func(t, code uint8) string {
		return layers.CreateICMPv6TypeCode(t, code).String()
	})
}

// decodeICMP decodes the type and code shared by both ICMP versions. The message body
// is not decoded.
func decodeICMP(s scope, c *Cursor, layer string, name func(t, code uint8) string) {
	b, err := c.TakeFixed(core.ICMPHeaderLen)
	if err != nil {
		s.warn(layer, fmt.Errorf("%s header: %w", layer, err))
		return
	}
	h := core.ICMPHeader(b)
	s.info(layer,
		fmt.Sprintf("type %d code %d, %s", h.Type(), h.Code(), name(h.Type(), h.Code())),
		field(core.FieldICMPType, h.Type()),
		field(core.FieldICMPCode, h.Code()),
		hexField(core.FieldChecksum, h.Checksum()),
	)
}

// decodeUDP decodes a UDP header and hands the payload to the application decoder
// registered for its ports, one level down.
func decodeUDP(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.UDPHeaderLen)
	if err != nil {
		s.warn(core.LayerUDP, fmt.Errorf("udp header: %w", err))
		return
	}
	h := core.UDPHeader(b)
	s.info(core.LayerUDP,
		fmt.Sprintf("%d > %d, length %d, checksum 0x%04x", h.SrcPort(), h.DstPort(), h.Length(), h.Checksum()),
		field(core.FieldSrcPort, h.SrcPort()),
		field(core.FieldDstPort, h.DstPort()),
		field(core.FieldLength, h.Length()),
		hexField(core.FieldChecksum, h.Checksum()),
	)

	inner, ok := s.nested()
	if !ok {
		return
	}
	dispatchPort(inner, c, layers.UDPPort(h.DstPort()), layers.UDPPort(h.SrcPort()))
}

// dispatchPort tries the destination port before the source port.
func dispatchPort(s scope, c *Cursor, dst, src layers.UDPPort) {
	if portTable.dispatch(s, c, dst) || portTable.dispatch(s, c, src) {
		return
	}
	s.debug(core.LayerUDP, fmt.Sprintf("no handler for port %d or %d", uint16(dst), uint16(src)))
	if s.cfg.DumpUnknownPayloads && c.Remaining() > 0 {
		dumpRaw(s, c.TakeRest())
	}
}

var tcpFlagNames = [...]string{"FIN", "SYN", "RST", "PSH", "ACK", "URG"}

// decodeTCP decodes the TCP base header. Segments are not reassembled and the payload
// is not decoded.
func decodeTCP(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.TCPHeaderLen)
	if err != nil {
		s.warn(core.LayerTCP, fmt.Errorf("tcp header: %w", err))
		return
	}
	h := core.TCPHeader(b)
	flags := tcpFlags(h.Flags())
	s.info(core.LayerTCP,
		fmt.Sprintf("%d > %d, flags [%s], checksum 0x%04x", h.SrcPort(), h.DstPort(), flags, h.Checksum()),
		field(core.FieldSrcPort, h.SrcPort()),
		field(core.FieldDstPort, h.DstPort()),
		field(core.FieldTCPFlags, flags),
		hexField(core.FieldChecksum, h.Checksum()),
	)
}

func tcpFlags(f uint8) string {
	var names []string
	for i, name := range tcpFlagNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}
