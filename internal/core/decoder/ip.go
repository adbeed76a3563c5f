package decoder

import (
	"fmt"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/core"
)

// decodeIPv4 decodes the IPv4 base header, skips any options, and dispatches on the
// protocol number.
func decodeIPv4(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.IPv4HeaderLen)
	if err != nil {
		s.warn(core.LayerIPv4, fmt.Errorf("ipv4 header: %w", err))
		return
	}
	h := core.IPv4Header(b)
	proto := layers.IPProtocol(h.Protocol())

	s.info(core.LayerIPv4,
		fmt.Sprintf("%s > %s, protocol %s, ttl %d", h.Src(), h.Dst(), protocolName(proto), h.TTL()),
		field(core.FieldIPSrc, h.Src()),
		field(core.FieldIPDst, h.Dst()),
		field(core.FieldIPProtocol, h.Protocol()),
		field(core.FieldIPTTL, h.TTL()),
	)

	if _, err := c.TakeVariable(int(h.IHL())*4 - core.IPv4HeaderLen); err != nil {
		s.warn(core.LayerIPv4, fmt.Errorf("ipv4 options (ihl %d): %w", h.IHL(), err))
		return
	}
	dispatchProtocol(s, c, core.LayerIPv4, proto)
}

// decodeIPv6 decodes the fixed IPv6 header. Extension headers are not walked, so the
// next header value is dispatched as the transport protocol.
func decodeIPv6(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.IPv6HeaderLen)
	if err != nil {
		s.warn(core.LayerIPv6, fmt.Errorf("ipv6 header: %w", err))
		return
	}
	h := core.IPv6Header(b)
	proto := layers.IPProtocol(h.NextHeader())

	s.info(core.LayerIPv6,
		fmt.Sprintf("%s > %s, next header %s, hop limit %d", h.Src(), h.Dst(), protocolName(proto), h.HopLimit()),
		field(core.FieldIPSrc, h.Src()),
		field(core.FieldIPDst, h.Dst()),
		field(core.FieldIPProtocol, h.NextHeader()),
		field(core.FieldIPTTL, h.HopLimit()),
	)
	dispatchProtocol(s, c, core.LayerIPv6, proto)
}

func dispatchProtocol(s scope, c *Cursor, layer string, proto layers.IPProtocol) {
	if protoTable.dispatch(s, c, proto) {
		return
	}
	s.warn(layer, fmt.Errorf("%w IP protocol %d", core.ErrUnrecognized, uint8(proto)),
		field(core.FieldIPProtocol, uint8(proto)))
}

func protocolName(p layers.IPProtocol) string {
	if e, ok := protoTable.lookup(p); ok {
		return fmt.Sprintf("%s (%d)", e.name, uint8(p))
	}
	return fmt.Sprintf("%d", uint8(p))
}
