package decoder

import (
	"fmt"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/core"
)

// decodeEthernet decodes an Ethernet II header and dispatches on its ethertype.
func decodeEthernet(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.EthernetHeaderLen)
	if err != nil {
		s.warn(core.LayerEthernet, fmt.Errorf("ethernet header: %w", err))
		return
	}
	eth := core.EthernetHeader(b)
	et := layers.EthernetType(eth.EtherType())

	s.info(core.LayerEthernet,
		fmt.Sprintf("%s > %s, ethertype %s", eth.Src(), eth.Dst(), etherTypeName(et)),
		field(core.FieldEthSrc, eth.Src()),
		field(core.FieldEthDst, eth.Dst()),
		hexField(core.FieldEthType, uint16(et)),
	)
	dispatchEtherType(s, c, et)
}

// decodeNull handles BSD loopback captures, whose family tag is in host byte order.
func decodeNull(s scope, c *Cursor) {
	decodeLoopback(s, c, core.LoopbackHeader.Family)
}

// decodeLoop handles OpenBSD loopback captures, whose family tag is in network byte order.
func decodeLoop(s scope, c *Cursor) {
	decodeLoopback(s, c, core.LoopbackHeader.NetworkFamily)
}

func decodeLoopback(s scope, c *Cursor, family func(core.LoopbackHeader) uint32) {
	b, err := c.TakeFixed(core.LoopbackHeaderLen)
	if err != nil {
		s.warn(core.LayerLoopback, fmt.Errorf("loopback header: %w", err))
		return
	}
	af := family(core.LoopbackHeader(b))
	et := loopbackEtherType(af)

	s.info(core.LayerLoopback,
		fmt.Sprintf("address family %d, ethertype %s", af, etherTypeName(et)),
		field(core.FieldLoopFamily, af),
	)
	dispatchEtherType(s, c, et)
}

// loopbackEtherType maps a loopback address family to an ethertype. AF_INET6 differs
// between operating systems; 0 means the family is not an IP family.
func loopbackEtherType(af uint32) layers.EthernetType {
	switch af {
	case 2:
		return layers.EthernetTypeIPv4
	case 10, 23, 24, 26, 28, 30:
		return layers.EthernetTypeIPv6
	default:
		return 0
	}
}

var sllPacketTypes = map[uint16]string{
	0: "to us",
	1: "broadcast",
	2: "multicast",
	3: "to another host",
	4: "sent by us",
}

// decodeLinuxSLL decodes the Linux cooked capture header.
func decodeLinuxSLL(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.LinuxSLLHeaderLen)
	if err != nil {
		s.warn(core.LayerSLL, fmt.Errorf("linux cooked header: %w", err))
		return
	}
	h := core.LinuxSLLHeader(b)
	et := layers.EthernetType(h.EtherType())

	pt, ok := sllPacketTypes[h.PacketType()]
	if !ok {
		pt = fmt.Sprintf("packet type %d", h.PacketType())
	}
	s.info(core.LayerSLL,
		fmt.Sprintf("%s, from %s, ethertype %s", pt, h.Addr(), etherTypeName(et)),
		field(core.FieldSLLPacketType, h.PacketType()),
		field(core.FieldSLLAddr, h.Addr()),
		hexField(core.FieldEthType, uint16(et)),
	)
	dispatchEtherType(s, c, et)
}

// decodeVLAN decodes one 802.1Q/802.1ad tag and decodes the tagged payload one level down.
// Stacked tags recurse through the ethertype table.
func decodeVLAN(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.VLANTagLen)
	if err != nil {
		s.warn(core.LayerVLAN, fmt.Errorf("vlan tag: %w", err))
		return
	}
	tag := core.VLANTag(b)
	et := layers.EthernetType(tag.EtherType())

	s.info(core.LayerVLAN,
		fmt.Sprintf("vlan %d, priority %d, ethertype %s", tag.ID(), tag.Priority(), etherTypeName(et)),
		field(core.FieldVLANID, tag.ID()),
		field(core.FieldVLANPriority, tag.Priority()),
		field(core.FieldVLANDEI, tag.DEI()),
		hexField(core.FieldEthType, uint16(et)),
	)
	inner, ok := s.nested()
	if !ok {
		return
	}
	dispatchEtherType(inner, c, et)
}

func dispatchEtherType(s scope, c *Cursor, et layers.EthernetType) {
	if etherTable.dispatch(s, c, et) {
		return
	}
	s.warn(core.LayerEthernet, fmt.Errorf("%w ethertype 0x%04x", core.ErrUnrecognized, uint16(et)),
		hexField(core.FieldEthType, uint16(et)))
}

func etherTypeName(et layers.EthernetType) string {
	if e, ok := etherTable.lookup(et); ok {
		return fmt.Sprintf("%s (0x%04x)", e.name, uint16(et))
	}
	return fmt.Sprintf("0x%04x", uint16(et))
}
