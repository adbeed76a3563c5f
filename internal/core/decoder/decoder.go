package decoder

import (
	"fmt"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/core"
)

// DefaultMaxDepth bounds encapsulation nesting when Config.MaxDepth is unset.
const DefaultMaxDepth = 32

// Config controls a Dissector.
type Config struct {
	MaxDepth            int
	DumpUnknownPayloads bool // hex dump UDP payloads no port handler claims
}

// FrameDecoder decodes one captured frame into trace events.
type FrameDecoder interface {
	DecodeFrame(link layers.LinkType, data []byte)
}

// Dissector walks a frame from its link layer upward and reports every header it
// recognizes to a sink. A Dissector keeps no state between frames, but the sink it
// writes to usually does, so a Dissector should be used from one goroutine at a time.
type Dissector struct {
	cfg  Config
	sink core.Sink
}

// NewDissector creates a Dissector emitting to sink.
func NewDissector(cfg Config, sink core.Sink) *Dissector {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Dissector{cfg: cfg, sink: sink}
}

// DecodeFrame decodes data captured with the given link encoding.
// Errors are reported as trace events; DecodeFrame itself never fails.
func (d *Dissector) DecodeFrame(link layers.LinkType, data []byte) {
	s := scope{sink: d.sink, cfg: &d.cfg}
	defer func() {
		if r := recover(); r != nil {
			reportPanic(s, r)
		}
	}()

	c := NewCursor(data)
	if !linkTable.dispatch(s, c, link) {
		s.warn(core.LayerFrame, fmt.Errorf("%w link type %d", core.ErrUnrecognized, link),
			field(core.FieldCode, uint8(link)))
		dumpRaw(s, c.TakeRest())
	}
}

// reportPanic emits the recovered value. A sink that panics again is ignored.
func reportPanic(s scope, r any) {
	defer func() { _ = recover() }()
	s.fail(core.LayerFrame, fmt.Errorf("decoder panic: %v", r))
}

var (
	linkTable  *table[layers.LinkType]
	etherTable *table[layers.EthernetType]
	protoTable *table[layers.IPProtocol]
	portTable  *table[layers.UDPPort]
)

// The tables refer to decoders that dispatch through the same tables again, so they
// are assembled here rather than in variable initializers.
func init() {
	linkTable = newTable(core.LayerFrame, func(k layers.LinkType) string { return fmt.Sprintf("%d", uint8(k)) })
	linkTable.register(layers.LinkTypeEthernet, "Ethernet", decodeEthernet)
	linkTable.register(layers.LinkTypeNull, "BSD loopback", decodeNull)
	linkTable.register(layers.LinkTypeLoop, "OpenBSD loopback", decodeLoop)
	linkTable.register(layers.LinkTypeLinuxSLL, "Linux cooked", decodeLinuxSLL)
	linkTable.register(layers.LinkTypeRaw, "raw IPv4", decodeIPv4)
	linkTable.register(layers.LinkTypeIPv4, "raw IPv4", decodeIPv4)
	linkTable.register(layers.LinkTypeIPv6, "raw IPv6", decodeIPv6)

	etherTable = newTable(core.LayerEthernet, func(k layers.EthernetType) string { return fmt.Sprintf("0x%04x", uint16(k)) })
	etherTable.register(layers.EthernetTypeIPv4, "IPv4", decodeIPv4)
	etherTable.register(layers.EthernetTypeIPv6, "IPv6", decodeIPv6)
	etherTable.register(layers.EthernetTypeARP, "ARP", decodeARP)
	etherTable.register(layers.EthernetTypeDot1Q, "802.1Q", decodeVLAN)
	etherTable.register(layers.EthernetTypeQinQ, "802.1ad", decodeVLAN)
	etherTable.register(0x0200, "PUP", nil)
	etherTable.register(0x8035, "RARP", nil)
	etherTable.register(layers.EthernetTypeEAPOL, "EAPOL", nil)
	etherTable.register(0x88c7, "RSN pre-authentication", nil)
	etherTable.register(0x88f7, "PTP", nil)
	etherTable.register(layers.EthernetTypeEthernetCTP, "loopback", nil)
	etherTable.register(layers.EthernetTypeLinkLayerDiscovery, "LLDP", nil)
	etherTable.register(layers.EthernetTypeMPLSUnicast, "MPLS", nil)

	protoTable = newTable(core.LayerIPv4, func(k layers.IPProtocol) string { return fmt.Sprintf("%d", uint8(k)) })
	protoTable.register(layers.IPProtocolICMPv4, "ICMP", decodeICMPv4)
	protoTable.register(layers.IPProtocolTCP, "TCP", decodeTCP)
	protoTable.register(layers.IPProtocolUDP, "UDP", decodeUDP)
	protoTable.register(layers.IPProtocolICMPv6, "ICMPv6", decodeICMPv6)

	portTable = newTable(core.LayerUDP, func(k layers.UDPPort) string { return fmt.Sprintf("%d", uint16(k)) })
	portTable.register(53, "DNS", decodeDNS)
	portTable.register(67, "BOOTP server", decodeBOOTP)
	portTable.register(68, "BOOTP client", decodeBOOTP)
	portTable.register(4789, "VXLAN", decodeVXLAN)
}
