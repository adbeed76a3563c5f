package decoder

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"

	"firestige.xyz/pktrace/internal/core"
)

const (
	arpRequest = 1
	arpReply   = 2
)

// arpPacket holds the ARP header and its four variable-length addresses.
// All slices alias the frame.
type arpPacket struct {
	hdr                core.ARPHeader
	sha, spa, tha, tpa []byte
}

// parseARP reads the fixed ARP header and then the addresses whose sizes it declares.
// On an address error the returned packet still carries the header.
func parseARP(c *Cursor) (arpPacket, error) {
	var p arpPacket
	b, err := c.TakeFixed(core.ARPHeaderLen)
	if err != nil {
		return p, err
	}
	p.hdr = core.ARPHeader(b)

	hln, pln := int(p.hdr.HardwareLen()), int(p.hdr.ProtocolLen())
	if need := 2 * (hln + pln); need > c.Remaining() {
		return p, fmt.Errorf("%w: addresses need %d bytes, have %d", core.ErrMalformed, need, c.Remaining())
	}
	for _, dst := range []struct {
		addr *[]byte
		n    int
	}{{&p.sha, hln}, {&p.spa, pln}, {&p.tha, hln}, {&p.tpa, pln}} {
		if *dst.addr, err = c.TakeVariable(dst.n); err != nil {
			return p, err
		}
	}
	return p, nil
}

// decodeARP decodes an ARP packet. Addresses are rendered as Ethernet and IPv4
// whenever their lengths allow it.
func decodeARP(s scope, c *Cursor) {
	p, err := parseARP(c)
	if err != nil {
		var fields []core.Field
		if p.hdr != nil {
			fields = []core.Field{
				field(core.FieldARPOp, p.hdr.Operation()),
				field("arp.hrd", p.hdr.HardwareType()),
				hexField("arp.pro", p.hdr.ProtocolType()),
				field("arp.hln", p.hdr.HardwareLen()),
				field("arp.pln", p.hdr.ProtocolLen()),
			}
		}
		s.warn(core.LayerARP, fmt.Errorf("arp: %w", err), fields...)
		return
	}

	sha, spa, tha, tpa := formatAddr(p.sha), formatAddr(p.spa), formatAddr(p.tha), formatAddr(p.tpa)
	var msg string
	switch p.hdr.Operation() {
	case arpRequest:
		msg = fmt.Sprintf("who has %s? tell %s (%s)", tpa, spa, sha)
	case arpReply:
		msg = fmt.Sprintf("%s is at %s", spa, sha)
	default:
		msg = fmt.Sprintf("op %d, sha %s, spa %s, tha %s, tpa %s", p.hdr.Operation(), sha, spa, tha, tpa)
	}
	s.info(core.LayerARP, msg,
		field(core.FieldARPOp, p.hdr.Operation()),
		field(core.FieldARPSHA, sha),
		field(core.FieldARPSPA, spa),
		field(core.FieldARPTHA, tha),
		field(core.FieldARPTPA, tpa),
	)

	if n := c.Remaining(); n > 0 {
		s.warn(core.LayerARP, fmt.Errorf("%w: %d bytes of garbage after ARP packet", core.ErrMalformed, n))
		dumpRaw(s, c.TakeRest())
	}
}

func formatAddr(b []byte) string {
	switch len(b) {
	case 4:
		return netip.AddrFrom4([4]byte(b)).String()
	case 6:
		return net.HardwareAddr(b).String()
	case 16:
		return netip.AddrFrom16([16]byte(b)).String()
	default:
		return hex.EncodeToString(b)
	}
}
