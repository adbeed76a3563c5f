package decoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/core"
)

// dhcpMagic marks a BOOTP vendor area that carries DHCP options (RFC 2131).
var dhcpMagic = []byte{0x63, 0x82, 0x53, 0x63}

const dhcpOptWPAD layers.DHCPOpt = 252

// dhcpMessageTypes holds the names of option 53 values 1 through 18.
var dhcpMessageTypes = [...]string{
	1:  "DHCPDISCOVER",
	2:  "DHCPOFFER",
	3:  "DHCPREQUEST",
	4:  "DHCPDECLINE",
	5:  "DHCPACK",
	6:  "DHCPNAK",
	7:  "DHCPRELEASE",
	8:  "DHCPINFORM",
	9:  "DHCPFORCERENEW",
	10: "DHCPLEASEQUERY",
	11: "DHCPLEASEUNASSIGNED",
	12: "DHCPLEASEUNKNOWN",
	13: "DHCPLEASEACTIVE",
	14: "DHCPBULKLEASEQUERY",
	15: "DHCPLEASEQUERYDONE",
	16: "DHCPACTIVELEASEQUERY",
	17: "DHCPLEASEQUERYSTATUS",
	18: "DHCPTLS",
}

// decodeBOOTP decodes the fixed BOOTP header and, when the vendor area starts with the
// DHCP magic cookie, the DHCP options that follow.
func decodeBOOTP(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.BOOTPHeaderLen)
	if err != nil {
		s.warn(core.LayerBOOTP, fmt.Errorf("bootp header: %w", err))
		return
	}
	h := core.BOOTPHeader(b)

	op := fmt.Sprintf("op %d", h.Op())
	switch h.Op() {
	case 1:
		op = "request"
	case 2:
		op = "reply"
	}
	s.info(core.LayerBOOTP,
		fmt.Sprintf("%s, xid 0x%08x, client %s", op, h.XID(), h.ClientHardwareAddr()),
		field(core.FieldBOOTPOp, h.Op()),
		field(core.FieldBOOTPHType, h.HardwareType()),
		field(core.FieldBOOTPHLen, h.HardwareLen()),
		field(core.FieldBOOTPHops, h.Hops()),
		core.Field{Key: core.FieldBOOTPXID, Value: fmt.Sprintf("0x%08x", h.XID())},
		field(core.FieldBOOTPCIAddr, h.ClientAddr()),
		field(core.FieldBOOTPYIAddr, h.YourAddr()),
		field(core.FieldBOOTPSIAddr, h.ServerAddr()),
		field(core.FieldBOOTPGIAddr, h.GatewayAddr()),
		field(core.FieldBOOTPCHAddr, h.ClientHardwareAddr()),
	)

	if c.Remaining() == 0 {
		return
	}
	cookie, err := c.TakeFixed(core.DHCPCookieLen)
	if err != nil {
		s.warn(core.LayerDHCP, fmt.Errorf("dhcp magic cookie: %w", err))
		return
	}
	if !bytes.Equal(cookie, dhcpMagic) {
		s.debug(core.LayerBOOTP, fmt.Sprintf("vendor area without DHCP magic cookie (% x)", cookie))
		return
	}

	inner, ok := s.nested()
	if !ok {
		return
	}
	sc := NewOptionScanner(c.TakeRest())
	for opt := range sc.All() {
		decodeDHCPOption(inner, opt)
	}
	if err := sc.Err(); err != nil {
		inner.warn(core.LayerDHCP, fmt.Errorf("dhcp options: %w", err))
	}
}

func dhcpOptionName(code layers.DHCPOpt) string {
	if code == dhcpOptWPAD {
		return "WPAD"
	}
	return code.String()
}

// decodeDHCPOption reports one option, interpreting the types the tracer knows and
// dumping the rest.
func decodeDHCPOption(s scope, opt Option) {
	code := layers.DHCPOpt(opt.Type)
	name := dhcpOptionName(code)
	fields := []core.Field{field(core.FieldDHCPOption, opt.Type), field(core.FieldDHCPLength, opt.Length)}

	var value string
	var err error
	switch code {
	case layers.DHCPOptSubnetMask, layers.DHCPOptRouter, layers.DHCPOptDNS,
		layers.DHCPOptRequestIP, layers.DHCPOptServerID:
		value, err = formatAddrList(opt.Payload)
	case layers.DHCPOptHostname, layers.DHCPOptDomainName, dhcpOptWPAD:
		value = string(opt.Payload)
	case layers.DHCPOptLeaseTime:
		value, err = formatUint(opt.Payload, 4)
		if err == nil {
			value += "s"
		}
	case layers.DHCPOptMaxMessageSize:
		value, err = formatUint(opt.Payload, 2)
	case layers.DHCPOptParamsRequest:
		names := make([]string, len(opt.Payload))
		for i, p := range opt.Payload {
			names[i] = fmt.Sprintf("%d (%s)", p, dhcpOptionName(layers.DHCPOpt(p)))
		}
		value = strings.Join(names, ", ")
	case layers.DHCPOptMessageType:
		value, err = dhcpMessageType(opt.Payload)
		if err == nil {
			fields = append(fields, core.Field{Key: core.FieldDHCPMsgType, Value: value})
		}
	default:
		s.debug(core.LayerDHCP, fmt.Sprintf("option %d (%s), length %d", opt.Type, name, opt.Length), fields...)
		for _, row := range HexDump(opt.Payload) {
			s.debug(core.LayerDHCP, row)
		}
		return
	}

	if err != nil {
		s.warn(core.LayerDHCP, fmt.Errorf("option %d (%s): %w", opt.Type, name, err), fields...)
		return
	}
	fields = append(fields, core.Field{Key: core.FieldDHCPValue, Value: value})
	s.debug(core.LayerDHCP, fmt.Sprintf("option %d (%s): %s", opt.Type, name, value), fields...)
}

func dhcpMessageType(p []byte) (string, error) {
	if len(p) != 1 {
		return "", fmt.Errorf("%w: message type length %d", core.ErrMalformed, len(p))
	}
	if int(p[0]) >= len(dhcpMessageTypes) || dhcpMessageTypes[p[0]] == "" {
		return "", fmt.Errorf("%w DHCP message type %d", core.ErrUnrecognized, p[0])
	}
	return dhcpMessageTypes[p[0]], nil
}

// formatAddrList renders a payload of packed IPv4 addresses.
func formatAddrList(p []byte) (string, error) {
	if len(p) == 0 || len(p)%4 != 0 {
		return "", fmt.Errorf("%w: length %d is not a multiple of 4", core.ErrMalformed, len(p))
	}
	addrs := make([]string, 0, len(p)/4)
	for i := 0; i < len(p); i += 4 {
		addrs = append(addrs, netip.AddrFrom4([4]byte(p[i:i+4])).String())
	}
	return strings.Join(addrs, ", "), nil
}

func formatUint(p []byte, size int) (string, error) {
	if len(p) != size {
		return "", fmt.Errorf("%w: length %d, want %d", core.ErrMalformed, len(p), size)
	}
	if size == 2 {
		return fmt.Sprintf("%d", binary.BigEndian.Uint16(p)), nil
	}
	return fmt.Sprintf("%d", binary.BigEndian.Uint32(p)), nil
}
