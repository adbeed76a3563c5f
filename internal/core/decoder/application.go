package decoder

import (
	"fmt"
	"strconv"

	"github.com/miekg/dns"

	"firestige.xyz/pktrace/internal/core"
)

// decodeDNS decodes the DNS message header. Questions and resource records are not
// decoded.
func decodeDNS(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.DNSHeaderLen)
	if err != nil {
		s.warn(core.LayerDNS, fmt.Errorf("dns header: %w", err))
		return
	}
	h := core.DNSHeader(b)

	kind := "query"
	if h.QR() == 1 {
		kind = "response"
	}
	s.info(core.LayerDNS,
		fmt.Sprintf("%s id 0x%04x, opcode %s, rcode %s, qd %d an %d ns %d ar %d",
			kind, h.ID(), dnsOpcodeName(h.Opcode()), dnsRcodeName(h.Rcode()),
			h.QDCount(), h.ANCount(), h.NSCount(), h.ARCount()),
		hexField(core.FieldDNSID, h.ID()),
		field(core.FieldDNSQR, h.QR()),
		field(core.FieldDNSOpcode, h.Opcode()),
		field(core.FieldDNSAA, h.AA()),
		field(core.FieldDNSTC, h.TC()),
		field(core.FieldDNSRD, h.RD()),
		field(core.FieldDNSRA, h.RA()),
		field(core.FieldDNSZ, h.Z()),
		field(core.FieldDNSRcode, h.Rcode()),
		field(core.FieldDNSQDCount, h.QDCount()),
		field(core.FieldDNSANCount, h.ANCount()),
		field(core.FieldDNSNSCount, h.NSCount()),
		field(core.FieldDNSARCount, h.ARCount()),
	)
}

func dnsOpcodeName(op uint16) string {
	if name, ok := dns.OpcodeToString[int(op)]; ok {
		return name
	}
	return strconv.Itoa(int(op))
}

func dnsRcodeName(rc uint16) string {
	if name, ok := dns.RcodeToString[int(rc)]; ok {
		return name
	}
	return strconv.Itoa(int(rc))
}
