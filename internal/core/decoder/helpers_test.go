package decoder

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/sink"
)

var (
	macA = []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	macB = []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	ipA  = []byte{10, 0, 0, 1}
	ipB  = []byte{10, 0, 0, 2}
)

func decodeWith(t *testing.T, cfg Config, link layers.LinkType, data []byte) []core.TraceEvent {
	t.Helper()
	rec := sink.NewRecorder()
	NewDissector(cfg, rec).DecodeFrame(link, data)
	return rec.Events()
}

func decodeFrame(t *testing.T, link layers.LinkType, data []byte) []core.TraceEvent {
	t.Helper()
	return decodeWith(t, Config{}, link, data)
}

// summary renders events as "depth severity layer" for sequence comparisons.
func summary(evs []core.TraceEvent) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = fmt.Sprintf("%d %s %s", ev.Depth, ev.Severity, ev.Layer)
	}
	return out
}

func countSeverity(evs []core.TraceEvent, sev core.Severity) int {
	n := 0
	for _, ev := range evs {
		if ev.Severity == sev {
			n++
		}
	}
	return n
}

func findLayer(evs []core.TraceEvent, layer string) (core.TraceEvent, bool) {
	for _, ev := range evs {
		if ev.Layer == layer && ev.Severity == core.SeverityInfo {
			return ev, true
		}
	}
	return core.TraceEvent{}, false
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ethHeader(etherType uint16) []byte {
	b := concat(macB, macA, []byte{0, 0})
	binary.BigEndian.PutUint16(b[12:], etherType)
	return b
}

func ipv4Header(proto uint8, payloadLen int) []byte {
	b := []byte{
		0x45, 0x00, 0x00, 0x00, // Version 4, IHL 5, total length
		0x00, 0x01, 0x00, 0x00, // ID, flags, fragment offset
		0x40, proto, 0x00, 0x00, // TTL 64, protocol, checksum
	}
	binary.BigEndian.PutUint16(b[2:], uint16(core.IPv4HeaderLen+payloadLen))
	return concat(b, ipA, ipB)
}

func udpHeader(sport, dport uint16, payloadLen int) []byte {
	b := make([]byte, core.UDPHeaderLen)
	binary.BigEndian.PutUint16(b[0:], sport)
	binary.BigEndian.PutUint16(b[2:], dport)
	binary.BigEndian.PutUint16(b[4:], uint16(core.UDPHeaderLen+payloadLen))
	return b
}

func icmpEcho() []byte {
	return []byte{0x08, 0x00, 0xF7, 0xFF} // Echo request
}

// udpFrame wraps payload in Ethernet, IPv4 and UDP headers.
func udpFrame(sport, dport uint16, payload []byte) []byte {
	return concat(
		ethHeader(0x0800),
		ipv4Header(17, core.UDPHeaderLen+len(payload)),
		udpHeader(sport, dport, len(payload)),
		payload,
	)
}
