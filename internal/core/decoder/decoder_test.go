package decoder

import (
	"net"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/sink"
)

func TestDecodeEthernetTooShort(t *testing.T) {
	evs := decodeFrame(t, layers.LinkTypeEthernet, make([]byte, 10))

	require.Len(t, evs, 1)
	assert.Equal(t, core.SeverityWarning, evs[0].Severity)
	assert.Equal(t, core.LayerEthernet, evs[0].Layer)
	assert.Contains(t, evs[0].Message, "truncated")
}

func TestDecodeEthernetIPv4ICMP(t *testing.T) {
	data := concat(ethHeader(0x0800), ipv4Header(1, 4), icmpEcho())
	evs := decodeFrame(t, layers.LinkTypeEthernet, data)

	want := []string{"0 info ethernet", "0 info ipv4", "0 info icmp"}
	if diff := cmp.Diff(want, summary(evs)); diff != "" {
		t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
	}

	eth := evs[0]
	src, _ := eth.Field(core.FieldEthSrc)
	assert.Equal(t, "00:11:22:33:44:55", src)
	et, _ := eth.Field(core.FieldEthType)
	assert.Equal(t, "0x0800", et)

	ip := evs[1]
	v, _ := ip.Field(core.FieldIPSrc)
	assert.Equal(t, "10.0.0.1", v)
	v, _ = ip.Field(core.FieldIPDst)
	assert.Equal(t, "10.0.0.2", v)
	v, _ = ip.Field(core.FieldIPProtocol)
	assert.Equal(t, "1", v)

	assert.Contains(t, evs[2].Message, "EchoRequest")
}

func TestDecodeShortLayerYieldsOneWarning(t *testing.T) {
	full := udpFrame(40000, 53, []byte{0x12, 0x34, 0x81, 0x80, 0, 1, 0, 1, 0, 0, 0, 0})

	for n := 0; n < len(full); n++ {
		evs := decodeFrame(t, layers.LinkTypeEthernet, full[:n])
		if got := countSeverity(evs, core.SeverityWarning); got != 1 {
			t.Errorf("prefix of %d bytes: expected exactly 1 warning, got %d: %v", n, got, summary(evs))
		}
	}
	evs := decodeFrame(t, layers.LinkTypeEthernet, full)
	assert.Zero(t, countSeverity(evs, core.SeverityWarning))
}

func TestDecodeVLAN(t *testing.T) {
	data := concat(
		ethHeader(0x8100),
		[]byte{0x0A, 0xBC, 0x08, 0x00}, // TCI 0x0ABC, inner IPv4
		ipv4Header(1, 4),
		icmpEcho(),
	)
	evs := decodeFrame(t, layers.LinkTypeEthernet, data)

	want := []string{"0 info ethernet", "0 info vlan", "1 info ipv4", "1 info icmp"}
	if diff := cmp.Diff(want, summary(evs)); diff != "" {
		t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
	}
	id, _ := evs[1].Field(core.FieldVLANID)
	assert.Equal(t, "2748", id)
	prio, _ := evs[1].Field(core.FieldVLANPriority)
	assert.Equal(t, "0", prio)
}

func TestDecodeStackedVLAN(t *testing.T) {
	data := concat(
		ethHeader(0x88A8),
		[]byte{0x20, 0x64, 0x81, 0x00}, // S-tag: priority 1, vlan 100
		[]byte{0x00, 0xC8, 0x08, 0x00}, // C-tag: vlan 200
		ipv4Header(1, 4),
		icmpEcho(),
	)
	evs := decodeFrame(t, layers.LinkTypeEthernet, data)

	want := []string{"0 info ethernet", "0 info vlan", "1 info vlan", "2 info ipv4", "2 info icmp"}
	if diff := cmp.Diff(want, summary(evs)); diff != "" {
		t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
	}
	outer, _ := evs[1].Field(core.FieldVLANID)
	prio, _ := evs[1].Field(core.FieldVLANPriority)
	inner, _ := evs[2].Field(core.FieldVLANID)
	assert.Equal(t, "100", outer)
	assert.Equal(t, "1", prio)
	assert.Equal(t, "200", inner)
}

func TestDecodeDepthBound(t *testing.T) {
	data := ethHeader(0x8100)
	for i := 0; i < 5; i++ {
		data = append(data, 0x00, 0x01, 0x81, 0x00)
	}
	evs := decodeWith(t, Config{MaxDepth: 2}, layers.LinkTypeEthernet, data)

	want := []string{"0 info ethernet", "0 info vlan", "1 info vlan", "2 info vlan", "2 warning frame"}
	if diff := cmp.Diff(want, summary(evs)); diff != "" {
		t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, evs[4].Message, "maximum nesting depth exceeded")
}

// vxlanChain nests n VXLAN encapsulations around an ICMP echo.
func vxlanChain(n int) []byte {
	frame := concat(ethHeader(0x0800), ipv4Header(1, 4), icmpEcho())
	for i := 0; i < n; i++ {
		frame = udpFrame(50000, 4789, concat([]byte{0x08, 0, 0, 0, 0, 0, byte(i), 0}, frame))
	}
	return frame
}

func TestDecodeVXLANDepthBound(t *testing.T) {
	const maxDepth = 10
	evs := decodeWith(t, Config{MaxDepth: maxDepth}, layers.LinkTypeEthernet, vxlanChain(100))

	require.NotEmpty(t, evs)
	assert.Equal(t, 1, countSeverity(evs, core.SeverityWarning), summary(evs))
	for _, ev := range evs {
		assert.LessOrEqual(t, ev.Depth, maxDepth, ev.Message)
	}

	last := evs[len(evs)-1]
	assert.Equal(t, core.LayerFrame, last.Layer)
	assert.Equal(t, core.SeverityWarning, last.Severity)
	assert.Equal(t, maxDepth, last.Depth)
	assert.Contains(t, last.Message, "maximum nesting depth exceeded")
}

func TestDecodeVXLANChainWithinBound(t *testing.T) {
	evs := decodeWith(t, Config{MaxDepth: 32}, layers.LinkTypeEthernet, vxlanChain(3))

	assert.Zero(t, countSeverity(evs, core.SeverityWarning), summary(evs))
	icmp, ok := findLayer(evs, core.LayerICMP)
	require.True(t, ok)
	assert.Equal(t, 6, icmp.Depth)
}

func TestDecodeUnknownEtherType(t *testing.T) {
	evs := decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(0x1234), []byte{1, 2, 3}))

	assert.Equal(t, []string{"0 info ethernet", "0 warning ethernet"}, summary(evs))
	assert.Contains(t, evs[1].Message, "0x1234")
}

func TestDecodeUnhandledEtherType(t *testing.T) {
	for et, name := range map[uint16]string{0x88CC: "LLDP", 0x8035: "RARP", 0x8847: "MPLS", 0x0200: "PUP"} {
		evs := decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(et), []byte{1, 2, 3}))

		require.Equal(t, []string{"0 info ethernet", "0 debug ethernet"}, summary(evs))
		assert.Equal(t, "unhandled "+name, evs[1].Message)
	}
}

func TestDecodeUnknownLinkType(t *testing.T) {
	evs := decodeFrame(t, layers.LinkType(147), []byte{0xde, 0xad, 0xbe, 0xef})

	assert.Equal(t, []string{"0 warning frame", "0 info raw", "0 debug raw"}, summary(evs))
	assert.Equal(t, "Raw (length 4)", evs[1].Message)
	assert.True(t, strings.HasPrefix(evs[2].Message, "de ad be ef "))
}

func TestDecodeLoopback(t *testing.T) {
	ipv6 := concat(
		[]byte{0x60, 0x00, 0x00, 0x00, 0x00, 0x04, 58, 64},
		net.ParseIP("fe80::1").To16(),
		net.ParseIP("fe80::2").To16(),
		[]byte{0x80, 0x00, 0x00, 0x00}, // Echo request
	)
	tests := []struct {
		name string
		link layers.LinkType
		data []byte
		want []string
	}{
		{
			name: "null little-endian inet",
			link: layers.LinkTypeNull,
			data: concat([]byte{0x02, 0x00, 0x00, 0x00}, ipv4Header(1, 4), icmpEcho()),
			want: []string{"0 info loopback", "0 info ipv4", "0 info icmp"},
		},
		{
			name: "null big-endian inet",
			link: layers.LinkTypeNull,
			data: concat([]byte{0x00, 0x00, 0x00, 0x02}, ipv4Header(1, 4), icmpEcho()),
			want: []string{"0 info loopback", "0 info ipv4", "0 info icmp"},
		},
		{
			name: "loop inet6",
			link: layers.LinkTypeLoop,
			data: concat([]byte{0x00, 0x00, 0x00, 24}, ipv6),
			want: []string{"0 info loopback", "0 info ipv6", "0 info icmpv6"},
		},
		{
			name: "null linux inet6",
			link: layers.LinkTypeNull,
			data: concat([]byte{10, 0x00, 0x00, 0x00}, ipv6),
			want: []string{"0 info loopback", "0 info ipv6", "0 info icmpv6"},
		},
		{
			name: "unknown family",
			link: layers.LinkTypeNull,
			data: []byte{0x07, 0x00, 0x00, 0x00, 0x01},
			want: []string{"0 info loopback", "0 warning ethernet"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs := decodeFrame(t, tt.link, tt.data)
			if diff := cmp.Diff(tt.want, summary(evs)); diff != "" {
				t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeRawLinkTypes(t *testing.T) {
	ip := concat(ipv4Header(1, 4), icmpEcho())

	for _, link := range []layers.LinkType{layers.LinkTypeRaw, layers.LinkTypeIPv4} {
		evs := decodeFrame(t, link, ip)
		assert.Equal(t, []string{"0 info ipv4", "0 info icmp"}, summary(evs), "link %d", link)
	}
}

func TestDecodeLinuxSLL(t *testing.T) {
	data := concat(
		[]byte{0x00, 0x04, 0x00, 0x01, 0x00, 0x06}, // sent by us, ARPHRD_ETHER, 6-byte address
		macA, []byte{0x00, 0x00},
		[]byte{0x08, 0x00},
		ipv4Header(1, 4),
		icmpEcho(),
	)
	evs := decodeFrame(t, layers.LinkTypeLinuxSLL, data)

	assert.Equal(t, []string{"0 info sll", "0 info ipv4", "0 info icmp"}, summary(evs))
	addr, _ := evs[0].Field(core.FieldSLLAddr)
	assert.Equal(t, "00:11:22:33:44:55", addr)
	assert.Contains(t, evs[0].Message, "sent by us")
}

func TestDecodeIPv4Options(t *testing.T) {
	hdr := ipv4Header(1, 8)
	hdr[0] = 0x46 // IHL 6
	data := concat(ethHeader(0x0800), hdr, []byte{0x01, 0x01, 0x01, 0x00}, icmpEcho())

	evs := decodeFrame(t, layers.LinkTypeEthernet, data)
	assert.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 info icmp"}, summary(evs))

	hdr[0] = 0x44 // IHL below the minimum
	evs = decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(0x0800), hdr, icmpEcho()))
	assert.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 warning ipv4"}, summary(evs))
}

func TestDecodeUnknownProtocol(t *testing.T) {
	evs := decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(0x0800), ipv4Header(99, 0)))

	assert.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 warning ipv4"}, summary(evs))
	assert.Contains(t, evs[2].Message, "99")
}

func TestDecodeTCP(t *testing.T) {
	tcp := []byte{
		0x13, 0x88, // Src Port: 5000
		0x00, 0x50, // Dst Port: 80
		0x00, 0x00, 0x00, 0x01, // Seq
		0x00, 0x00, 0x00, 0x00, // Ack
		0x50,       // Data Offset: 5
		0x12,       // Flags: SYN + ACK
		0x20, 0x00, // Window
		0xAB, 0xCD, // Checksum
		0x00, 0x00, // Urgent Pointer
	}
	evs := decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(0x0800), ipv4Header(6, len(tcp)), tcp))

	require.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 info tcp"}, summary(evs))
	flags, _ := evs[2].Field(core.FieldTCPFlags)
	assert.Equal(t, "SYN,ACK", flags)
	sum, _ := evs[2].Field(core.FieldChecksum)
	assert.Equal(t, "0xabcd", sum)
}

func TestDecodeUDPNoHandler(t *testing.T) {
	data := udpFrame(1000, 2000, []byte{1, 2, 3})

	evs := decodeFrame(t, layers.LinkTypeEthernet, data)
	assert.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 info udp", "1 debug udp"}, summary(evs))
	assert.Contains(t, evs[3].Message, "no handler")

	evs = decodeWith(t, Config{DumpUnknownPayloads: true}, layers.LinkTypeEthernet, data)
	assert.Equal(t, []string{
		"0 info ethernet", "0 info ipv4", "0 info udp", "1 debug udp", "1 info raw", "1 debug raw",
	}, summary(evs))
}

func TestDecodeUDPSourcePortFallback(t *testing.T) {
	dns := []byte{0x12, 0x34, 0x01, 0x00, 0, 1, 0, 0, 0, 0, 0, 0}
	evs := decodeFrame(t, layers.LinkTypeEthernet, udpFrame(53, 40000, dns))

	_, ok := findLayer(evs, core.LayerDNS)
	assert.True(t, ok, "expected a dns event, got %v", summary(evs))
}

func TestDecodeDNSHeader(t *testing.T) {
	dns := []byte{
		0x12, 0x34, // ID
		0x81, 0x80, // Flags: QR=1 RD=1 RA=1
		0x00, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01,
	}
	evs := decodeFrame(t, layers.LinkTypeEthernet, udpFrame(40000, 53, dns))

	require.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 info udp", "1 info dns"}, summary(evs))
	ev := evs[3]
	want := map[string]string{
		core.FieldDNSID:      "0x1234",
		core.FieldDNSQR:      "1",
		core.FieldDNSOpcode:  "0",
		core.FieldDNSAA:      "0",
		core.FieldDNSTC:      "0",
		core.FieldDNSRD:      "1",
		core.FieldDNSRA:      "1",
		core.FieldDNSZ:       "0",
		core.FieldDNSRcode:   "0",
		core.FieldDNSQDCount: "1",
		core.FieldDNSANCount: "2",
		core.FieldDNSARCount: "1",
	}
	for k, v := range want {
		got, ok := ev.Field(k)
		if !ok || got != v {
			t.Errorf("Expected %s=%s, got %q", k, v, got)
		}
	}
	assert.Contains(t, ev.Message, "response")
	assert.Contains(t, ev.Message, "QUERY")
	assert.Contains(t, ev.Message, "NOERROR")
}

func TestDecodeSerializedDNS(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(macA),
		DstMAC:       net.HardwareAddr(macB),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(ipA),
		DstIP:    net.IP(ipB),
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	dns := gopacket.Payload{0xBE, 0xEF, 0x05, 0x00, 0, 1, 0, 0, 0, 0, 0, 0}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, dns))

	evs := decodeFrame(t, layers.LinkTypeEthernet, buf.Bytes())
	require.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 info udp", "1 info dns"}, summary(evs))

	ttl, _ := evs[1].Field(core.FieldIPTTL)
	assert.Equal(t, "64", ttl)
	opcode, _ := evs[3].Field(core.FieldDNSOpcode)
	assert.Equal(t, "0", opcode)
	aa, _ := evs[3].Field(core.FieldDNSAA)
	assert.Equal(t, "1", aa)
	rd, _ := evs[3].Field(core.FieldDNSRD)
	assert.Equal(t, "1", rd)
	assert.Contains(t, evs[3].Message, "query")
}

func TestDecodeVXLANRecursion(t *testing.T) {
	inner := concat(ethHeader(0x0800), ipv4Header(1, 4), icmpEcho())
	vxlan := []byte{0x08, 0x00, 0x00, 0x00, 0x12, 0x34, 0x56, 0x00}
	frame := udpFrame(50000, 4789, concat(vxlan, inner))

	rec := sink.NewRecorder()
	d := NewDissector(Config{}, rec)
	d.DecodeFrame(layers.LinkTypeEthernet, frame)

	want := []string{
		"0 info ethernet", "0 info ipv4", "0 info udp",
		"1 info vxlan",
		"2 info ethernet", "2 info ipv4", "2 info icmp",
	}
	evs := rec.Events()
	if diff := cmp.Diff(want, summary(evs)); diff != "" {
		t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
	}
	vni, _ := evs[3].Field(core.FieldVXLANVNI)
	assert.Equal(t, "1193046", vni)
	flags, _ := evs[3].Field(core.FieldVXLANFlags)
	assert.Equal(t, "0x0800", flags)

	// The next frame starts again at the top level.
	rec.Reset()
	d.DecodeFrame(layers.LinkTypeEthernet, inner)
	assert.Equal(t, []string{"0 info ethernet", "0 info ipv4", "0 info icmp"}, summary(rec.Events()))
}

func TestDecodeIdempotent(t *testing.T) {
	inner := concat(ethHeader(0x0800), ipv4Header(1, 4), icmpEcho())
	frame := udpFrame(50000, 4789, concat([]byte{0x08, 0, 0, 0, 0, 0, 0x2A, 0}, inner))
	orig := append([]byte(nil), frame...)

	first := decodeFrame(t, layers.LinkTypeEthernet, frame)
	second := decodeFrame(t, layers.LinkTypeEthernet, frame)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("decoding is not idempotent (-first +second):\n%s", diff)
	}
	assert.Equal(t, orig, frame, "decoding must not modify the frame")
}

type panicOnceSink struct {
	sink.Recorder
	panicked bool
}

func (p *panicOnceSink) Emit(ev core.TraceEvent) {
	if !p.panicked {
		p.panicked = true
		panic("sink exploded")
	}
	p.Recorder.Emit(ev)
}

func TestDecodeFrameRecoversPanic(t *testing.T) {
	s := &panicOnceSink{}
	assert.NotPanics(t, func() {
		NewDissector(Config{}, s).DecodeFrame(layers.LinkTypeEthernet, concat(ethHeader(0x0800), ipv4Header(1, 4), icmpEcho()))
	})

	evs := s.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, core.SeverityError, evs[0].Severity)
	assert.Contains(t, evs[0].Message, "sink exploded")
}

type panicSink struct{ calls int }

func (p *panicSink) Emit(core.TraceEvent) {
	p.calls++
	panic("sink always fails")
}

func TestDecodeFrameSurvivesPanickingSink(t *testing.T) {
	s := &panicSink{}
	d := NewDissector(Config{}, s)
	frame := concat(ethHeader(0x0800), ipv4Header(1, 4), icmpEcho())

	assert.NotPanics(t, func() { d.DecodeFrame(layers.LinkTypeEthernet, frame) })
	assert.Equal(t, 2, s.calls)

	// The dissector stays usable afterwards.
	assert.NotPanics(t, func() { d.DecodeFrame(layers.LinkTypeEthernet, frame) })
	assert.Equal(t, 4, s.calls)
}

func TestDecodeNeverFails(t *testing.T) {
	links := []layers.LinkType{
		layers.LinkTypeEthernet, layers.LinkTypeNull, layers.LinkTypeLoop,
		layers.LinkTypeLinuxSLL, layers.LinkTypeRaw, layers.LinkTypeIPv6,
	}
	rapid.Check(t, func(t *rapid.T) {
		link := rapid.SampledFrom(links).Draw(t, "link")
		data := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(t, "data")

		rec := sink.NewRecorder()
		NewDissector(Config{MaxDepth: 8}, rec).DecodeFrame(link, data)
		for _, ev := range rec.Events() {
			if ev.Severity <= core.SeverityError {
				t.Fatalf("unexpected %s event: %s", ev.Severity, ev.Message)
			}
			if ev.Depth > 8 {
				t.Fatalf("depth %d beyond bound", ev.Depth)
			}
		}
	})
}

func TestDecodeRandomIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "data")
		a, b := sink.NewRecorder(), sink.NewRecorder()
		NewDissector(Config{}, a).DecodeFrame(layers.LinkTypeEthernet, data)
		NewDissector(Config{}, b).DecodeFrame(layers.LinkTypeEthernet, data)
		if diff := cmp.Diff(a.Events(), b.Events()); diff != "" {
			t.Fatalf("decoding is not idempotent:\n%s", diff)
		}
	})
}
