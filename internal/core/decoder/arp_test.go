package decoder

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktrace/internal/core"
)

func arpPayload(op byte) []byte {
	return concat(
		[]byte{
			0x00, 0x01, // Hardware type: Ethernet
			0x08, 0x00, // Protocol type: IPv4
			0x06, 0x04, // Address lengths
			0x00, op, // Operation
		},
		macA, ipA, // Sender
		make([]byte, 6), ipB, // Target
	)
}

func TestParseARPOffsets(t *testing.T) {
	data := arpPayload(1)
	c := NewCursor(data)

	p, err := parseARP(c)
	require.NoError(t, err)

	assert.Equal(t, data[8:14], p.sha)
	assert.Equal(t, data[14:18], p.spa)
	assert.Equal(t, data[18:24], p.tha)
	assert.Equal(t, data[24:28], p.tpa)
	assert.Equal(t, 28, c.Offset())
	assert.Equal(t, uint16(1), p.hdr.Operation())
}

func TestDecodeARPRequest(t *testing.T) {
	evs := decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(0x0806), arpPayload(1)))

	require.Equal(t, []string{"0 info ethernet", "0 info arp"}, summary(evs))
	assert.Equal(t, "who has 10.0.0.2? tell 10.0.0.1 (00:11:22:33:44:55)", evs[1].Message)
}

func TestDecodeARPReply(t *testing.T) {
	evs := decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(0x0806), arpPayload(2)))

	require.Equal(t, []string{"0 info ethernet", "0 info arp"}, summary(evs))
	assert.Equal(t, "10.0.0.1 is at 00:11:22:33:44:55", evs[1].Message)
}

func TestDecodeARPOtherOperation(t *testing.T) {
	evs := decodeFrame(t, layers.LinkTypeEthernet, concat(ethHeader(0x0806), arpPayload(9)))

	require.Len(t, evs, 2)
	assert.Equal(t, "op 9, sha 00:11:22:33:44:55, spa 10.0.0.1, tha 00:00:00:00:00:00, tpa 10.0.0.2", evs[1].Message)
}

func TestDecodeARPGarbage(t *testing.T) {
	// Minimum-size Ethernet frames carry 18 bytes of padding after an ARP packet.
	data := concat(ethHeader(0x0806), arpPayload(1), make([]byte, 18))
	evs := decodeFrame(t, layers.LinkTypeEthernet, data)

	assert.Equal(t, []string{
		"0 info ethernet", "0 info arp", "0 warning arp", "0 info raw", "0 debug raw", "0 debug raw",
	}, summary(evs))
	assert.Contains(t, evs[2].Message, "garbage after ARP packet")
}

func TestParseARPAddressLengthsExceedData(t *testing.T) {
	_, err := parseARP(NewCursor(arpPayload(1)[:18]))
	assert.ErrorIs(t, err, core.ErrMalformed)
	assert.NotErrorIs(t, err, core.ErrTruncated)

	_, err = parseARP(NewCursor(arpPayload(1)[:6]))
	assert.ErrorIs(t, err, core.ErrTruncated)
}

func TestDecodeARPTruncatedAddresses(t *testing.T) {
	data := concat(ethHeader(0x0806), arpPayload(1)[:18])
	evs := decodeFrame(t, layers.LinkTypeEthernet, data)

	require.Equal(t, []string{"0 info ethernet", "0 warning arp"}, summary(evs))
	op, ok := evs[1].Field(core.FieldARPOp)
	assert.True(t, ok)
	assert.Equal(t, "1", op)
	hln, _ := evs[1].Field("arp.hln")
	assert.Equal(t, "6", hln)
}

func TestFormatAddr(t *testing.T) {
	assert.Equal(t, "10.0.0.1", formatAddr(ipA))
	assert.Equal(t, "00:11:22:33:44:55", formatAddr(macA))
	assert.Equal(t, "0102", formatAddr([]byte{1, 2}))
	assert.Equal(t, "", formatAddr(nil))
}
