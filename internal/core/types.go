// Package core defines header views and the trace model with zero external dependencies.
package core

import (
	"encoding/binary"
	"net"
	"net/netip"
)

// Fixed header sizes in bytes.
const (
	EthernetHeaderLen = 14
	LoopbackHeaderLen = 4
	LinuxSLLHeaderLen = 16
	VLANTagLen        = 4
	ARPHeaderLen      = 8
	IPv4HeaderLen     = 20
	IPv6HeaderLen     = 40
	ICMPHeaderLen     = 4
	UDPHeaderLen      = 8
	TCPHeaderLen      = 20
	DNSHeaderLen      = 12
	BOOTPHeaderLen    = 236 // BOOTP header without the trailing 64-byte vendor area
	DHCPCookieLen     = 4
	VXLANHeaderLen    = 8
)

// The views below are read-only projections over a frame's bytes. Each must be at
// least as long as its fixed size; Cursor.TakeFixed hands out slices of exactly that
// size, so accessors never index out of range.

// EthernetHeader is a view over an Ethernet II header.
type EthernetHeader []byte

func (h EthernetHeader) Dst() net.HardwareAddr { return net.HardwareAddr(h[0:6]) }
func (h EthernetHeader) Src() net.HardwareAddr { return net.HardwareAddr(h[6:12]) }
func (h EthernetHeader) EtherType() uint16     { return binary.BigEndian.Uint16(h[12:14]) }

// LoopbackHeader is the 4-byte address family tag of BSD loopback captures.
type LoopbackHeader []byte

// Family returns the address family written in the capturing host's byte order.
// Family values are small, so a zero high half means the tag is big-endian.
func (h LoopbackHeader) Family() uint32 {
	if h[0] == 0 && h[1] == 0 {
		return binary.BigEndian.Uint32(h[0:4])
	}
	return binary.LittleEndian.Uint32(h[0:4])
}

// NetworkFamily returns the family for encodings that always use network byte order.
func (h LoopbackHeader) NetworkFamily() uint32 { return binary.BigEndian.Uint32(h[0:4]) }

// LinuxSLLHeader is a view over a Linux "cooked" capture header.
type LinuxSLLHeader []byte

func (h LinuxSLLHeader) PacketType() uint16 { return binary.BigEndian.Uint16(h[0:2]) }
func (h LinuxSLLHeader) ARPHRDType() uint16 { return binary.BigEndian.Uint16(h[2:4]) }
func (h LinuxSLLHeader) AddrLen() uint16    { return binary.BigEndian.Uint16(h[4:6]) }

// Addr returns the link-layer source address, clipped to the 8 bytes the header holds.
func (h LinuxSLLHeader) Addr() net.HardwareAddr {
	n := int(h.AddrLen())
	if n > 8 {
		n = 8
	}
	return net.HardwareAddr(h[6 : 6+n])
}

func (h LinuxSLLHeader) EtherType() uint16 { return binary.BigEndian.Uint16(h[14:16]) }

// VLANTag is an 802.1Q tag: tag control information followed by the inner ethertype.
type VLANTag []byte

func (t VLANTag) TCI() uint16       { return binary.BigEndian.Uint16(t[0:2]) }
func (t VLANTag) ID() uint16        { return Bits16(t.TCI(), 0, 12) }
func (t VLANTag) DEI() uint16       { return Bits16(t.TCI(), 12, 1) }
func (t VLANTag) Priority() uint16  { return Bits16(t.TCI(), 13, 3) }
func (t VLANTag) EtherType() uint16 { return binary.BigEndian.Uint16(t[2:4]) }

// ARPHeader is the fixed part of an ARP packet; the four addresses follow it.
type ARPHeader []byte

func (h ARPHeader) HardwareType() uint16 { return binary.BigEndian.Uint16(h[0:2]) }
func (h ARPHeader) ProtocolType() uint16 { return binary.BigEndian.Uint16(h[2:4]) }
func (h ARPHeader) HardwareLen() uint8   { return h[4] }
func (h ARPHeader) ProtocolLen() uint8   { return h[5] }
func (h ARPHeader) Operation() uint16    { return binary.BigEndian.Uint16(h[6:8]) }

// IPv4Header is a view over the fixed 20-byte IPv4 base header. Options are not covered.
type IPv4Header []byte

func (h IPv4Header) Version() uint8      { return h[0] >> 4 }
func (h IPv4Header) IHL() uint8          { return h[0] & 0x0F }
func (h IPv4Header) TotalLength() uint16 { return binary.BigEndian.Uint16(h[2:4]) }
func (h IPv4Header) TTL() uint8          { return h[8] }
func (h IPv4Header) Protocol() uint8     { return h[9] }
func (h IPv4Header) Src() netip.Addr     { return netip.AddrFrom4([4]byte(h[12:16])) }
func (h IPv4Header) Dst() netip.Addr     { return netip.AddrFrom4([4]byte(h[16:20])) }

// IPv6Header is a view over the fixed 40-byte IPv6 header.
type IPv6Header []byte

func (h IPv6Header) Version() uint8        { return h[0] >> 4 }
func (h IPv6Header) PayloadLength() uint16 { return binary.BigEndian.Uint16(h[4:6]) }
func (h IPv6Header) NextHeader() uint8     { return h[6] }
func (h IPv6Header) HopLimit() uint8       { return h[7] }
func (h IPv6Header) Src() netip.Addr       { return netip.AddrFrom16([16]byte(h[8:24])) }
func (h IPv6Header) Dst() netip.Addr       { return netip.AddrFrom16([16]byte(h[24:40])) }

// ICMPHeader covers the type, code and checksum shared by ICMP and ICMPv6.
type ICMPHeader []byte

func (h ICMPHeader) Type() uint8      { return h[0] }
func (h ICMPHeader) Code() uint8      { return h[1] }
func (h ICMPHeader) Checksum() uint16 { return binary.BigEndian.Uint16(h[2:4]) }

// UDPHeader is a view over the 8-byte UDP header.
type UDPHeader []byte

func (h UDPHeader) SrcPort() uint16  { return binary.BigEndian.Uint16(h[0:2]) }
func (h UDPHeader) DstPort() uint16  { return binary.BigEndian.Uint16(h[2:4]) }
func (h UDPHeader) Length() uint16   { return binary.BigEndian.Uint16(h[4:6]) }
func (h UDPHeader) Checksum() uint16 { return binary.BigEndian.Uint16(h[6:8]) }

// TCPHeader is a view over the 20-byte TCP base header.
type TCPHeader []byte

func (h TCPHeader) SrcPort() uint16   { return binary.BigEndian.Uint16(h[0:2]) }
func (h TCPHeader) DstPort() uint16   { return binary.BigEndian.Uint16(h[2:4]) }
func (h TCPHeader) Seq() uint32       { return binary.BigEndian.Uint32(h[4:8]) }
func (h TCPHeader) Ack() uint32       { return binary.BigEndian.Uint32(h[8:12]) }
func (h TCPHeader) DataOffset() uint8 { return h[12] >> 4 }
func (h TCPHeader) Flags() uint8      { return h[13] & 0x3F }
func (h TCPHeader) Window() uint16    { return binary.BigEndian.Uint16(h[14:16]) }
func (h TCPHeader) Checksum() uint16  { return binary.BigEndian.Uint16(h[16:18]) }

// DNSHeader is a view over the 12-byte DNS message header.
//
// Flag word layout: [15]=QR [14:11]=OPCODE [10]=AA [9]=TC [8]=RD [7]=RA [6:4]=Z [3:0]=RCODE.
type DNSHeader []byte

func (h DNSHeader) ID() uint16      { return binary.BigEndian.Uint16(h[0:2]) }
func (h DNSHeader) Flags() uint16   { return binary.BigEndian.Uint16(h[2:4]) }
func (h DNSHeader) QR() uint16      { return Bits16(h.Flags(), 15, 1) }
func (h DNSHeader) Opcode() uint16  { return Bits16(h.Flags(), 11, 4) }
func (h DNSHeader) AA() uint16      { return Bits16(h.Flags(), 10, 1) }
func (h DNSHeader) TC() uint16      { return Bits16(h.Flags(), 9, 1) }
func (h DNSHeader) RD() uint16      { return Bits16(h.Flags(), 8, 1) }
func (h DNSHeader) RA() uint16      { return Bits16(h.Flags(), 7, 1) }
func (h DNSHeader) Z() uint16       { return Bits16(h.Flags(), 4, 3) }
func (h DNSHeader) Rcode() uint16   { return Bits16(h.Flags(), 0, 4) }
func (h DNSHeader) QDCount() uint16 { return binary.BigEndian.Uint16(h[4:6]) }
func (h DNSHeader) ANCount() uint16 { return binary.BigEndian.Uint16(h[6:8]) }
func (h DNSHeader) NSCount() uint16 { return binary.BigEndian.Uint16(h[8:10]) }
func (h DNSHeader) ARCount() uint16 { return binary.BigEndian.Uint16(h[10:12]) }

// BOOTPHeader is a view over the fixed BOOTP fields (RFC 951) up to, but excluding,
// the vendor area.
type BOOTPHeader []byte

func (h BOOTPHeader) Op() uint8               { return h[0] }
func (h BOOTPHeader) HardwareType() uint8     { return h[1] }
func (h BOOTPHeader) HardwareLen() uint8      { return h[2] }
func (h BOOTPHeader) Hops() uint8             { return h[3] }
func (h BOOTPHeader) XID() uint32             { return binary.BigEndian.Uint32(h[4:8]) }
func (h BOOTPHeader) Secs() uint16            { return binary.BigEndian.Uint16(h[8:10]) }
func (h BOOTPHeader) Flags() uint16           { return binary.BigEndian.Uint16(h[10:12]) }
func (h BOOTPHeader) ClientAddr() netip.Addr  { return netip.AddrFrom4([4]byte(h[12:16])) }
func (h BOOTPHeader) YourAddr() netip.Addr    { return netip.AddrFrom4([4]byte(h[16:20])) }
func (h BOOTPHeader) ServerAddr() netip.Addr  { return netip.AddrFrom4([4]byte(h[20:24])) }
func (h BOOTPHeader) GatewayAddr() netip.Addr { return netip.AddrFrom4([4]byte(h[24:28])) }

// ClientHardwareAddr returns chaddr clipped to the declared hardware length (max 16).
func (h BOOTPHeader) ClientHardwareAddr() net.HardwareAddr {
	n := int(h.HardwareLen())
	if n > 16 {
		n = 16
	}
	return net.HardwareAddr(h[28 : 28+n])
}

// VXLANHeader is a view over the 8-byte VXLAN (RFC 7348, with group policy) header.
type VXLANHeader []byte

func (h VXLANHeader) Flags() uint16       { return binary.BigEndian.Uint16(h[0:2]) }
func (h VXLANHeader) GroupPolicy() uint16 { return binary.BigEndian.Uint16(h[2:4]) }

// VNI returns the 24-bit network identifier held in the upper bits of the last word.
func (h VXLANHeader) VNI() uint32 { return binary.BigEndian.Uint32(h[4:8]) >> 8 }

// Bits16 extracts width bits of v starting at bit shift (0 = least significant).
func Bits16(v uint16, shift, width uint) uint16 {
	return (v >> shift) & (1<<width - 1)
}
