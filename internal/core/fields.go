package core

// Field key constants following the {protocol}.{field} convention.
const (
	FieldEthSrc  = "eth.src"
	FieldEthDst  = "eth.dst"
	FieldEthType = "eth.type"

	FieldLoopFamily = "loop.family"

	FieldSLLAddr       = "sll.addr"
	FieldSLLPacketType = "sll.packet_type"

	FieldVLANID       = "vlan.id"
	FieldVLANPriority = "vlan.priority"
	FieldVLANDEI      = "vlan.dei"

	FieldARPOp  = "arp.op"
	FieldARPSHA = "arp.sha" // Sender hardware address
	FieldARPSPA = "arp.spa" // Sender protocol address
	FieldARPTHA = "arp.tha"
	FieldARPTPA = "arp.tpa"

	FieldIPSrc      = "ip.src"
	FieldIPDst      = "ip.dst"
	FieldIPProtocol = "ip.protocol"
	FieldIPTTL      = "ip.ttl"

	FieldICMPType = "icmp.type"
	FieldICMPCode = "icmp.code"

	FieldSrcPort  = "l4.sport"
	FieldDstPort  = "l4.dport"
	FieldLength   = "l4.length"
	FieldChecksum = "l4.checksum"
	FieldTCPFlags = "tcp.flags"

	FieldDNSID      = "dns.id"
	FieldDNSQR      = "dns.qr"
	FieldDNSOpcode  = "dns.opcode"
	FieldDNSAA      = "dns.aa"
	FieldDNSTC      = "dns.tc"
	FieldDNSRD      = "dns.rd"
	FieldDNSRA      = "dns.ra"
	FieldDNSZ       = "dns.z"
	FieldDNSRcode   = "dns.rcode"
	FieldDNSQDCount = "dns.qdcount"
	FieldDNSANCount = "dns.ancount"
	FieldDNSNSCount = "dns.nscount"
	FieldDNSARCount = "dns.arcount"

	FieldBOOTPOp     = "bootp.op"
	FieldBOOTPHType  = "bootp.htype"
	FieldBOOTPHLen   = "bootp.hlen"
	FieldBOOTPHops   = "bootp.hops"
	FieldBOOTPXID    = "bootp.xid"
	FieldBOOTPCIAddr = "bootp.ciaddr"
	FieldBOOTPYIAddr = "bootp.yiaddr"
	FieldBOOTPSIAddr = "bootp.siaddr"
	FieldBOOTPGIAddr = "bootp.giaddr"
	FieldBOOTPCHAddr = "bootp.chaddr"

	FieldDHCPOption  = "dhcp.option"
	FieldDHCPLength  = "dhcp.length"
	FieldDHCPValue   = "dhcp.value"
	FieldDHCPMsgType = "dhcp.msg_type"

	FieldVXLANFlags       = "vxlan.flags"
	FieldVXLANGroupPolicy = "vxlan.group_policy"
	FieldVXLANVNI         = "vxlan.vni"

	FieldRawLength = "raw.length"
	FieldCode      = "code" // Dispatch code that had no decoder
)

// Layer names carried in TraceEvent.Layer.
const (
	LayerFrame    = "frame"
	LayerEthernet = "ethernet"
	LayerLoopback = "loopback"
	LayerSLL      = "sll"
	LayerVLAN     = "vlan"
	LayerARP      = "arp"
	LayerIPv4     = "ipv4"
	LayerIPv6     = "ipv6"
	LayerICMP     = "icmp"
	LayerICMPv6   = "icmpv6"
	LayerUDP      = "udp"
	LayerTCP      = "tcp"
	LayerDNS      = "dns"
	LayerBOOTP    = "bootp"
	LayerDHCP     = "dhcp"
	LayerVXLAN    = "vxlan"
	LayerRaw      = "raw"
)
