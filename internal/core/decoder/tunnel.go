package decoder

import (
	"fmt"

	"firestige.xyz/pktrace/internal/core"
)

// decodeVXLAN decodes a VXLAN header and decodes the encapsulated Ethernet frame one
// level down.
func decodeVXLAN(s scope, c *Cursor) {
	b, err := c.TakeFixed(core.VXLANHeaderLen)
	if err != nil {
		s.warn(core.LayerVXLAN, fmt.Errorf("vxlan header: %w", err))
		return
	}
	h := core.VXLANHeader(b)
	s.info(core.LayerVXLAN,
		fmt.Sprintf("vni %d, flags 0x%04x, group policy %d", h.VNI(), h.Flags(), h.GroupPolicy()),
		field(core.FieldVXLANVNI, h.VNI()),
		hexField(core.FieldVXLANFlags, h.Flags()),
		field(core.FieldVXLANGroupPolicy, h.GroupPolicy()),
	)

	inner, ok := s.nested()
	if !ok {
		return
	}
	decodeEthernet(inner, c)
}
