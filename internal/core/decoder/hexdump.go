package decoder

import (
	"fmt"
	"strings"

	"firestige.xyz/pktrace/internal/core"
)

const hexDumpWidth = 16

// HexDump renders b as rows of 16 bytes: hex cells, a gap, then printable ASCII.
// Both halves put an extra space after the eighth cell. Cells past the end of b are
// blank so every row has the same width.
func HexDump(b []byte) []string {
	rows := make([]string, 0, (len(b)+hexDumpWidth-1)/hexDumpWidth)
	var sb strings.Builder
	for i := 0; i < len(b); i += hexDumpWidth {
		sb.Reset()
		for j := 0; j < hexDumpWidth; j++ {
			if i+j < len(b) {
				fmt.Fprintf(&sb, "%02x ", b[i+j])
			} else {
				sb.WriteString("   ")
			}
			if j == 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("  ")
		for j := 0; j < hexDumpWidth; j++ {
			switch {
			case i+j >= len(b):
				sb.WriteByte(' ')
			case b[i+j] >= 0x20 && b[i+j] <= 0x7e:
				sb.WriteByte(b[i+j])
			default:
				sb.WriteByte('.')
			}
			if j == 7 {
				sb.WriteByte(' ')
			}
		}
		rows = append(rows, sb.String())
	}
	return rows
}

// dumpRaw emits the length of b followed by one debug event per hex dump row.
func dumpRaw(s scope, b []byte) {
	s.info(core.LayerRaw, fmt.Sprintf("Raw (length %d)", len(b)), field(core.FieldRawLength, len(b)))
	for _, row := range HexDump(b) {
		s.debug(core.LayerRaw, row)
	}
}
