package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/core/decoder"
)

var linkNames = map[string]layers.LinkType{
	"ethernet": layers.LinkTypeEthernet,
	"null":     layers.LinkTypeNull,
	"loop":     layers.LinkTypeLoop,
	"raw":      layers.LinkTypeRaw,
	"sll":      layers.LinkTypeLinuxSLL,
	"ipv4":     layers.LinkTypeIPv4,
	"ipv6":     layers.LinkTypeIPv6,
}

func newDecodeCmd() *cobra.Command {
	var link string
	cmd := &cobra.Command{
		Use:   "decode HEX...",
		Short: "Decode frames given as hex strings",
		Long: `Decode each argument as one frame. Whitespace, ':' and '-' separators and a
leading 0x are ignored.

Examples:
  pktrace decode 'ffffffffffff 000000000001 0806 0001 0800 0604 0001 ...'
  pktrace decode --link raw 45000014000000004001...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cfg, link, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&link, "link", "ethernet",
		"link type of the frames: ethernet, null, loop, raw, sll, ipv4, ipv6 or a DLT number")
	return cmd
}

func parseLinkType(s string) (layers.LinkType, error) {
	if lt, ok := linkNames[strings.ToLower(s)]; ok {
		return lt, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown link type %q", core.ErrConfigInvalid, s)
	}
	return layers.LinkType(n), nil
}

func parseHexFrame(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ':', '-':
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(s)
}

func runDecode(c *config.Config, linkName string, args []string, w io.Writer) (err error) {
	link, err := parseLinkType(linkName)
	if err != nil {
		return err
	}
	frames := make([][]byte, len(args))
	for i, a := range args {
		if frames[i], err = parseHexFrame(a); err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
	}

	out, err := buildOutput(c.Trace, w)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	obs, _ := out.sink.(core.FrameObserver)
	d := decoder.NewDissector(decoderConfig(c.Trace), out.sink)
	for i, data := range frames {
		if obs != nil {
			obs.BeginFrame(core.FrameInfo{
				Index:      uint64(i + 1),
				LinkType:   link.String(),
				CaptureLen: len(data),
				OrigLen:    len(data),
			})
		}
		d.DecodeFrame(link, data)
		if obs != nil {
			obs.EndFrame()
		}
	}
	return nil
}
