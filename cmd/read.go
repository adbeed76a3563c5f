package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/source"
)

func newReadCmd() *cobra.Command {
	var (
		filter string
		count  uint64
	)
	cmd := &cobra.Command{
		Use:   "read FILE",
		Short: "Decode the frames of a pcap or pcapng file",
		Long: `Decode every frame of a capture file. The format (pcap or pcapng) is detected
from the file header. Use "-" to read from standard input.

Examples:
  pktrace read trace.pcap
  pktrace read -f "udp port 53" -v trace.pcapng
  tcpdump -w - -i eth0 | pktrace read --format json -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runRead(ctx, cfg, args[0], filter, count, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "BPF filter expression (overrides capture.filter)")
	cmd.Flags().Uint64VarP(&count, "count", "n", 0, "stop after this many frames (0 for all)")
	return cmd
}

func runRead(ctx context.Context, c *config.Config, path, filterExpr string, count uint64, w io.Writer) error {
	src, err := source.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()
	if src.LinkType() == source.LinkTypeUnsupported {
		slog.Warn("capture link type has no decoder", "path", path, "dlt", src.DLT())
	}

	if filterExpr == "" {
		filterExpr = c.Capture.Filter
	}
	var filter *source.Filter
	if filterExpr != "" {
		filter, err = source.NewFilterExpr(src.LinkType(), c.Capture.SnapLen, filterExpr)
		if err != nil {
			return fmt.Errorf("filter %q: %w", filterExpr, err)
		}
	}
	return runCapture(ctx, c, src, filter, count, w)
}
