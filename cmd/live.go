package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/source"
)

func newLiveCmd() *cobra.Command {
	var (
		iface  string
		filter string
		count  uint64
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Decode live traffic from a network interface",
		Long: `Capture from an interface with an AF_PACKET ring (linux only, needs
CAP_NET_RAW) and decode frames until interrupted.

Examples:
  pktrace live -i eth0
  pktrace live -i eth0 -f "arp or udp port 67" -n 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runLive(ctx, cfg, iface, filter, count, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&iface, "interface", "i", "", "network interface (required)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "BPF filter expression (overrides capture.filter)")
	cmd.Flags().Uint64VarP(&count, "count", "n", 0, "stop after this many frames (0 for no limit)")
	cmd.MarkFlagRequired("interface")
	return cmd
}

func runLive(ctx context.Context, c *config.Config, iface, filterExpr string, count uint64, w io.Writer) error {
	capCfg := c.Capture
	if filterExpr != "" {
		capCfg.Filter = filterExpr
	}
	src, err := source.OpenLive(iface, capCfg)
	if err != nil {
		return err
	}
	defer src.Close()

	slog.Info("capturing", "interface", iface, "filter", capCfg.Filter, "snap_len", capCfg.SnapLen)
	// The filter is attached to the socket, frames arrive already filtered.
	return runCapture(ctx, c, src, nil, count, w)
}
