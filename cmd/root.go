// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/pktrace/internal/config"
	"firestige.xyz/pktrace/internal/log"
)

var (
	// Global flags
	configFile  string
	verbosity   int
	traceFormat string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pktrace",
		Short: "pktrace - layered packet dissector",
		Long: `pktrace decodes captured frames layer by layer and prints a trace of every
header it recognizes: Ethernet, loopback, Linux cooked capture, 802.1Q/802.1ad,
ARP, IPv4, IPv6, ICMP, ICMPv6, UDP, TCP, DNS, BOOTP/DHCP and VXLAN.

Frames are read from a pcap/pcapng file, a live interface (linux) or hex
strings given on the command line. Malformed or truncated input never aborts
the trace; problems are reported as warnings at the layer where they occur.`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults only when empty)")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity (-v debug trace events, -vv also debug logging)")
	root.PersistentFlags().StringVar(&traceFormat, "format", "",
		"trace output format: text, slog, json or yaml (overrides config)")

	root.AddCommand(newReadCmd())
	root.AddCommand(newLiveCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	c.ApplyVerbosity(verbosity)
	if traceFormat != "" {
		c.Trace.Format = traceFormat
		if err := c.ValidateAndApplyDefaults(); err != nil {
			return fmt.Errorf("--format: %w", err)
		}
	}
	if err := log.Init(c.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	cfg = c
	return nil
}
