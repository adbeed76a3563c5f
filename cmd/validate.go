package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pktrace/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Load the configuration given with -c, apply defaults and environment
overrides, and print the effective configuration as YAML.

Examples:
  pktrace validate -c /etc/pktrace/config.yml
  PKTRACE_TRACE_FORMAT=json pktrace validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cfg, cmd.OutOrStdout())
		},
	}
}

func runValidate(c *config.Config, w io.Writer) error {
	out, err := yaml.Marshal(map[string]*config.Config{"pktrace": c})
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Fprintln(w, "VALID")
	_, err = w.Write(out)
	return err
}
