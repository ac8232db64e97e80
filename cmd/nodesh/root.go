package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodesh/nodesh/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "nodesh [TARGET]",
	Short: "Interactive explorer for hierarchical RPC node trees",
	Long: `Nodesh connects to a broker and opens an interactive command line over
its node tree: list and call methods, subscribe to signals, and navigate
with completion backed by a persistent discovery cache.

TARGET is a connection URL or a host alias from the configuration file.
The built-in demo broker is available as loopback://demo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Target: "loopback://demo"}
		if len(args) > 0 {
			opts.Target = args[0]
		}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Subscribe, _ = cmd.Flags().GetStringArray("subscribe")
		opts.Scan, _ = cmd.Flags().GetBool("scan")
		opts.ScanDepth, _ = cmd.Flags().GetInt("scan-depth")

		// Errors are reported here; cobra's own usage print stays off for
		// runtime failures.
		cmd.SilenceUsage = true
		return cli.Execute(context.Background(), opts)
	},
}

// Execute runs the root command and maps failure to exit status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("debug", "d", false, "Verbose internal tracing on stderr")
	rootCmd.Flags().StringArrayP("subscribe", "s", nil, "Subscribe to RI right after connecting (repeatable)")
	rootCmd.Flags().Bool("scan", false, "Discover the node tree right after connecting")
	rootCmd.Flags().Int("scan-depth", 0, "Depth bound of the initial scan (default 3)")
	rootCmd.Flags().String("config", "", "Configuration file (default ~/.nodesh/config.yaml)")
}
