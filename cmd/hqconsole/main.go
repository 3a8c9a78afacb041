// Package main is the entry point for the hqconsole CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hqconsole/pkg/version"
)

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "hqconsole",
	Short: "hqconsole - operator console for a streaming data platform",
	Long: `hqconsole connects to a platform hub over one WebSocket session, subscribes
to the streams its views need and sends start, stop, kill and replay commands
to gates and datasources.

Examples:
  # Run a local hub with synthetic data
  hqconsole hub --demo

  # Open the terminal UI
  hqconsole tui --agent agent-1 --node hub-1

  # Print a stream as it changes
  hqconsole watch --raw hub-1/gates/list -o yaml`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
