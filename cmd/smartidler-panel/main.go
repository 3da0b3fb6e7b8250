// Smartidler-panel is the settings panel for the Smart Idler agent.
//
// It reads the agent's toggles, shutdown schedule and polling interval and
// writes changes back over the agent's invocation channel. Running without
// arguments opens the interactive panel; the subcommands perform a single
// read or write and print the result.
//
// Usage:
//
//	smartidler-panel [command] [flags]
//
// See 'smartidler-panel --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/smartidler/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartidler-panel",
	Short: "Smart Idler Settings Panel",
	Long: `Settings panel for the Smart Idler agent.

Shows the agent's robot input statistics and lets you change its toggles
(input logging, maintenance, launch at startup), the scheduled shutdown
time and the robot polling interval.

The agent is found from --agent, the config file, or mDNS discovery, in
that order. If no command is specified, the interactive panel launches.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPanel,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartidler-panel %s\n", version.Full())
	},
}
