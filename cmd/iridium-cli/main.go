// Iridium-cli is the field tool for the weather station ingest server.
//
// It sends synthetic logger messages to test a deployment, watches the
// live record feed and finds servers announced on the local network.
//
// Usage:
//
//	iridium-cli [command] [flags]
//
// See 'iridium-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "iridium-cli",
	Short: "Iridium weather station field tool",
	Long: `Tools for testing and watching an Iridium weather station ingest server.

Send synthetic logger messages, watch incoming records live, or find
servers announced over mDNS.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("iridium-cli %s\n", version.Full())
	},
}
