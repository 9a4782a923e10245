// Iridium-server receives telemetry from the weather station loggers.
//
// Each station's logger dials one TCP port through an Iridium modem and
// uploads logger status and weather records. The server decodes them and
// stores them in SQLite, keeps the raw messages in an archive, and serves
// the data over an HTTP API with a live websocket feed.
//
// Usage:
//
//	iridium-server serve [flags]
//	iridium-server decode FILE...
//	iridium-server replay
//	iridium-server config init|show
//
// See 'iridium-server --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willi-kappler/iridium-weatherstation/internal/config"
	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "iridium-server",
	Short: "Iridium weather station ingest server",
	Long: `Receives logger status and weather data sent by the station loggers
over Iridium satellite modems.

Every station dials its own port; the port identifies the station. Decoded
records are stored in SQLite and the raw messages are archived so they can
be decoded again later.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Global flags
var (
	configPath string
	logLevel   string
	database   string
	archiveDB  string
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/iridium/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&database, "database", "", "SQLite database file")
	rootCmd.PersistentFlags().StringVar(&archiveDB, "archive", "", "Raw message archive file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies the global flags. The
// command's own flags are applied by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("database") {
		cfg.Database = database
	}
	if flags.Changed("archive") {
		cfg.Archive = archiveDB
	}

	return cfg, nil
}

// initLogging starts the logger from the effective config
func initLogging(cfg *config.Config) error {
	if err := logging.InitializeWithFile(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("iridium-server %s\n", version.Full())
	},
}
