package main

import (
	"github.com/spf13/cobra"

	"github.com/willi-kappler/iridium-weatherstation/internal/monitor"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch incoming records live",
	Long: `Connect to the live feed of a server and show the newest values of every
station as records arrive. The server must run with its API enabled.`,
	Example: `  iridium-cli watch --url ws://ingest.example.org:8080/api/feed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitor.Run(cmd.Context(), watchURL)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://127.0.0.1:8080/api/feed", "Feed URL")
}
