package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
	"github.com/willi-kappler/iridium-weatherstation/internal/traffic"
	"github.com/willi-kappler/iridium-weatherstation/internal/ui"
)

// Send command flags
var (
	sendAddr    string
	sendKind    string
	sendCount   int
	sendFile    string
	sendTime    string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a logger message to a server",
	Long: `Build a synthetic logger message and send it the way a station logger does:
connect, write the whole message, close.

With --file an existing raw message (including the preamble) is sent as is.`,
	Example: `  # Send a logger status to the test port
  iridium-cli send --addr 127.0.0.1:2001 --kind status

  # Send six hours of weather samples
  iridium-cli send --addr ingest.example.org:2100 --kind weather --count 36

  # Resend a captured message
  iridium-cli send --addr 127.0.0.1:2200 --file capture.bin`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendAddr, "addr", "127.0.0.1:2001", "Server address host:port")
	sendCmd.Flags().StringVar(&sendKind, "kind", traffic.KindWeather, "Message kind (status, status-ext, weather)")
	sendCmd.Flags().IntVar(&sendCount, "count", 1, "Number of weather samples")
	sendCmd.Flags().StringVar(&sendFile, "file", "", "Send this raw message file instead")
	sendCmd.Flags().StringVar(&sendTime, "time", "", "Logger time of the newest record, 2006-01-02T15:04:05 (default now)")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "Connect and write timeout")
}

func runSend(cmd *cobra.Command, args []string) error {
	msg, err := buildMessage()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	p := ui.NewPrinter(os.Stdout)
	if err := traffic.Send(ctx, sendAddr, msg); err != nil {
		p.Failure(sendAddr, err)
		return err
	}

	params := []ui.Param{
		{Key: "Address", Value: sendAddr},
		{Key: "Bytes", Value: strconv.Itoa(len(msg))},
	}
	if records, err := protocol.DecodeMessage(msg); err == nil {
		params = append(params, ui.Param{Key: "Records", Value: strconv.Itoa(len(records))})
	} else {
		params = append(params, ui.Param{Key: "Decodes as", Value: err.Error()})
	}
	p.Success("Message sent", params...)
	return nil
}

func buildMessage() ([]byte, error) {
	if sendFile != "" {
		return os.ReadFile(sendFile)
	}

	start := time.Now().UTC().Truncate(time.Second)
	if sendTime != "" {
		t, err := time.Parse("2006-01-02T15:04:05", sendTime)
		if err != nil {
			return nil, fmt.Errorf("invalid --time: %w", err)
		}
		start = t
	}

	return traffic.Generate(sendKind, sendCount, start)
}
