package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/willi-kappler/iridium-weatherstation/internal/discovery"
	"github.com/willi-kappler/iridium-weatherstation/internal/ui"
)

var (
	discoverTimeout time.Duration
	discoverStation string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find ingest servers on the local network",
	Long: `Browse mDNS for ingest servers started with --mdns and list the port of
every station they serve.`,
	Example: `  # List everything announced
  iridium-cli discover

  # Find the port of one station
  iridium-cli discover --station Nahuelbuta --timeout 10s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "How long to wait for answers")
	discoverCmd.Flags().StringVar(&discoverStation, "station", "", "Stop at the first server of this station")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout
	p := ui.NewPrinter(os.Stdout)

	if discoverStation != "" {
		svc, err := scanner.FindStation(cmd.Context(), discoverStation)
		if err != nil {
			return err
		}
		p.Println(svc.String())
		return nil
	}

	p.Muted(fmt.Sprintf("Browsing for %s services for %s...", discovery.ServiceType, discoverTimeout))
	services, err := scanner.Scan(cmd.Context())
	if err != nil {
		return err
	}

	if len(services) == 0 {
		return fmt.Errorf("no ingest servers found")
	}
	for _, svc := range services {
		p.Println(svc.String())
	}
	return nil
}
