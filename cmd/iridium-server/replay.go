package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/willi-kappler/iridium-weatherstation/internal/archive"
	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
	"github.com/willi-kappler/iridium-weatherstation/internal/storage"
	"github.com/willi-kappler/iridium-weatherstation/internal/ui"
)

var replayStations []string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Decode archived messages into the database",
	Long: `Decode every message of the raw archive again and store the records.

Records are keyed by station and timestamp, so replaying into a database
that already holds them replaces the rows instead of duplicating them.
Messages that fail to decode are reported and skipped.`,
	Example: `  # Rebuild the database from the archive
  iridium-server replay --archive archive.db --database iridium.db

  # Only one station
  iridium-server replay --station Nahuelbuta`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringSliceVar(&replayStations, "station", nil, "Only replay these stations (default all)")
}

// replayResult counts the outcome of a replay per station
type replayResult struct {
	Messages int
	Records  int
	Failed   int
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Archive == "" || cfg.Database == "" {
		return fmt.Errorf("replay needs both an archive and a database")
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	a, err := archive.Open(cfg.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := storage.Open(storage.Config{Path: cfg.Database})
	if err != nil {
		return err
	}
	defer store.Close()

	stations := replayStations
	if len(stations) == 0 {
		if stations, err = a.Stations(); err != nil {
			return err
		}
	}

	p := ui.NewPrinter(os.Stdout)
	for _, station := range stations {
		res, err := replay(cmd.Context(), a, store, station)
		if err != nil {
			return err
		}
		p.Success("Replayed "+station,
			ui.Param{Key: "Messages", Value: strconv.Itoa(res.Messages)},
			ui.Param{Key: "Records", Value: strconv.Itoa(res.Records)},
			ui.Param{Key: "Failed", Value: strconv.Itoa(res.Failed)},
		)
	}
	return nil
}

// replay decodes one station's archive into store. Decode failures are
// counted; storage failures abort.
func replay(ctx context.Context, a *archive.Archive, store *storage.Store, station string) (replayResult, error) {
	var res replayResult

	err := a.ForEach(station, func(e archive.Entry) error {
		res.Messages++

		records, err := protocol.DecodeMessage(e.Raw)
		if err != nil {
			res.Failed++
			logging.Warn("Skipping archived message",
				zap.String("station", station),
				zap.Uint64("seq", e.Seq),
				zap.Time("received", e.Received),
				zap.Error(err),
			)
			return nil
		}

		if err := store.StoreAll(ctx, station, records); err != nil {
			return fmt.Errorf("failed to store message %d of %s: %w", e.Seq, station, err)
		}
		res.Records += len(records)
		return nil
	})

	return res, err
}
