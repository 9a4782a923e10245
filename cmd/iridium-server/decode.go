package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/willi-kappler/iridium-weatherstation/internal/config"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
	"github.com/willi-kappler/iridium-weatherstation/internal/storage"
	"github.com/willi-kappler/iridium-weatherstation/internal/ui"
)

// Decode command flags
var (
	decodeNoPreamble bool
	decodeStore      bool
	decodeStation    string
	decodeQuiet      bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE...",
	Short: "Decode raw message files",
	Long: `Decode messages saved to files, as received from a logger.

Each file holds one message. By default it starts with the modem preamble;
use --no-preamble for files that start at the frame marker. With --store
the records are written to the database under the given station name.`,
	Example: `  # Print the records of a captured message
  iridium-server decode capture.bin

  # Load a batch of frames into the database
  iridium-server decode --no-preamble --store --station La_Campana frames/*.dat`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeNoPreamble, "no-preamble", false, "Files start at the frame marker")
	decodeCmd.Flags().BoolVar(&decodeStore, "store", false, "Store the decoded records in the database")
	decodeCmd.Flags().StringVar(&decodeStation, "station", config.UnknownStation, "Station name used when storing")
	decodeCmd.Flags().BoolVarP(&decodeQuiet, "quiet", "q", false, "Only print errors and the summary")
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	p := ui.NewPrinter(os.Stdout)

	var store *storage.Store
	if decodeStore {
		if cfg.Database == "" {
			return fmt.Errorf("--store needs a database (--database or the config file)")
		}
		store, err = storage.Open(storage.Config{Path: cfg.Database})
		if err != nil {
			return err
		}
		defer store.Close()
	}

	failed, total := 0, 0
	for _, path := range args {
		records, err := decodeFile(path, decodeNoPreamble)
		if err != nil {
			p.Failure(path, err)
			failed++
			continue
		}

		if !decodeQuiet {
			for _, rec := range records {
				p.Record(decodeStation, rec)
			}
		}

		if store != nil {
			if err := store.StoreAll(ctx, decodeStation, records); err != nil {
				p.Failure(path, err)
				failed++
				continue
			}
		}
		total += len(records)
	}

	p.Success("Decoded",
		ui.Param{Key: "Files", Value: strconv.Itoa(len(args) - failed)},
		ui.Param{Key: "Records", Value: strconv.Itoa(total)},
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func decodeFile(path string, noPreamble bool) ([]protocol.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if noPreamble {
		return protocol.DecodeFrame(data)
	}
	return protocol.DecodeMessage(data)
}
