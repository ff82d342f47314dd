package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lotworks/vinvalue/internal/valuation"
	"github.com/lotworks/vinvalue/internal/vehicledata"
)

var batchFlags struct {
	file        string
	limit       int
	validation  int
	concurrency int
	report      bool
	noPrices    bool
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Value a file of vehicle records",
	Long:  "Reads vehicle records from a CSV inventory feed or a JSON file and values them through the worker pool, printing the aggregated batch response.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(batchFlags.file)
		if err != nil {
			return eris.Wrapf(err, "open %s", batchFlags.file)
		}
		defer f.Close() //nolint:errcheck

		level := batchFlags.validation
		if level == 0 {
			level = cfg.Batch.ValidationLevel
		}

		var records []vehicledata.Record
		if strings.EqualFold(filepath.Ext(batchFlags.file), ".json") {
			records, err = vehicledata.ReadJSON(f, level)
		} else {
			records, err = vehicledata.ReadCSV(f, level)
		}
		if err != nil {
			return err
		}
		fillDefaultZip(records)

		concurrency := batchFlags.concurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.Concurrency
		}

		quota, factory := newClientFactory()
		pipeline := valuation.NewPipeline(factory, quota, valuation.Options{
			Concurrency:    concurrency,
			Limit:          batchFlags.limit,
			EarlyStopRatio: cfg.Batch.EarlyStopRatio,
			Verbose:        batchFlags.report,
			IncludePrices:  !batchFlags.noPrices,
		})

		result := pipeline.Run(ctx, records)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal batch result")
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

// fillDefaultZip applies the configured zip to records that carry none.
func fillDefaultZip(records []vehicledata.Record) {
	for i := range records {
		if records[i].Zip == "" {
			records[i].Zip = cfg.KBB.DefaultZip
		}
	}
}

func init() {
	batchCmd.Flags().StringVar(&batchFlags.file, "file", "", "CSV or JSON file of vehicle records (required)")
	batchCmd.Flags().IntVar(&batchFlags.limit, "limit", 0, "max records to admit (0 = all)")
	batchCmd.Flags().IntVar(&batchFlags.validation, "validation", 0, "validation level 1-4 (default from config)")
	batchCmd.Flags().IntVar(&batchFlags.concurrency, "concurrency", 0, "worker pool size (default from config)")
	batchCmd.Flags().BoolVar(&batchFlags.report, "report", false, "include matcher diagnostics per vehicle")
	batchCmd.Flags().BoolVar(&batchFlags.noPrices, "no-prices", false, "strip price lists from the output")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
