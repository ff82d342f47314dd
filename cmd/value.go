package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lotworks/vinvalue/internal/valuation"
	"github.com/lotworks/vinvalue/internal/vehicledata"
)

var valueFlags struct {
	vin     string
	year    int
	make    string
	model   string
	trim    string
	mileage int
	zip     string
	options []string
}

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Value a single vehicle with full matcher diagnostics",
	Long:  "Runs one valuation session in fail-fast mode and prints the verbose report, including available and matched trims and options. Intended for debugging the matcher.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rec := vehicledata.Record{
			Vin:             valueFlags.vin,
			Year:            valueFlags.year,
			Make:            valueFlags.make,
			Model:           valueFlags.model,
			Trim:            valueFlags.trim,
			Mileage:         valueFlags.mileage,
			Zip:             valueFlags.zip,
			Options:         valueFlags.options,
			ValidationLevel: vehicledata.LevelIdentity,
		}
		if rec.Zip == "" {
			rec.Zip = cfg.KBB.DefaultZip
		}
		vehicledata.Validate(&rec)
		if !rec.Valid() {
			return eris.Errorf("invalid vehicle: %v", rec.Errors)
		}

		_, factory := newClientFactory()
		sess := valuation.NewSession(factory(), rec, true)
		result, err := sess.RunStrict(ctx)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

func init() {
	valueCmd.Flags().StringVar(&valueFlags.vin, "vin", "", "vehicle identification number")
	valueCmd.Flags().IntVar(&valueFlags.year, "year", 0, "model year")
	valueCmd.Flags().StringVar(&valueFlags.make, "make", "", "make name")
	valueCmd.Flags().StringVar(&valueFlags.model, "model", "", "model name")
	valueCmd.Flags().StringVar(&valueFlags.trim, "trim", "", "trim description")
	valueCmd.Flags().IntVar(&valueFlags.mileage, "mileage", 0, "odometer mileage")
	valueCmd.Flags().StringVar(&valueFlags.zip, "zip", "", "zip code (default from config)")
	valueCmd.Flags().StringArrayVar(&valueFlags.options, "option", nil, "option description (repeatable)")
	rootCmd.AddCommand(valueCmd)
}
