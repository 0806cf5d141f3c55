/*
rates.go - Pay/bill margin report

PURPOSE:
  Prints each role's hourly pay rate, bill rate, and margin as of a
  date, widest margin first. Management asks for this when negotiating
  rate escalations.
*/
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/billing-engine/generic"
	"github.com/warp/billing-engine/store/sqlite"
)

var ratesAsOf string

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show pay/bill margins per role",
	Args:  cobra.NoArgs,
	RunE:  runRates,
}

func init() {
	ratesCmd.Flags().StringVar(&ratesAsOf, "as-of", "", "resolution date (YYYY-MM-DD); default: today")
}

func runRates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	asOf := generic.Today()
	if ratesAsOf != "" {
		if asOf, err = generic.ParseTimePoint(ratesAsOf); err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	book, err := store.LoadRateBook(cmd.Context())
	if err != nil {
		return err
	}

	margins := book.Margins(asOf)
	if len(margins) == 0 {
		fmt.Printf("No rates effective as of %s\n", asOf)
		return nil
	}

	fmt.Printf("Labor margins as of %s\n\n", asOf)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tPAY\tBILL\tMARGIN\tMARGIN RATE")
	for _, m := range margins {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			m.RoleKey, m.HourlyReg, m.BillReg, m.MarginReg, m.MarginRate)
	}
	return w.Flush()
}
