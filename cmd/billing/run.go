/*
run.go - Execute a billing run from the command line

PURPOSE:
  Runs the full pipeline over the stored inputs and prints the employee
  rollup, totals, and findings. The same pipeline the API executes;
  useful for month-end dry runs before issuing invoices.

EXAMPLES:
  # Invoicing run, as-of defaulted to the period end
  billing run

  # Hours-approval run with an explicit as-of date
  billing run --policy hours_approval --as-of 2024-02-29
*/
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/factory"
	"github.com/warp/billing-engine/generic"
	"github.com/warp/billing-engine/store/sqlite"
)

var (
	runPolicy string
	runAsOf   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a billing run against the stored inputs",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runPolicy, "policy", factory.PolicyInvoicing, "aggregation policy: invoicing or hours_approval")
	runCmd.Flags().StringVar(&runAsOf, "as-of", "", "rate resolution date (YYYY-MM-DD); default: period end")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	policy, err := factory.Policy(cfg, runPolicy)
	if err != nil {
		return err
	}
	classifier, err := factory.Classifier(cfg)
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	dir, err := store.LoadDirectory(ctx)
	if err != nil {
		return err
	}
	rates, err := store.LoadRateBook(ctx)
	if err != nil {
		return err
	}
	allowances, err := store.LoadAllowanceBook(ctx)
	if err != nil {
		return err
	}
	entries, err := store.LoadTimeEntries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no time entries in %s", cfg.DatabasePath)
	}

	asOf := billing.EntryPeriod(entries).End
	if runAsOf != "" {
		if asOf, err = generic.ParseTimePoint(runAsOf); err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
	}

	result, err := billing.Run(billing.JoinInput{
		Entries:    entries,
		Directory:  dir,
		Rates:      rates,
		Allowances: allowances,
		Classifier: classifier,
		AsOf:       asOf,
		BaseYear:   cfg.BaseYear,
	}, policy)
	if err != nil {
		return err
	}

	fmt.Printf("Billing run: %s policy, period %s, as of %s\n\n",
		policy.Name, result.Period.Label(), asOf)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMPLOYEE\tREGION\tREG\tOT\tTOTAL HRS\tINVOICE\tDIFFERENTIALS\tTOTAL")
	for _, roll := range result.ByEmployee {
		differentials := roll.PostingPay.Add(roll.HazardPay).Add(roll.GAUpcharge)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			roll.EmployeeName, roll.Region,
			roll.HoursRegular, roll.HoursOvertime, roll.HoursTotal,
			roll.InvoiceAmount, differentials, roll.Total)
	}
	w.Flush()

	fmt.Printf("\nTotals: %s hours, %s billed\n", result.Hours(), result.Amount())
	if excluded := result.Report.MismatchedHours(); !excluded.IsZero() {
		fmt.Printf("Excluded by approval state: %s hours\n", excluded)
	}

	for _, warn := range result.Report.Errors {
		fmt.Printf("ERROR: %s\n", warn)
	}
	for _, warn := range result.Report.Warnings {
		fmt.Printf("warning: %s\n", warn)
	}
	if result.Report.HasErrors() {
		return fmt.Errorf("run completed with %d error(s); fix source data before invoicing", len(result.Report.Errors))
	}
	return nil
}
