package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
)

func runInput(entries []billing.TimeEntry) billing.JoinInput {
	return billing.JoinInput{
		Entries:    entries,
		Directory:  testDirectory(),
		Rates:      testRates(),
		Allowances: testAllowances(),
		Classifier: billing.NewClassifier(),
		AsOf:       date(2024, 2, 29),
		BaseYear:   "1",
	}
}

func TestRun_ProducesBothStandardRollups(t *testing.T) {
	// GIVEN a small approved workload
	entries := []billing.TimeEntry{
		entry("T1", "E1", date(2024, 2, 5), "3322", "8"),
		entry("T2", "E1", date(2024, 2, 6), "3322", "8"),
		entry("T3", "E1", date(2024, 2, 6), "3323", "2"),
	}

	// WHEN running the invoicing pipeline
	result, err := billing.Run(runInput(entries), billing.InvoicingPolicy(dec("0.35")))
	require.NoError(t, err)

	// THEN the employee rollup is one row and the date rollup is one per day
	require.Len(t, result.ByEmployee, 1)
	assert.Len(t, result.ByDate, 2)
	assert.Equal(t, "18", result.Hours().String())

	// AND the period spans the entry dates
	assert.Equal(t, "2024-02-05", result.Period.Start.String())
	assert.Equal(t, "2024-02-06", result.Period.End.String())

	// AND run totals match the rollup totals
	assert.Equal(t, result.ByEmployee[0].Total.String(), result.Amount().String())
}

func TestRun_CountsEachExcludedEntryOnce(t *testing.T) {
	// GIVEN one approved and one submitted entry
	approved := entry("T1", "E1", date(2024, 2, 5), "3322", "8")
	submitted := entry("T2", "E1", date(2024, 2, 6), "3322", "8")
	submitted.State = billing.StateSubmitted
	entries := []billing.TimeEntry{approved, submitted}

	// WHEN running under approved-only
	result, err := billing.Run(runInput(entries), billing.InvoicingPolicy(dec("0.35")))
	require.NoError(t, err)

	// THEN the mismatch is recorded once despite two aggregation passes
	assert.Equal(t, 1, result.Report.CountKind(billing.WarnStateMismatch))
	assert.Equal(t, "8", result.Report.MismatchedHours().String())
	assert.Equal(t, "8", result.Hours().String())
}

func TestRun_AllStatesPolicyKeepsEverything(t *testing.T) {
	draft := entry("T1", "E1", date(2024, 2, 5), "3322", "8")
	draft.State = billing.StateDraft

	result, err := billing.Run(runInput([]billing.TimeEntry{draft}),
		billing.HoursApprovalPolicy(dec("0.35")))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Report.CountKind(billing.WarnStateMismatch))
	assert.Equal(t, "8", result.Hours().String())
}

func TestRun_SurfacesDirectoryGaps(t *testing.T) {
	in := runInput([]billing.TimeEntry{entry("T1", "E1", date(2024, 2, 5), "3322", "8")})
	in.Directory.Add(billing.Employee{Key: "E9", Name: "No Role"})

	result, err := billing.Run(in, billing.InvoicingPolicy(dec("0.35")))
	require.NoError(t, err)

	// Missing role key and missing post are both flagged.
	assert.Equal(t, 2, result.Report.CountKind(billing.WarnDirectoryGap))
}
