package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/billing"
)

func standardEntries() []billing.TimeEntry {
	return []billing.TimeEntry{
		entry("t1", "E1", date(2024, time.February, 5), "Regular", "8"),
		entry("t2", "E1", date(2024, time.February, 6), "Regular", "8"),
		entry("t3", "E1", date(2024, time.February, 6), "Overtime", "2"),
		entry("t4", "E1", date(2024, time.February, 7), "Vacation", "8"),
		entry("t5", "E2", date(2024, time.February, 5), "Regular", "8"),
		entry("t6", "E2", date(2024, time.February, 8), "Scheduled - Overtime", "4"),
	}
}

func aggregateByEmployee(t *testing.T, entries []billing.TimeEntry, policy billing.Policy) ([]billing.Rollup, *billing.Report) {
	t.Helper()
	joined, _ := testJoin(t, entries)
	report := billing.NewReport()
	rollups, err := billing.Aggregate(joined, []billing.GroupKey{billing.KeyEmployee}, policy, report)
	require.NoError(t, err)
	return rollups, report
}

// =============================================================================
// PIVOT AND INVARIANT TESTS
// =============================================================================

func TestAggregate_EveryCategoryColumnPresent(t *testing.T) {
	// Schema stability: every row carries every category, zero-filled.
	rollups, _ := aggregateByEmployee(t, standardEntries(), billing.HoursApprovalPolicy(dec("0.35")))

	require.NotEmpty(t, rollups)
	for _, row := range rollups {
		for _, cat := range billing.Categories() {
			_, present := row.Hours[cat]
			assert.True(t, present, "row %s missing category %s", row.EmployeeKey, cat)
		}
	}
}

func TestAggregate_HourPartitionInvariants(t *testing.T) {
	// For every row: HoursTotal == HoursRegular + HoursOvertime and the
	// category columns sum exactly to HoursTotal.
	rollups, _ := aggregateByEmployee(t, standardEntries(), billing.HoursApprovalPolicy(dec("0.35")))

	for _, row := range rollups {
		assert.True(t, row.HoursTotal.Equal(row.HoursRegular.Add(row.HoursOvertime)),
			"row %s: total %s != reg %s + ot %s", row.EmployeeKey, row.HoursTotal, row.HoursRegular, row.HoursOvertime)

		sum := decimal.Zero
		for _, h := range row.Hours {
			sum = sum.Add(h)
		}
		assert.True(t, sum.Equal(row.HoursTotal),
			"row %s: category sum %s != total %s", row.EmployeeKey, sum, row.HoursTotal)
	}
}

func TestAggregate_ClassificationNeverLosesHours(t *testing.T) {
	// Total hours in equals total hours out, including unknown tasks.
	entries := append(standardEntries(),
		entry("t7", "E1", date(2024, time.February, 9), "9999", "3"))

	rollups, _ := aggregateByEmployee(t, entries, billing.HoursApprovalPolicy(dec("0.35")))

	in := decimal.Zero
	for _, e := range entries {
		in = in.Add(e.Hours)
	}
	out := decimal.Zero
	for _, row := range rollups {
		out = out.Add(row.HoursTotal)
	}
	assert.True(t, in.Equal(out), "hours in %s != hours out %s", in, out)
}

func TestAggregate_VacationInRegularSplitButNotInvoiced(t *testing.T) {
	// E1's 8 vacation hours roll into HoursRegular yet add $0 to InvoiceAmount.
	rollups, _ := aggregateByEmployee(t, []billing.TimeEntry{
		entry("t1", "E1", date(2024, time.February, 7), "Vacation", "8"),
	}, billing.HoursApprovalPolicy(dec("0.35")))

	require.Len(t, rollups, 1)
	assert.True(t, rollups[0].HoursRegular.Equal(dec("8")))
	assert.True(t, rollups[0].InvoiceAmount.IsZero())
}

// =============================================================================
// DERIVED MONEY TESTS
// =============================================================================

func TestAggregate_WagesAndDifferentials(t *testing.T) {
	// E1: 16 Regular hours at $20 pay -> wages $320.
	// Kyiv posting 0.15, hazard 0.05 -> posting $48, hazard $16.
	// G&A at 0.35 of differentials -> $22.40.
	rollups, _ := aggregateByEmployee(t, standardEntries(), billing.HoursApprovalPolicy(dec("0.35")))

	var e1 billing.Rollup
	found := false
	for _, row := range rollups {
		if row.EmployeeKey == "E1" {
			e1, found = row, true
		}
	}
	require.True(t, found)

	assert.True(t, e1.Wages.Equal(dec("320")), "wages %s", e1.Wages)
	assert.True(t, e1.PostingPay.Equal(dec("48")), "posting %s", e1.PostingPay)
	assert.True(t, e1.HazardPay.Equal(dec("16")), "hazard %s", e1.HazardPay)
	assert.True(t, e1.GAUpcharge.Equal(dec("22.40")), "G&A %s", e1.GAUpcharge)
}

func TestAggregate_WagesBasisIsConfigurable(t *testing.T) {
	// GIVEN: 8 Regular + 8 Vacation hours
	// WHEN: Aggregating under each wages basis
	// THEN: Regular-task basis pays differentials on 8 hours, the
	//       all-regular basis on 16

	entries := []billing.TimeEntry{
		entry("t1", "E1", date(2024, time.February, 5), "Regular", "8"),
		entry("t2", "E1", date(2024, time.February, 7), "Vacation", "8"),
	}

	narrow := billing.HoursApprovalPolicy(dec("0.35"))
	rollups, _ := aggregateByEmployee(t, entries, narrow)
	require.Len(t, rollups, 1)
	assert.True(t, rollups[0].Wages.Equal(dec("160")), "regular-task basis wages %s", rollups[0].Wages)

	wide := narrow
	wide.WagesBasis = billing.BasisAllRegularHours
	rollups, _ = aggregateByEmployee(t, entries, wide)
	require.Len(t, rollups, 1)
	assert.True(t, rollups[0].Wages.Equal(dec("320")), "all-regular basis wages %s", rollups[0].Wages)
}

func TestAggregate_InvoiceAmountOnlyBillableClasses(t *testing.T) {
	// E1: 16 Regular at $40 bill + 2 OT at $60 bill = $760; vacation adds $0.
	rollups, _ := aggregateByEmployee(t, standardEntries(), billing.HoursApprovalPolicy(dec("0.35")))

	for _, row := range rollups {
		if row.EmployeeKey == "E1" {
			assert.True(t, row.InvoiceAmount.Equal(dec("760")), "invoice amount %s", row.InvoiceAmount)
		}
	}
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestAggregate_ApprovedOnlyExcludesAndCounts(t *testing.T) {
	// GIVEN: One approved and one submitted entry
	// WHEN: Aggregating under the invoicing policy
	// THEN: Submitted hours are excluded but visible as StateMismatch

	entries := []billing.TimeEntry{
		entry("t1", "E1", date(2024, time.February, 5), "Regular", "8"),
		{ID: "t2", EmployeeKey: "E1", Date: date(2024, time.February, 6),
			Task: "Regular", Hours: dec("8"), State: billing.StateSubmitted},
	}

	joined, _ := testJoin(t, entries)
	report := billing.NewReport()
	rollups, err := billing.Aggregate(joined, []billing.GroupKey{billing.KeyEmployee},
		billing.InvoicingPolicy(dec("0.35")), report)
	require.NoError(t, err)

	require.Len(t, rollups, 1)
	assert.True(t, rollups[0].HoursTotal.Equal(dec("8")))
	assert.Equal(t, 1, report.CountKind(billing.WarnStateMismatch))
	assert.True(t, report.MismatchedHours().Equal(dec("8")))
}

func TestAggregate_ZeroDifferentialRowsDroppedOnlyForInvoicing(t *testing.T) {
	// E2 is posted to Ankara (0/0 differentials): dropped from cost-style
	// rollups, retained in hours-approval rollups. Intentional asymmetry.
	entries := standardEntries()

	inv, _ := aggregateByEmployee(t, entries, billing.InvoicingPolicy(dec("0.35")))
	for _, row := range inv {
		assert.NotEqual(t, "E2", row.EmployeeKey, "zero-differential row must be dropped under invoicing")
	}

	hrs, _ := aggregateByEmployee(t, entries, billing.HoursApprovalPolicy(dec("0.35")))
	seen := false
	for _, row := range hrs {
		if row.EmployeeKey == "E2" {
			seen = true
		}
	}
	assert.True(t, seen, "hours-approval rollups must retain zero-differential rows")
}

// =============================================================================
// DETERMINISM TESTS
// =============================================================================

func TestAggregate_IdempotentAcrossRuns(t *testing.T) {
	// Running the full pipeline twice on identical inputs produces
	// identical rollups.
	run := func() []billing.Rollup {
		joined, _ := testJoin(t, standardEntries())
		report := billing.NewReport()
		rollups, err := billing.Aggregate(joined,
			[]billing.GroupKey{billing.KeyDate, billing.KeyEmployee},
			billing.HoursApprovalPolicy(dec("0.35")), report)
		require.NoError(t, err)
		return rollups
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Date, second[i].Date)
		assert.Equal(t, first[i].EmployeeKey, second[i].EmployeeKey)
		assert.True(t, first[i].HoursTotal.Equal(second[i].HoursTotal))
		assert.True(t, first[i].Total.Equal(second[i].Total))
	}
}

func TestAggregate_SortedByDocumentedKeyOrder(t *testing.T) {
	joined, _ := testJoin(t, standardEntries())
	report := billing.NewReport()
	rollups, err := billing.Aggregate(joined,
		[]billing.GroupKey{billing.KeyDate, billing.KeyEmployee},
		billing.HoursApprovalPolicy(dec("0.35")), report)
	require.NoError(t, err)

	for i := 1; i < len(rollups); i++ {
		a, b := rollups[i-1], rollups[i]
		if a.Date.Equal(b.Date) {
			assert.LessOrEqual(t, a.EmployeeName, b.EmployeeName)
		} else {
			assert.True(t, a.Date.Before(b.Date))
		}
	}
}

func TestAggregate_GroupingByLocationSumsAcrossEmployees(t *testing.T) {
	joined, _ := testJoin(t, standardEntries())
	report := billing.NewReport()
	rollups, err := billing.Aggregate(joined,
		[]billing.GroupKey{billing.KeyLocation, billing.KeyCity},
		billing.HoursApprovalPolicy(dec("0.35")), report)
	require.NoError(t, err)

	require.Len(t, rollups, 2) // Turkey/Ankara, Ukraine/Kyiv
	assert.Equal(t, "Turkey", rollups[0].Location)
	assert.Equal(t, "Ukraine", rollups[1].Location)
	// Employee-grain display fields stay zero at coarser grains.
	assert.Empty(t, rollups[1].EmployeeName)
	assert.True(t, rollups[1].HourlyRateReg.IsZero())
}

// =============================================================================
// RATE BOOK TESTS
// =============================================================================

func TestRateBook_Margins(t *testing.T) {
	margins := testRates().Margins(date(2024, time.February, 1))

	require.Len(t, margins, 2)
	// Both roles bill at 2x pay; margin rate ties at 1.0, role key breaks it.
	assert.Equal(t, "elec-3", margins[0].RoleKey)
	assert.True(t, margins[0].MarginReg.Equal(dec("20")))
	assert.True(t, margins[0].MarginRate.Equal(dec("1")))
	assert.Equal(t, "plumb-1", margins[1].RoleKey)
}
