package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/generic"
	"github.com/warp/billing-engine/invoice"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDirectory_ReplaceAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// GIVEN a stored directory
	require.NoError(t, s.ReplaceEmployees(ctx, []billing.Employee{
		{Key: "E2", Name: "Demir", RoleKey: "plumb-1", Post: "Ankara", Location: "Turkey"},
		{Key: "E1", Name: "Kovalenko", RoleKey: "elec-3", Post: "Kyiv", Location: "Ukraine",
			CLIN: "001", SubCLIN: "0X01", LaborCategory: "Electrician III"},
	}))

	// WHEN loading it back
	dir, err := s.LoadDirectory(ctx)
	require.NoError(t, err)

	// THEN all fields round-trip
	require.Equal(t, 2, dir.Len())
	e1, ok := dir.Lookup("E1")
	require.True(t, ok)
	assert.Equal(t, "elec-3", e1.RoleKey)
	assert.Equal(t, "0X01", e1.SubCLIN)
	assert.Equal(t, "Electrician III", e1.LaborCategory)

	// AND a re-import replaces, not merges
	require.NoError(t, s.ReplaceEmployees(ctx, []billing.Employee{
		{Key: "E3", Name: "Okafor", RoleKey: "mech-2", Post: "Lagos"},
	}))
	dir, err = s.LoadDirectory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.Len())
	_, ok = dir.Lookup("E1")
	assert.False(t, ok)
}

func TestRateBook_RoundTripPreservesResolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// GIVEN two versions appended in separate batches, including a tie on
	// the effective date
	require.NoError(t, s.AddRateRecords(ctx, []billing.RateRecord{
		{EntityKey: "elec-3", Effective: generic.NewTimePoint(2024, 1, 1),
			HourlyRateReg: dec("20"), HourlyRateOT: dec("30"),
			BillRateReg: dec("40"), BillRateOT: dec("60")},
	}))
	require.NoError(t, s.AddRateRecords(ctx, []billing.RateRecord{
		{EntityKey: "elec-3", Effective: generic.NewTimePoint(2024, 1, 1),
			HourlyRateReg: dec("21"), HourlyRateOT: dec("31.50"),
			BillRateReg: dec("42"), BillRateOT: dec("63")},
	}))

	// WHEN loading and resolving
	book, err := s.LoadRateBook(ctx)
	require.NoError(t, err)
	r, err := book.Resolve("elec-3", generic.NewTimePoint(2024, 2, 1))
	require.NoError(t, err)

	// THEN the later-inserted correction wins and the decimals are exact
	assert.Equal(t, "42", r.BillRateReg.String())
	assert.Equal(t, "31.5", r.HourlyRateOT.String())
}

func TestAllowanceBook_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddAllowanceRecords(ctx, []billing.AllowanceRecord{
		{Post: "Kyiv", Effective: generic.NewTimePoint(2024, 1, 1),
			PostingRate: dec("0.15"), HazardRate: dec("0.05")},
	}))

	book, err := s.LoadAllowanceBook(ctx)
	require.NoError(t, err)
	a, err := book.Resolve("Kyiv", generic.NewTimePoint(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, "0.15", a.PostingRate.String())

	_, err = book.Resolve("Oslo", generic.NewTimePoint(2024, 3, 1))
	assert.True(t, generic.IsNotFound(err))
}

func TestTimeEntries_UpsertByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// GIVEN an entry imported as submitted
	entry := billing.TimeEntry{
		ID: "T1", EmployeeKey: "E1",
		Date: generic.NewTimePoint(2024, 2, 5), Task: "3322",
		Hours: dec("8"), State: billing.StateSubmitted,
	}
	require.NoError(t, s.SaveTimeEntries(ctx, []billing.TimeEntry{entry}))

	// WHEN a later export carries the same line approved
	entry.State = billing.StateApproved
	require.NoError(t, s.SaveTimeEntries(ctx, []billing.TimeEntry{entry}))

	// THEN the store holds one approved copy
	entries, err := s.LoadTimeEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, billing.StateApproved, entries[0].State)
	assert.Equal(t, "8", entries[0].Hours.String())

	require.NoError(t, s.DeleteTimeEntries(ctx))
	entries, err = s.LoadTimeEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRuns_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, RunSummary{
		ID: "run-1", Policy: "invoicing",
		AsOf:        generic.NewTimePoint(2024, 2, 29),
		PeriodStart: generic.NewTimePoint(2024, 2, 1),
		PeriodEnd:   generic.NewTimePoint(2024, 2, 29),
		Hours:       dec("176"), Amount: dec("7040.50"),
		Warnings: 2,
	}))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "invoicing", runs[0].Policy)
	assert.Equal(t, "7040.5", runs[0].Amount.String())
	assert.Equal(t, 2, runs[0].Warnings)
	assert.Equal(t, "2024-02-01", runs[0].PeriodStart.String())
}

func TestInvoiceHistory_UniqueNumbers(t *testing.T) {
	s := newTestStore(t)

	entry := invoice.HistoryEntry{
		Number: "SDI-1041", Amount: dec("12500.75"),
		RecordedOn: generic.NewTimePoint(2024, 3, 5),
	}
	require.NoError(t, s.RecordInvoice(entry))

	// Issuing the same number twice is an error.
	assert.Error(t, s.RecordInvoice(entry))

	history, err := s.InvoiceHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "12500.75", history[0].Amount.String())
}
