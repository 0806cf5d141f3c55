/*
aggregate.go - Multi-level rollups with derived quantities

PURPOSE:
  Groups joined entries along caller-chosen dimensions and produces
  schema-stable rollup rows: hours pivoted into one column per task
  category (zero-filled), the regular/overtime split, wages, posting and
  hazard differential pay, G&A upcharge, and invoice amounts.

SCHEMA STABILITY:
  Every row carries every category column even when no such hours exist.
  Downstream consumers (invoice assembly, approval reports) index columns
  by name and must never see the schema shift with the data.

FAIL FAST:
  The hour partition is checked on every row: the category columns must
  sum to HoursTotal and the regular/overtime split must reconcile. A
  mismatch means a category escaped both splits - the run aborts rather
  than emitting financial output that cannot be reconciled.

SEE ALSO:
  - policy.go: The knobs applied here
  - invoice/: Consumes rollups for invoice assembly
*/
package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/generic"
)

// =============================================================================
// GROUPING
// =============================================================================

// GroupKey names one grouping dimension.
type GroupKey string

const (
	KeyDate     GroupKey = "date"
	KeyRegion   GroupKey = "region"
	KeyCLIN     GroupKey = "clin"
	KeyLocation GroupKey = "location"
	KeyCity     GroupKey = "city"
	KeySubCLIN  GroupKey = "subclin"
	KeyEmployee GroupKey = "employee"
)

// =============================================================================
// ROLLUP - One aggregated row
// =============================================================================

// Rollup is one row of an aggregation. Key fields outside the requested
// grouping stay at their zero value. Purely derived; never mutated after
// Aggregate returns.
type Rollup struct {
	Date         generic.TimePoint
	Region       string
	CLIN         string
	Location     string
	City         string
	SubCLIN      string
	EmployeeKey  string
	EmployeeName string

	// LaborCategory and the display rates are populated only when the
	// grouping includes the employee dimension; at coarser grains a single
	// value would be ambiguous.
	LaborCategory string
	HourlyRateReg decimal.Decimal
	PostingRate   decimal.Decimal
	HazardRate    decimal.Decimal

	// Hours carries every task category, zero-filled.
	Hours map[TaskCategory]decimal.Decimal

	HoursRegular  decimal.Decimal
	HoursOvertime decimal.Decimal
	HoursTotal    decimal.Decimal

	Wages         decimal.Decimal
	PostingPay    decimal.Decimal
	HazardPay     decimal.Decimal
	GAUpcharge    decimal.Decimal
	InvoiceAmount decimal.Decimal
	Total         decimal.Decimal
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate groups joined entries by the requested keys, pivots hours per
// category, and derives the money columns under the given policy. Entries
// excluded by the policy's approval mode are counted as StateMismatch
// warnings on report. Output order is deterministic: date, region, CLIN,
// location, city, SubCLIN, employee.
func Aggregate(joined []JoinedEntry, keys []GroupKey, policy Policy, report *Report) ([]Rollup, error) {
	want := make(map[GroupKey]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	groups := make(map[string]*Rollup)
	var order []string

	for _, j := range joined {
		if !policy.Includes(j.Entry) {
			report.AddStateMismatch(j.Entry)
			continue
		}

		id := groupID(j, want)
		row, ok := groups[id]
		if !ok {
			row = newRollup(j, want)
			groups[id] = row
			order = append(order, id)
		}

		row.Hours[j.Category] = row.Hours[j.Category].Add(j.Entry.Hours)

		wage := j.Wages(policy.WagesBasis)
		row.Wages = row.Wages.Add(wage)
		row.PostingPay = row.PostingPay.Add(wage.Mul(j.Allowance.PostingRate))
		row.HazardPay = row.HazardPay.Add(wage.Mul(j.Allowance.HazardRate))
		row.InvoiceAmount = row.InvoiceAmount.Add(j.BilledAmount)
	}

	rollups := make([]Rollup, 0, len(groups))
	for _, id := range order {
		row := groups[id]
		if err := deriveTotals(row, policy); err != nil {
			return nil, err
		}
		if policy.Filter == FilterDropZeroDifferential &&
			row.PostingPay.IsZero() && row.HazardPay.IsZero() {
			continue
		}
		rollups = append(rollups, *row)
	}

	sortRollups(rollups)
	return rollups, nil
}

// groupID builds the map key for an entry under the requested dimensions.
func groupID(j JoinedEntry, want map[GroupKey]bool) string {
	var b strings.Builder
	if want[KeyDate] {
		b.WriteString(j.Entry.Date.String())
	}
	b.WriteByte(0x1f)
	if want[KeyRegion] {
		b.WriteString(j.Employee.Region)
	}
	b.WriteByte(0x1f)
	if want[KeyCLIN] {
		b.WriteString(j.Employee.CLIN)
	}
	b.WriteByte(0x1f)
	if want[KeyLocation] {
		b.WriteString(j.Employee.Location)
	}
	b.WriteByte(0x1f)
	if want[KeyCity] {
		b.WriteString(j.Employee.City)
	}
	b.WriteByte(0x1f)
	if want[KeySubCLIN] {
		b.WriteString(j.Employee.SubCLIN)
	}
	b.WriteByte(0x1f)
	if want[KeyEmployee] {
		b.WriteString(j.Entry.EmployeeKey)
	}
	return b.String()
}

// newRollup seeds a row with the key fields of its first entry and a
// zero-filled category pivot.
func newRollup(j JoinedEntry, want map[GroupKey]bool) *Rollup {
	row := &Rollup{Hours: make(map[TaskCategory]decimal.Decimal, len(Categories()))}
	for _, cat := range Categories() {
		row.Hours[cat] = decimal.Zero
	}

	if want[KeyDate] {
		row.Date = j.Entry.Date
	}
	if want[KeyRegion] {
		row.Region = j.Employee.Region
	}
	if want[KeyCLIN] {
		row.CLIN = j.Employee.CLIN
	}
	if want[KeyLocation] {
		row.Location = j.Employee.Location
	}
	if want[KeyCity] {
		row.City = j.Employee.City
	}
	if want[KeySubCLIN] {
		row.SubCLIN = j.Employee.SubCLIN
	}
	if want[KeyEmployee] {
		row.EmployeeKey = j.Entry.EmployeeKey
		row.EmployeeName = j.Employee.Name
		row.LaborCategory = j.Employee.LaborCategory
		row.HourlyRateReg = j.Rate.HourlyRateReg
		row.PostingRate = j.Allowance.PostingRate
		row.HazardRate = j.Allowance.HazardRate
	}
	return row
}

// deriveTotals computes the split and money columns, enforcing the hour
// partition invariants.
func deriveTotals(row *Rollup, policy Policy) error {
	row.HoursRegular = decimal.Zero
	row.HoursOvertime = decimal.Zero
	row.HoursTotal = decimal.Zero

	for cat, hours := range row.Hours {
		row.HoursTotal = row.HoursTotal.Add(hours)
		switch {
		case regularCategories[cat]:
			row.HoursRegular = row.HoursRegular.Add(hours)
		case overtimeCategories[cat]:
			row.HoursOvertime = row.HoursOvertime.Add(hours)
		default:
			return fmt.Errorf("category %q belongs to neither hour split; refusing to emit unreconcilable rollup", cat)
		}
	}

	if !row.HoursTotal.Equal(row.HoursRegular.Add(row.HoursOvertime)) {
		return fmt.Errorf("hour split does not reconcile: total %s != regular %s + overtime %s",
			row.HoursTotal, row.HoursRegular, row.HoursOvertime)
	}

	row.GAUpcharge = row.PostingPay.Add(row.HazardPay).Mul(policy.Upcharge)
	row.Total = row.InvoiceAmount.Add(row.PostingPay).Add(row.HazardPay).Add(row.GAUpcharge)
	return nil
}

// sortRollups orders rows by the documented key order. Rows are unique per
// group, so the comparison chain is a total order.
func sortRollups(rollups []Rollup) {
	sort.Slice(rollups, func(i, j int) bool {
		a, b := rollups[i], rollups[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.CLIN != b.CLIN {
			return a.CLIN < b.CLIN
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.City != b.City {
			return a.City < b.City
		}
		if a.SubCLIN != b.SubCLIN {
			return a.SubCLIN < b.SubCLIN
		}
		if a.EmployeeName != b.EmployeeName {
			return a.EmployeeName < b.EmployeeName
		}
		return a.EmployeeKey < b.EmployeeKey
	})
}
