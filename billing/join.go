/*
join.go - The billing join engine

PURPOSE:
  For each time entry: look up the employee, resolve the labor rate and
  post allowance effective as of the run date, classify the task, and
  price the entry. Every lookup failure is recorded on the Report and the
  entry keeps flowing with explicit zero values, so hour totals stay
  complete while money totals stay honest.

AS-OF SEMANTICS:
  All resolutions in one run share a single as-of date (in practice the
  end of the billing period). Per-entry-date resolution would use
  entry.Date instead; the resolver supports either, current usage is one
  date per run.

SEE ALSO:
  - rates.go: The two books resolved here
  - classifier.go: Task classification
  - aggregate.go: Consumes the joined entries
*/
package billing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/generic"
)

// JoinInput bundles the immutable inputs of one join pass.
type JoinInput struct {
	Entries    []TimeEntry
	Directory  *Directory
	Rates      *RateBook
	Allowances *AllowanceBook
	Classifier *Classifier
	AsOf       generic.TimePoint

	// BaseYear replaces the 'X' placeholder in SubCLIN codes, routing
	// hours to the current contract-year invoice line. Empty leaves
	// SubCLINs untouched.
	BaseYear string
}

// Join resolves and prices every entry. The input is never mutated; output
// order is deterministic (date, employee key, task) regardless of input
// order. Warnings and hard errors accumulate on report.
func Join(in JoinInput, report *Report) []JoinedEntry {
	joined := make([]JoinedEntry, 0, len(in.Entries))

	for _, entry := range in.Entries {
		j := JoinedEntry{Entry: entry}

		negative := entry.Hours.IsNegative()
		if negative {
			report.AddNegativeHours(entry)
		}

		var known bool
		j.Category, j.Class, known = in.Classifier.Classify(entry.Task)
		if !known {
			report.AddUnknownTask(entry)
		}

		emp, ok := in.Directory.Lookup(entry.EmployeeKey)
		if !ok {
			// No directory row: hours survive for reporting, money does not.
			j.Unresolved = true
			j.BilledRate = decimal.Zero
			j.BilledAmount = decimal.Zero
			report.AddUnresolvedEmployee(entry, j.Class != ClassNonBillable)
			joined = append(joined, j)
			continue
		}

		if in.BaseYear != "" {
			emp.SubCLIN = strings.ReplaceAll(emp.SubCLIN, "X", in.BaseYear)
		}
		j.Employee = emp

		rate, err := in.Rates.Resolve(emp.RoleKey, in.AsOf)
		if err != nil {
			j.RateGap = true
			report.AddRateGap(entry, emp, in.AsOf)
		} else {
			j.Rate = rate
		}

		allowance, err := in.Allowances.Resolve(emp.Post, in.AsOf)
		if err != nil {
			j.AllowanceGap = true
			report.AddAllowanceGap(entry, emp, in.AsOf)
		} else {
			j.Allowance = allowance
		}

		j.BilledRate = billedRate(j.Class, j.Rate)
		if negative {
			j.BilledRate = decimal.Zero
		}
		j.BilledAmount = entry.Hours.Mul(j.BilledRate)
		joined = append(joined, j)
	}

	sort.SliceStable(joined, func(a, b int) bool {
		ja, jb := joined[a], joined[b]
		if !ja.Entry.Date.Equal(jb.Entry.Date) {
			return ja.Entry.Date.Before(jb.Entry.Date)
		}
		if ja.Entry.EmployeeKey != jb.Entry.EmployeeKey {
			return ja.Entry.EmployeeKey < jb.Entry.EmployeeKey
		}
		return ja.Entry.Task < jb.Entry.Task
	})
	return joined
}

// billedRate selects the bill rate for a class. Non-billable entries carry
// hours at a zero rate.
func billedRate(class BillingClass, rate RateRecord) decimal.Decimal {
	switch class {
	case ClassOvertime:
		return rate.BillRateOT
	case ClassRegular:
		return rate.BillRateReg
	default:
		return decimal.Zero
	}
}

// LineDescription renders the invoice-line description for a joined entry:
// the labor category for regular lines, the fixed overtime marker for
// overtime lines.
func (j JoinedEntry) LineDescription() string {
	if j.Class == ClassOvertime {
		return "(Overtime)"
	}
	return j.Employee.LaborCategory
}
