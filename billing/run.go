/*
run.go - One batch pipeline run

PURPOSE:
  Ties the components together in their only valid order: directory
  hygiene, join, state accounting, standard rollups. A run reads an
  immutable snapshot of inputs, computes in memory, and terminates;
  rerunning identical inputs yields identical results.

WARNING ACCOUNTING:
  StateMismatch is counted exactly once per excluded entry here, not by
  each aggregation pass, so the report reflects entries rather than the
  number of rollups that happened to exclude them.

SEE ALSO:
  - invoice/: Builds invoice data from RunResult.Joined
  - api/, cmd/: Callers
*/
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/generic"
)

// RunResult is the complete output of one pipeline run.
type RunResult struct {
	Policy Policy
	AsOf   generic.TimePoint
	Period generic.Period

	Joined []JoinedEntry

	// Standard rollups: per employee within region, and per employee and
	// date. Both keep zero-differential rows; cost filtering is applied
	// where cost rollups are built.
	ByEmployee []Rollup
	ByDate     []Rollup

	Report *Report
}

// Run executes the full pipeline over one input snapshot.
func Run(in JoinInput, policy Policy) (*RunResult, error) {
	report := NewReport()
	in.Directory.CheckMissing(report)

	joined := Join(in, report)

	// Count excluded states once, against the policy actually in force.
	for _, j := range joined {
		if !policy.Includes(j.Entry) {
			report.AddStateMismatch(j.Entry)
		}
	}

	// Aggregation passes get throwaway reports: their only report traffic
	// would be the mismatches already counted above.
	byEmployee, err := Aggregate(joined,
		[]GroupKey{KeyRegion, KeyEmployee}, policy.ForHours(), NewReport())
	if err != nil {
		return nil, err
	}
	byDate, err := Aggregate(joined,
		[]GroupKey{KeyRegion, KeyDate, KeyEmployee}, policy.ForHours(), NewReport())
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Policy:     policy,
		AsOf:       in.AsOf,
		Period:     EntryPeriod(in.Entries),
		Joined:     joined,
		ByEmployee: byEmployee,
		ByDate:     byDate,
		Report:     report,
	}, nil
}

// Hours returns the run's total hours across the employee rollup.
func (r *RunResult) Hours() decimal.Decimal {
	total := decimal.Zero
	for _, roll := range r.ByEmployee {
		total = total.Add(roll.HoursTotal)
	}
	return total
}

// Amount returns the run's total billed amount including differentials.
func (r *RunResult) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, roll := range r.ByEmployee {
		total = total.Add(roll.Total)
	}
	return total
}
