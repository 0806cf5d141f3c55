/*
Package invoice assembles billing rollups into invoice-shaped data.

PURPOSE:
  Takes the joined entries of one run and produces, per contract line
  item (CLIN), the data an invoice or hours-approval report is built
  from: labor detail lines grouped by SubCLIN, post and hazard
  differential cost lines with G&A, and the hours summaries a duty post
  signs off on. Rendering (spreadsheets, PDFs) is out of scope; this
  package stops at structured data.

SHAPE:
  InvoiceData (one per CLIN)
    ├── LocationDetail (one per country)
    │     ├── LaborLines    invoice detail, grouped by SubCLIN
    │     ├── HoursSummary  per-employee rollups for sign-off
    │     └── HoursDetail   per-date rollups for sign-off
    ├── PostLines           CLIN 207 cost lines
    └── HazardLines         CLIN 208 cost lines

SEE ALSO:
  - billing/aggregate.go: Produces the rollups consumed here
  - number.go: Invoice numbering
*/
package invoice

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options carries the contract-wide constants of invoice assembly.
type Options struct {
	// PostCLIN and HazardCLIN are the contract lines differential costs
	// bill under.
	PostCLIN   string
	HazardCLIN string
}

// DefaultOptions returns the contract's shipped cost-line routing.
func DefaultOptions() Options {
	return Options{PostCLIN: "207", HazardCLIN: "208"}
}

// =============================================================================
// LINE TYPES
// =============================================================================

// LaborLine is one labor invoice detail row.
type LaborLine struct {
	SubCLIN      string
	Description  string // labor category, or "(Overtime)"
	EmployeeName string
	Hours        decimal.Decimal
	Rate         decimal.Decimal
	Amount       decimal.Decimal
}

// CostLine is one differential cost row on a post or hazard invoice.
type CostLine struct {
	CLIN     string
	Location string // "City, Country", or just the country when they match
	Type     string // "Post" or "Hazard"
	Amount   decimal.Decimal
	GA       decimal.Decimal
	Total    decimal.Decimal
}

// LocationDetail groups one country's labor lines and hours reports.
type LocationDetail struct {
	Location    string
	LaborLines  []LaborLine
	LaborHours  decimal.Decimal
	LaborAmount decimal.Decimal

	HoursSummary []billing.Rollup // per employee
	HoursDetail  []billing.Rollup // per date and employee
}

// InvoiceData is everything needed to assemble one CLIN's invoices.
type InvoiceData struct {
	CLIN      string
	Locations []*LocationDetail

	PostLines   []CostLine
	HazardLines []CostLine

	Hours  decimal.Decimal
	Amount decimal.Decimal
}

func (d *InvoiceData) location(name string) *LocationDetail {
	for _, loc := range d.Locations {
		if loc.Location == name {
			return loc
		}
	}
	loc := &LocationDetail{Location: name}
	d.Locations = append(d.Locations, loc)
	return loc
}

// =============================================================================
// BUILD
// =============================================================================

// Build assembles per-CLIN invoice data from one run's joined entries.
// State filtering follows the policy; the caller's run report has already
// counted mismatches, so Build does not re-record them. Unresolved entries
// never reach invoice lines.
func Build(joined []billing.JoinedEntry, policy billing.Policy, opts Options) (map[string]*InvoiceData, error) {
	byCLIN := make(map[string]*InvoiceData)
	data := func(clin string) *InvoiceData {
		d, ok := byCLIN[clin]
		if !ok {
			d = &InvoiceData{CLIN: clin}
			byCLIN[clin] = d
		}
		return d
	}

	// Labor detail lines, grouped by (SubCLIN, description, employee, rate)
	// within each CLIN and location.
	type laborKey struct {
		clin, location, subCLIN, description, employee string
		rate                                           string
	}
	labor := make(map[laborKey]*LaborLine)
	for _, j := range joined {
		if j.Unresolved || !policy.Includes(j.Entry) {
			continue
		}
		k := laborKey{
			clin:        j.Employee.CLIN,
			location:    j.Employee.Location,
			subCLIN:     j.Employee.SubCLIN,
			description: j.LineDescription(),
			employee:    j.Employee.Name,
			rate:        j.BilledRate.String(),
		}
		line, ok := labor[k]
		if !ok {
			line = &LaborLine{
				SubCLIN:      k.subCLIN,
				Description:  k.description,
				EmployeeName: k.employee,
				Rate:         j.BilledRate,
			}
			labor[k] = line
		}
		line.Hours = line.Hours.Add(j.Entry.Hours)
	}

	keys := make([]laborKey, 0, len(labor))
	for k := range labor {
		keys = append(keys, k)
	}
	// SubCLIN ascending, employee ascending, description descending: the
	// regular line sorts above its "(Overtime)" companion.
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.clin != b.clin {
			return a.clin < b.clin
		}
		if a.location != b.location {
			return a.location < b.location
		}
		if a.subCLIN != b.subCLIN {
			return a.subCLIN < b.subCLIN
		}
		if a.employee != b.employee {
			return a.employee < b.employee
		}
		return a.description > b.description
	})

	for _, k := range keys {
		line := labor[k]
		line.Amount = line.Hours.Mul(line.Rate)
		d := data(k.clin)
		loc := d.location(k.location)
		loc.LaborLines = append(loc.LaborLines, *line)
		loc.LaborHours = loc.LaborHours.Add(line.Hours)
		loc.LaborAmount = loc.LaborAmount.Add(line.Amount)
		d.Hours = d.Hours.Add(line.Hours)
		d.Amount = d.Amount.Add(line.Amount)
	}

	// Differential cost lines from a city-grain rollup over resolved
	// entries only; an unresolved entry has no CLIN to bill under. The
	// rollup report is throwaway: state mismatches were already counted
	// upstream.
	resolved := make([]billing.JoinedEntry, 0, len(joined))
	for _, j := range joined {
		if !j.Unresolved {
			resolved = append(resolved, j)
		}
	}
	costPolicy := policy
	costPolicy.Filter = billing.FilterKeepAll
	cost, err := billing.Aggregate(resolved,
		[]billing.GroupKey{billing.KeyCLIN, billing.KeyLocation, billing.KeyCity},
		costPolicy, billing.NewReport())
	if err != nil {
		return nil, fmt.Errorf("cost rollup: %w", err)
	}

	dropZero := policy.Filter == billing.FilterDropZeroDifferential
	for _, row := range cost {
		d := data(row.CLIN)
		post := CostLine{
			CLIN:     opts.PostCLIN,
			Location: costLocation(row),
			Type:     "Post",
			Amount:   row.PostingPay,
			GA:       row.PostingPay.Mul(policy.Upcharge),
		}
		post.Total = post.Amount.Add(post.GA)
		hazard := CostLine{
			CLIN:     opts.HazardCLIN,
			Location: costLocation(row),
			Type:     "Hazard",
			Amount:   row.HazardPay,
			GA:       row.HazardPay.Mul(policy.Upcharge),
		}
		hazard.Total = hazard.Amount.Add(hazard.GA)

		if !dropZero || post.Total.IsPositive() {
			d.PostLines = append(d.PostLines, post)
		}
		if !dropZero || hazard.Total.IsPositive() {
			d.HazardLines = append(d.HazardLines, hazard)
		}
	}

	// Hours reports per location: summary by employee, detail by date.
	for clin, d := range byCLIN {
		for _, loc := range d.Locations {
			slice := filterByCLINLocation(joined, clin, loc.Location)

			summary, err := billing.Aggregate(slice,
				[]billing.GroupKey{billing.KeyCity, billing.KeySubCLIN, billing.KeyEmployee},
				policy.ForHours(), billing.NewReport())
			if err != nil {
				return nil, fmt.Errorf("hours summary for %s/%s: %w", clin, loc.Location, err)
			}
			loc.HoursSummary = summary

			detail, err := billing.Aggregate(slice,
				[]billing.GroupKey{billing.KeyDate, billing.KeyEmployee},
				policy.ForHours(), billing.NewReport())
			if err != nil {
				return nil, fmt.Errorf("hours detail for %s/%s: %w", clin, loc.Location, err)
			}
			loc.HoursDetail = detail
		}
		sort.Slice(d.Locations, func(i, j int) bool {
			return d.Locations[i].Location < d.Locations[j].Location
		})
	}

	return byCLIN, nil
}

// costLocation renders a cost-line location: the city qualifies the
// country except when they are the same name.
func costLocation(row billing.Rollup) string {
	if row.City == "" || row.City == row.Location {
		return row.Location
	}
	return row.City + ", " + row.Location
}

func filterByCLINLocation(joined []billing.JoinedEntry, clin, location string) []billing.JoinedEntry {
	var out []billing.JoinedEntry
	for _, j := range joined {
		if j.Employee.CLIN == clin && j.Employee.Location == location {
			out = append(out, j)
		}
	}
	return out
}
