/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Money and
  hours are rendered as decimal strings, never floats.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/invoice"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// INPUT TABLES
// =============================================================================

// EmployeeDTO represents one directory row.
type EmployeeDTO struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	RoleKey       string `json:"role_key"`
	Post          string `json:"post"`
	City          string `json:"city"`
	Location      string `json:"location"`
	Region        string `json:"region"`
	CLIN          string `json:"clin"`
	SubCLIN       string `json:"sub_clin"`
	LaborCategory string `json:"labor_category"`
}

func toEmployeeDTO(e billing.Employee) EmployeeDTO {
	return EmployeeDTO{
		Key:           e.Key,
		Name:          e.Name,
		RoleKey:       e.RoleKey,
		Post:          e.Post,
		City:          e.City,
		Location:      e.Location,
		Region:        e.Region,
		CLIN:          e.CLIN,
		SubCLIN:       e.SubCLIN,
		LaborCategory: e.LaborCategory,
	}
}

func (d EmployeeDTO) toDomain() billing.Employee {
	return billing.Employee{
		Key:           d.Key,
		Name:          d.Name,
		RoleKey:       d.RoleKey,
		Post:          d.Post,
		City:          d.City,
		Location:      d.Location,
		Region:        d.Region,
		CLIN:          d.CLIN,
		SubCLIN:       d.SubCLIN,
		LaborCategory: d.LaborCategory,
	}
}

// RateRecordDTO is one effective-dated rate version. Rates are decimal
// strings ("42.50").
type RateRecordDTO struct {
	EntityKey     string `json:"entity_key"`
	Effective     string `json:"effective"` // YYYY-MM-DD
	HourlyRateReg string `json:"hourly_rate_reg"`
	HourlyRateOT  string `json:"hourly_rate_ot"`
	BillRateReg   string `json:"bill_rate_reg"`
	BillRateOT    string `json:"bill_rate_ot"`
}

func toRateRecordDTO(r billing.RateRecord) RateRecordDTO {
	return RateRecordDTO{
		EntityKey:     r.EntityKey,
		Effective:     r.Effective.String(),
		HourlyRateReg: r.HourlyRateReg.String(),
		HourlyRateOT:  r.HourlyRateOT.String(),
		BillRateReg:   r.BillRateReg.String(),
		BillRateOT:    r.BillRateOT.String(),
	}
}

// AllowanceRecordDTO is one effective-dated allowance version. Rates are
// fractions ("0.15").
type AllowanceRecordDTO struct {
	Post        string `json:"post"`
	Effective   string `json:"effective"`
	PostingRate string `json:"posting_rate"`
	HazardRate  string `json:"hazard_rate"`
}

func toAllowanceRecordDTO(a billing.AllowanceRecord) AllowanceRecordDTO {
	return AllowanceRecordDTO{
		Post:        a.Post,
		Effective:   a.Effective.String(),
		PostingRate: a.PostingRate.String(),
		HazardRate:  a.HazardRate.String(),
	}
}

// TimeEntryDTO is one raw timekeeping line.
type TimeEntryDTO struct {
	ID          string `json:"id"`
	EmployeeKey string `json:"employee_key"`
	Date        string `json:"date"`
	Task        string `json:"task"`
	Hours       string `json:"hours"`
	State       string `json:"state"`
	Description string `json:"description,omitempty"`
}

func toTimeEntryDTO(e billing.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:          e.ID,
		EmployeeKey: e.EmployeeKey,
		Date:        e.Date.String(),
		Task:        e.Task,
		Hours:       e.Hours.String(),
		State:       string(e.State),
		Description: e.Description,
	}
}

// =============================================================================
// RUNS
// =============================================================================

// RunRequest starts a pipeline run.
type RunRequest struct {
	Policy string `json:"policy"`           // "invoicing" or "hours_approval"
	AsOf   string `json:"as_of,omitempty"`  // YYYY-MM-DD; default: period end
}

// RunDTO summarizes one executed run.
type RunDTO struct {
	ID          string `json:"id"`
	Policy      string `json:"policy"`
	AsOf        string `json:"as_of"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	PeriodLabel string `json:"period_label,omitempty"`
	Entries     int    `json:"entries,omitempty"`
	Hours       string `json:"hours"`
	Amount      string `json:"amount"`
	Warnings    int    `json:"warnings"`
	Errors      int    `json:"errors"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func toRunDTO(s sqlite.RunSummary) RunDTO {
	return RunDTO{
		ID:          s.ID,
		Policy:      s.Policy,
		AsOf:        s.AsOf.String(),
		PeriodStart: s.PeriodStart.String(),
		PeriodEnd:   s.PeriodEnd.String(),
		Hours:       s.Hours.String(),
		Amount:      s.Amount.String(),
		Warnings:    s.Warnings,
		Errors:      s.Errors,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

// RollupDTO is one aggregated row. The category pivot always carries
// every category column, zero-filled.
type RollupDTO struct {
	Date         string `json:"date,omitempty"`
	Region       string `json:"region,omitempty"`
	CLIN         string `json:"clin,omitempty"`
	Location     string `json:"location,omitempty"`
	City         string `json:"city,omitempty"`
	SubCLIN      string `json:"sub_clin,omitempty"`
	EmployeeKey  string `json:"employee_key,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`

	// Populated only at employee grain, like the domain row.
	LaborCategory string `json:"labor_category,omitempty"`
	HourlyRateReg string `json:"hourly_rate_reg,omitempty"`
	PostingRate   string `json:"posting_rate,omitempty"`
	HazardRate    string `json:"hazard_rate,omitempty"`

	Hours map[string]string `json:"hours"`

	HoursRegular  string `json:"hours_regular"`
	HoursOvertime string `json:"hours_overtime"`
	HoursTotal    string `json:"hours_total"`

	Wages         string `json:"wages"`
	PostingPay    string `json:"posting_pay"`
	HazardPay     string `json:"hazard_pay"`
	GAUpcharge    string `json:"ga_upcharge"`
	InvoiceAmount string `json:"invoice_amount"`
	Total         string `json:"total"`
}

func toRollupDTO(r billing.Rollup) RollupDTO {
	hours := make(map[string]string, len(r.Hours))
	for cat, h := range r.Hours {
		hours[string(cat)] = h.String()
	}
	dto := RollupDTO{
		Region:        r.Region,
		CLIN:          r.CLIN,
		Location:      r.Location,
		City:          r.City,
		SubCLIN:       r.SubCLIN,
		EmployeeKey:   r.EmployeeKey,
		EmployeeName:  r.EmployeeName,
		LaborCategory: r.LaborCategory,
		Hours:         hours,
		HoursRegular:  r.HoursRegular.String(),
		HoursOvertime: r.HoursOvertime.String(),
		HoursTotal:    r.HoursTotal.String(),
		Wages:         r.Wages.String(),
		PostingPay:    r.PostingPay.String(),
		HazardPay:     r.HazardPay.String(),
		GAUpcharge:    r.GAUpcharge.String(),
		InvoiceAmount: r.InvoiceAmount.String(),
		Total:         r.Total.String(),
	}
	if !r.Date.IsZero() {
		dto.Date = r.Date.String()
	}
	if r.EmployeeKey != "" {
		dto.HourlyRateReg = r.HourlyRateReg.String()
		dto.PostingRate = r.PostingRate.String()
		dto.HazardRate = r.HazardRate.String()
	}
	return dto
}

// WarningDTO is one finding surfaced by a run.
type WarningDTO struct {
	Severity    string `json:"severity"` // "warning" or "error"
	Kind        string `json:"kind"`
	EmployeeKey string `json:"employee_key,omitempty"`
	Task        string `json:"task,omitempty"`
	Date        string `json:"date,omitempty"`
	Hours       string `json:"hours,omitempty"`
	Detail      string `json:"detail"`
}

func toWarningDTO(w billing.Warning, severity string) WarningDTO {
	dto := WarningDTO{
		Severity:    severity,
		Kind:        string(w.Kind),
		EmployeeKey: w.EmployeeKey,
		Task:        w.Task,
		Detail:      w.Detail,
	}
	if !w.Date.IsZero() {
		dto.Date = w.Date.String()
	}
	if !w.Hours.IsZero() {
		dto.Hours = w.Hours.String()
	}
	return dto
}

// =============================================================================
// INVOICES
// =============================================================================

// LaborLineDTO is one invoice labor line.
type LaborLineDTO struct {
	SubCLIN     string `json:"sub_clin"`
	Description string `json:"description"`
	Employee    string `json:"employee"`
	Hours       string `json:"hours"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
}

// CostLineDTO is one differential cost line.
type CostLineDTO struct {
	Type     string `json:"type"` // "Post" or "Hazard"
	CLIN     string `json:"clin"`
	Location string `json:"location"`
	Amount   string `json:"amount"`
	GA       string `json:"ga"`
	Total    string `json:"total"`
}

// LocationDTO groups one location's labor lines.
type LocationDTO struct {
	Location   string         `json:"location"`
	Approver   string         `json:"approver,omitempty"`
	LaborLines []LaborLineDTO `json:"labor_lines"`
	Hours      string         `json:"hours"`
	Amount     string         `json:"amount"`
}

// InvoiceDTO is one CLIN's invoice data.
type InvoiceDTO struct {
	CLIN        string        `json:"clin"`
	Region      string        `json:"region,omitempty"`
	Locations   []LocationDTO `json:"locations"`
	PostLines   []CostLineDTO `json:"post_lines"`
	HazardLines []CostLineDTO `json:"hazard_lines"`
	Hours       string        `json:"hours"`
	Amount      string        `json:"amount"`
}

func toInvoiceDTO(d *invoice.InvoiceData, region string, approvers map[string]string) InvoiceDTO {
	dto := InvoiceDTO{
		CLIN:        d.CLIN,
		Region:      region,
		Locations:   []LocationDTO{},
		PostLines:   []CostLineDTO{},
		HazardLines: []CostLineDTO{},
		Hours:       d.Hours.String(),
		Amount:      d.Amount.String(),
	}
	for _, loc := range d.Locations {
		l := LocationDTO{
			Location:   loc.Location,
			Approver:   approvers[loc.Location],
			LaborLines: []LaborLineDTO{},
			Hours:      loc.LaborHours.String(),
			Amount:     loc.LaborAmount.String(),
		}
		for _, line := range loc.LaborLines {
			l.LaborLines = append(l.LaborLines, LaborLineDTO{
				SubCLIN:     line.SubCLIN,
				Description: line.Description,
				Employee:    line.EmployeeName,
				Hours:       line.Hours.String(),
				Rate:        line.Rate.String(),
				Amount:      line.Amount.String(),
			})
		}
		dto.Locations = append(dto.Locations, l)
	}
	for _, c := range d.PostLines {
		dto.PostLines = append(dto.PostLines, toCostLineDTO(c))
	}
	for _, c := range d.HazardLines {
		dto.HazardLines = append(dto.HazardLines, toCostLineDTO(c))
	}
	return dto
}

func toCostLineDTO(c invoice.CostLine) CostLineDTO {
	return CostLineDTO{
		Type:     c.Type,
		CLIN:     c.CLIN,
		Location: c.Location,
		Amount:   c.Amount.String(),
		GA:       c.GA.String(),
		Total:    c.Total.String(),
	}
}

// IssueInvoiceRequest records an issued invoice number against a run.
type IssueInvoiceRequest struct {
	Suffix string `json:"suffix,omitempty"` // location qualifier, e.g. "UKR"
}

// InvoiceHistoryDTO is one issued invoice.
type InvoiceHistoryDTO struct {
	Number     string `json:"number"`
	Amount     string `json:"amount"`
	RecordedOn string `json:"recorded_on"`
}

// MarginDTO is one role's pay/bill margin as of a date.
type MarginDTO struct {
	RoleKey    string `json:"role_key"`
	HourlyReg  string `json:"hourly_reg"`
	BillReg    string `json:"bill_reg"`
	MarginReg  string `json:"margin_reg"`
	MarginRate string `json:"margin_rate"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
