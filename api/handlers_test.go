package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/config"
	"github.com/warp/billing-engine/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.InvoicePrefix = "SDI-"
	cfg.NextInvoiceNumber = 1041
	cfg.Regions = map[string]string{"Europe": "001"}
	cfg.Approvers = map[string]string{"Ukraine": "O. Shevchenko"}

	srv := httptest.NewServer(NewRouter(NewHandler(store, cfg)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// seedInputs loads a small but complete scenario: one electrician in
// Kyiv with regular and overtime hours, effective-dated rates and
// allowances.
func seedInputs(t *testing.T, base string) {
	t.Helper()

	resp := doJSON(t, http.MethodPut, base+"/api/employees", []EmployeeDTO{{
		Key: "E1", Name: "Kovalenko", RoleKey: "elec-3", Post: "Kyiv",
		City: "Kyiv", Location: "Ukraine", Region: "Europe",
		CLIN: "001", SubCLIN: "0X01", LaborCategory: "Electrician III",
	}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/api/rates", []RateRecordDTO{{
		EntityKey: "elec-3", Effective: "2024-01-01",
		HourlyRateReg: "20", HourlyRateOT: "30",
		BillRateReg: "40", BillRateOT: "60",
	}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/api/allowances", []AllowanceRecordDTO{{
		Post: "Kyiv", Effective: "2024-01-01",
		PostingRate: "0.15", HazardRate: "0.05",
	}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/api/entries", []TimeEntryDTO{
		{ID: "T1", EmployeeKey: "E1", Date: "2024-02-05", Task: "3322", Hours: "8", State: "approved"},
		{ID: "T2", EmployeeKey: "E1", Date: "2024-02-06", Task: "3323", Hours: "2", State: "approved"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t)
	seedInputs(t, srv.URL)

	// WHEN executing an invoicing run
	var run RunDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/runs", RunRequest{Policy: "invoicing"}, &run)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// THEN the run summary carries the period and exact totals:
	// 8h regular at $40 + 2h OT at $60 = $440 invoice; wages 8h*$20=$160,
	// posting $24, hazard $8, G&A (24+8)*0.35 = $11.20; total $483.20
	assert.Equal(t, "2024-02-05", run.PeriodStart)
	assert.Equal(t, "2024-02-06", run.PeriodEnd)
	assert.Equal(t, "February 2024", run.PeriodLabel)
	assert.Equal(t, "10", run.Hours)
	assert.Equal(t, "483.2", run.Amount)
	assert.Equal(t, 0, run.Errors)

	// AND the employee rollup is retrievable with a stable pivot
	var rollups []RollupDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs/"+run.ID+"/rollups?by=employee", nil, &rollups)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rollups, 1)
	assert.Equal(t, "E1", rollups[0].EmployeeKey)
	assert.Equal(t, "8", rollups[0].Hours["Regular"])
	assert.Equal(t, "2", rollups[0].Hours["Overtime"])
	assert.Contains(t, rollups[0].Hours, "Vacation")
	assert.Equal(t, "440", rollups[0].InvoiceAmount)

	// AND the employee-grain row shows the rates that priced it
	assert.Equal(t, "20", rollups[0].HourlyRateReg)
	assert.Equal(t, "0.15", rollups[0].PostingRate)
	assert.Equal(t, "0.05", rollups[0].HazardRate)

	// AND coarser grains omit the ambiguous per-employee rates
	var byLocation []RollupDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs/"+run.ID+"/rollups?by=location", nil, &byLocation)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, byLocation, 1)
	assert.Empty(t, byLocation[0].HourlyRateReg)

	// AND invoice data is exposed per CLIN
	var invoices []InvoiceDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs/"+run.ID+"/invoices", nil, &invoices)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, invoices, 1)
	assert.Equal(t, "001", invoices[0].CLIN)
	assert.Equal(t, "Europe", invoices[0].Region)
	require.Len(t, invoices[0].Locations, 1)
	assert.Equal(t, "Ukraine", invoices[0].Locations[0].Location)
	assert.Equal(t, "O. Shevchenko", invoices[0].Locations[0].Approver)

	// AND cost lines are listed flat across CLINs
	var costs []CostLineDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs/"+run.ID+"/costs", nil, &costs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, costs, 2)
	assert.Equal(t, "Post", costs[0].Type)
	assert.Equal(t, "24", costs[0].Amount)
	assert.Equal(t, "Hazard", costs[1].Type)
	assert.Equal(t, "8", costs[1].Amount)

	// AND the run history includes the persisted summary
	var history []RunDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs", nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, run.ID, history[0].ID)
}

func TestIssueInvoice(t *testing.T) {
	srv := newTestServer(t)
	seedInputs(t, srv.URL)

	var run RunDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/runs", RunRequest{}, &run)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// WHEN issuing the CLIN's invoice with a location suffix
	var issued InvoiceHistoryDTO
	url := fmt.Sprintf("%s/api/runs/%s/invoices/001/issue", srv.URL, run.ID)
	resp = doJSON(t, http.MethodPost, url, IssueInvoiceRequest{Suffix: "UKR"}, &issued)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "SDI-1041UKR", issued.Number)

	// THEN it appears in history
	var history []InvoiceHistoryDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/invoices", nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, "SDI-1041UKR", history[0].Number)

	// AND an unknown CLIN is a 404
	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/runs/%s/invoices/999/issue", srv.URL, run.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRun_Validation(t *testing.T) {
	srv := newTestServer(t)

	// No entries loaded yet
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/runs", RunRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	seedInputs(t, srv.URL)

	// Unknown policy
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/runs", RunRequest{Policy: "quarterly"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bad as-of date
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/runs",
		RunRequest{Policy: "invoicing", AsOf: "02/29/2024"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportEntries_RejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	for name, entry := range map[string]TimeEntryDTO{
		"missing id":     {EmployeeKey: "E1", Date: "2024-02-05", Task: "3322", Hours: "8", State: "approved"},
		"bad date":       {ID: "T1", EmployeeKey: "E1", Date: "Feb 5", Task: "3322", Hours: "8", State: "approved"},
		"bad hours":      {ID: "T1", EmployeeKey: "E1", Date: "2024-02-05", Task: "3322", Hours: "eight", State: "approved"},
		"negative hours": {ID: "T1", EmployeeKey: "E1", Date: "2024-02-05", Task: "3322", Hours: "-5", State: "approved"},
		"unknown state":  {ID: "T1", EmployeeKey: "E1", Date: "2024-02-05", Task: "3322", Hours: "8", State: "signed"},
	} {
		t.Run(name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/entries", []TimeEntryDTO{entry}, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestListRateVersions(t *testing.T) {
	srv := newTestServer(t)
	seedInputs(t, srv.URL)

	// A second elec-3 version appended later for the same effective date
	// must list after the first, preserving the tie-break order.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/rates", []RateRecordDTO{{
		EntityKey: "elec-3", Effective: "2024-01-01",
		HourlyRateReg: "21", HourlyRateOT: "31.5",
		BillRateReg: "42", BillRateOT: "63",
	}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rates []RateRecordDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/rates", nil, &rates)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rates, 2)
	assert.Equal(t, "20", rates[0].HourlyRateReg)
	assert.Equal(t, "21", rates[1].HourlyRateReg)

	var allowances []AllowanceRecordDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/allowances", nil, &allowances)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, allowances, 1)
	assert.Equal(t, "Kyiv", allowances[0].Post)
	assert.Equal(t, "0.15", allowances[0].PostingRate)
}

func TestRateMargins(t *testing.T) {
	srv := newTestServer(t)
	seedInputs(t, srv.URL)

	var margins []MarginDTO
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/rates/margins?as_of=2024-02-29", nil, &margins)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, margins, 1)
	assert.Equal(t, "elec-3", margins[0].RoleKey)
	assert.Equal(t, "20", margins[0].MarginReg)
	assert.Equal(t, "1", margins[0].MarginRate)
}
