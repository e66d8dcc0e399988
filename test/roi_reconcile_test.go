package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dealerlens/roi-engine/internal/agency"
	"github.com/dealerlens/roi-engine/internal/attribution"
	"github.com/dealerlens/roi-engine/internal/crm"
	"github.com/dealerlens/roi-engine/internal/funnel"
	"github.com/dealerlens/roi-engine/internal/httpx"
	"github.com/dealerlens/roi-engine/internal/models"
	"github.com/dealerlens/roi-engine/internal/prorate"
	"github.com/dealerlens/roi-engine/internal/recon"
	"github.com/dealerlens/roi-engine/internal/roi"
)

// end-to-end: deal aggregation + prorated report through the metric set
func TestFunnelToMetricsPipeline(t *testing.T) {
	d, _ := time.Parse("2006-01-02", "2025-10-01")
	end := d.AddDate(0, 1, -1)
	closed := d.AddDate(0, 0, 19)

	deals := []models.Deal{
		{ID: "d1", State: models.StateWon, CreatedAt: d.AddDate(0, 0, 4), ClosedAt: &closed, Amount: 95000, Origin: "Facebook Ads"},
		{ID: "d2", State: models.StateLost, CreatedAt: d.AddDate(0, 0, 9), ClosedAt: &closed, Origin: "Google Ads", LossReason: "Preço"},
		{ID: "d3", State: models.StateNegotiation, CreatedAt: d.AddDate(0, 0, 14), Origin: "Site"},
	}

	overall, err := funnel.Aggregate(deals, d, end, nil)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if overall.TotalLeads != 3 || overall.WonCount != 1 {
		t.Fatalf("unexpected funnel: %+v", overall)
	}

	reports := map[models.Period]models.AgencyReport{
		{Year: 2025, Month: time.October}: {
			InvestmentMeta:   9000,
			InvestmentGoogle: 6500,
			InvestmentTotal:  15500,
			LeadsReported:    431,
		},
	}
	totals, err := prorate.Prorate(reports, d, end)
	if err != nil {
		t.Fatalf("prorate: %v", err)
	}
	if totals.InvestmentTotal != 15500 {
		t.Fatalf("expected full-month investment, got %v", totals.InvestmentTotal)
	}

	m := roi.Compute(roi.FunnelInputs{Overall: overall}, totals)
	if m.CostPerSale != 15500 {
		t.Fatalf("expected cost per sale 15500, got %v", m.CostPerSale)
	}
	if m.ROIPercent <= 0 {
		t.Fatalf("expected positive ROI, got %v", m.ROIPercent)
	}
}

// end-to-end through the HTTP surface: fake CRM → source → service → router
func TestReconcileOverHTTP(t *testing.T) {
	crmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id_negocio":"n1","id_state":6,"date_create":"2025-10-05","date_close":"2025-10-20","valor":95000,"origem":"FACEBOOK ADS"},
			{"id_negocio":"n2","id_state":7,"date_create":"2025-10-10","date_close":"2025-10-20","origem":"GOOGLE ADS","motivo_perda":"Preço"},
			{"id_negocio":"n3","id_state":3,"date_create":"2025-10-15","origem":"SITE"}
		]`))
	}))
	defer crmSrv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := agency.NewMemoryStore()
	err := store.Upsert(context.Background(), models.AgencyReport{
		Period:           models.Period{Year: 2025, Month: time.October},
		InvestmentMeta:   9000,
		InvestmentGoogle: 6500,
		InvestmentTotal:  15500,
		LeadsReported:    431,
	})
	if err != nil {
		t.Fatalf("seed report: %v", err)
	}

	src := crm.NewSource(crm.NewHTTPClient(2*time.Second), crmSrv.URL, "", log)
	svc := recon.NewService(src, src, store, attribution.NewMatcher(), log)
	api := httpx.NewRouter(log, svc, store, nil)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest("GET", "/api/roi/reconcile?start=2025-10-01&end=2025-10-31", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res recon.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res.Funnel.TotalLeads != 3 || res.Funnel.WonCount != 1 || res.Funnel.LostCount != 1 {
		t.Fatalf("unexpected funnel: %+v", res.Funnel)
	}
	if res.Metrics.Meta.WonCount != 1 {
		t.Fatalf("expected the won deal under META, got %+v", res.Metrics.Meta)
	}
	if res.Metrics.InvestmentTotal != 15500 {
		t.Fatalf("expected full-month investment, got %v", res.Metrics.InvestmentTotal)
	}
	// 431 reported vs 3 CRM leads must surface as a discrepancy warning
	found := false
	for _, a := range res.Alerts {
		if a.Code == "lead_discrepancy" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected lead_discrepancy alert, got %+v", res.Alerts)
	}
}
