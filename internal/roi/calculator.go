// Package roi derives cost and return metrics from a funnel summary and
// pro-rated agency totals. Every ratio is zero-safe: a missing or zero
// denominator yields 0, never a panic or an infinity.
package roi

import (
	"math"

	"github.com/dealerlens/roi-engine/internal/funnel"
	"github.com/dealerlens/roi-engine/internal/prorate"
)

// FunnelInputs carries the overall funnel plus the per-channel subsets
// the platform breakdowns and insight rules need. All of them come from
// the same deal snapshot and window.
type FunnelInputs struct {
	Overall    funnel.Summary
	Meta       funnel.Summary
	Google     funnel.Summary
	Indication funnel.Summary
}

// PlatformMetrics repeats the headline formulas scoped to one platform's
// slice of funnel and agency data.
type PlatformMetrics struct {
	Investment    float64 `json:"investment"`
	LeadsReported float64 `json:"leads_reported"`
	LeadsActual   int     `json:"leads_actual"`
	WonCount      int     `json:"won_count"`
	AmountWon     float64 `json:"amount_won"`
	CostPerLead   float64 `json:"cost_per_lead"`
	CostPerSale   float64 `json:"cost_per_sale"`
	ROIPercent    float64 `json:"roi_percent"`
}

// Metrics is the full derived set for one reconciliation window.
// Monetary and percentage fields are rounded to 2 decimals here, at the
// output boundary; all upstream accumulation is full precision.
type Metrics struct {
	InvestmentTotal float64 `json:"investment_total"`

	CostPerLeadReported float64 `json:"cost_per_lead_reported"`
	CostPerLeadActual   float64 `json:"cost_per_lead_actual"`
	CostPerSale         float64 `json:"cost_per_sale"`
	ROIPercent          float64 `json:"roi_percent"`

	// LeadDiscrepancy is signed: positive means the agency reports more
	// leads than the CRM recorded in the window.
	LeadDiscrepancy float64 `json:"lead_discrepancy"`

	TotalLeads     int     `json:"total_leads"`
	WonCount       int     `json:"won_count"`
	LostCount      int     `json:"lost_count"`
	OpenCount      int     `json:"open_count"`
	AmountWon      float64 `json:"amount_won"`
	AverageTicket  float64 `json:"average_ticket"`
	ConversionRate float64 `json:"conversion_rate"`

	Meta   PlatformMetrics `json:"meta"`
	Google PlatformMetrics `json:"google"`

	// PaidTicket is the average ticket across paid-media sales only.
	PaidTicket float64 `json:"paid_ticket"`

	IndicationWonCount       int     `json:"indication_won_count"`
	IndicationConversionRate float64 `json:"indication_conversion_rate"`
}

// Compute derives all metrics. Inputs with zero investment and zero won
// deals produce an all-zero result without error.
func Compute(f FunnelInputs, agency prorate.WeightedTotals) Metrics {
	inv := agency.InvestmentTotal

	m := Metrics{
		InvestmentTotal:     round2(inv),
		CostPerLeadReported: round2(safeDiv(inv, agency.LeadsReported)),
		CostPerLeadActual:   round2(safeDiv(inv, float64(f.Overall.TotalLeads))),
		CostPerSale:         round2(safeDiv(inv, float64(f.Overall.WonCount))),
		ROIPercent:          round2(safeDiv(f.Overall.AmountWon, inv) * 100),
		LeadDiscrepancy:     round2(agency.LeadsReported - float64(f.Overall.TotalLeads)),

		TotalLeads:     f.Overall.TotalLeads,
		WonCount:       f.Overall.WonCount,
		LostCount:      f.Overall.LostCount,
		OpenCount:      f.Overall.OpenCount,
		AmountWon:      round2(f.Overall.AmountWon),
		AverageTicket:  round2(f.Overall.AverageTicket),
		ConversionRate: round2(f.Overall.ConversionRate),

		Meta:   platformMetrics(f.Meta, agency.InvestmentMeta, agency.MetaLeads),
		Google: platformMetrics(f.Google, agency.InvestmentGoogle, agency.GoogleLeads),

		IndicationWonCount:       f.Indication.WonCount,
		IndicationConversionRate: round2(f.Indication.ConversionRate),
	}

	paidWon := f.Meta.WonCount + f.Google.WonCount
	paidAmount := f.Meta.AmountWon + f.Google.AmountWon
	m.PaidTicket = round2(safeDiv(paidAmount, float64(paidWon)))

	return m
}

func platformMetrics(f funnel.Summary, investment, leadsReported float64) PlatformMetrics {
	return PlatformMetrics{
		Investment:    round2(investment),
		LeadsReported: round2(leadsReported),
		LeadsActual:   f.TotalLeads,
		WonCount:      f.WonCount,
		AmountWon:     round2(f.AmountWon),
		CostPerLead:   round2(safeDiv(investment, float64(f.TotalLeads))),
		CostPerSale:   round2(safeDiv(investment, float64(f.WonCount))),
		ROIPercent:    round2(safeDiv(f.AmountWon, investment) * 100),
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// round2 handles negative values correctly; lead discrepancy is signed.
func round2(f float64) float64 { return math.Round(f*100) / 100 }
