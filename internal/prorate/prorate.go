// Package prorate spreads monthly-granularity agency data over arbitrary
// date windows. The agency only reports whole calendar months; any window
// that cuts a month takes a day-weighted fraction of it.
package prorate

import (
	"time"

	"github.com/dealerlens/roi-engine/internal/models"
)

// WeightedTotals holds the day-weighted sum of every additive agency
// field over a window. Values stay at full precision; rounding happens
// only at the reporting boundary.
type WeightedTotals struct {
	InvestmentMeta   float64 `json:"investment_meta"`
	InvestmentGoogle float64 `json:"investment_google"`
	InvestmentTikTok float64 `json:"investment_tiktok"`
	InvestmentOther  float64 `json:"investment_other"`
	InvestmentTotal  float64 `json:"investment_total"`

	MetaReach       float64 `json:"meta_reach"`
	MetaImpressions float64 `json:"meta_impressions"`
	MetaClicks      float64 `json:"meta_clicks"`
	MetaLeads       float64 `json:"meta_leads"`

	GoogleImpressions float64 `json:"google_impressions"`
	GoogleClicks      float64 `json:"google_clicks"`
	GoogleLeads       float64 `json:"google_leads"`
	GoogleCalls       float64 `json:"google_calls"`
	GoogleWhatsApp    float64 `json:"google_whatsapp"`

	LeadsReported float64 `json:"leads_reported"`
	SalesReported float64 `json:"sales_reported"`
}

// Add accumulates fraction × every additive field of r into t.
func (t *WeightedTotals) Add(r models.AgencyReport, fraction float64) {
	t.InvestmentMeta += r.InvestmentMeta * fraction
	t.InvestmentGoogle += r.InvestmentGoogle * fraction
	t.InvestmentTikTok += r.InvestmentTikTok * fraction
	t.InvestmentOther += r.InvestmentOther * fraction
	t.InvestmentTotal += r.InvestmentTotal * fraction

	t.MetaReach += r.MetaReach * fraction
	t.MetaImpressions += r.MetaImpressions * fraction
	t.MetaClicks += r.MetaClicks * fraction
	t.MetaLeads += r.MetaLeads * fraction

	t.GoogleImpressions += r.GoogleImpressions * fraction
	t.GoogleClicks += r.GoogleClicks * fraction
	t.GoogleLeads += r.GoogleLeads * fraction
	t.GoogleCalls += r.GoogleCalls * fraction
	t.GoogleWhatsApp += r.GoogleWhatsApp * fraction

	t.LeadsReported += r.LeadsReported * fraction
	t.SalesReported += r.SalesReported * fraction
}

// Prorate computes day-weighted totals of the stored reports over
// [start, end] inclusive. Months with no report contribute zero; the
// agency data is expected to be sparse. end < start is rejected with
// models.ErrInvalidRange.
//
// Day fractions partition exactly, which gives two properties callers
// rely on: a window equal to one full month reproduces that month's
// report unchanged, and splitting a window at any day boundary and
// summing the parts equals prorating the whole window.
func Prorate(reports map[models.Period]models.AgencyReport, start, end time.Time) (WeightedTotals, error) {
	var tot WeightedTotals
	s := dayOf(start)
	e := dayOf(end)
	if e.Before(s) {
		return tot, models.ErrInvalidRange
	}

	for _, p := range monthsBetween(s, e) {
		r, ok := reports[p]
		if !ok {
			continue
		}
		frac := MonthFraction(p, s, e)
		if frac <= 0 {
			continue
		}
		tot.Add(r, frac)
	}
	return tot, nil
}

// MonthFraction returns the fraction of calendar month p covered by the
// inclusive window [start, end]: overlap day count over the month's day
// count. Zero when they don't overlap.
func MonthFraction(p models.Period, start, end time.Time) float64 {
	first := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	s := maxDay(dayOf(start), first)
	e := minDay(dayOf(end), last)
	if e.Before(s) {
		return 0
	}
	overlap := inclusiveDays(s, e)
	return float64(overlap) / float64(inclusiveDays(first, last))
}

func monthsBetween(start, end time.Time) []models.Period {
	var out []models.Period
	p := models.PeriodOf(start)
	stop := models.PeriodOf(end)
	for {
		out = append(out, p)
		if p == stop {
			return out
		}
		if p.Month == time.December {
			p = models.Period{Year: p.Year + 1, Month: time.January}
		} else {
			p = models.Period{Year: p.Year, Month: p.Month + 1}
		}
	}
}

func inclusiveDays(a, b time.Time) int {
	return int(b.Sub(a).Hours()/24) + 1
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func maxDay(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDay(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
