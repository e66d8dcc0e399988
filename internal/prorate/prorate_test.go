package prorate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerlens/roi-engine/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func octReport() models.AgencyReport {
	return models.AgencyReport{
		Period:           models.Period{Year: 2025, Month: time.October},
		InvestmentMeta:   8500,
		InvestmentGoogle: 7000,
		InvestmentTotal:  15500,
		MetaLeads:        322,
		MetaClicks:       56957,
		MetaReach:        1001041,
		GoogleLeads:      244,
		GoogleClicks:     5799,
		LeadsReported:    431,
		SalesReported:    36,
	}
}

func novReport() models.AgencyReport {
	return models.AgencyReport{
		Period:           models.Period{Year: 2025, Month: time.November},
		InvestmentMeta:   8914,
		InvestmentGoogle: 6714,
		InvestmentTotal:  15628,
		LeadsReported:    359,
		SalesReported:    40,
	}
}

func reports() map[models.Period]models.AgencyReport {
	return map[models.Period]models.AgencyReport{
		{Year: 2025, Month: time.October}:  octReport(),
		{Year: 2025, Month: time.November}: novReport(),
	}
}

// A window covering exactly one calendar month must return that month's
// report with fraction 1.0 — exact, not approximate.
func TestProrateFullMonthExact(t *testing.T) {
	got, err := Prorate(reports(), date(2025, time.October, 1), date(2025, time.October, 31))
	require.NoError(t, err)

	r := octReport()
	assert.Equal(t, r.InvestmentTotal, got.InvestmentTotal)
	assert.Equal(t, r.InvestmentMeta, got.InvestmentMeta)
	assert.Equal(t, r.InvestmentGoogle, got.InvestmentGoogle)
	assert.Equal(t, r.LeadsReported, got.LeadsReported)
	assert.Equal(t, r.MetaClicks, got.MetaClicks)
	assert.Equal(t, r.MetaReach, got.MetaReach)
	assert.Equal(t, r.SalesReported, got.SalesReported)
}

// Worked example from the reporting runbook: 2025-10-16..2025-11-15 takes
// 16/31 of October and 15/30 of November.
func TestProratePartialMonths(t *testing.T) {
	got, err := Prorate(reports(), date(2025, time.October, 16), date(2025, time.November, 15))
	require.NoError(t, err)

	fracOct := 16.0 / 31.0
	fracNov := 15.0 / 30.0
	assert.InDelta(t, 15500*fracOct+15628*fracNov, got.InvestmentTotal, 1e-9)
	assert.InDelta(t, 8500*fracOct+8914*fracNov, got.InvestmentMeta, 1e-9)
	assert.InDelta(t, 431*fracOct+359*fracNov, got.LeadsReported, 1e-9)
}

func TestProrateLinearity(t *testing.T) {
	start := date(2025, time.October, 5)
	mid := date(2025, time.November, 3)
	end := date(2025, time.November, 28)

	whole, err := Prorate(reports(), start, end)
	require.NoError(t, err)
	left, err := Prorate(reports(), start, mid)
	require.NoError(t, err)
	right, err := Prorate(reports(), mid.AddDate(0, 0, 1), end)
	require.NoError(t, err)

	assert.InDelta(t, whole.InvestmentTotal, left.InvestmentTotal+right.InvestmentTotal, 1e-9)
	assert.InDelta(t, whole.InvestmentMeta, left.InvestmentMeta+right.InvestmentMeta, 1e-9)
	assert.InDelta(t, whole.InvestmentGoogle, left.InvestmentGoogle+right.InvestmentGoogle, 1e-9)
	assert.InDelta(t, whole.LeadsReported, left.LeadsReported+right.LeadsReported, 1e-9)
	assert.InDelta(t, whole.SalesReported, left.SalesReported+right.SalesReported, 1e-9)
}

// Missing months are not an error; they just contribute zero.
func TestProrateSparseReports(t *testing.T) {
	got, err := Prorate(reports(), date(2025, time.September, 1), date(2026, time.January, 31))
	require.NoError(t, err)
	assert.InDelta(t, 15500+15628, got.InvestmentTotal, 1e-9)

	empty, err := Prorate(map[models.Period]models.AgencyReport{}, date(2025, time.October, 1), date(2025, time.October, 31))
	require.NoError(t, err)
	assert.Zero(t, empty.InvestmentTotal)
	assert.Zero(t, empty.LeadsReported)
}

func TestProrateInvalidRange(t *testing.T) {
	_, err := Prorate(reports(), date(2025, time.November, 1), date(2025, time.October, 1))
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestProrateSingleDay(t *testing.T) {
	got, err := Prorate(reports(), date(2025, time.October, 10), date(2025, time.October, 10))
	require.NoError(t, err)
	assert.InDelta(t, 15500.0/31.0, got.InvestmentTotal, 1e-9)
}

func TestMonthFraction(t *testing.T) {
	oct := models.Period{Year: 2025, Month: time.October}
	feb := models.Period{Year: 2024, Month: time.February} // leap year

	assert.InDelta(t, 1.0, MonthFraction(oct, date(2025, time.October, 1), date(2025, time.October, 31)), 1e-12)
	assert.InDelta(t, 16.0/31.0, MonthFraction(oct, date(2025, time.October, 16), date(2025, time.November, 15)), 1e-12)
	assert.Zero(t, MonthFraction(oct, date(2025, time.December, 1), date(2025, time.December, 31)))
	assert.InDelta(t, 1.0, MonthFraction(feb, date(2024, time.February, 1), date(2024, time.February, 29)), 1e-12)
	assert.InDelta(t, 10.0/29.0, MonthFraction(feb, date(2024, time.February, 20), date(2024, time.February, 29)), 1e-12)
}
