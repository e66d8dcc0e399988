package funnel

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerlens/roi-engine/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func deal(id string, created time.Time, state models.DealState, amount float64) models.Deal {
	d := models.Deal{ID: id, CreatedAt: created, State: state, Amount: amount}
	if b := state.Bucket(); b != models.BucketOpen {
		closed := created.AddDate(0, 0, 7)
		d.ClosedAt = &closed
	}
	return d
}

func mkDeals(created time.Time, won, lost, open int) []models.Deal {
	var out []models.Deal
	for i := 0; i < won; i++ {
		out = append(out, deal(fmt.Sprintf("w%d", i), created, models.StateWon, 10000))
	}
	for i := 0; i < lost; i++ {
		out = append(out, deal(fmt.Sprintf("l%d", i), created, models.StateLost, 0))
	}
	for i := 0; i < open; i++ {
		out = append(out, deal(fmt.Sprintf("o%d", i), created, models.StateNegotiation, 0))
	}
	return out
}

// Conversion rate is over finalized deals only: 10 won, 5 lost, 100 open
// is 66.67%, not 10/115.
func TestConversionRateExcludesOpenDeals(t *testing.T) {
	deals := mkDeals(date(2025, time.October, 10), 10, 5, 100)

	s, err := Aggregate(deals, date(2025, time.October, 1), date(2025, time.October, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, 115, s.TotalLeads)
	assert.Equal(t, 10, s.WonCount)
	assert.Equal(t, 5, s.LostCount)
	assert.Equal(t, 100, s.OpenCount)
	assert.InDelta(t, 10.0/15.0*100, s.ConversionRate, 1e-9)
}

// Entry-date windowing: the window anchors on CreatedAt, so a deal that
// closes after the window still counts, and a deal created before it
// never does even if it closed inside.
func TestAggregateEntryDateWindow(t *testing.T) {
	inside := deal("in", date(2025, time.October, 20), models.StateWon, 50000)
	before := deal("before", date(2025, time.September, 5), models.StateWon, 70000)
	closedLater := before.CreatedAt.AddDate(0, 1, 10) // closes mid-October
	before.ClosedAt = &closedLater

	s, err := Aggregate([]models.Deal{inside, before}, date(2025, time.October, 1), date(2025, time.October, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalLeads)
	assert.Equal(t, 50000.0, s.AmountWon)
}

func TestAggregateWindowInclusive(t *testing.T) {
	deals := []models.Deal{
		deal("first", date(2025, time.October, 1), models.StateWon, 100),
		deal("last", date(2025, time.October, 31), models.StateWon, 100),
	}
	s, err := Aggregate(deals, date(2025, time.October, 1), date(2025, time.October, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalLeads)
}

func TestAverageTicketZeroSafe(t *testing.T) {
	deals := mkDeals(date(2025, time.October, 10), 0, 3, 2)

	s, err := Aggregate(deals, date(2025, time.October, 1), date(2025, time.October, 31), nil)
	require.NoError(t, err)
	assert.Zero(t, s.AverageTicket)
	assert.Zero(t, s.ConversionRate) // nothing finalized won
}

func TestAggregateChannelFilter(t *testing.T) {
	google := deal("g", date(2025, time.October, 5), models.StateWon, 80000)
	google.Origin = "GOOGLE"
	showroom := deal("s", date(2025, time.October, 6), models.StateWon, 60000)
	showroom.Origin = "SHOWROOM"
	// paid-media channel overrides showroom origin
	mixed := deal("m", date(2025, time.October, 7), models.StateLost, 0)
	mixed.Origin = "SHOWROOM"
	mixed.RawChannel = "GOOGLE"

	ch := models.ChannelGoogle
	s, err := Aggregate([]models.Deal{google, showroom, mixed}, date(2025, time.October, 1), date(2025, time.October, 31), &ch)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalLeads)
	assert.Equal(t, 1, s.WonCount)
	assert.Equal(t, 1, s.LostCount)
}

func TestAggregateEmptyAndInvalid(t *testing.T) {
	s, err := Aggregate(nil, date(2025, time.October, 1), date(2025, time.October, 31), nil)
	require.NoError(t, err)
	assert.Zero(t, s.TotalLeads)

	_, err = Aggregate(nil, date(2025, time.October, 31), date(2025, time.October, 1), nil)
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestArchivedCountsAsLost(t *testing.T) {
	deals := []models.Deal{deal("a", date(2025, time.October, 2), models.StateArchived, 0)}
	s, err := Aggregate(deals, date(2025, time.October, 1), date(2025, time.October, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.LostCount)
}

func TestGroupByChannel(t *testing.T) {
	g := deal("g", date(2025, time.October, 5), models.StateWon, 80000)
	g.Origin = "GOOGLE"
	i := deal("i", date(2025, time.October, 6), models.StateWon, 60000)
	i.Origin = "INDICACAO"
	i2 := deal("i2", date(2025, time.October, 7), models.StateLost, 0)
	i2.Origin = "INDICACAO"

	groups, err := GroupByChannel([]models.Deal{g, i, i2}, date(2025, time.October, 1), date(2025, time.October, 31))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	// canonical order: GOOGLE before INDICATION
	assert.Equal(t, models.ChannelGoogle, groups[0].Channel)
	assert.Equal(t, models.ChannelIndication, groups[1].Channel)
	assert.InDelta(t, 50.0, groups[1].ConversionRate, 1e-9)
}

func TestLossReasons(t *testing.T) {
	mk := func(id, reason string) models.Deal {
		d := deal(id, date(2025, time.October, 10), models.StateLost, 0)
		d.LossReason = reason
		return d
	}
	deals := []models.Deal{
		mk("1", "NÃO RESPONDE"), mk("2", "NÃO RESPONDE"), mk("3", "PREÇO"),
		mk("4", ""),
		deal("w", date(2025, time.October, 10), models.StateWon, 100), // ignored
	}

	rs, err := LossReasons(deals, date(2025, time.October, 1), date(2025, time.October, 31), 10)
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, "NÃO RESPONDE", rs[0].Reason)
	assert.Equal(t, 2, rs[0].Count)
	assert.InDelta(t, 50.0, rs[0].Percent, 1e-9)
	assert.Contains(t, []string{rs[1].Reason, rs[2].Reason}, "NÃO INFORMADO")
}

func TestBySeller(t *testing.T) {
	mk := func(id, seller string, state models.DealState) models.Deal {
		d := deal(id, date(2025, time.October, 10), state, 5000)
		d.Seller = seller
		return d
	}
	deals := []models.Deal{
		mk("1", "Ana", models.StateWon),
		mk("2", "Ana", models.StateWon),
		mk("3", "Bruno", models.StateWon),
		mk("4", "Bruno", models.StateLost),
	}

	ss, err := BySeller(deals, date(2025, time.October, 1), date(2025, time.October, 31))
	require.NoError(t, err)
	require.Len(t, ss, 2)
	assert.Equal(t, "Ana", ss[0].Seller)
	assert.Equal(t, 2, ss[0].WonCount)
	assert.InDelta(t, 50.0, ss[1].ConversionRate, 1e-9)
}
