// Package funnel aggregates CRM deals into lifecycle counts and sums.
//
// Windowing is anchored on lead creation date (date the deal entered the
// funnel), not closing date: a deal that closes after the window still
// counts if it entered inside it. Cross-period views ("leads from month X
// closed in month Y") are a deliberate two-step workflow at the caller.
package funnel

import (
	"sort"
	"time"

	"github.com/dealerlens/roi-engine/internal/channel"
	"github.com/dealerlens/roi-engine/internal/models"
)

// Summary is the aggregated funnel for one window and channel filter.
// Derived, never persisted.
type Summary struct {
	TotalLeads int     `json:"total_leads"`
	WonCount   int     `json:"won_count"`
	LostCount  int     `json:"lost_count"`
	OpenCount  int     `json:"open_count"`
	AmountWon  float64 `json:"amount_won"`

	// AverageTicket is 0 when there are no won deals; it is a zero
	// sentinel, not a real average of zero sales.
	AverageTicket float64 `json:"average_ticket"`

	// ConversionRate is won/(won+lost)×100 over finalized deals only.
	// Open deals are excluded from the denominator on purpose: 1 won and
	// 100 open is a 100% rate over what has actually been decided, not 1%.
	ConversionRate float64 `json:"conversion_rate"`
}

// Aggregate filters deals by CreatedAt ∈ [start, end] and the optional
// channel filter, then buckets them by collapsed lifecycle state.
// Zero deals in range is a valid, all-zero result.
func Aggregate(deals []models.Deal, start, end time.Time, ch *models.Channel) (Summary, error) {
	var s Summary
	if dayOf(end).Before(dayOf(start)) {
		return s, models.ErrInvalidRange
	}

	for _, d := range deals {
		if !inWindow(d.CreatedAt, start, end) {
			continue
		}
		if ch != nil && channel.Classify(d.Origin, d.RawChannel) != *ch {
			continue
		}
		s.add(d)
	}
	s.finish()
	return s, nil
}

func (s *Summary) add(d models.Deal) {
	s.TotalLeads++
	switch d.State.Bucket() {
	case models.BucketWon:
		s.WonCount++
		s.AmountWon += d.Amount
	case models.BucketLost:
		s.LostCount++
	case models.BucketOpen:
		s.OpenCount++
	}
}

func (s *Summary) finish() {
	if s.WonCount > 0 {
		s.AverageTicket = s.AmountWon / float64(s.WonCount)
	}
	if finalized := s.WonCount + s.LostCount; finalized > 0 {
		s.ConversionRate = float64(s.WonCount) / float64(finalized) * 100
	}
}

// ChannelSummary binds a funnel summary to its channel group.
type ChannelSummary struct {
	Channel models.Channel `json:"channel"`
	Summary
}

// GroupByChannel aggregates the window once per canonical channel,
// classifying each deal exactly once. Channels with no deals are omitted.
// Output order follows the canonical channel order.
func GroupByChannel(deals []models.Deal, start, end time.Time) ([]ChannelSummary, error) {
	if dayOf(end).Before(dayOf(start)) {
		return nil, models.ErrInvalidRange
	}

	byCh := make(map[models.Channel]*Summary)
	for _, d := range deals {
		if !inWindow(d.CreatedAt, start, end) {
			continue
		}
		ch := channel.Classify(d.Origin, d.RawChannel)
		s, ok := byCh[ch]
		if !ok {
			s = &Summary{}
			byCh[ch] = s
		}
		s.add(d)
	}

	var out []ChannelSummary
	for _, ch := range models.Channels() {
		s, ok := byCh[ch]
		if !ok {
			continue
		}
		s.finish()
		out = append(out, ChannelSummary{Channel: ch, Summary: *s})
	}
	return out, nil
}

// LossReason is one loss-reason bucket with its share of all losses.
type LossReason struct {
	Reason  string  `json:"reason"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

const reasonNotInformed = "NÃO INFORMADO"

// LossReasons ranks loss reasons over lost deals in the window, most
// frequent first, capped at limit (0 means no cap). Blank reasons group
// under NÃO INFORMADO.
func LossReasons(deals []models.Deal, start, end time.Time, limit int) ([]LossReason, error) {
	if dayOf(end).Before(dayOf(start)) {
		return nil, models.ErrInvalidRange
	}

	counts := make(map[string]int)
	total := 0
	for _, d := range deals {
		if !inWindow(d.CreatedAt, start, end) || d.State.Bucket() != models.BucketLost {
			continue
		}
		reason := d.LossReason
		if reason == "" {
			reason = reasonNotInformed
		}
		counts[reason]++
		total++
	}

	out := make([]LossReason, 0, len(counts))
	for reason, n := range counts {
		out = append(out, LossReason{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Percent = float64(out[i].Count) / float64(total) * 100
	}
	return out, nil
}

// SellerSummary is one seller's funnel over the window.
type SellerSummary struct {
	Seller string `json:"seller"`
	Summary
}

// BySeller aggregates per seller, ordered by won count descending then
// seller name for a stable output.
func BySeller(deals []models.Deal, start, end time.Time) ([]SellerSummary, error) {
	if dayOf(end).Before(dayOf(start)) {
		return nil, models.ErrInvalidRange
	}

	bySeller := make(map[string]*Summary)
	for _, d := range deals {
		if !inWindow(d.CreatedAt, start, end) {
			continue
		}
		s, ok := bySeller[d.Seller]
		if !ok {
			s = &Summary{}
			bySeller[d.Seller] = s
		}
		s.add(d)
	}

	out := make([]SellerSummary, 0, len(bySeller))
	for seller, s := range bySeller {
		s.finish()
		out = append(out, SellerSummary{Seller: seller, Summary: *s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WonCount != out[j].WonCount {
			return out[i].WonCount > out[j].WonCount
		}
		return out[i].Seller < out[j].Seller
	})
	return out, nil
}

func inWindow(t, start, end time.Time) bool {
	d := dayOf(t)
	return !d.Before(dayOf(start)) && !d.After(dayOf(end))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
