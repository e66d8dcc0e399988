// Package crm implements the deal-fetch and campaign-fetch capabilities
// over the CRM's HTTP export API. The reconciliation core only sees the
// mapped snapshot; wire details stay here.
package crm

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dealerlens/roi-engine/internal/attribution"
	"github.com/dealerlens/roi-engine/internal/models"
)

// dealRow is the CRM export shape. id_state follows the CRM's numeric
// convention: 1..5 in-progress sub-stages, 6 won, 7 lost, 8 archived.
type dealRow struct {
	ID          string  `json:"id_negocio"`
	State       int     `json:"id_state"`
	DateCreate  string  `json:"date_create"`
	DateClose   string  `json:"date_close"`
	Amount      float64 `json:"valor"`
	Origin      string  `json:"origem"`
	Channel     string  `json:"canal"`
	UTMCampaign string  `json:"utm_campaign"`
	UTMSource   string  `json:"utm_source"`
	UTMMedium   string  `json:"utm_medium"`
	GCLID       string  `json:"gclid"`
	FBCLID      string  `json:"fbclid"`
	Seller      string  `json:"vendedor"`
	LossReason  string  `json:"motivo_perda"`
	Customer    string  `json:"cliente"`
	Vehicle     string  `json:"titulo"`
}

type campaignRow struct {
	ID         string   `json:"id"`
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Platform   string   `json:"platform"`
	ClickIDs   []string `json:"click_ids"`
	Status     string   `json:"status"`
	Spend      float64  `json:"spend"`
}

// Source fetches deals and campaigns from the CRM export endpoints.
type Source struct {
	c       HTTPClient
	dealURL string
	campURL string
	log     *slog.Logger
}

func NewSource(c HTTPClient, dealURL, campaignURL string, log *slog.Logger) *Source {
	return &Source{c: c, dealURL: dealURL, campURL: campaignURL, log: log}
}

// FetchDeals returns the deal snapshot for the window. Rows with an
// unparseable creation date are skipped, not fatal: one bad row must not
// sink a whole reconciliation.
func (s *Source) FetchDeals(ctx context.Context, start, end time.Time) ([]models.Deal, error) {
	u := fmt.Sprintf("%s?start=%s&end=%s",
		s.dealURL, url.QueryEscape(start.Format("2006-01-02")), url.QueryEscape(end.Format("2006-01-02")))

	var rows []dealRow
	if err := getJSONWithRetry(ctx, s.c, u, &rows); err != nil {
		return nil, fmt.Errorf("fetch deals: %w", err)
	}

	deals := make([]models.Deal, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		created, err := parseCRMTime(r.DateCreate)
		if err != nil {
			skipped++
			continue
		}
		d := models.Deal{
			ID:          strings.TrimSpace(r.ID),
			State:       models.DealState(r.State),
			CreatedAt:   created,
			Amount:      maxf(r.Amount),
			Origin:      strings.TrimSpace(r.Origin),
			RawChannel:  strings.TrimSpace(r.Channel),
			UTMCampaign: strings.TrimSpace(r.UTMCampaign),
			UTMSource:   strings.TrimSpace(r.UTMSource),
			UTMMedium:   strings.TrimSpace(r.UTMMedium),
			GCLID:       strings.TrimSpace(r.GCLID),
			FBCLID:      strings.TrimSpace(r.FBCLID),
			Seller:      strings.TrimSpace(r.Seller),
			LossReason:  strings.TrimSpace(r.LossReason),
			Customer:    strings.TrimSpace(r.Customer),
			Vehicle:     strings.TrimSpace(r.Vehicle),
		}
		if d.State.Bucket() != models.BucketOpen {
			if closed, err := parseCRMTime(r.DateClose); err == nil {
				d.ClosedAt = &closed
			}
		}
		deals = append(deals, d)
	}
	if skipped > 0 {
		s.log.Warn("skipped deal rows with bad dates", slog.Int("count", skipped))
	}
	return deals, nil
}

// FetchCampaigns returns all campaigns with normalized names precomputed
// for utm matching.
func (s *Source) FetchCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var rows []campaignRow
	if err := getJSONWithRetry(ctx, s.c, s.campURL, &rows); err != nil {
		return nil, fmt.Errorf("fetch campaigns: %w", err)
	}

	out := make([]models.Campaign, 0, len(rows))
	for _, r := range rows {
		platform := models.PlatformMeta
		if strings.EqualFold(strings.TrimSpace(r.Platform), "google") {
			platform = models.PlatformGoogle
		}
		out = append(out, models.Campaign{
			ID:             strings.TrimSpace(r.ID),
			ExternalID:     strings.TrimSpace(r.ExternalID),
			Name:           strings.TrimSpace(r.Name),
			NormalizedName: attribution.NormalizeCampaignName(r.Name),
			Platform:       platform,
			ClickIDs:       r.ClickIDs,
			Status:         strings.ToLower(strings.TrimSpace(r.Status)),
			Spend:          maxf(r.Spend),
		})
	}
	return out, nil
}

func parseCRMTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func maxf(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
