// Package recon is the reconciliation engine's front door: it pulls
// snapshots from the external collaborators, runs the pure computation
// pipeline (classify → aggregate → prorate → compute → insights), and
// assembles the combined result.
//
// Everything here operates on immutable snapshots fetched up front, so
// concurrent reconciliations for different windows never share mutable
// state. There is no retry and no timeout in this layer; both belong to
// the fetch implementations.
package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealerlens/roi-engine/internal/agency"
	"github.com/dealerlens/roi-engine/internal/attribution"
	"github.com/dealerlens/roi-engine/internal/channel"
	"github.com/dealerlens/roi-engine/internal/funnel"
	"github.com/dealerlens/roi-engine/internal/insights"
	"github.com/dealerlens/roi-engine/internal/models"
	"github.com/dealerlens/roi-engine/internal/obs"
	"github.com/dealerlens/roi-engine/internal/prorate"
	"github.com/dealerlens/roi-engine/internal/roi"
)

// ErrSourceUnavailable marks upstream fetch failures so callers can map
// them to a distinct failure mode (HTTP 502, job retry). Sparse data is
// never reported this way.
var ErrSourceUnavailable = errors.New("data source unavailable")

// DealSource is the read-only deal-fetch capability.
type DealSource interface {
	FetchDeals(ctx context.Context, start, end time.Time) ([]models.Deal, error)
}

// CampaignSource is the read-only campaign-fetch capability.
type CampaignSource interface {
	FetchCampaigns(ctx context.Context) ([]models.Campaign, error)
}

// Result is the combined reconciliation output for one window. Produced
// fresh on every query; never persisted.
type Result struct {
	Start string `json:"period_start"`
	End   string `json:"period_end"`

	Funnel    funnel.Summary          `json:"funnel"`
	ByChannel []funnel.ChannelSummary `json:"by_channel"`
	Agency    prorate.WeightedTotals  `json:"agency"`
	Metrics   roi.Metrics             `json:"metrics"`
	Alerts    []insights.Alert        `json:"alerts"`

	LossReasons []funnel.LossReason    `json:"loss_reasons"`
	BySeller    []funnel.SellerSummary `json:"by_seller"`
}

// Service wires the core components to their data sources.
type Service struct {
	deals     DealSource
	campaigns CampaignSource
	reports   agency.ReportStore
	matcher   *attribution.Matcher
	log       *slog.Logger
}

func NewService(deals DealSource, campaigns CampaignSource, reports agency.ReportStore, matcher *attribution.Matcher, log *slog.Logger) *Service {
	return &Service{deals: deals, campaigns: campaigns, reports: reports, matcher: matcher, log: log}
}

// Reconcile computes the full reconciliation for [start, end]. Sparse
// data (no reports, no deals) produces a partial result with alerts;
// only a malformed range or an unreachable source fails.
func (s *Service) Reconcile(ctx context.Context, start, end time.Time) (*Result, error) {
	began := time.Now()
	res, err := s.reconcile(ctx, start, end)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	obs.ReconcileTotal.WithLabelValues(outcome).Inc()
	obs.ReconcileDuration.Observe(time.Since(began).Seconds())
	return res, err
}

func (s *Service) reconcile(ctx context.Context, start, end time.Time) (*Result, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: start=%s end=%s", models.ErrInvalidRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	deals, err := s.deals.FetchDeals(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	reports, err := agency.Range(ctx, s.reports, periodsIn(start, end))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	totals, err := prorate.Prorate(reports, start, end)
	if err != nil {
		return nil, err
	}

	overall, err := funnel.Aggregate(deals, start, end, nil)
	if err != nil {
		return nil, err
	}
	byChannel, err := funnel.GroupByChannel(deals, start, end)
	if err != nil {
		return nil, err
	}
	lossReasons, err := funnel.LossReasons(deals, start, end, 10)
	if err != nil {
		return nil, err
	}
	bySeller, err := funnel.BySeller(deals, start, end)
	if err != nil {
		return nil, err
	}

	metrics := roi.Compute(roi.FunnelInputs{
		Overall:    overall,
		Meta:       channelSummary(byChannel, models.ChannelMeta),
		Google:     channelSummary(byChannel, models.ChannelGoogle),
		Indication: channelSummary(byChannel, models.ChannelIndication),
	}, totals)

	res := &Result{
		Start:       start.Format("2006-01-02"),
		End:         end.Format("2006-01-02"),
		Funnel:      overall,
		ByChannel:   byChannel,
		Agency:      totals,
		Metrics:     metrics,
		Alerts:      insights.Generate(metrics),
		LossReasons: lossReasons,
		BySeller:    bySeller,
	}

	s.log.Info("reconcile complete",
		slog.String("start", res.Start),
		slog.String("end", res.End),
		slog.Int("deals", len(deals)),
		slog.Int("reports", len(reports)),
		slog.Int("alerts", len(res.Alerts)))
	return res, nil
}

// Funnel fetches deals for the window and aggregates them, optionally
// restricted to one canonical channel.
func (s *Service) Funnel(ctx context.Context, start, end time.Time, ch *models.Channel) (funnel.Summary, error) {
	if end.Before(start) {
		return funnel.Summary{}, fmt.Errorf("%w: start=%s end=%s", models.ErrInvalidRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	deals, err := s.deals.FetchDeals(ctx, start, end)
	if err != nil {
		return funnel.Summary{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return funnel.Aggregate(deals, start, end, ch)
}

// MatchAttribution runs the attribution matcher against the current
// campaign snapshot for a single deal.
func (s *Service) MatchAttribution(ctx context.Context, deal models.Deal) ([]models.AttributionLink, error) {
	campaigns, err := s.campaigns.FetchCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return s.matcher.Attribute(deal, campaigns), nil
}

// WindowComparison is one month's consolidated line in a trend view.
type WindowComparison struct {
	Period     models.Period `json:"period"`
	Investment float64       `json:"investment"`
	Leads      int           `json:"leads"`
	Sales      int           `json:"sales"`
	AmountWon  float64       `json:"amount_won"`
	ROIPercent float64       `json:"roi_percent"`
}

// CompareWindows reconciles each of the last n calendar months ending at
// ref's month, oldest first. Cross-period close tracking stays a caller
// concern; each line is an independent entry-date window.
func (s *Service) CompareWindows(ctx context.Context, ref time.Time, n int) ([]WindowComparison, error) {
	var out []WindowComparison
	for i := n - 1; i >= 0; i-- {
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		last := first.AddDate(0, 1, -1)
		res, err := s.Reconcile(ctx, first, last)
		if err != nil {
			return nil, err
		}
		out = append(out, WindowComparison{
			Period:     models.PeriodOf(first),
			Investment: res.Metrics.InvestmentTotal,
			Leads:      res.Funnel.TotalLeads,
			Sales:      res.Funnel.WonCount,
			AmountWon:  res.Metrics.AmountWon,
			ROIPercent: res.Metrics.ROIPercent,
		})
	}
	return out, nil
}

// Pass-through operations so routers and schedulers depend on one type.

func (s *Service) ClassifyChannel(origin, ch string) models.Channel {
	return channel.Classify(origin, ch)
}

func (s *Service) ProrateAgency(reports map[models.Period]models.AgencyReport, start, end time.Time) (prorate.WeightedTotals, error) {
	return prorate.Prorate(reports, start, end)
}

func (s *Service) AggregateFunnel(deals []models.Deal, start, end time.Time, ch *models.Channel) (funnel.Summary, error) {
	return funnel.Aggregate(deals, start, end, ch)
}

func (s *Service) ComputeMetrics(f roi.FunnelInputs, totals prorate.WeightedTotals) roi.Metrics {
	return roi.Compute(f, totals)
}

func (s *Service) GenerateInsights(m roi.Metrics) []insights.Alert {
	return insights.Generate(m)
}

func channelSummary(groups []funnel.ChannelSummary, ch models.Channel) funnel.Summary {
	for _, g := range groups {
		if g.Channel == ch {
			return g.Summary
		}
	}
	return funnel.Summary{}
}

func periodsIn(start, end time.Time) []models.Period {
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
