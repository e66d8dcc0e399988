// Package postgres persists agency monthly reports. This is the source
// of truth for agency data; the in-memory store in internal/agency only
// caches it. Driver: lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/dealerlens/roi-engine/internal/models"
)

// ReportRepo implements agency.ReportStore against PostgreSQL.
type ReportRepo struct{ db *sql.DB }

// NewReportRepo creates a Postgres-backed report repository.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// Open connects and pings the database.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

const reportColumns = `year, month,
	investment_meta, investment_google, investment_tiktok, investment_other, investment_total,
	meta_reach, meta_impressions, meta_clicks, meta_leads,
	google_impressions, google_clicks, google_leads, google_calls, google_whatsapp,
	leads_reported, sales_reported, COALESCE(notes,'')`

func (r *ReportRepo) Get(ctx context.Context, p models.Period) (models.AgencyReport, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM agency_monthly_reports
		WHERE year = $1 AND month = $2
	`, p.Year, int(p.Month))

	rep, err := scanReport(row)
	if err == sql.ErrNoRows {
		return models.AgencyReport{}, false, nil
	}
	if err != nil {
		return models.AgencyReport{}, false, fmt.Errorf("get report %s: %w", p, err)
	}
	return rep, true, nil
}

func (r *ReportRepo) List(ctx context.Context) ([]models.AgencyReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM agency_monthly_reports
		ORDER BY year DESC, month DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []models.AgencyReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// Upsert replaces the period's row wholesale, matching the report
// lifecycle: a corrected month arrives as a complete new report.
func (r *ReportRepo) Upsert(ctx context.Context, rep models.AgencyReport) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agency_monthly_reports (
			year, month,
			investment_meta, investment_google, investment_tiktok, investment_other, investment_total,
			meta_reach, meta_impressions, meta_clicks, meta_leads,
			google_impressions, google_clicks, google_leads, google_calls, google_whatsapp,
			leads_reported, sales_reported, notes, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (year, month) DO UPDATE SET
			investment_meta = EXCLUDED.investment_meta,
			investment_google = EXCLUDED.investment_google,
			investment_tiktok = EXCLUDED.investment_tiktok,
			investment_other = EXCLUDED.investment_other,
			investment_total = EXCLUDED.investment_total,
			meta_reach = EXCLUDED.meta_reach,
			meta_impressions = EXCLUDED.meta_impressions,
			meta_clicks = EXCLUDED.meta_clicks,
			meta_leads = EXCLUDED.meta_leads,
			google_impressions = EXCLUDED.google_impressions,
			google_clicks = EXCLUDED.google_clicks,
			google_leads = EXCLUDED.google_leads,
			google_calls = EXCLUDED.google_calls,
			google_whatsapp = EXCLUDED.google_whatsapp,
			leads_reported = EXCLUDED.leads_reported,
			sales_reported = EXCLUDED.sales_reported,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`,
		rep.Period.Year, int(rep.Period.Month),
		rep.InvestmentMeta, rep.InvestmentGoogle, rep.InvestmentTikTok, rep.InvestmentOther, rep.InvestmentTotal,
		rep.MetaReach, rep.MetaImpressions, rep.MetaClicks, rep.MetaLeads,
		rep.GoogleImpressions, rep.GoogleClicks, rep.GoogleLeads, rep.GoogleCalls, rep.GoogleWhatsApp,
		rep.LeadsReported, rep.SalesReported, rep.Notes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert report %s: %w", rep.Period, err)
	}
	return nil
}

type scanner interface{ Scan(dest ...any) error }

func scanReport(s scanner) (models.AgencyReport, error) {
	var rep models.AgencyReport
	var year, month int
	err := s.Scan(
		&year, &month,
		&rep.InvestmentMeta, &rep.InvestmentGoogle, &rep.InvestmentTikTok, &rep.InvestmentOther, &rep.InvestmentTotal,
		&rep.MetaReach, &rep.MetaImpressions, &rep.MetaClicks, &rep.MetaLeads,
		&rep.GoogleImpressions, &rep.GoogleClicks, &rep.GoogleLeads, &rep.GoogleCalls, &rep.GoogleWhatsApp,
		&rep.LeadsReported, &rep.SalesReported, &rep.Notes,
	)
	if err != nil {
		return rep, err
	}
	rep.Period = models.Period{Year: year, Month: time.Month(month)}
	return rep, nil
}
