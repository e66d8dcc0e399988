package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealerlens/roi-engine/internal/agency"
	"github.com/dealerlens/roi-engine/internal/funnel"
	"github.com/dealerlens/roi-engine/internal/models"
	"github.com/dealerlens/roi-engine/internal/obs"
	"github.com/dealerlens/roi-engine/internal/recon"
	"github.com/dealerlens/roi-engine/internal/utils"
)

// Reconciler is the slice of the reconciliation service the router uses.
type Reconciler interface {
	Reconcile(ctx context.Context, start, end time.Time) (*recon.Result, error)
	Funnel(ctx context.Context, start, end time.Time, ch *models.Channel) (funnel.Summary, error)
	CompareWindows(ctx context.Context, ref time.Time, n int) ([]recon.WindowComparison, error)
}

// ResultCache is the optional memoization layer. A nil cache disables it.
type ResultCache interface {
	Get(ctx context.Context, start, end time.Time) (*recon.Result, bool)
	Set(ctx context.Context, start, end time.Time, res *recon.Result)
	Invalidate(ctx context.Context) error
}

func NewRouter(log *slog.Logger, svc Reconciler, reports agency.ReportStore, cache ResultCache) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(obs.Instrument)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", obs.Handler())

	mux.Route("/api/roi", func(r chi.Router) {
		r.Get("/reconcile", handleReconcile(svc, cache))
		r.Get("/funnel", handleFunnel(svc))
		r.Get("/compare", handleCompare(svc))
		r.Get("/agency/reports", handleListReports(reports))
		r.Put("/agency/reports/{year}/{month}", handleUpsertReport(reports, cache, log))
	})

	return mux
}

func handleReconcile(svc Reconciler, cache ResultCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := parseWindow(r)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if cache != nil {
			if res, ok := cache.Get(r.Context(), start, end); ok {
				writeJSON(w, res)
				return
			}
		}
		res, err := svc.Reconcile(r.Context(), start, end)
		if err != nil {
			writeError(w, err)
			return
		}
		if cache != nil {
			cache.Set(r.Context(), start, end, res)
		}
		writeJSON(w, res)
	}
}

func handleFunnel(svc Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := parseWindow(r)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		var ch *models.Channel
		if q := r.URL.Query().Get("channel"); q != "" {
			c, err := models.ParseChannel(q)
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			ch = &c
		}
		sum, err := svc.Funnel(r.Context(), start, end, ch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, sum)
	}
}

func handleCompare(svc Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months := 3
		if q := r.URL.Query().Get("months"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 1 || n > 24 {
				http.Error(w, "months must be 1..24", 400)
				return
			}
			months = n
		}
		ref := time.Now().UTC()
		if q := r.URL.Query().Get("ref"); q != "" {
			t, err := time.Parse("2006-01", q)
			if err != nil {
				http.Error(w, "bad ref month (YYYY-MM)", 400)
				return
			}
			ref = t
		}
		rows, err := svc.CompareWindows(r.Context(), ref, months)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, rows)
	}
}

func handleListReports(reports agency.ReportStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := reports.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, rows)
	}
}

func handleUpsertReport(reports agency.ReportStore, cache ResultCache, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parsePeriod(chi.URLParam(r, "year"), chi.URLParam(r, "month"))
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		var rep models.AgencyReport
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			http.Error(w, "bad report body: "+err.Error(), 400)
			return
		}
		rep.Period = p
		if err := reports.Upsert(r.Context(), rep); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if cache != nil {
			if err := cache.Invalidate(r.Context()); err != nil {
				log.Warn("cache invalidation failed", slog.String("error", err.Error()))
			}
		}
		writeJSON(w, rep)
	}
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start required (YYYY-MM-DD)")
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end required (YYYY-MM-DD)")
	}
	return start, end, nil
}

func parsePeriod(year, month string) (models.Period, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 2000 || y > 2100 {
		return models.Period{}, errors.New("bad year")
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return models.Period{}, errors.New("bad month")
	}
	return models.Period{Year: y, Month: time.Month(m)}, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidRange):
		http.Error(w, err.Error(), 400)
	case errors.Is(err, recon.ErrSourceUnavailable):
		http.Error(w, err.Error(), 502)
	default:
		http.Error(w, err.Error(), 500)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
