// Package agency holds the monthly agency report store. The persisted
// repository is the source of truth; the in-memory store here is a cache
// and seed target, never the system of record.
package agency

import (
	"context"
	"sort"
	"sync"

	"github.com/dealerlens/roi-engine/internal/models"
)

// ReportStore is the read/write surface the reconciliation core and the
// upload endpoint use. Get reports absence via ok=false, not an error:
// sparse agency data is expected.
type ReportStore interface {
	Get(ctx context.Context, p models.Period) (models.AgencyReport, bool, error)
	List(ctx context.Context) ([]models.AgencyReport, error)
	// Upsert replaces the period's report wholesale. Historical months are
	// corrected by full replacement, never patched.
	Upsert(ctx context.Context, r models.AgencyReport) error
}

// MemoryStore is a RWMutex-guarded in-process ReportStore.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[models.Period]models.AgencyReport
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[models.Period]models.AgencyReport)}
}

func (s *MemoryStore) Get(_ context.Context, p models.Period) (models.AgencyReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[p]
	return r, ok, nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.AgencyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AgencyReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sortReports(out)
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, r models.AgencyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.Period] = r
	return nil
}

// Range loads every report overlapping [start, end]'s months into a map
// keyed by period, the shape the pro-ration engine consumes.
func Range(ctx context.Context, st ReportStore, periods []models.Period) (map[models.Period]models.AgencyReport, error) {
	out := make(map[models.Period]models.AgencyReport, len(periods))
	for _, p := range periods {
		r, ok, err := st.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out[p] = r
		}
	}
	return out, nil
}

func sortReports(rs []models.AgencyReport) {
	// newest first, the order the dashboard lists reports
	sort.Slice(rs, func(i, j int) bool { return after(rs[i].Period, rs[j].Period) })
}

func after(a, b models.Period) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	return a.Month > b.Month
}
