package agency

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dealerlens/roi-engine/internal/models"
)

type seedFile struct {
	Reports map[string]models.AgencyReport `yaml:"reports"` // keyed "YYYY-MM"
}

// LoadSeed reads a YAML file of manually-reported monthly data and
// upserts every entry into st. Used at startup so a fresh instance has
// the agency history without waiting for manual uploads.
func LoadSeed(ctx context.Context, st ReportStore, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	n := 0
	for key, r := range f.Reports {
		p, err := parsePeriod(key)
		if err != nil {
			return n, fmt.Errorf("seed entry %q: %w", key, err)
		}
		r.Period = p
		if err := st.Upsert(ctx, r); err != nil {
			return n, fmt.Errorf("seed entry %q: %w", key, err)
		}
		n++
	}
	return n, nil
}

func parsePeriod(s string) (models.Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return models.Period{}, fmt.Errorf("want YYYY-MM: %w", err)
	}
	return models.PeriodOf(t), nil
}
