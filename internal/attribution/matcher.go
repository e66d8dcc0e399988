// Package attribution links CRM deals to ad campaigns. Several matching
// methods run independently, each with its own confidence, so a deal can
// carry multiple links; consumers pick the best one or keep all for
// multi-touch views.
package attribution

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/dealerlens/roi-engine/internal/channel"
	"github.com/dealerlens/roi-engine/internal/models"
)

const (
	confidenceTracking = 1.0
	confidenceManual   = 1.0
	confidenceUTM      = 0.8
	confidenceRule     = 0.4
)

// ManualOverride is a human-entered deal↔campaign assignment.
type ManualOverride struct {
	DealID     string
	CampaignID string
	CreatedBy  string
}

// Matcher produces attribution links. It holds no per-call state, so it
// is safe for concurrent use and deterministic: identical inputs yield
// the identical link set in the identical order.
type Matcher struct {
	overrides map[string][]ManualOverride // deal ID -> overrides, input order kept
	now       func() time.Time
	newID     func() string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithOverrides registers manual assignments the matcher must honor.
func WithOverrides(ovs []ManualOverride) Option {
	return func(m *Matcher) {
		for _, ov := range ovs {
			m.overrides[ov.DealID] = append(m.overrides[ov.DealID], ov)
		}
	}
}

// WithClock overrides the link timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// WithIDFunc overrides link ID generation, for tests.
func WithIDFunc(f func() string) Option {
	return func(m *Matcher) { m.newID = f }
}

func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		overrides: make(map[string][]ManualOverride),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Attribute matches one deal against the candidate campaigns. Zero links
// is a valid result, not an error. Methods run in rank order:
//
//  1. tracking — click-identifier exact match, confidence 1.0
//  2. utm      — normalized utm_campaign equals normalized name, 0.8
//  3. manual   — operator override, 1.0
//  4. rule     — channel/platform agreement, 0.4; only fires when no
//     other method produced anything for the deal
//
// Each (deal, campaign, method) pair appears at most once.
func (m *Matcher) Attribute(deal models.Deal, campaigns []models.Campaign) []models.AttributionLink {
	var links []models.AttributionLink
	seen := make(map[string]struct{}) // campaignID|method

	add := func(campaignID string, method models.AttributionMethod, conf float64, details, createdBy string) {
		key := campaignID + "|" + string(method)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, models.AttributionLink{
			ID:           m.newID(),
			DealID:       deal.ID,
			CampaignID:   campaignID,
			Method:       method,
			Confidence:   conf,
			MatchDetails: details,
			CreatedBy:    createdBy,
			CreatedAt:    m.now(),
		})
	}

	dealUTM := NormalizeCampaignName(deal.UTMCampaign)

	for _, c := range campaigns {
		if clickID, ok := clickIDMatch(deal, c); ok {
			add(c.ID, models.MethodTracking, confidenceTracking,
				fmt.Sprintf("click id %s", clickID), "")
		}
		if dealUTM != "" && dealUTM == campaignKey(c) {
			add(c.ID, models.MethodUTM, confidenceUTM,
				fmt.Sprintf("utm_campaign %q", deal.UTMCampaign), "")
		}
	}

	for _, ov := range m.overrides[deal.ID] {
		add(ov.CampaignID, models.MethodManual, confidenceManual, "manual assignment", ov.CreatedBy)
	}

	// Rule fallback is a last resort: it only applies when the deal got
	// nothing from tracking, utm, or manual.
	if len(links) == 0 {
		dealChannel := channel.Classify(deal.Origin, deal.RawChannel)
		if channel.PaidMedia(dealChannel) {
			for _, c := range campaigns {
				if c.Platform.Channel() == dealChannel {
					add(c.ID, models.MethodRule, confidenceRule,
						fmt.Sprintf("channel %s matches platform %s", dealChannel, c.Platform), "")
				}
			}
		}
	}

	return links
}

// BestLink picks the single attribution to use when a consumer needs one.
// Highest confidence wins; method rank breaks ties so the choice is stable.
func BestLink(links []models.AttributionLink) (models.AttributionLink, bool) {
	if len(links) == 0 {
		return models.AttributionLink{}, false
	}
	best := links[0]
	for _, l := range links[1:] {
		if l.Confidence > best.Confidence ||
			(l.Confidence == best.Confidence && methodRank(l.Method) < methodRank(best.Method)) {
			best = l
		}
	}
	return best, true
}

func methodRank(m models.AttributionMethod) int {
	switch m {
	case models.MethodTracking:
		return 0
	case models.MethodManual:
		return 1
	case models.MethodUTM:
		return 2
	case models.MethodRule:
		return 3
	default:
		return 4
	}
}

func clickIDMatch(deal models.Deal, c models.Campaign) (string, bool) {
	for _, id := range c.ClickIDs {
		if id == "" {
			continue
		}
		if id == deal.GCLID || id == deal.FBCLID {
			return id, true
		}
	}
	return "", false
}

func campaignKey(c models.Campaign) string {
	if c.NormalizedName != "" {
		return c.NormalizedName
	}
	return NormalizeCampaignName(c.Name)
}

// NormalizeCampaignName canonicalizes a campaign name for utm matching:
// lowercase, whitespace runs collapse to a single underscore, every other
// non-alphanumeric rune is dropped.
func NormalizeCampaignName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			b.WriteRune(r)
			inSpace = false
		default:
			// stripped, and does not break a whitespace run: "a - b" → "a_b"
		}
	}
	return strings.Trim(b.String(), "_")
}
