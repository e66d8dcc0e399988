package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned whenever a caller passes end < start.
// Ranges are never swapped or clamped.
var ErrInvalidRange = errors.New("invalid range: end before start")

// Channel is the canonical marketing-source tag. Closed set: reporting
// code switches exhaustively over it so new channels can't fall through
// to the wrong bucket.
type Channel string

const (
	ChannelMeta       Channel = "META"
	ChannelGoogle     Channel = "GOOGLE"
	ChannelSite       Channel = "SITE"
	ChannelPortals    Channel = "PORTALS"
	ChannelPresencial Channel = "PRESENCIAL"
	ChannelDirect     Channel = "DIRECT"
	ChannelIndication Channel = "INDICATION"
	ChannelOther      Channel = "OTHER"
)

// Channels lists every canonical channel in reporting order.
func Channels() []Channel {
	return []Channel{
		ChannelMeta, ChannelGoogle, ChannelSite, ChannelPortals,
		ChannelPresencial, ChannelDirect, ChannelIndication, ChannelOther,
	}
}

// ParseChannel maps a stored tag back to a canonical channel.
func ParseChannel(s string) (Channel, error) {
	for _, c := range Channels() {
		if string(c) == s {
			return c, nil
		}
	}
	return ChannelOther, fmt.Errorf("unknown channel %q", s)
}

// DealState is the fine-grained CRM lifecycle. States 1..5 of the source
// system are in-progress sub-stages; funnel reporting collapses them to OPEN.
type DealState int

const (
	StateNew DealState = iota + 1
	StateContacted
	StateVisiting
	StateProposal
	StateNegotiation
	StateWon
	StateLost
	StateArchived
)

// FunnelBucket is the collapsed lifecycle used by all funnel math.
type FunnelBucket string

const (
	BucketOpen FunnelBucket = "OPEN"
	BucketWon  FunnelBucket = "WON"
	BucketLost FunnelBucket = "LOST"
)

// Bucket collapses a state. ARCHIVED deals count as lost for funnel
// purposes: they left the pipeline without a sale.
func (s DealState) Bucket() FunnelBucket {
	switch {
	case s == StateWon:
		return BucketWon
	case s == StateLost || s == StateArchived:
		return BucketLost
	default:
		return BucketOpen
	}
}

// Deal is one CRM opportunity. Owned by the sync process; read-only here.
type Deal struct {
	ID          string
	State       DealState
	CreatedAt   time.Time
	ClosedAt    *time.Time // nil iff the deal is still open
	Amount      float64    // meaningful only when WON; reporting filters first
	Origin      string     // free text, operator entered
	RawChannel  string     // free text, independent of Origin and may disagree
	UTMCampaign string
	UTMSource   string
	UTMMedium   string
	GCLID       string // Google click identifier
	FBCLID      string // Meta click identifier
	Seller      string
	LossReason  string
	Customer    string
	Vehicle     string
}

// CampaignPlatform is the ad platform a campaign runs on.
type CampaignPlatform string

const (
	PlatformMeta   CampaignPlatform = "META"
	PlatformGoogle CampaignPlatform = "GOOGLE"
)

// Channel maps a campaign platform onto the canonical channel taxonomy.
func (p CampaignPlatform) Channel() Channel {
	if p == PlatformGoogle {
		return ChannelGoogle
	}
	return ChannelMeta
}

// Campaign is one ad campaign with the identifiers attribution matches on.
type Campaign struct {
	ID             string
	ExternalID     string
	Name           string
	NormalizedName string // precomputed by the campaign source, may be empty
	Platform       CampaignPlatform
	ClickIDs       []string // gclid/fbclid values captured from landing traffic
	Status         string
	Spend          float64
	StartDate      *time.Time
	EndDate        *time.Time
}

// AttributionMethod identifies how a deal↔campaign link was established.
type AttributionMethod string

const (
	MethodTracking AttributionMethod = "tracking"
	MethodUTM      AttributionMethod = "utm"
	MethodManual   AttributionMethod = "manual"
	MethodRule     AttributionMethod = "rule"
	MethodAI       AttributionMethod = "ai" // suggested externally, never produced here
)

// AttributionLink is a many-to-many edge between a deal and a campaign.
// (deal, campaign, method) is unique; links are superseded, never mutated.
type AttributionLink struct {
	ID           string
	DealID       string
	CampaignID   string
	Method       AttributionMethod
	Confidence   float64 // 0..1
	MatchDetails string
	CreatedBy    string // set on manual links only
	CreatedAt    time.Time
}

// Period identifies one agency reporting month.
type Period struct {
	Year  int
	Month time.Month
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period { return Period{Year: t.Year(), Month: t.Month()} }

// AgencyReport is one manually-reported monthly summary from the media
// agency. Whole calendar month only; replaced wholesale on correction.
// investment_total is validated at ingestion but never assumed equal to
// the per-platform sum at read time.
type AgencyReport struct {
	Period Period `yaml:"-" json:"period"`

	InvestmentMeta   float64 `yaml:"investment_meta" json:"investment_meta"`
	InvestmentGoogle float64 `yaml:"investment_google" json:"investment_google"`
	InvestmentTikTok float64 `yaml:"investment_tiktok" json:"investment_tiktok"`
	InvestmentOther  float64 `yaml:"investment_other" json:"investment_other"`
	InvestmentTotal  float64 `yaml:"investment_total" json:"investment_total"`

	MetaReach       float64 `yaml:"meta_reach" json:"meta_reach"`
	MetaImpressions float64 `yaml:"meta_impressions" json:"meta_impressions"`
	MetaClicks      float64 `yaml:"meta_clicks" json:"meta_clicks"`
	MetaLeads       float64 `yaml:"meta_leads" json:"meta_leads"` // conversions the agency reports for Meta

	GoogleImpressions float64 `yaml:"google_impressions" json:"google_impressions"`
	GoogleClicks      float64 `yaml:"google_clicks" json:"google_clicks"`
	GoogleLeads       float64 `yaml:"google_leads" json:"google_leads"`
	GoogleCalls       float64 `yaml:"google_calls" json:"google_calls"`
	GoogleWhatsApp    float64 `yaml:"google_whatsapp" json:"google_whatsapp"`

	LeadsReported float64 `yaml:"leads_reported" json:"leads_reported"`
	SalesReported float64 `yaml:"sales_reported" json:"sales_reported"`

	Notes string `yaml:"notes,omitempty" json:"notes,omitempty"`
}
