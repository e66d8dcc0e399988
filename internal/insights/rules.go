// Package insights applies the advisory rule table over derived metrics.
// Rules are independent; any subset may fire for a window. The thresholds
// below are the complete set — there are no hidden rules.
package insights

import (
	"fmt"

	"github.com/dealerlens/roi-engine/internal/roi"
)

// Severity separates actionable warnings from informational insights.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInsight Severity = "insight"
)

// Alert is one advisory message with a stable machine-readable code.
type Alert struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Platform string   `json:"platform,omitempty"`
	Message  string   `json:"message"`
}

const (
	CodeLeadDiscrepancy  = "lead_discrepancy"
	CodeLowReturn        = "low_return"
	CodeZeroConversion   = "zero_conversion"
	CodeLowConversion    = "low_conversion"
	CodeROIComparison    = "roi_comparison"
	CodeIndicationStrong = "indication_opportunity"
)

const (
	discrepancyThreshold   = 50
	lowReturnMaxSales      = 2
	minInvestment          = 5000
	lowConversionThreshold = 10
	indicationThreshold    = 40
)

// Generate evaluates every rule against m and returns the alerts that
// fired, in rule-table order.
func Generate(m roi.Metrics) []Alert {
	var out []Alert

	if m.LeadDiscrepancy > discrepancyThreshold {
		out = append(out, Alert{
			Code:     CodeLeadDiscrepancy,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("agency reports %.0f more leads than the CRM recorded in the window", m.LeadDiscrepancy),
		})
	}

	out = append(out, platformAlerts("META", m.Meta)...)
	out = append(out, platformAlerts("GOOGLE", m.Google)...)

	if m.ConversionRate < lowConversionThreshold {
		out = append(out, Alert{
			Code:     CodeLowConversion,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("overall conversion rate is low: %.1f%%", m.ConversionRate),
		})
	}

	if a, ok := roiComparison(m); ok {
		out = append(out, a)
	}

	if m.IndicationConversionRate > indicationThreshold && m.IndicationWonCount > 0 {
		out = append(out, Alert{
			Code:     CodeIndicationStrong,
			Severity: SeverityInsight,
			Message: fmt.Sprintf("referral channel converts at %.1f%% (%d sales) at zero media cost — worth a formal referral program",
				m.IndicationConversionRate, m.IndicationWonCount),
		})
	}

	return out
}

func platformAlerts(platform string, p roi.PlatformMetrics) []Alert {
	var out []Alert
	if p.Investment <= minInvestment {
		return nil
	}
	if p.WonCount == 0 {
		out = append(out, Alert{
			Code:     CodeZeroConversion,
			Severity: SeverityWarning,
			Platform: platform,
			Message:  fmt.Sprintf("%s: R$ %.0f invested with no attributed sales — audit UTM tracking", platform, p.Investment),
		})
	}
	if p.WonCount <= lowReturnMaxSales {
		out = append(out, Alert{
			Code:     CodeLowReturn,
			Severity: SeverityWarning,
			Platform: platform,
			Message:  fmt.Sprintf("%s: R$ %.0f invested produced only %d sales", platform, p.Investment, p.WonCount),
		})
	}
	return out
}

func roiComparison(m roi.Metrics) (Alert, bool) {
	switch {
	case m.Google.ROIPercent > m.Meta.ROIPercent && m.Google.WonCount > 0:
		return Alert{
			Code:     CodeROIComparison,
			Severity: SeverityInsight,
			Platform: "GOOGLE",
			Message:  fmt.Sprintf("Google ROI (%.0f%%) is outperforming Meta (%.0f%%)", m.Google.ROIPercent, m.Meta.ROIPercent),
		}, true
	case m.Meta.ROIPercent > m.Google.ROIPercent && m.Meta.WonCount > 0:
		return Alert{
			Code:     CodeROIComparison,
			Severity: SeverityInsight,
			Platform: "META",
			Message:  fmt.Sprintf("Meta ROI (%.0f%%) is outperforming Google (%.0f%%)", m.Meta.ROIPercent, m.Google.ROIPercent),
		}, true
	}
	return Alert{}, false
}
