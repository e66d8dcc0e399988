// Package channel maps the CRM's two free-text source fields onto the
// canonical channel taxonomy. The CRM records origin and channel
// independently and they often disagree; the precedence policy here is
// the single place that disagreement is resolved.
package channel

import (
	"strings"

	"github.com/dealerlens/roi-engine/internal/models"
)

// Alias tables come from the dealership's historical CRM values. The
// Portuguese spellings are what operators actually type.
var (
	metaAliases = newSet(
		"META", "FACEBOOK", "INSTAGRAM", "FB", "IG",
		"META ADS", "FACEBOOK ADS", "INSTAGRAM ADS",
	)
	googleAliases = newSet("GOOGLE", "GOOGLE ADS", "ADWORDS", "YOUTUBE")
	siteAliases   = newSet("SITE", "WEBSITE", "LANDING PAGE")
	portalAliases = newSet(
		"WEBMOTORS", "ICARROS", "MEUCARRONOVO", "MERCADO LIVRE", "MOBIAUTO",
		"AUTOLINE", "POACARROS", "SOCARRAO", "AUTOCARRO",
	)
	presencialAliases = newSet("SHOWROOM", "NA PISTA", "FEIRAO", "FEIRÃO")
	directAliases     = newSet("WHATSAPP", "TELEFONE", "TELEMARKETING")
	indicationAliases = newSet(
		"INDICACAO", "INDICAÇÃO", "INDICACAO CAMPANHA", "INDICAÇÃO CAMPANHA",
		"REDE RELACIONAMENTO",
	)
)

// Classify resolves (origin, channel) to exactly one canonical channel.
// Pure and total: any input pair, including empty strings, yields a
// channel and never an error.
//
// Both fields are equally authoritative and checked at every tier, in
// fixed priority order. Paid media wins over everything else, so a deal
// entered as origin=SHOWROOM / channel=GOOGLE classifies as GOOGLE: the
// walk-in was produced by the ad even though reception logged it as a
// showroom visit.
func Classify(origin, channel string) models.Channel {
	o := norm(origin)
	c := norm(channel)

	switch {
	case metaAliases.has(o) || metaAliases.has(c):
		return models.ChannelMeta
	case googleAliases.has(o) || googleAliases.has(c):
		return models.ChannelGoogle
	case siteAliases.has(o) || siteAliases.has(c):
		return models.ChannelSite
	case portalAliases.has(o) || portalAliases.has(c):
		return models.ChannelPortals
	case (presencialAliases.has(o) || presencialAliases.has(c)) && !paidMedia(c):
		return models.ChannelPresencial
	case directAliases.has(o) || directAliases.has(c):
		return models.ChannelDirect
	case indicationAliases.has(o) || indicationAliases.has(c):
		return models.ChannelIndication
	default:
		return models.ChannelOther
	}
}

// PaidMedia reports whether ch is a paid-media channel (META or GOOGLE).
func PaidMedia(ch models.Channel) bool {
	return ch == models.ChannelMeta || ch == models.ChannelGoogle
}

func paidMedia(normalized string) bool {
	return metaAliases.has(normalized) || googleAliases.has(normalized)
}

func norm(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

type set map[string]struct{}

func newSet(vals ...string) set {
	s := make(set, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	if v == "" {
		return false
	}
	_, ok := s[v]
	return ok
}
