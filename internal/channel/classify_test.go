package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealerlens/roi-engine/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		channel string
		want    models.Channel
	}{
		{"instagram origin", "INSTAGRAM", "", models.ChannelMeta},
		{"facebook channel only", "", "FACEBOOK", models.ChannelMeta},
		{"facebook ads origin", "Facebook Ads", "", models.ChannelMeta},
		{"instagram ads origin", "Instagram Ads", "", models.ChannelMeta},
		{"google origin", "GOOGLE", "", models.ChannelGoogle},
		{"google lowercase", "google", "", models.ChannelGoogle},
		{"google padded", "  Google  ", "", models.ChannelGoogle},
		{"site", "SITE", "", models.ChannelSite},
		{"portal webmotors", "WEBMOTORS", "", models.ChannelPortals},
		{"portal via channel", "", "ICARROS", models.ChannelPortals},
		{"showroom", "SHOWROOM", "", models.ChannelPresencial},
		{"na pista", "NA PISTA", "TELEFONE", models.ChannelPresencial},
		{"whatsapp", "WHATSAPP", "", models.ChannelDirect},
		{"telemarketing channel", "", "TELEMARKETING", models.ChannelDirect},
		{"indication", "INDICACAO", "", models.ChannelIndication},
		{"indication accented", "INDICAÇÃO CAMPANHA", "", models.ChannelIndication},
		{"unknown", "CARNAVAL", "PANFLETO", models.ChannelOther},
		{"both empty", "", "", models.ChannelOther},
		{"whitespace only", "   ", "  ", models.ChannelOther},

		// Paid media signal in either field overrides a presumed-organic
		// origin. This is the documented resolution of the origin/channel
		// disagreement in the source data.
		{"showroom origin, google channel", "SHOWROOM", "GOOGLE", models.ChannelGoogle},
		{"feirao origin, instagram channel", "FEIRÃO", "INSTAGRAM", models.ChannelMeta},
		{"meta beats google in priority", "FACEBOOK", "GOOGLE", models.ChannelMeta},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.origin, tt.channel))
		})
	}
}

// Every alias in every table must classify, and classification must be
// stable across repeated calls (the classifier is a pure function).
func TestClassifyTotalAndDeterministic(t *testing.T) {
	inputs := []string{
		"FACEBOOK", "INSTAGRAM", "GOOGLE", "SITE", "WEBMOTORS", "SHOWROOM",
		"WHATSAPP", "INDICACAO", "", "???", "face book", "GOOGLE ADS",
	}
	for _, o := range inputs {
		for _, c := range inputs {
			got := Classify(o, c)
			assert.Contains(t, models.Channels(), got, "origin=%q channel=%q", o, c)
			assert.Equal(t, got, Classify(o, c), "origin=%q channel=%q", o, c)
		}
	}
}

func TestPaidMedia(t *testing.T) {
	assert.True(t, PaidMedia(models.ChannelMeta))
	assert.True(t, PaidMedia(models.ChannelGoogle))
	assert.False(t, PaidMedia(models.ChannelPortals))
	assert.False(t, PaidMedia(models.ChannelOther))
}
