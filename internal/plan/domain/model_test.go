package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierForPlan(t *testing.T) {
	cases := []struct {
		code string
		want Tier
	}{
		{"free", TierNone},
		{"starter", TierTradable},
		{"professional", TierTradable},
		{"Professional", TierTradable},
		{"enterprise", TierUnlimited},
		{"  ENTERPRISE  ", TierUnlimited},
		{"", TierNone},
		{"legacy-gold", TierNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierForPlan(tc.code), "plan code %q", tc.code)
	}
}
