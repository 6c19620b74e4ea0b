package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeOption(t *testing.T) {
	tests := []struct {
		from Tier
		want Tier
		ok   bool
	}{
		{Free, Bronze, true},
		{Bronze, Silver, true},
		{Silver, Gold, true},
		{Gold, "", false},
		{Enterprise, "", false},
		{"platinum", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := UpgradeOption(tt.from)
		assert.Equal(t, tt.want, got, "UpgradeOption(%q)", tt.from)
		assert.Equal(t, tt.ok, ok, "UpgradeOption(%q)", tt.from)
		assert.Equal(t, tt.ok, CanUpgrade(tt.from), "CanUpgrade(%q)", tt.from)
	}
}

func TestParseTier(t *testing.T) {
	got, err := ParseTier("  GOLD ")
	require.NoError(t, err)
	assert.Equal(t, Gold, got)

	_, err = ParseTier("platinum")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestAtLeast(t *testing.T) {
	assert.True(t, Gold.AtLeast(Bronze))
	assert.True(t, Bronze.AtLeast(Bronze))
	assert.False(t, Free.AtLeast(Bronze))
	assert.True(t, Enterprise.AtLeast(Gold))
	assert.False(t, Tier("legacy").AtLeast(Bronze))
	assert.True(t, Tier("legacy").AtLeast(Free))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Silver", Silver.Label())
	assert.Equal(t, "Free", Tier("???").Label())
}

func TestStateUpgradeWalksChain(t *testing.T) {
	s := NewState(Free)
	var seen []Tier
	for s.CanUpgrade() {
		next, ok := s.Upgrade()
		require.True(t, ok)
		seen = append(seen, next)
	}
	assert.Equal(t, []Tier{Bronze, Silver, Gold}, seen)

	got, ok := s.Upgrade()
	assert.False(t, ok)
	assert.Equal(t, Gold, got)
	assert.Equal(t, Gold, s.Tier())
}

func TestStateSet(t *testing.T) {
	s := NewState("bogus")
	assert.Equal(t, Free, s.Tier())

	require.NoError(t, s.Set(Enterprise))
	assert.Equal(t, Enterprise, s.Tier())
	assert.False(t, s.CanUpgrade())
	_, ok := s.NextTier()
	assert.False(t, ok)

	assert.ErrorIs(t, s.Set("diamond"), ErrUnknownTier)
	assert.Equal(t, Enterprise, s.Tier(), "failed Set must not change the tier")
}

func TestSelectDashboardIsTotal(t *testing.T) {
	for _, tier := range Tiers {
		v := SelectDashboard(tier)
		assert.Equal(t, tier, v.Tier)
		assert.True(t, v.Has(CardSummary), "%s dashboard must show the summary", tier)
		assert.NotEmpty(t, v.Title)
	}
	assert.Equal(t, SelectDashboard(Free), SelectDashboard("platinum"))
	assert.Equal(t, SelectDashboard(Free), SelectDashboard(""))
}

func TestSelectDashboardComposition(t *testing.T) {
	free := SelectDashboard(Free)
	assert.Equal(t, []Card{CardSummary, CardRecent}, free.Cards)
	assert.Equal(t, 5, free.RecentLimit)
	assert.Equal(t, Bronze, free.Upgrade)

	bronze := SelectDashboard(Bronze)
	assert.True(t, bronze.Allows(FeatureCategoryBreakdown))
	assert.False(t, bronze.Allows(FeatureTrend))

	silver := SelectDashboard(Silver)
	assert.True(t, silver.Allows(FeatureFixedExpenses))
	assert.True(t, silver.Allows(FeatureTrend))
	assert.False(t, silver.Allows(FeatureFilters))

	gold := SelectDashboard(Gold)
	assert.True(t, gold.Allows(FeatureFilters))
	assert.False(t, gold.CanUpgrade())

	ent := SelectDashboard(Enterprise)
	assert.True(t, ent.Has(CardAccountManager))
	assert.False(t, ent.CanUpgrade())
}

func TestSelectDashboardReturnsCopy(t *testing.T) {
	v := SelectDashboard(Gold)
	v.Cards[0] = "tampered"
	assert.Equal(t, CardSummary, SelectDashboard(Gold).Cards[0])
}

func TestRequiredTier(t *testing.T) {
	assert.Equal(t, Bronze, RequiredTier(FeatureCategoryBreakdown))
	assert.Equal(t, Silver, RequiredTier(FeatureFixedExpenses))
	assert.Equal(t, Silver, RequiredTier(FeatureTrend))
	assert.Equal(t, Gold, RequiredTier(FeatureFilters))
}
