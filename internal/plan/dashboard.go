package plan

// Card identifies one block on the dashboard.
type Card string

const (
	CardSummary        Card = "summary"
	CardRecent         Card = "recent_transactions"
	CardCategories     Card = "category_breakdown"
	CardFixedExpenses  Card = "fixed_expenses"
	CardTrend          Card = "monthly_trend"
	CardFilters        Card = "transaction_filters"
	CardAccountManager Card = "account_manager"
)

// Feature is a capability gated by tier, checked by API handlers.
type Feature string

const (
	FeatureCategoryBreakdown Feature = "category_breakdown"
	FeatureFixedExpenses     Feature = "fixed_expenses"
	FeatureTrend             Feature = "monthly_trend"
	FeatureFilters           Feature = "transaction_filters"
)

// Variant is the static composition of a dashboard for one tier.
type Variant struct {
	Tier        Tier   `json:"tier"`
	Title       string `json:"title"`
	Cards       []Card `json:"cards"`
	RecentLimit int    `json:"recent_limit"`
	// Upgrade is empty when no self-service upgrade exists.
	Upgrade Tier `json:"upgrade,omitempty"`
}

// Has reports whether the variant shows card c.
func (v Variant) Has(c Card) bool {
	for _, have := range v.Cards {
		if have == c {
			return true
		}
	}
	return false
}

// Allows reports whether feature f is unlocked for the variant.
func (v Variant) Allows(f Feature) bool {
	return v.Has(featureCards[f])
}

// CanUpgrade reports whether the variant shows an upgrade affordance.
func (v Variant) CanUpgrade() bool {
	return v.Upgrade != ""
}

var featureCards = map[Feature]Card{
	FeatureCategoryBreakdown: CardCategories,
	FeatureFixedExpenses:     CardFixedExpenses,
	FeatureTrend:             CardTrend,
	FeatureFilters:           CardFilters,
}

var (
	freeCards   = []Card{CardSummary, CardRecent}
	bronzeCards = append(append([]Card(nil), freeCards...), CardCategories)
	silverCards = append(append([]Card(nil), bronzeCards...), CardFixedExpenses, CardTrend)
	goldCards   = append(append([]Card(nil), silverCards...), CardFilters)
	entCards    = append(append([]Card(nil), goldCards...), CardAccountManager)
)

var variants = map[Tier]Variant{
	Free:       {Tier: Free, Title: "Painel Gratuito", Cards: freeCards, RecentLimit: 5},
	Bronze:     {Tier: Bronze, Title: "Painel Bronze", Cards: bronzeCards, RecentLimit: 10},
	Silver:     {Tier: Silver, Title: "Painel Prata", Cards: silverCards, RecentLimit: 20},
	Gold:       {Tier: Gold, Title: "Painel Ouro", Cards: goldCards, RecentLimit: 50},
	Enterprise: {Tier: Enterprise, Title: "Painel Empresarial", Cards: entCards, RecentLimit: 100},
}

// SelectDashboard returns the dashboard for t. Unknown tiers get the free
// dashboard so legacy or corrupt values never render an empty page.
func SelectDashboard(t Tier) Variant {
	v, ok := variants[t]
	if !ok {
		v = variants[Free]
	}
	v.Cards = append([]Card(nil), v.Cards...)
	v.Upgrade, _ = UpgradeOption(v.Tier)
	return v
}

// RequiredTier returns the lowest tier whose dashboard unlocks f.
func RequiredTier(f Feature) Tier {
	for _, t := range Tiers {
		if variants[t].Allows(f) {
			return t
		}
	}
	return Enterprise
}
