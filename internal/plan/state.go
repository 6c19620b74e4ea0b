package plan

// State is the tier of one session. It is an explicit value passed to the
// code that needs it; callers that share a State across goroutines must
// synchronize access themselves.
type State struct {
	tier Tier
}

// NewState returns a State at t, or at free when t is unknown.
func NewState(t Tier) *State {
	if !t.Valid() {
		t = Free
	}
	return &State{tier: t}
}

// Tier returns the current tier.
func (s *State) Tier() Tier {
	return s.tier
}

// Set assigns any known tier, including enterprise.
func (s *State) Set(t Tier) error {
	if !t.Valid() {
		return ErrUnknownTier
	}
	s.tier = t
	return nil
}

// CanUpgrade reports whether Upgrade would move the tier.
func (s *State) CanUpgrade() bool {
	return CanUpgrade(s.tier)
}

// NextTier returns the upgrade target, if any.
func (s *State) NextTier() (Tier, bool) {
	return UpgradeOption(s.tier)
}

// Upgrade moves one step along the chain and returns the new tier. At the end
// of the chain it is a no-op and reports false. No billing happens here.
func (s *State) Upgrade() (Tier, bool) {
	next, ok := UpgradeOption(s.tier)
	if !ok {
		return s.tier, false
	}
	s.tier = next
	return next, true
}
