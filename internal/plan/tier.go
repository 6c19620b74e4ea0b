// Package plan models subscription tiers, the one-step upgrade chain and the
// dashboard variant each tier unlocks.
package plan

import (
	"errors"
	"strings"
)

// Tier is a subscription level.
type Tier string

const (
	Free       Tier = "free"
	Bronze     Tier = "bronze"
	Silver     Tier = "silver"
	Gold       Tier = "gold"
	Enterprise Tier = "enterprise"
)

var (
	ErrUnknownTier = errors.New("unknown plan tier")
	ErrNoUpgrade   = errors.New("no upgrade available")
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{Free, Bronze, Silver, Gold, Enterprise}

// chain is the self-service upgrade path. Enterprise is assigned out of band.
var chain = []Tier{Free, Bronze, Silver, Gold}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t.rank() >= 0
}

func (t Tier) rank() int {
	for i, known := range Tiers {
		if t == known {
			return i
		}
	}
	return -1
}

// AtLeast reports whether t ranks at or above floor. Unknown tiers rank as free.
func (t Tier) AtLeast(floor Tier) bool {
	r := t.rank()
	if r < 0 {
		r = Free.rank()
	}
	return r >= floor.rank()
}

// Label is the display name of the tier.
func (t Tier) Label() string {
	if !t.Valid() {
		return Free.Label()
	}
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseTier normalizes s and returns the matching tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrUnknownTier
	}
	return t, nil
}

// UpgradeOption returns the tier one step above t on the self-service chain.
// It reports false at gold, at enterprise and for unknown tiers.
func UpgradeOption(t Tier) (Tier, bool) {
	for i := 0; i < len(chain)-1; i++ {
		if chain[i] == t {
			return chain[i+1], true
		}
	}
	return "", false
}

// CanUpgrade reports whether UpgradeOption has a successor for t.
func CanUpgrade(t Tier) bool {
	_, ok := UpgradeOption(t)
	return ok
}
