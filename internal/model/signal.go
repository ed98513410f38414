package model

import (
	"fmt"
	"strings"
)

// Tier is a discrete buy-signal classification.
type Tier int

const (
	TierNone Tier = iota
	TierDiamond
	TierGold
	TierSilver
	TierSilverWait
	TierBlitz
)

var tierNames = map[Tier]string{
	TierNone:       "None",
	TierDiamond:    "Diamond",
	TierGold:       "Gold",
	TierSilver:     "Silver",
	TierSilverWait: "SilverWait",
	TierBlitz:      "Blitz",
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier maps a tier name (case-insensitive) back to a Tier.
func ParseTier(s string) (Tier, error) {
	for t, name := range tierNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return TierNone, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Actionable reports whether a buy may be opened on this tier.
func (t Tier) Actionable() bool {
	switch t {
	case TierDiamond, TierGold, TierSilver, TierBlitz:
		return true
	}
	return false
}

// TierSignal is the classification of one trading day. Group holds at most
// one of Diamond, Gold, Silver, SilverWait; Blitz is independent.
type TierSignal struct {
	Group Tier
	Blitz bool
	// GoldDual is set when Gold fired through the dual-sigma branch only.
	GoldDual bool
}

// Fired reports whether anything actionable fired.
func (s TierSignal) Fired() bool {
	return s.Group.Actionable() || s.Blitz
}
