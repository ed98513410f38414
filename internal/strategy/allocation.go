package strategy

import "SignalHunter/internal/model"

// allocation is the share of the funding bucket suggested per tier.
var allocation = map[model.Tier]float64{
	model.TierDiamond: 0.80,
	model.TierGold:    0.50,
	model.TierSilver:  0.20,
	model.TierBlitz:   1.00,
}

// SuggestedAmount returns how much of the tier's bucket to commit.
// Non-actionable tiers get zero.
func SuggestedAmount(t model.Tier, w model.Wallet) float64 {
	share, ok := allocation[t]
	if !ok {
		return 0
	}
	bal := w.Balance(model.BucketFor(t))
	if bal <= 0 {
		return 0
	}
	return bal * share
}

// SuggestedQty converts the suggested amount into whole shares at price.
func SuggestedQty(t model.Tier, w model.Wallet, price float64) int {
	if price <= 0 {
		return 0
	}
	return int(SuggestedAmount(t, w) / price)
}
