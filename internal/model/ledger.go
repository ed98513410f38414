package model

import (
	"fmt"
	"strings"
	"time"
)

// Bucket names one of the two cash sub-accounts.
type Bucket string

const (
	BucketHunter Bucket = "Hunter"
	BucketBlitz  Bucket = "Blitz"
)

// ParseBucket accepts "hunter" or "blitz" in any case.
func ParseBucket(s string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hunter":
		return BucketHunter, nil
	case "blitz":
		return BucketBlitz, nil
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// BucketFor maps a tier to the bucket that funds it.
func BucketFor(t Tier) Bucket {
	if t == TierBlitz {
		return BucketBlitz
	}
	return BucketHunter
}

// Wallet holds the two cash buckets.
type Wallet struct {
	HunterCash float64
	BlitzCash  float64
}

// DefaultWallet is the seed used when no wallet has been persisted.
func DefaultWallet() Wallet {
	return Wallet{HunterCash: 700, BlitzCash: 300}
}

// Balance returns the balance of bucket b.
func (w Wallet) Balance(b Bucket) float64 {
	if b == BucketBlitz {
		return w.BlitzCash
	}
	return w.HunterCash
}

// WithBalance returns a copy of w with bucket b set to v.
func (w Wallet) WithBalance(b Bucket, v float64) Wallet {
	if b == BucketBlitz {
		w.BlitzCash = v
	} else {
		w.HunterCash = v
	}
	return w
}

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	StatusHolding TradeStatus = "holding"
	StatusSold    TradeStatus = "sold"
)

// Trade is one simulated position.
type Trade struct {
	ID        string
	Date      time.Time
	Tier      Tier
	Price     float64
	Qty       int
	Status    TradeStatus
	SellPrice float64
	SellDate  time.Time
}

// Cost is the cash spent at entry.
func (t Trade) Cost() float64 { return t.Price * float64(t.Qty) }

// ExitGuide is the tier-specific exit recommendation for an open trade.
type ExitGuide struct {
	Tier   Tier
	Peak   float64
	Locked bool // no stop yet (Diamond holding period)
	// StopPrice is zero while Locked.
	StopPrice  float64
	TakeProfit float64 // only set for Blitz
	DaysHeld   int
}
