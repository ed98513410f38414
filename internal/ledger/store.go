package ledger

import (
	"errors"

	"SignalHunter/internal/model"
)

// ErrCorruptState is returned by a store whose persisted documents cannot be decoded.
var ErrCorruptState = errors.New("corrupt ledger state")

// WalletStore loads the persisted wallet. An absent wallet is seeded with
// model.DefaultWallet.
type WalletStore interface {
	LoadWallet() (model.Wallet, error)
}

// TradeStore loads the persisted trades. Absent trades load as an empty list.
type TradeStore interface {
	LoadTrades() ([]model.Trade, error)
}

// Store is the persistence dependency of the Ledger. Commit must make the
// wallet and the trade list durable together: after a crash either both new
// documents or both old documents are observed.
type Store interface {
	WalletStore
	TradeStore
	Commit(w model.Wallet, trades []model.Trade) error
}
