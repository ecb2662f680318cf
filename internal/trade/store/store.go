// Package store persists the trade aggregate. The Transition Engine is the
// only writer; write methods take the expected version so lost updates are
// detected even if a caller bypasses the engine's per-trade lock.
package store

import (
	"context"

	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
)

// Store is the trade persistence port.
type Store interface {
	// Create inserts a new trade. Returns sentinel.ErrAlreadyExists when the
	// id is taken.
	Create(ctx context.Context, t *trade.Trade) error

	// Get returns a snapshot of the trade. Readers may observe slightly
	// stale context; the engine re-validates under the write lock.
	Get(ctx context.Context, tradeID id.TradeID) (*trade.Trade, error)

	// GetForUpdate returns the trade with the row locked for the ambient
	// transaction. Outside a transaction it behaves like Get.
	GetForUpdate(ctx context.Context, tradeID id.TradeID) (*trade.Trade, error)

	// UpdateState writes a new lifecycle state. Returns
	// sentinel.ErrVersionConflict when expectedVersion is stale.
	UpdateState(ctx context.Context, tradeID id.TradeID, newState trade.State, expectedVersion int64) error

	// UpdateContext replaces the context blob. Same versioning contract as
	// UpdateState.
	UpdateContext(ctx context.Context, tradeID id.TradeID, newContext trade.Context, expectedVersion int64) error
}
