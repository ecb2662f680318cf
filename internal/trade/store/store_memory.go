package store

import (
	"context"
	"sync"
	"time"

	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
	"tradelane/pkg/platform/sentinel"
)

// InMemoryStore keeps trades in memory for single-process wiring and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	trades map[id.TradeID]*trade.Trade
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{trades: make(map[id.TradeID]*trade.Trade)}
}

func (s *InMemoryStore) Create(_ context.Context, t *trade.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[t.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.trades[t.ID] = t.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, tradeID id.TradeID) (*trade.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[tradeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

// GetForUpdate is identical to Get in memory; exclusivity comes from the
// engine's per-trade lock.
func (s *InMemoryStore) GetForUpdate(ctx context.Context, tradeID id.TradeID) (*trade.Trade, error) {
	return s.Get(ctx, tradeID)
}

func (s *InMemoryStore) UpdateState(_ context.Context, tradeID id.TradeID, newState trade.State, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[tradeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.Version != expectedVersion {
		return sentinel.ErrVersionConflict
	}
	t.State = newState
	t.Version++
	t.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) UpdateContext(_ context.Context, tradeID id.TradeID, newContext trade.Context, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[tradeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.Version != expectedVersion {
		return sentinel.ErrVersionConflict
	}
	t.Context = newContext.Clone()
	t.Version++
	t.UpdatedAt = time.Now()
	return nil
}
