package audit

import (
	"context"
	"sync"

	id "tradelane/pkg/domain"
)

type memoryEntry struct {
	record    Record
	buyer     id.CompanyID
	seller    id.CompanyID
	logistics id.CompanyID
	tradeID   id.TradeID
}

// InMemoryStore keeps the audit log in memory for single-process wiring and
// tests. Append-only by construction: nothing here can modify an entry.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextSeq int64
	entries []memoryEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextSeq: 1}
}

func (s *InMemoryStore) AppendAttempt(_ context.Context, attempt *TransitionAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt.Seq = s.nextSeq
	s.nextSeq++
	s.entries = append(s.entries, memoryEntry{
		record:    RecordFromAttempt(attempt),
		buyer:     attempt.BuyerID,
		seller:    attempt.SellerID,
		logistics: attempt.LogisticsID,
		tradeID:   attempt.TradeID,
	})
	return nil
}

func (s *InMemoryStore) AppendAutomation(_ context.Context, event *AutomationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Seq = s.nextSeq
	s.nextSeq++
	s.entries = append(s.entries, memoryEntry{
		record:    RecordFromAutomation(event),
		buyer:     event.BuyerID,
		seller:    event.SellerID,
		logistics: event.LogisticsID,
		tradeID:   event.TradeID,
	})
	return nil
}

func (s *InMemoryStore) ListRecentByTrade(_ context.Context, tradeID id.TradeID, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(e memoryEntry) bool { return e.tradeID == tradeID }), nil
}

func (s *InMemoryStore) ListRecentByCompany(_ context.Context, companyID id.CompanyID, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(e memoryEntry) bool {
		return e.buyer == companyID || e.seller == companyID || e.logistics == companyID
	}), nil
}

// collect walks entries newest-first and returns up to limit matches.
func (s *InMemoryStore) collect(limit int, match func(memoryEntry) bool) []Record {
	records := make([]Record, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(records) < limit; i-- {
		if match(s.entries[i]) {
			records = append(records, s.entries[i].record)
		}
	}
	return records
}
