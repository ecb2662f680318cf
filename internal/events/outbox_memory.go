package events

import (
	"context"
	"sync"
	"time"
)

// InMemoryOutbox keeps pending events in memory for single-process and test
// wiring.
type InMemoryOutbox struct {
	mu      sync.Mutex
	nextSeq int64
	pending []OutboxEntry
}

func NewInMemoryOutbox() *InMemoryOutbox {
	return &InMemoryOutbox{nextSeq: 1}
}

func (o *InMemoryOutbox) Append(_ context.Context, evt Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, OutboxEntry{
		Seq:       o.nextSeq,
		Event:     evt,
		CreatedAt: time.Now(),
	})
	o.nextSeq++
	return nil
}

func (o *InMemoryOutbox) PendingBatch(_ context.Context, limit int) ([]OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.pending)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]OutboxEntry{}, o.pending[:n]...), nil
}

func (o *InMemoryOutbox) MarkPublished(_ context.Context, seqs []int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	done := make(map[int64]bool, len(seqs))
	for _, s := range seqs {
		done[s] = true
	}
	kept := o.pending[:0]
	for _, entry := range o.pending {
		if !done[entry.Seq] {
			kept = append(kept, entry)
		}
	}
	o.pending = kept
	return nil
}
