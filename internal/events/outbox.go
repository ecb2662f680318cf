package events

import (
	"context"
	"time"
)

// OutboxEntry is one event waiting to be published to the external feed.
type OutboxEntry struct {
	// Seq orders entries; assigned by the store on append.
	Seq       int64
	Event     Event
	CreatedAt time.Time
}

// OutboxStore persists events inside the same commit as the state write that
// produced them. A separate worker drains pending entries to Kafka, so the
// feed never carries an event whose transaction rolled back.
type OutboxStore interface {
	// Append stores the event as pending. Must participate in the ambient
	// transaction when one is present in ctx.
	Append(ctx context.Context, evt Event) error
	// PendingBatch returns up to limit unpublished entries in append order.
	PendingBatch(ctx context.Context, limit int) ([]OutboxEntry, error)
	// MarkPublished removes the entries with the given sequence numbers from
	// the pending set.
	MarkPublished(ctx context.Context, seqs []int64) error
}
