package events

import (
	"context"
	"log/slog"
	"time"

	"tradelane/internal/platform/metrics"
)

const outboxBatchSize = 100

// OutboxWorker drains pending outbox entries to the external feed. Entries
// are only marked published after the broker acknowledges, so delivery is
// at-least-once and consumers deduplicate on event id.
type OutboxWorker struct {
	outbox   OutboxStore
	producer Producer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

func NewOutboxWorker(outbox OutboxStore, producer Producer, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxWorker{
		outbox:   outbox,
		producer: producer,
		logger:   logger,
		metrics:  m,
		interval: interval,
	}
}

// Run drains the outbox until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				// Broker or store hiccups are retried on the next tick;
				// pending entries stay pending.
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes one batch of pending entries.
func (w *OutboxWorker) DrainOnce(ctx context.Context) error {
	entries, err := w.outbox.PendingBatch(ctx, outboxBatchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]int64, 0, len(entries))
	for _, entry := range entries {
		payload, err := Encode(entry.Event)
		if err != nil {
			// An unencodable event would wedge the queue forever; drop it
			// loudly instead.
			w.logger.ErrorContext(ctx, "dropping unencodable outbox entry",
				"seq", entry.Seq,
				"event_id", entry.Event.ID.String(),
				"error", err,
			)
			published = append(published, entry.Seq)
			continue
		}
		if err := w.producer.Produce(ctx, entry.Event.TradeID.String(), payload); err != nil {
			// Stop at the first failure to preserve per-trade ordering.
			if markErr := w.outbox.MarkPublished(ctx, published); markErr != nil {
				w.logger.ErrorContext(ctx, "mark published failed", "error", markErr)
			}
			return err
		}
		published = append(published, entry.Seq)
		w.metrics.OutboxPublished.Inc()
	}
	return w.outbox.MarkPublished(ctx, published)
}
