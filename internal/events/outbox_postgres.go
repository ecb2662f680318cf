package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	txcontext "tradelane/pkg/platform/tx"
)

// PostgresOutbox implements OutboxStore over the outbox table. Appends join
// the engine's transaction via the context; the drain side runs outside it.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (o *PostgresOutbox) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return o.db
}

func (o *PostgresOutbox) Append(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal outbox event: %w", err)
	}
	const query = `
		INSERT INTO outbox (event_id, trade_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = o.execer(ctx).ExecContext(ctx, query,
		evt.ID.String(),
		evt.TradeID.String(),
		string(evt.Type),
		payload,
		evt.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (o *PostgresOutbox) PendingBatch(ctx context.Context, limit int) ([]OutboxEntry, error) {
	const query = `
		SELECT seq, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
	`
	rows, err := o.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		var payload []byte
		if err := rows.Scan(&entry.Seq, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Event); err != nil {
			return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (o *PostgresOutbox) MarkPublished(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	const query = `UPDATE outbox SET published_at = now() WHERE seq = ANY($1)`
	if _, err := o.db.ExecContext(ctx, query, pq.Array(seqs)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
