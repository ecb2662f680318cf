package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	id "tradelane/pkg/domain"
	txcontext "tradelane/pkg/platform/tx"
)

// PostgresStore persists audit records. Sequence numbers come from a single
// database sequence shared by both tables, so the merged feed has one total
// order. Inserts join the engine's transaction via context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func nullableCompany(companyID id.CompanyID) any {
	if companyID.IsNil() {
		return nil
	}
	return companyID.String()
}

func (s *PostgresStore) AppendAttempt(ctx context.Context, attempt *TransitionAttempt) error {
	const query = `
		INSERT INTO transition_attempts (
			trade_id, buyer_id, seller_id, logistics_id,
			from_state, attempted_to_state, decision, reason_code,
			required_actions, actor, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq
	`
	err := s.querier(ctx).QueryRowContext(ctx, query,
		attempt.TradeID.String(),
		attempt.BuyerID.String(),
		attempt.SellerID.String(),
		nullableCompany(attempt.LogisticsID),
		string(attempt.FromState),
		string(attempt.AttemptedTo),
		string(attempt.Decision),
		string(attempt.Reason),
		pq.Array(actionsToStrings(attempt.RequiredActions)),
		attempt.Actor,
		attempt.RequestID,
		attempt.Timestamp,
	).Scan(&attempt.Seq)
	if err != nil {
		return fmt.Errorf("insert transition attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendAutomation(ctx context.Context, event *AutomationEvent) error {
	const query = `
		INSERT INTO automation_events (
			rule, trade_id, attempt_seq, buyer_id, seller_id, logistics_id,
			attempted_to_state, decision, reason_code, required_actions, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq
	`
	err := s.querier(ctx).QueryRowContext(ctx, query,
		event.Rule,
		event.TradeID.String(),
		event.AttemptSeq,
		event.BuyerID.String(),
		event.SellerID.String(),
		nullableCompany(event.LogisticsID),
		string(event.AttemptedTo),
		string(event.Decision),
		string(event.Reason),
		pq.Array(actionsToStrings(event.RequiredActions)),
		event.Timestamp,
	).Scan(&event.Seq)
	if err != nil {
		return fmt.Errorf("insert automation event: %w", err)
	}
	return nil
}

// mergedFeedQuery unions both record kinds into one sequence-ordered feed.
// The filter placeholder is spliced per scope below; both variants bind the
// scope id as $1 and the limit as $2.
const mergedFeedQuery = `
	SELECT seq, kind, trade_id, from_state, attempted_to_state,
	       decision, reason_code, required_actions, actor, rule, created_at
	FROM (
		SELECT seq, 'transition_attempt' AS kind, trade_id, buyer_id, seller_id,
		       logistics_id, from_state, attempted_to_state, decision,
		       reason_code, required_actions, actor, '' AS rule, created_at
		FROM transition_attempts
		UNION ALL
		SELECT seq, 'automation_event' AS kind, trade_id, buyer_id, seller_id,
		       logistics_id, '' AS from_state, attempted_to_state, decision,
		       reason_code, required_actions, '' AS actor, rule, created_at
		FROM automation_events
	) feed
	WHERE %s
	ORDER BY seq DESC
	LIMIT $2
`

func (s *PostgresStore) ListRecentByTrade(ctx context.Context, tradeID id.TradeID, limit int) ([]Record, error) {
	query := fmt.Sprintf(mergedFeedQuery, "trade_id = $1")
	return s.listRecent(ctx, query, tradeID.String(), limit)
}

func (s *PostgresStore) ListRecentByCompany(ctx context.Context, companyID id.CompanyID, limit int) ([]Record, error) {
	query := fmt.Sprintf(mergedFeedQuery, "(buyer_id = $1 OR seller_id = $1 OR logistics_id = $1)")
	return s.listRecent(ctx, query, companyID.String(), limit)
}

func (s *PostgresStore) listRecent(ctx context.Context, query, scopeID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, scopeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit feed: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var actions pq.StringArray
		if err := rows.Scan(
			&r.Seq, &r.Kind, &r.TradeID, &r.FromState, &r.AttemptedTo,
			&r.Decision, &r.Reason, &actions, &r.Actor, &r.Rule, &r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.RequiredActions = []string(actions)
		records = append(records, r)
	}
	return records, rows.Err()
}
