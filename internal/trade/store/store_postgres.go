package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
	"tradelane/pkg/platform/sentinel"
	txcontext "tradelane/pkg/platform/tx"
)

// PostgresStore persists trades with per-row pessimistic locking. All methods
// join the ambient transaction from context when present; GetForUpdate holds
// the row lock until that transaction commits.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbHandle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) handle(ctx context.Context) dbHandle {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const tradeColumns = `
	id, state, buyer_id, seller_id, logistics_id,
	quantity, unit_price_minor, currency, rfq_id, quote_id,
	context, version, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, t *trade.Trade) error {
	contextJSON, err := json.Marshal(t.Context)
	if err != nil {
		return fmt.Errorf("marshal trade context: %w", err)
	}
	const query = `
		INSERT INTO trades (
			id, state, buyer_id, seller_id, logistics_id,
			quantity, unit_price_minor, currency, rfq_id, quote_id,
			context, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.handle(ctx).ExecContext(ctx, query,
		t.ID.String(),
		string(t.State),
		t.BuyerID.String(),
		t.SellerID.String(),
		nullableUUID(t.LogisticsID.String(), t.LogisticsID.IsNil()),
		t.Quantity,
		t.UnitPriceMinor,
		t.Currency,
		t.RFQID.String(),
		t.QuoteID.String(),
		contextJSON,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, tradeID id.TradeID) (*trade.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`
	return s.scanTrade(s.handle(ctx).QueryRowContext(ctx, query, tradeID.String()))
}

func (s *PostgresStore) GetForUpdate(ctx context.Context, tradeID id.TradeID) (*trade.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	return s.scanTrade(s.handle(ctx).QueryRowContext(ctx, query, tradeID.String()))
}

func (s *PostgresStore) UpdateState(ctx context.Context, tradeID id.TradeID, newState trade.State, expectedVersion int64) error {
	const query = `
		UPDATE trades
		SET state = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`
	return s.guardedUpdate(ctx, tradeID, query, string(newState), tradeID.String(), expectedVersion)
}

func (s *PostgresStore) UpdateContext(ctx context.Context, tradeID id.TradeID, newContext trade.Context, expectedVersion int64) error {
	contextJSON, err := json.Marshal(newContext)
	if err != nil {
		return fmt.Errorf("marshal trade context: %w", err)
	}
	const query = `
		UPDATE trades
		SET context = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`
	return s.guardedUpdate(ctx, tradeID, query, contextJSON, tradeID.String(), expectedVersion)
}

// guardedUpdate distinguishes "row missing" from "version stale" so callers
// get the right sentinel.
func (s *PostgresStore) guardedUpdate(ctx context.Context, tradeID id.TradeID, query string, args ...any) error {
	res, err := s.handle(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trade rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	if _, getErr := s.Get(ctx, tradeID); errors.Is(getErr, sentinel.ErrNotFound) {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrVersionConflict
}

func (s *PostgresStore) scanTrade(row *sql.Row) (*trade.Trade, error) {
	var (
		t           trade.Trade
		tradeID     string
		state       string
		buyerID     string
		sellerID    string
		logisticsID sql.NullString
		rfqID       string
		quoteID     string
		contextJSON []byte
	)
	err := row.Scan(
		&tradeID, &state, &buyerID, &sellerID, &logisticsID,
		&t.Quantity, &t.UnitPriceMinor, &t.Currency, &rfqID, &quoteID,
		&contextJSON, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trade: %w", err)
	}

	if t.ID, err = id.ParseTradeID(tradeID); err != nil {
		return nil, fmt.Errorf("parse trade id: %w", err)
	}
	t.State = trade.State(state)
	if t.BuyerID, err = id.ParseCompanyID(buyerID); err != nil {
		return nil, fmt.Errorf("parse buyer id: %w", err)
	}
	if t.SellerID, err = id.ParseCompanyID(sellerID); err != nil {
		return nil, fmt.Errorf("parse seller id: %w", err)
	}
	if logisticsID.Valid {
		if t.LogisticsID, err = id.ParseCompanyID(logisticsID.String); err != nil {
			return nil, fmt.Errorf("parse logistics id: %w", err)
		}
	}
	if t.RFQID, err = id.ParseRFQID(rfqID); err != nil {
		return nil, fmt.Errorf("parse rfq id: %w", err)
	}
	if t.QuoteID, err = id.ParseQuoteID(quoteID); err != nil {
		return nil, fmt.Errorf("parse quote id: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &t.Context); err != nil {
		return nil, fmt.Errorf("unmarshal trade context: %w", err)
	}
	return &t, nil
}

func nullableUUID(value string, isNil bool) any {
	if isNil {
		return nil
	}
	return value
}
