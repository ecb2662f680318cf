package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
)

const (
	// DefaultReadLimit applies when callers pass limit <= 0.
	DefaultReadLimit = 20
	// MaxReadLimit caps a single read so a dashboard cannot drag the whole
	// history over the wire.
	MaxReadLimit = 100

	// cacheTTL bounds staleness of the redis-cached feed. HUDs poll at
	// second-granularity; the audit store remains the source of truth.
	cacheTTL = 2 * time.Second
)

// RecentCache is the subset of redis the reader needs. Nil-able: without a
// cache every read goes to the store.
type RecentCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Reader is the read side of the audit log. It never takes the engine's
// per-trade lock and never blocks writers; concurrent readers each get an
// immutable snapshot slice.
type Reader struct {
	store  Store
	cache  RecentCache
	logger *slog.Logger
}

func NewReader(store Store, cache RecentCache, logger *slog.Logger) *Reader {
	return &Reader{store: store, cache: cache, logger: logger}
}

// ReadRecentByTrade returns the most recent records for one trade, newest
// first by sequence number.
func (r *Reader) ReadRecentByTrade(ctx context.Context, tradeID id.TradeID, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	key := "tradelane:recent:trade:" + tradeID.String()
	return r.read(ctx, key, limit, func(ctx context.Context) ([]Record, error) {
		return r.store.ListRecentByTrade(ctx, tradeID, limit)
	})
}

// ReadRecentByCompany returns the most recent records across all trades the
// company participates in.
func (r *Reader) ReadRecentByCompany(ctx context.Context, companyID id.CompanyID, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	key := "tradelane:recent:company:" + companyID.String()
	return r.read(ctx, key, limit, func(ctx context.Context) ([]Record, error) {
		return r.store.ListRecentByCompany(ctx, companyID, limit)
	})
}

func (r *Reader) read(ctx context.Context, key string, limit int, load func(context.Context) ([]Record, error)) ([]Record, error) {
	// Limit is part of the key: a slice cached for a smaller limit cannot
	// serve a larger read.
	key = key + ":" + strconv.Itoa(limit)
	if cached, ok := r.fromCache(ctx, key); ok {
		return cached, nil
	}

	records, err := load(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read audit feed")
	}

	r.toCache(ctx, key, records)
	return records, nil
}

func (r *Reader) fromCache(ctx context.Context, key string) ([]Record, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		r.logger.WarnContext(ctx, "discarding corrupt feed cache entry", "key", key, "error", err)
		return nil, false
	}
	return records, true
}

func (r *Reader) toCache(ctx context.Context, key string, records []Record) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	// Cache failures only cost the next reader a store round-trip.
	if err := r.cache.Set(ctx, key, string(raw), cacheTTL); err != nil {
		r.logger.DebugContext(ctx, "feed cache write failed", "key", key, "error", err)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultReadLimit
	}
	if limit > MaxReadLimit {
		return MaxReadLimit
	}
	return limit
}
