// Package engine is the single writer for trade state. Every transition
// attempt and context update funnels through it: it serializes writes per
// trade, persists the state change, the audit attempt, and the outbox entry
// in one transaction, and dispatches the event in-process after commit.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"tradelane/internal/audit"
	"tradelane/internal/events"
	"tradelane/internal/platform/metrics"
	"tradelane/internal/trade"
	"tradelane/internal/trade/store"
	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
	"tradelane/pkg/platform/sentinel"
	txcontext "tradelane/pkg/platform/tx"
	"tradelane/pkg/requestcontext"
)

// Engine owns all trade writes. Readers go straight to the stores; writers
// must come through here.
type Engine struct {
	trades     store.Store
	audits     audit.Store
	outbox     events.OutboxStore
	runner     txcontext.Runner
	evaluator  *trade.Evaluator
	dispatcher *events.Dispatcher
	locks      *tradeLocks
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(
	trades store.Store,
	audits audit.Store,
	outbox events.OutboxStore,
	runner txcontext.Runner,
	evaluator *trade.Evaluator,
	dispatcher *events.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		trades:     trades,
		audits:     audits,
		outbox:     outbox,
		runner:     runner,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		locks:      newTradeLocks(),
		metrics:    m,
		logger:     logger,
	}
}

// CreateParams describes a new trade. Trades always start in inquiry.
type CreateParams struct {
	BuyerID        id.CompanyID
	SellerID       id.CompanyID
	LogisticsID    id.CompanyID
	Quantity       int64
	UnitPriceMinor int64
	Currency       string
	RFQID          id.RFQID
	QuoteID        id.QuoteID
}

func (p CreateParams) validate() error {
	if p.BuyerID.IsNil() || p.SellerID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "buyer and seller are required")
	}
	if p.BuyerID == p.SellerID {
		return dErrors.New(dErrors.CodeInvalidInput, "buyer and seller must differ")
	}
	if p.Quantity <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "quantity must be positive")
	}
	if p.UnitPriceMinor <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "unit price must be positive")
	}
	if len(p.Currency) != 3 {
		return dErrors.New(dErrors.CodeInvalidInput, "currency must be a 3-letter code")
	}
	if p.RFQID.IsNil() || p.QuoteID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "rfq and quote ids are required")
	}
	return nil
}

// CreateTrade registers a new trade in the inquiry state.
func (e *Engine) CreateTrade(ctx context.Context, params CreateParams) (*trade.Trade, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	t := &trade.Trade{
		ID:             id.NewTradeID(),
		State:          trade.StateInquiry,
		BuyerID:        params.BuyerID,
		SellerID:       params.SellerID,
		LogisticsID:    params.LogisticsID,
		Quantity:       params.Quantity,
		UnitPriceMinor: params.UnitPriceMinor,
		Currency:       params.Currency,
		RFQID:          params.RFQID,
		QuoteID:        params.QuoteID,
		Context:        trade.Context{Flags: map[string]bool{}},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.trades.Create(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "trade already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create trade")
	}
	e.logger.InfoContext(ctx, "trade created",
		"trade_id", t.ID.String(),
		"buyer_id", t.BuyerID.String(),
		"seller_id", t.SellerID.String(),
	)
	return t.Clone(), nil
}

// GetTrade returns a read snapshot.
func (e *Engine) GetTrade(ctx context.Context, tradeID id.TradeID) (*trade.Trade, error) {
	t, err := e.trades.Get(ctx, tradeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "trade not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load trade")
	}
	return t, nil
}

// TransitionCommand is one attempt to move a trade to a target state. Origin
// carries the automation rule name when the attempt came from the trigger
// bus; it is stamped onto the emitted event so the rule never consumes its
// own output.
type TransitionCommand struct {
	TradeID id.TradeID
	Target  trade.State
	Actor   id.Actor
	Origin  string
}

// TransitionResult reports what the engine decided and, when applied, the
// post-transition snapshot.
type TransitionResult struct {
	Trade      *trade.Trade
	Verdict    trade.Verdict
	AttemptSeq int64
}

// Applied reports whether the trade state changed or the attempt was an
// idempotent replay of a change that already happened.
func (r *TransitionResult) Applied() bool {
	return r.Verdict.Decision == trade.DecisionApplied
}

// AttemptTransition evaluates and, if the guards pass, applies one state
// transition. Exactly one audit attempt is recorded per call, for blocked
// and applied outcomes alike. A blocked attempt is a normal result, not an
// error; the error return is for infrastructure failures only.
func (e *Engine) AttemptTransition(ctx context.Context, cmd TransitionCommand) (*TransitionResult, error) {
	start := time.Now()
	defer e.metrics.ObserveAttempt(start)

	unlock := e.locks.lock(cmd.TradeID)
	result, evt, err := e.attemptLocked(ctx, cmd)
	unlock()
	if err != nil {
		return nil, err
	}

	e.observeVerdict(cmd, result.Verdict)
	if evt != nil {
		// Dispatched after the lock is released so an automation firing can
		// re-enter the engine for the same trade.
		e.dispatcher.Publish(ctx, *evt)
	}
	return result, nil
}

func (e *Engine) attemptLocked(ctx context.Context, cmd TransitionCommand) (*TransitionResult, *events.Event, error) {
	var (
		result TransitionResult
		evt    *events.Event
	)
	err := e.runner.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := e.trades.GetForUpdate(txCtx, cmd.TradeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "trade not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load trade for update")
		}

		verdict := e.decide(t, cmd)

		attempt := &audit.TransitionAttempt{
			TradeID:         t.ID,
			BuyerID:         t.BuyerID,
			SellerID:        t.SellerID,
			LogisticsID:     t.LogisticsID,
			FromState:       t.State,
			AttemptedTo:     cmd.Target,
			Decision:        verdict.Decision,
			Reason:          verdict.Reason,
			RequiredActions: verdict.RequiredActions,
			Actor:           cmd.Actor.String(),
			RequestID:       requestcontext.RequestID(txCtx),
			Timestamp:       requestcontext.Now(txCtx),
		}
		if err := e.audits.AppendAttempt(txCtx, attempt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "record transition attempt")
		}

		result = TransitionResult{Trade: t, Verdict: verdict, AttemptSeq: attempt.Seq}
		if verdict.Decision != trade.DecisionApplied || verdict.Reason == trade.ReasonIdempotentReplay {
			return nil
		}

		if err := e.trades.UpdateState(txCtx, t.ID, cmd.Target, t.Version); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist state transition")
		}
		t.State = cmd.Target
		t.Version++

		committed := events.Event{
			ID:         id.NewEventID(),
			Type:       events.TypeStateTransition,
			TradeID:    t.ID,
			Actor:      cmd.Actor.String(),
			FromState:  string(attempt.FromState),
			ToState:    string(cmd.Target),
			Origin:     cmd.Origin,
			OccurredAt: attempt.Timestamp,
		}
		if err := e.outbox.Append(txCtx, committed); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append outbox entry")
		}
		evt = &committed
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &result, evt, nil
}

// decide handles the replay short-circuit before delegating to the pure
// evaluator: a trade already in the target state answers APPLIED with
// IDEMPOTENT_REPLAY and nothing is re-applied. The replay answer is gated by
// the same actor binding the evaluator applies, so an outsider posting the
// current state never learns it was right.
func (e *Engine) decide(t *trade.Trade, cmd TransitionCommand) trade.Verdict {
	if t.State == cmd.Target {
		if !replayAuthorized(t, cmd.Actor) {
			return trade.Verdict{Decision: trade.DecisionBlocked, Reason: trade.ReasonUnauthorizedActor}
		}
		return trade.Verdict{Decision: trade.DecisionApplied, Reason: trade.ReasonIdempotentReplay}
	}
	return e.evaluator.Evaluate(t, cmd.Target, cmd.Actor)
}

// replayAuthorized mirrors the evaluator's actor binding: automation passes,
// a party actor must be the company registered for that party on the trade.
func replayAuthorized(t *trade.Trade, actor id.Actor) bool {
	if actor.Party == id.PartyAutomation {
		return true
	}
	company, bound := t.CompanyFor(actor.Party)
	return bound && company == actor.CompanyID
}

func (e *Engine) observeVerdict(cmd TransitionCommand, verdict trade.Verdict) {
	switch {
	case verdict.Reason == trade.ReasonIdempotentReplay:
		// replays change nothing and are not counted as applied
	case verdict.Decision == trade.DecisionApplied:
		e.metrics.TransitionsApplied.WithLabelValues(string(cmd.Target)).Inc()
	default:
		e.metrics.TransitionsBlocked.WithLabelValues(string(verdict.Reason)).Inc()
	}
}

// ApplyContextUpdate merges an external signal into the trade context under
// the trade lock and emits a context_updated event.
func (e *Engine) ApplyContextUpdate(ctx context.Context, tradeID id.TradeID, update trade.ContextUpdate, actor id.Actor) (*trade.Trade, error) {
	if update.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "context update carries no changes")
	}

	unlock := e.locks.lock(tradeID)
	updated, evt, err := e.updateContextLocked(ctx, tradeID, update, actor)
	unlock()
	if err != nil {
		return nil, err
	}

	e.dispatcher.Publish(ctx, *evt)
	return updated, nil
}

func (e *Engine) updateContextLocked(ctx context.Context, tradeID id.TradeID, update trade.ContextUpdate, actor id.Actor) (*trade.Trade, *events.Event, error) {
	var (
		updated *trade.Trade
		evt     *events.Event
	)
	err := e.runner.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := e.trades.GetForUpdate(txCtx, tradeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "trade not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load trade for update")
		}
		if t.State.IsTerminal() {
			return dErrors.New(dErrors.CodeConflict, "trade is in a terminal state")
		}
		if actor.Party != id.PartyAutomation && !t.Involves(actor.CompanyID) {
			return dErrors.New(dErrors.CodeForbidden, "actor is not a party to this trade")
		}

		next := update.Apply(t.Context)
		if err := e.trades.UpdateContext(txCtx, t.ID, next, t.Version); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist context update")
		}
		t.Context = next
		t.Version++

		committed := events.Event{
			ID:            id.NewEventID(),
			Type:          events.TypeContextUpdated,
			TradeID:       t.ID,
			Actor:         actor.String(),
			ChangedFields: changedFields(update),
			OccurredAt:    requestcontext.Now(txCtx),
		}
		if err := e.outbox.Append(txCtx, committed); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append outbox entry")
		}
		updated = t
		evt = &committed
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, evt, nil
}

func changedFields(update trade.ContextUpdate) []string {
	var fields []string
	for name := range update.Flags {
		fields = append(fields, "flags."+name)
	}
	sort.Strings(fields)
	if update.EscrowBalanceMinor != nil {
		fields = append(fields, "escrow_balance_minor")
	}
	if update.ComplianceVerdict != nil {
		fields = append(fields, "compliance_verdict")
	}
	return fields
}
