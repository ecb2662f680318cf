package engine

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelane/internal/audit"
	"tradelane/internal/events"
	"tradelane/internal/platform/metrics"
	"tradelane/internal/trade"
	"tradelane/internal/trade/store"
	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
	txcontext "tradelane/pkg/platform/tx"
)

type eventCapture struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *eventCapture) HandleEvent(_ context.Context, evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *eventCapture) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Event{}, c.events...)
}

type fixture struct {
	engine  *Engine
	trades  *store.InMemoryStore
	audits  *audit.InMemoryStore
	outbox  *events.InMemoryOutbox
	capture *eventCapture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	trades := store.NewInMemoryStore()
	audits := audit.NewInMemoryStore()
	outbox := events.NewInMemoryOutbox()
	dispatcher := events.NewDispatcher(logger)
	capture := &eventCapture{}
	dispatcher.Subscribe(capture)

	eng := New(
		trades,
		audits,
		outbox,
		txcontext.PassthroughRunner{},
		trade.NewEvaluator(trade.NewTable()),
		dispatcher,
		metrics.New(prometheus.NewRegistry()),
		logger,
	)
	return &fixture{engine: eng, trades: trades, audits: audits, outbox: outbox, capture: capture}
}

func (f *fixture) createTrade(t *testing.T, state trade.State) *trade.Trade {
	t.Helper()
	created, err := f.engine.CreateTrade(context.Background(), CreateParams{
		BuyerID:        id.CompanyID(uuid.New()),
		SellerID:       id.CompanyID(uuid.New()),
		Quantity:       100,
		UnitPriceMinor: 5000,
		Currency:       "USD",
		RFQID:          id.RFQID(uuid.New()),
		QuoteID:        id.QuoteID(uuid.New()),
	})
	require.NoError(t, err)
	if state != trade.StateInquiry {
		require.NoError(t, f.trades.UpdateState(context.Background(), created.ID, state, created.Version))
		created.State = state
		created.Version++
	}
	return created
}

func buyer(t *trade.Trade) id.Actor {
	return id.Actor{Party: id.PartyBuyer, CompanyID: t.BuyerID}
}

func TestCreateTrade_StartsInInquiry(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateInquiry)

	assert.Equal(t, trade.StateInquiry, created.State)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, int64(500000), created.ContractValueMinor())
}

func TestCreateTrade_RejectsInvalidParams(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateTrade(context.Background(), CreateParams{
		BuyerID:        id.CompanyID(uuid.New()),
		SellerID:       id.CompanyID(uuid.New()),
		Quantity:       0,
		UnitPriceMinor: 5000,
		Currency:       "USD",
		RFQID:          id.RFQID(uuid.New()),
		QuoteID:        id.QuoteID(uuid.New()),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCreateTrade_RejectsSameBuyerAndSeller(t *testing.T) {
	f := newFixture(t)
	company := id.CompanyID(uuid.New())

	_, err := f.engine.CreateTrade(context.Background(), CreateParams{
		BuyerID:        company,
		SellerID:       company,
		Quantity:       1,
		UnitPriceMinor: 1,
		Currency:       "USD",
		RFQID:          id.RFQID(uuid.New()),
		QuoteID:        id.QuoteID(uuid.New()),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestAttemptTransition_BlockedLeavesTradeUntouched(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateContracted)

	res, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateEscrowFunded,
		Actor:   buyer(created),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.DecisionBlocked, res.Verdict.Decision)
	assert.Equal(t, trade.ReasonActionsOutstanding, res.Verdict.Reason)
	assert.Equal(t, []trade.Action{trade.ActionFundEscrow}, res.Verdict.RequiredActions)

	stored, err := f.trades.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StateContracted, stored.State)
	assert.Equal(t, created.Version, stored.Version)
	assert.Empty(t, f.capture.all(), "blocked attempts emit no events")
}

func TestAttemptTransition_BlockedIsStillRecorded(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateContracted)

	res, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateEscrowFunded,
		Actor:   buyer(created),
	})
	require.NoError(t, err)
	require.Positive(t, res.AttemptSeq)

	records, err := f.audits.ListRecentByTrade(context.Background(), created.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BLOCKED", records[0].Decision)
	assert.Equal(t, "REQUIRED_ACTIONS_OUTSTANDING", records[0].Reason)
	assert.Equal(t, []string{"fund_escrow"}, records[0].RequiredActions)
}

func TestAttemptTransition_AppliedAfterContextSatisfied(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateContracted)
	balance := created.ContractValueMinor()

	_, err := f.engine.ApplyContextUpdate(context.Background(), created.ID, trade.ContextUpdate{
		Flags:              map[string]bool{"escrow_funded": true},
		EscrowBalanceMinor: &balance,
	}, buyer(created))
	require.NoError(t, err)

	res, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateEscrowFunded,
		Actor:   buyer(created),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.DecisionApplied, res.Verdict.Decision)
	assert.Equal(t, trade.ReasonOK, res.Verdict.Reason)
	assert.Equal(t, trade.StateEscrowFunded, res.Trade.State)

	stored, err := f.trades.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StateEscrowFunded, stored.State)

	all := f.capture.all()
	require.Len(t, all, 2, "one context_updated, one state_transition")
	assert.Equal(t, events.TypeContextUpdated, all[0].Type)
	assert.Equal(t, events.TypeStateTransition, all[1].Type)
	assert.Equal(t, string(trade.StateContracted), all[1].FromState)
	assert.Equal(t, string(trade.StateEscrowFunded), all[1].ToState)
}

func TestAttemptTransition_ReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateInquiry)

	first, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateRFQOpen,
		Actor:   buyer(created),
	})
	require.NoError(t, err)
	require.Equal(t, trade.ReasonOK, first.Verdict.Reason)

	second, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateRFQOpen,
		Actor:   buyer(created),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.DecisionApplied, second.Verdict.Decision)
	assert.Equal(t, trade.ReasonIdempotentReplay, second.Verdict.Reason)

	stored, err := f.trades.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Trade.Version, stored.Version, "replay must not rewrite state")
	assert.Len(t, f.capture.all(), 1, "replay emits no second event")

	records, err := f.audits.ListRecentByTrade(context.Background(), created.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2, "both attempts are recorded")
	assert.Equal(t, "IDEMPOTENT_REPLAY", records[0].Reason)
}

func TestAttemptTransition_ReplayRequiresTradeParty(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateContracted)

	res, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateContracted,
		Actor:   id.Actor{Party: id.PartyBuyer, CompanyID: id.CompanyID(uuid.New())},
	})
	require.NoError(t, err)
	assert.Equal(t, trade.DecisionBlocked, res.Verdict.Decision)
	assert.Equal(t, trade.ReasonUnauthorizedActor, res.Verdict.Reason)
	assert.Empty(t, f.capture.all())

	records, err := f.audits.ListRecentByTrade(context.Background(), created.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BLOCKED", records[0].Decision)

	auto, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateContracted,
		Actor:   id.AutomationActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.ReasonIdempotentReplay, auto.Verdict.Reason)
}

func TestAttemptTransition_UnknownTargetIsInvalidEdge(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateInquiry)

	res, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.State("teleported"),
		Actor:   buyer(created),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.ReasonInvalidEdge, res.Verdict.Reason)
}

func TestAttemptTransition_StrangerCompanyIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateInquiry)

	res, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateRFQOpen,
		Actor:   id.Actor{Party: id.PartyBuyer, CompanyID: id.CompanyID(uuid.New())},
	})
	require.NoError(t, err)
	assert.Equal(t, trade.ReasonUnauthorizedActor, res.Verdict.Reason)
}

func TestAttemptTransition_MissingTradeIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: id.NewTradeID(),
		Target:  trade.StateRFQOpen,
		Actor:   id.Actor{Party: id.PartyBuyer, CompanyID: id.CompanyID(uuid.New())},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestAttemptTransition_ConcurrentAttemptsOneWinner races identical attempts;
// exactly one applies, the rest observe the replay answer, and the state
// advances exactly once.
func TestAttemptTransition_ConcurrentAttemptsOneWinner(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateInquiry)

	const goroutines = 25
	var wg sync.WaitGroup
	results := make(chan trade.ReasonCode, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
				TradeID: created.ID,
				Target:  trade.StateRFQOpen,
				Actor:   buyer(created),
			})
			if assert.NoError(t, err) {
				results <- res.Verdict.Reason
			}
		}()
	}
	wg.Wait()
	close(results)

	var applied, replayed int
	for reason := range results {
		switch reason {
		case trade.ReasonOK:
			applied++
		case trade.ReasonIdempotentReplay:
			replayed++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, goroutines-1, replayed)

	stored, err := f.trades.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StateRFQOpen, stored.State)
	assert.Equal(t, int64(2), stored.Version)
	assert.Len(t, f.capture.all(), 1)
}

func TestApplyContextUpdate_MergesAndEmitsChangedFields(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateContracted)
	balance := int64(750)
	verdict := "clear"

	updated, err := f.engine.ApplyContextUpdate(context.Background(), created.ID, trade.ContextUpdate{
		Flags:              map[string]bool{"fund_escrow": true},
		EscrowBalanceMinor: &balance,
		ComplianceVerdict:  &verdict,
	}, buyer(created))
	require.NoError(t, err)
	assert.True(t, updated.Context.Flag("fund_escrow"))
	assert.Equal(t, int64(750), updated.Context.EscrowBalanceMinor)
	assert.Equal(t, "clear", updated.Context.ComplianceVerdict)
	assert.Equal(t, created.Version+1, updated.Version)

	all := f.capture.all()
	require.Len(t, all, 1)
	assert.Equal(t, events.TypeContextUpdated, all[0].Type)
	assert.Equal(t, []string{"flags.fund_escrow", "escrow_balance_minor", "compliance_verdict"}, all[0].ChangedFields)
}

func TestApplyContextUpdate_EmptyUpdateRejected(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateContracted)

	_, err := f.engine.ApplyContextUpdate(context.Background(), created.ID, trade.ContextUpdate{}, buyer(created))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Empty(t, f.capture.all())
}

func TestApplyContextUpdate_TerminalTradeRejected(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateCancelled)
	balance := int64(1)

	_, err := f.engine.ApplyContextUpdate(context.Background(), created.ID, trade.ContextUpdate{
		EscrowBalanceMinor: &balance,
	}, buyer(created))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestAttemptTransition_OutboxEntryWrittenWithStateChange(t *testing.T) {
	f := newFixture(t)
	created := f.createTrade(t, trade.StateInquiry)

	_, err := f.engine.AttemptTransition(context.Background(), TransitionCommand{
		TradeID: created.ID,
		Target:  trade.StateRFQOpen,
		Actor:   buyer(created),
	})
	require.NoError(t, err)

	pending, err := f.outbox.PendingBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, events.TypeStateTransition, pending[0].Event.Type)
	assert.Equal(t, created.ID, pending[0].Event.TradeID)
}
