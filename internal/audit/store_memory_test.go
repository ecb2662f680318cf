package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *MemoryStoreSuite) newAttempt(tradeID id.TradeID, buyer id.CompanyID) *TransitionAttempt {
	return &TransitionAttempt{
		TradeID:     tradeID,
		BuyerID:     buyer,
		SellerID:    id.CompanyID(uuid.New()),
		FromState:   trade.StateContracted,
		AttemptedTo: trade.StateEscrowFunded,
		Decision:    trade.DecisionBlocked,
		Reason:      trade.ReasonActionsOutstanding,
		RequiredActions: []trade.Action{
			trade.ActionFundEscrow,
		},
		Actor:     "buyer:" + buyer.String(),
		Timestamp: time.Now(),
	}
}

func (s *MemoryStoreSuite) TestSequenceIsMonotonic() {
	ctx := context.Background()
	tradeID := id.NewTradeID()
	buyer := id.CompanyID(uuid.New())

	var lastSeq int64
	for i := 0; i < 5; i++ {
		attempt := s.newAttempt(tradeID, buyer)
		s.Require().NoError(s.store.AppendAttempt(ctx, attempt))
		s.Greater(attempt.Seq, lastSeq)
		lastSeq = attempt.Seq
	}
}

func (s *MemoryStoreSuite) TestAttemptsAndAutomationShareOneSequence() {
	ctx := context.Background()
	tradeID := id.NewTradeID()
	buyer := id.CompanyID(uuid.New())

	attempt := s.newAttempt(tradeID, buyer)
	s.Require().NoError(s.store.AppendAttempt(ctx, attempt))

	event := &AutomationEvent{
		Rule:        "auto_customs_clearance",
		TradeID:     tradeID,
		AttemptSeq:  attempt.Seq,
		BuyerID:     buyer,
		SellerID:    attempt.SellerID,
		AttemptedTo: trade.StateCustomsClearance,
		Decision:    trade.DecisionApplied,
		Reason:      trade.ReasonOK,
		Timestamp:   time.Now(),
	}
	s.Require().NoError(s.store.AppendAutomation(ctx, event))
	s.Equal(attempt.Seq+1, event.Seq)

	records, err := s.store.ListRecentByTrade(ctx, tradeID, 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(KindAutomationEvent, records[0].Kind, "newest first")
	s.Equal(KindTransitionAttempt, records[1].Kind)
}

func (s *MemoryStoreSuite) TestListRecentByTradeHonorsLimit() {
	ctx := context.Background()
	tradeID := id.NewTradeID()
	buyer := id.CompanyID(uuid.New())

	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.AppendAttempt(ctx, s.newAttempt(tradeID, buyer)))
	}

	records, err := s.store.ListRecentByTrade(ctx, tradeID, 3)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Greater(records[0].Seq, records[1].Seq)
	s.Greater(records[1].Seq, records[2].Seq)
}

func (s *MemoryStoreSuite) TestListRecentByCompanySpansTrades() {
	ctx := context.Background()
	buyer := id.CompanyID(uuid.New())

	first := s.newAttempt(id.NewTradeID(), buyer)
	second := s.newAttempt(id.NewTradeID(), buyer)
	other := s.newAttempt(id.NewTradeID(), id.CompanyID(uuid.New()))

	s.Require().NoError(s.store.AppendAttempt(ctx, first))
	s.Require().NoError(s.store.AppendAttempt(ctx, other))
	s.Require().NoError(s.store.AppendAttempt(ctx, second))

	records, err := s.store.ListRecentByCompany(ctx, buyer, 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(second.TradeID.String(), records[0].TradeID)
	s.Equal(first.TradeID.String(), records[1].TradeID)
}

func (s *MemoryStoreSuite) TestRecordCarriesRequiredActionsVerbatim() {
	ctx := context.Background()
	attempt := s.newAttempt(id.NewTradeID(), id.CompanyID(uuid.New()))
	s.Require().NoError(s.store.AppendAttempt(ctx, attempt))

	records, err := s.store.ListRecentByTrade(ctx, attempt.TradeID, 1)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal([]string{"fund_escrow"}, records[0].RequiredActions)
	s.Equal("BLOCKED", records[0].Decision)
	s.Equal("REQUIRED_ACTIONS_OUTSTANDING", records[0].Reason)
}
