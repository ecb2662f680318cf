package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
	"tradelane/pkg/platform/sentinel"
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

func (s *MemoryStoreSuite) newTrade() *trade.Trade {
	now := time.Now()
	return &trade.Trade{
		ID:             id.NewTradeID(),
		State:          trade.StateInquiry,
		BuyerID:        id.CompanyID(uuid.New()),
		SellerID:       id.CompanyID(uuid.New()),
		Quantity:       100,
		UnitPriceMinor: 2500,
		Currency:       "USD",
		RFQID:          id.RFQID(uuid.New()),
		QuoteID:        id.QuoteID(uuid.New()),
		Context:        trade.Context{Flags: map[string]bool{}},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *MemoryStoreSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()
	t := s.newTrade()
	s.Require().NoError(s.store.Create(ctx, t))

	got, err := s.store.Get(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t.ID, got.ID)
	s.Equal(trade.StateInquiry, got.State)
	s.Equal(int64(1), got.Version)
}

func (s *MemoryStoreSuite) TestCreateDuplicateFails() {
	ctx := context.Background()
	t := s.newTrade()
	s.Require().NoError(s.store.Create(ctx, t))
	s.ErrorIs(s.store.Create(ctx, t), sentinel.ErrAlreadyExists)
}

func (s *MemoryStoreSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.Get(context.Background(), id.NewTradeID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestGetReturnsIsolatedSnapshot() {
	ctx := context.Background()
	t := s.newTrade()
	s.Require().NoError(s.store.Create(ctx, t))

	first, err := s.store.Get(ctx, t.ID)
	s.Require().NoError(err)
	first.Context.Flags["fund_escrow"] = true

	second, err := s.store.Get(ctx, t.ID)
	s.Require().NoError(err)
	s.False(second.Context.Flag("fund_escrow"), "snapshot mutation must not leak back into the store")
}

func (s *MemoryStoreSuite) TestUpdateStateBumpsVersion() {
	ctx := context.Background()
	t := s.newTrade()
	s.Require().NoError(s.store.Create(ctx, t))

	s.Require().NoError(s.store.UpdateState(ctx, t.ID, trade.StateRFQOpen, 1))

	got, err := s.store.Get(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(trade.StateRFQOpen, got.State)
	s.Equal(int64(2), got.Version)
}

func (s *MemoryStoreSuite) TestUpdateStateStaleVersionConflicts() {
	ctx := context.Background()
	t := s.newTrade()
	s.Require().NoError(s.store.Create(ctx, t))
	s.Require().NoError(s.store.UpdateState(ctx, t.ID, trade.StateRFQOpen, 1))

	err := s.store.UpdateState(ctx, t.ID, trade.StateQuoteReceived, 1)
	s.ErrorIs(err, sentinel.ErrVersionConflict)
}

func (s *MemoryStoreSuite) TestUpdateContextReplacesBlob() {
	ctx := context.Background()
	t := s.newTrade()
	s.Require().NoError(s.store.Create(ctx, t))

	next := trade.Context{
		Flags:              map[string]bool{"fund_escrow": true},
		EscrowBalanceMinor: 250000,
	}
	s.Require().NoError(s.store.UpdateContext(ctx, t.ID, next, 1))

	got, err := s.store.Get(ctx, t.ID)
	s.Require().NoError(err)
	s.True(got.Context.Flag("fund_escrow"))
	s.Equal(int64(250000), got.Context.EscrowBalanceMinor)
	s.Equal(int64(2), got.Version)
}

func (s *MemoryStoreSuite) TestUpdateMissingTradeReturnsNotFound() {
	err := s.store.UpdateState(context.Background(), id.NewTradeID(), trade.StateRFQOpen, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
