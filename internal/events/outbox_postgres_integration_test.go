//go:build integration

package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tradelane/internal/events"
	id "tradelane/pkg/domain"
	txcontext "tradelane/pkg/platform/tx"
	"tradelane/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	outbox   *events.PostgresOutbox
	runner   *txcontext.SQLRunner
}

func TestPostgresOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.outbox = events.NewPostgresOutbox(s.postgres.DB)
	s.runner = txcontext.NewSQLRunner(s.postgres.DB)
}

func (s *PostgresOutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func newEvent(tradeID id.TradeID) events.Event {
	return events.Event{
		ID:         id.NewEventID(),
		Type:       events.TypeStateTransition,
		TradeID:    tradeID,
		Actor:      "automation",
		FromState:  "contracted",
		ToState:    "escrow_funded",
		OccurredAt: time.Now().UTC(),
	}
}

func (s *PostgresOutboxSuite) TestAppendAndDrainRoundTrip() {
	ctx := context.Background()
	tradeID := id.NewTradeID()
	first := newEvent(tradeID)
	second := newEvent(tradeID)

	s.Require().NoError(s.outbox.Append(ctx, first))
	s.Require().NoError(s.outbox.Append(ctx, second))

	pending, err := s.outbox.PendingBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(first.ID, pending[0].Event.ID, "append order is drain order")
	s.Equal(second.ID, pending[1].Event.ID)

	s.Require().NoError(s.outbox.MarkPublished(ctx, []int64{pending[0].Seq}))

	remaining, err := s.outbox.PendingBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(second.ID, remaining[0].Event.ID)
}

func (s *PostgresOutboxSuite) TestAppendRollsBackWithTransaction() {
	ctx := context.Background()

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.outbox.Append(txCtx, newEvent(id.NewTradeID())); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Require().Error(err)

	pending, err := s.outbox.PendingBatch(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending, "rolled-back events must never reach the feed")
}

func (s *PostgresOutboxSuite) TestDuplicateEventIDRejected() {
	ctx := context.Background()
	evt := newEvent(id.NewTradeID())

	s.Require().NoError(s.outbox.Append(ctx, evt))
	s.Error(s.outbox.Append(ctx, evt))
}
