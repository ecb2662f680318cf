package automation

import (
	"context"
	"log/slog"

	"tradelane/internal/audit"
	"tradelane/internal/engine"
	"tradelane/internal/events"
	"tradelane/internal/platform/metrics"
	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
	"tradelane/pkg/requestcontext"
)

// Bus subscribes rules to the kernel event stream. Each firing is a single
// pass: it attempts the transition once, records the outcome, and never
// retries a blocked verdict. The next context update or transition triggers
// a fresh evaluation.
type Bus struct {
	engine  *engine.Engine
	audits  audit.Store
	rules   []Rule
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBus(eng *engine.Engine, audits audit.Store, rules []Rule, m *metrics.Metrics, logger *slog.Logger) *Bus {
	return &Bus{
		engine:  eng,
		audits:  audits,
		rules:   rules,
		metrics: m,
		logger:  logger,
	}
}

// HandleEvent evaluates every rule against the committed event. An event
// carrying a rule's own name as origin is skipped for that rule, so a firing
// never consumes its own output.
func (b *Bus) HandleEvent(ctx context.Context, evt events.Event) {
	for _, rule := range b.rules {
		if evt.Origin == rule.Name {
			continue
		}
		if !rule.Triggered(evt) {
			continue
		}
		b.fire(ctx, rule, evt)
	}
}

func (b *Bus) fire(ctx context.Context, rule Rule, evt events.Event) {
	t, err := b.engine.GetTrade(ctx, evt.TradeID)
	if err != nil {
		b.logger.ErrorContext(ctx, "automation rule could not load trade",
			"rule", rule.Name,
			"trade_id", evt.TradeID.String(),
			"error", err,
		)
		return
	}
	if t.State != rule.From {
		return
	}

	result, err := b.engine.AttemptTransition(ctx, engine.TransitionCommand{
		TradeID: evt.TradeID,
		Target:  rule.Target,
		Actor:   id.AutomationActor(),
		Origin:  rule.Name,
	})
	if err != nil {
		// The trade can vanish between the event and the firing.
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return
		}
		b.logger.ErrorContext(ctx, "automation firing failed",
			"rule", rule.Name,
			"trade_id", evt.TradeID.String(),
			"error", err,
		)
		return
	}

	b.metrics.AutomationFired.WithLabelValues(rule.Name).Inc()
	if result.Verdict.Decision == trade.DecisionBlocked {
		b.logger.InfoContext(ctx, "automation firing blocked",
			"rule", rule.Name,
			"trade_id", evt.TradeID.String(),
			"reason", string(result.Verdict.Reason),
		)
	}

	record := &audit.AutomationEvent{
		Rule:            rule.Name,
		TradeID:         t.ID,
		AttemptSeq:      result.AttemptSeq,
		BuyerID:         t.BuyerID,
		SellerID:        t.SellerID,
		LogisticsID:     t.LogisticsID,
		AttemptedTo:     rule.Target,
		Decision:        result.Verdict.Decision,
		Reason:          result.Verdict.Reason,
		RequiredActions: result.Verdict.RequiredActions,
		Timestamp:       requestcontext.Now(ctx),
	}
	if err := b.audits.AppendAutomation(ctx, record); err != nil {
		b.logger.ErrorContext(ctx, "automation firing not recorded",
			"rule", rule.Name,
			"trade_id", evt.TradeID.String(),
			"error", err,
		)
	}
}
