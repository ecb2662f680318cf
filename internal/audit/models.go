// Package audit is the append-only record of every transition attempt and
// automation firing. Records are never edited or deleted; they are the
// dispute-resolution source of truth and outlive the trades they describe.
package audit

import (
	"time"

	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
)

// Kind distinguishes record types in the merged event feed.
type Kind string

const (
	KindTransitionAttempt Kind = "transition_attempt"
	KindAutomationEvent   Kind = "automation_event"
)

// TransitionAttempt is created exactly once per attempt by the Transition
// Engine, for blocked and applied outcomes alike. Company ids are denormalized
// at write time so company-scoped reads never depend on the mutable trade row.
type TransitionAttempt struct {
	// Seq is the global monotonic sequence number, assigned by the store.
	// Ordering uses Seq, not Timestamp, so clock skew cannot reorder history.
	Seq int64

	TradeID     id.TradeID
	BuyerID     id.CompanyID
	SellerID    id.CompanyID
	LogisticsID id.CompanyID

	FromState   trade.State
	AttemptedTo trade.State

	Decision        trade.Decision
	Reason          trade.ReasonCode
	RequiredActions []trade.Action

	// Actor is "party:company-uuid" or "automation".
	Actor     string
	RequestID string
	Timestamp time.Time
}

// AutomationEvent wraps the attempt an automation rule produced. Created by
// the Automation Trigger Bus immediately after the engine returns.
type AutomationEvent struct {
	Seq int64

	Rule    string
	TradeID id.TradeID

	// AttemptSeq references the TransitionAttempt this firing produced.
	AttemptSeq int64

	BuyerID     id.CompanyID
	SellerID    id.CompanyID
	LogisticsID id.CompanyID

	AttemptedTo     trade.State
	Decision        trade.Decision
	Reason          trade.ReasonCode
	RequiredActions []trade.Action

	Timestamp time.Time
}

// Record is the read-side projection served to dashboards: attempts and
// automation events merged into one sequence-ordered feed.
type Record struct {
	Seq  int64 `json:"seq"`
	Kind Kind  `json:"kind"`

	TradeID string `json:"trade_id"`

	FromState   string `json:"from_state,omitempty"`
	AttemptedTo string `json:"attempted_to_state"`

	Decision        string   `json:"decision"`
	Reason          string   `json:"reason_code"`
	RequiredActions []string `json:"required_actions"`

	Actor string `json:"actor,omitempty"`
	Rule  string `json:"rule,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

func actionsToStrings(actions []trade.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}

// RecordFromAttempt projects an attempt into the feed shape. Timestamps are
// normalized to UTC so records compare equal across the cache round trip.
func RecordFromAttempt(a *TransitionAttempt) Record {
	return Record{
		Seq:             a.Seq,
		Kind:            KindTransitionAttempt,
		TradeID:         a.TradeID.String(),
		FromState:       string(a.FromState),
		AttemptedTo:     string(a.AttemptedTo),
		Decision:        string(a.Decision),
		Reason:          string(a.Reason),
		RequiredActions: actionsToStrings(a.RequiredActions),
		Actor:           a.Actor,
		Timestamp:       a.Timestamp.UTC(),
	}
}

// RecordFromAutomation projects an automation firing into the feed shape.
func RecordFromAutomation(e *AutomationEvent) Record {
	return Record{
		Seq:             e.Seq,
		Kind:            KindAutomationEvent,
		TradeID:         e.TradeID.String(),
		AttemptedTo:     string(e.AttemptedTo),
		Decision:        string(e.Decision),
		Reason:          string(e.Reason),
		RequiredActions: actionsToStrings(e.RequiredActions),
		Rule:            e.Rule,
		Timestamp:       e.Timestamp.UTC(),
	}
}
