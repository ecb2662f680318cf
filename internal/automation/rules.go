// Package automation advances trades without human action where the lifecycle
// allows it. Rules subscribe to committed kernel events and re-enter the
// engine as the automation actor; the engine's guards stay the single
// authority on whether a firing applies.
package automation

import (
	"tradelane/internal/events"
	"tradelane/internal/trade"
)

// Rule fires one transition attempt when a trade sitting in From becomes
// worth re-examining. A rule is triggered by any context update and by the
// trade arriving in its From state; whether the attempt passes is entirely
// the guard evaluator's call.
type Rule struct {
	Name   string
	From   trade.State
	Target trade.State
}

// Triggered reports whether evt warrants evaluating this rule.
func (r Rule) Triggered(evt events.Event) bool {
	switch evt.Type {
	case events.TypeContextUpdated:
		return true
	case events.TypeStateTransition:
		return evt.ToState == string(r.From)
	default:
		return false
	}
}

// DefaultRules are the shipped automation rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "auto_fund_escrow",
			From:   trade.StateContracted,
			Target: trade.StateEscrowFunded,
		},
		{
			Name:   "auto_customs_clearance",
			From:   trade.StateShipped,
			Target: trade.StateCustomsClearance,
		},
		{
			Name:   "auto_complete",
			From:   trade.StateDelivered,
			Target: trade.StateCompleted,
		},
	}
}
