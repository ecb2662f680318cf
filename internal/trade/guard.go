package trade

import id "tradelane/pkg/domain"

// Decision is the outcome of a transition attempt.
type Decision string

const (
	DecisionApplied Decision = "APPLIED"
	DecisionBlocked Decision = "BLOCKED"
)

// ReasonCode is the machine-readable explanation attached to every verdict.
type ReasonCode string

const (
	ReasonOK                 ReasonCode = "OK"
	ReasonIdempotentReplay   ReasonCode = "IDEMPOTENT_REPLAY"
	ReasonInvalidEdge        ReasonCode = "INVALID_EDGE"
	ReasonUnauthorizedActor  ReasonCode = "UNAUTHORIZED_ACTOR"
	ReasonActionsOutstanding ReasonCode = "REQUIRED_ACTIONS_OUTSTANDING"
	ReasonEscrowInsufficient ReasonCode = "ESCROW_INSUFFICIENT"
	ReasonComplianceHold     ReasonCode = "COMPLIANCE_HOLD"
)

// Verdict is the guard evaluator's answer for one attempt. RequiredActions is
// the exact unsatisfied subset of the edge's declared actions, in declared
// order; it is never empty for an actions-outstanding block.
type Verdict struct {
	Decision        Decision
	Reason          ReasonCode
	RequiredActions []Action
}

func pass() Verdict {
	return Verdict{Decision: DecisionApplied, Reason: ReasonOK}
}

func block(reason ReasonCode) Verdict {
	return Verdict{Decision: DecisionBlocked, Reason: reason}
}

// Evaluator decides PASS/BLOCK for attempted transitions. It is pure: no
// persistence, no clocks, no mutation of the trade snapshot. The same
// (trade, target, actor) always yields the same verdict until the trade's
// context changes.
type Evaluator struct {
	table *Table
}

func NewEvaluator(table *Table) *Evaluator {
	return &Evaluator{table: table}
}

// Evaluate runs the fail-fast rule chain:
//  1. the edge must be declared
//  2. the actor must match the edge's initiator and belong to the trade
//  3. every required action must be satisfied in context
//  4. the edge-specific guard, if any, must pass
func (e *Evaluator) Evaluate(t *Trade, target State, actor id.Actor) Verdict {
	edge, ok := e.table.Lookup(t.State, target)
	if !ok {
		return block(ReasonInvalidEdge)
	}

	if !e.authorized(t, edge, actor) {
		return block(ReasonUnauthorizedActor)
	}

	var outstanding []Action
	for _, action := range edge.Required {
		if !action.Satisfied(t.Context) {
			outstanding = append(outstanding, action)
		}
	}
	if len(outstanding) > 0 {
		v := block(ReasonActionsOutstanding)
		v.RequiredActions = outstanding
		return v
	}

	if edge.Guard != nil {
		if ok, reason := edge.Guard(t); !ok {
			return block(reason)
		}
	}

	return pass()
}

// authorized checks the initiator tag and binds party actors to the company
// registered for that party on the trade. Automation is accepted on
// automation-tagged and any-tagged edges.
func (e *Evaluator) authorized(t *Trade, edge *Edge, actor id.Actor) bool {
	if actor.Party == id.PartyAutomation {
		return edge.Initiator == id.PartyAutomation || edge.Initiator == id.PartyAny
	}

	switch edge.Initiator {
	case id.PartyAny:
		// any trade party, but still only companies on this trade
	case actor.Party:
		// declared initiator matches
	default:
		return false
	}

	company, bound := t.CompanyFor(actor.Party)
	if !bound {
		return false
	}
	return company == actor.CompanyID
}
