package trade

import id "tradelane/pkg/domain"

// GuardFunc is an edge-specific predicate for preconditions that are not a
// simple boolean flag. It must be pure: same trade snapshot, same verdict.
type GuardFunc func(t *Trade) (ok bool, reason ReasonCode)

// Edge declares one valid state transition.
type Edge struct {
	From      State
	To        State
	Initiator id.Party // PartyAny allows every authenticated trade party
	Required  []Action
	Guard     GuardFunc
}

// guardEscrowSufficient blocks escrow funding until the escrow balance covers
// the full contract value.
func guardEscrowSufficient(t *Trade) (bool, ReasonCode) {
	if t.Context.EscrowBalanceMinor < t.ContractValueMinor() {
		return false, ReasonEscrowInsufficient
	}
	return true, ""
}

// guardComplianceClear blocks customs edges while the compliance case holds
// the trade. An absent verdict does not block; compliance opens cases
// selectively.
func guardComplianceClear(t *Trade) (bool, ReasonCode) {
	if t.Context.ComplianceVerdict == "hold" {
		return false, ReasonComplianceHold
	}
	return true, ""
}

// declaredEdges is the forward lifecycle. Dispute edges are generated in
// buildTable: disputed is reachable from every non-terminal state and exits
// only to completed or cancelled. There are no other back-edges.
var declaredEdges = []Edge{
	{From: StateInquiry, To: StateRFQOpen, Initiator: id.PartyBuyer},
	{From: StateInquiry, To: StateCancelled, Initiator: id.PartyAny},

	{From: StateRFQOpen, To: StateQuoteReceived, Initiator: id.PartySeller, Required: []Action{ActionSubmitQuote}},
	{From: StateRFQOpen, To: StateCancelled, Initiator: id.PartyAny},

	{From: StateQuoteReceived, To: StateNegotiating, Initiator: id.PartyAny},
	{From: StateQuoteReceived, To: StateContracted, Initiator: id.PartyBuyer, Required: []Action{ActionAcceptQuote, ActionSignContract}},
	{From: StateQuoteReceived, To: StateCancelled, Initiator: id.PartyAny},

	{From: StateNegotiating, To: StateContracted, Initiator: id.PartyBuyer, Required: []Action{ActionAcceptQuote, ActionSignContract}},
	{From: StateNegotiating, To: StateCancelled, Initiator: id.PartyAny},

	{From: StateContracted, To: StateEscrowFunded, Initiator: id.PartyAny, Required: []Action{ActionFundEscrow}, Guard: guardEscrowSufficient},

	{From: StateEscrowFunded, To: StateProduction, Initiator: id.PartySeller},

	{From: StateProduction, To: StateQualityCheck, Initiator: id.PartySeller, Required: []Action{ActionCompleteProduction}},

	{From: StateQualityCheck, To: StateShipped, Initiator: id.PartyLogistics, Required: []Action{ActionPassQualityCheck, ActionAddHSCode}},

	{From: StateShipped, To: StateInTransit, Initiator: id.PartyLogistics, Required: []Action{ActionConfirmCarrierPickup}},
	{From: StateShipped, To: StateCustomsClearance, Initiator: id.PartyAutomation, Required: []Action{ActionConfirmCarrierPickup, ActionUploadComplianceDocs}, Guard: guardComplianceClear},

	{From: StateInTransit, To: StateCustomsClearance, Initiator: id.PartyAny, Required: []Action{ActionUploadComplianceDocs}, Guard: guardComplianceClear},

	{From: StateCustomsClearance, To: StateDelivered, Initiator: id.PartyLogistics, Required: []Action{ActionClearCustoms, ActionConfirmDelivery}},

	{From: StateDelivered, To: StateCompleted, Initiator: id.PartyAny, Required: []Action{ActionAcceptDelivery}},

	{From: StateDisputed, To: StateCompleted, Initiator: id.PartyAny, Required: []Action{ActionResolveDispute}},
	{From: StateDisputed, To: StateCancelled, Initiator: id.PartyAny, Required: []Action{ActionResolveDispute}},
}

// Table indexes declared edges by (from, to).
type Table struct {
	edges map[State]map[State]*Edge
}

// NewTable builds the full transition table, including the generated
// any-non-terminal → disputed edges.
func NewTable() *Table {
	t := &Table{edges: make(map[State]map[State]*Edge)}
	for i := range declaredEdges {
		t.add(&declaredEdges[i])
	}
	for _, s := range States {
		if s.IsTerminal() || s == StateDisputed {
			continue
		}
		t.add(&Edge{From: s, To: StateDisputed, Initiator: id.PartyAny, Required: []Action{ActionRaiseDispute}})
	}
	return t
}

func (t *Table) add(e *Edge) {
	if t.edges[e.From] == nil {
		t.edges[e.From] = make(map[State]*Edge)
	}
	t.edges[e.From][e.To] = e
}

// Lookup returns the declared edge for (from, to), if any.
func (t *Table) Lookup(from, to State) (*Edge, bool) {
	e, ok := t.edges[from][to]
	return e, ok
}

// EdgesFrom returns every declared edge leaving the given state.
func (t *Table) EdgesFrom(from State) []*Edge {
	out := make([]*Edge, 0, len(t.edges[from]))
	for _, next := range States { // deterministic order
		if e, ok := t.edges[from][next]; ok {
			out = append(out, e)
		}
	}
	return out
}
