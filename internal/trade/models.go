// Package trade defines the trade aggregate, its lifecycle state machine, and
// the pure guard evaluator that decides whether a transition attempt passes.
package trade

import (
	"time"

	id "tradelane/pkg/domain"
)

// State is the trade lifecycle state. The set is closed: every valid value is
// declared below and the transition table only references declared states.
type State string

const (
	StateInquiry          State = "inquiry"
	StateRFQOpen          State = "rfq_open"
	StateQuoteReceived    State = "quote_received"
	StateNegotiating      State = "negotiating"
	StateContracted       State = "contracted"
	StateEscrowFunded     State = "escrow_funded"
	StateProduction       State = "production"
	StateQualityCheck     State = "quality_check"
	StateShipped          State = "shipped"
	StateInTransit        State = "in_transit"
	StateCustomsClearance State = "customs_clearance"
	StateDelivered        State = "delivered"
	StateCompleted        State = "completed"
	StateDisputed         State = "disputed"
	StateCancelled        State = "cancelled"
)

// States lists every declared state in lifecycle order.
var States = []State{
	StateInquiry,
	StateRFQOpen,
	StateQuoteReceived,
	StateNegotiating,
	StateContracted,
	StateEscrowFunded,
	StateProduction,
	StateQualityCheck,
	StateShipped,
	StateInTransit,
	StateCustomsClearance,
	StateDelivered,
	StateCompleted,
	StateDisputed,
	StateCancelled,
}

// IsValid reports whether s is a declared lifecycle state.
func (s State) IsValid() bool {
	for _, declared := range States {
		if s == declared {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the trade can never leave s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Trade is the aggregate root. The Transition Engine is the only writer; all
// other components treat a loaded Trade as an immutable snapshot.
type Trade struct {
	ID          id.TradeID
	State       State
	BuyerID     id.CompanyID
	SellerID    id.CompanyID
	LogisticsID id.CompanyID // zero until a logistics partner is assigned

	Quantity       int64
	UnitPriceMinor int64 // minor currency units per item
	Currency       string

	RFQID   id.RFQID
	QuoteID id.QuoteID

	Context Context

	// Version increments on every committed write; the postgres store uses it
	// to detect lost updates.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContractValueMinor is the total value of the contract in minor units.
func (t *Trade) ContractValueMinor() int64 {
	return t.Quantity * t.UnitPriceMinor
}

// CompanyFor returns the company bound to the given party on this trade.
func (t *Trade) CompanyFor(party id.Party) (id.CompanyID, bool) {
	switch party {
	case id.PartyBuyer:
		return t.BuyerID, true
	case id.PartySeller:
		return t.SellerID, true
	case id.PartyLogistics:
		if t.LogisticsID.IsNil() {
			return id.CompanyID{}, false
		}
		return t.LogisticsID, true
	default:
		return id.CompanyID{}, false
	}
}

// Involves reports whether the company participates in this trade.
func (t *Trade) Involves(company id.CompanyID) bool {
	return t.BuyerID == company || t.SellerID == company || t.LogisticsID == company
}

// Clone returns a deep copy so readers never share the context map with the
// engine's working copy.
func (t *Trade) Clone() *Trade {
	cp := *t
	cp.Context = t.Context.Clone()
	return &cp
}
