package domain

import dErrors "tradelane/pkg/domain-errors"

// Party names the role an actor plays on a trade.
type Party string

const (
	PartyBuyer      Party = "buyer"
	PartySeller     Party = "seller"
	PartyLogistics  Party = "logistics"
	PartyAutomation Party = "automation"
	// PartyAny is only valid as an edge initiator declaration, never as a
	// requesting actor.
	PartyAny Party = "any"
)

// ParseParty validates an actor-supplied party value. Automation and any are
// rejected here: automation actors are constructed internally.
func ParseParty(raw string) (Party, error) {
	switch Party(raw) {
	case PartyBuyer, PartySeller, PartyLogistics:
		return Party(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "party must be buyer, seller, or logistics")
	}
}

// Actor is the identity attempting a transition: which side of the trade it
// acts for and which company it belongs to.
type Actor struct {
	Party     Party
	CompanyID CompanyID
}

// AutomationActor is the fixed identity used for rule-initiated transitions.
func AutomationActor() Actor {
	return Actor{Party: PartyAutomation}
}

// String renders the actor for audit records ("automation" has no company).
func (a Actor) String() string {
	if a.Party == PartyAutomation {
		return string(PartyAutomation)
	}
	return string(a.Party) + ":" + a.CompanyID.String()
}
