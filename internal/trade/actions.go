package trade

// Action is a named precondition an actor must satisfy before an edge may
// fire. The UI renders outstanding actions verbatim as "what to do next".
type Action string

const (
	ActionSubmitQuote          Action = "submit_quote"
	ActionAcceptQuote          Action = "accept_quote"
	ActionSignContract         Action = "sign_contract"
	ActionFundEscrow           Action = "fund_escrow"
	ActionCompleteProduction   Action = "complete_production"
	ActionPassQualityCheck     Action = "pass_quality_check"
	ActionAddHSCode            Action = "add_hs_code"
	ActionConfirmCarrierPickup Action = "confirm_carrier_pickup"
	ActionUploadComplianceDocs Action = "upload_compliance_docs"
	ActionClearCustoms         Action = "clear_customs"
	ActionConfirmDelivery      Action = "confirm_delivery"
	ActionAcceptDelivery       Action = "accept_delivery"
	ActionRaiseDispute         Action = "raise_dispute"
	ActionResolveDispute       Action = "resolve_dispute"
)

// Context flag names written by collaborators and read by guards.
const (
	FlagQuoteSubmitted         = "quote_submitted"
	FlagQuoteAccepted          = "quote_accepted"
	FlagContractSigned         = "contract_signed"
	FlagEscrowFunded           = "escrow_funded"
	FlagProductionCompleted    = "production_completed"
	FlagQualityPassed          = "quality_passed"
	FlagHSCodePresent          = "hs_code_present"
	FlagCarrierPickupConfirmed = "carrier_pickup_confirmed"
	FlagCustomsDocsUploaded    = "customs_docs_uploaded"
	FlagCustomsCleared         = "customs_cleared"
	FlagDeliveryConfirmed      = "delivery_confirmed"
	FlagDeliveryAccepted       = "delivery_accepted"
	FlagDisputeRaised          = "dispute_raised"
	FlagDisputeResolved        = "dispute_resolved"
)

// actionFlags maps each required action to the context flag that satisfies it.
var actionFlags = map[Action]string{
	ActionSubmitQuote:          FlagQuoteSubmitted,
	ActionAcceptQuote:          FlagQuoteAccepted,
	ActionSignContract:         FlagContractSigned,
	ActionFundEscrow:           FlagEscrowFunded,
	ActionCompleteProduction:   FlagProductionCompleted,
	ActionPassQualityCheck:     FlagQualityPassed,
	ActionAddHSCode:            FlagHSCodePresent,
	ActionConfirmCarrierPickup: FlagCarrierPickupConfirmed,
	ActionUploadComplianceDocs: FlagCustomsDocsUploaded,
	ActionClearCustoms:         FlagCustomsCleared,
	ActionConfirmDelivery:      FlagDeliveryConfirmed,
	ActionAcceptDelivery:       FlagDeliveryAccepted,
	ActionRaiseDispute:         FlagDisputeRaised,
	ActionResolveDispute:       FlagDisputeResolved,
}

// Satisfied reports whether the action's precondition holds in the context.
// Unknown actions are never satisfied, which surfaces table typos in tests.
func (a Action) Satisfied(ctx Context) bool {
	flag, ok := actionFlags[a]
	if !ok {
		return false
	}
	return ctx.Flag(flag)
}

// KnownFlags returns the set of context flag names collaborators may set.
func KnownFlags() map[string]bool {
	known := make(map[string]bool, len(actionFlags))
	for _, flag := range actionFlags {
		known[flag] = true
	}
	return known
}
