package handler

import (
	"tradelane/internal/engine"
	"tradelane/internal/trade"
	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
)

// CreateTradeRequest is the wire shape for POST /trades.
type CreateTradeRequest struct {
	BuyerID        string `json:"buyer_id"`
	SellerID       string `json:"seller_id"`
	LogisticsID    string `json:"logistics_id,omitempty"`
	Quantity       int64  `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Currency       string `json:"currency"`
	RFQID          string `json:"rfq_id"`
	QuoteID        string `json:"quote_id"`
}

// ToParams parses and validates ids; numeric validation stays with the engine.
func (r CreateTradeRequest) ToParams() (engine.CreateParams, error) {
	var params engine.CreateParams
	var err error

	if params.BuyerID, err = id.ParseCompanyID(r.BuyerID); err != nil {
		return params, dErrors.Wrap(err, dErrors.CodeInvalidInput, "buyer_id is invalid")
	}
	if params.SellerID, err = id.ParseCompanyID(r.SellerID); err != nil {
		return params, dErrors.Wrap(err, dErrors.CodeInvalidInput, "seller_id is invalid")
	}
	if r.LogisticsID != "" {
		if params.LogisticsID, err = id.ParseCompanyID(r.LogisticsID); err != nil {
			return params, dErrors.Wrap(err, dErrors.CodeInvalidInput, "logistics_id is invalid")
		}
	}
	if params.RFQID, err = id.ParseRFQID(r.RFQID); err != nil {
		return params, dErrors.Wrap(err, dErrors.CodeInvalidInput, "rfq_id is invalid")
	}
	if params.QuoteID, err = id.ParseQuoteID(r.QuoteID); err != nil {
		return params, dErrors.Wrap(err, dErrors.CodeInvalidInput, "quote_id is invalid")
	}

	params.Quantity = r.Quantity
	params.UnitPriceMinor = r.UnitPriceMinor
	params.Currency = r.Currency
	return params, nil
}

// TransitionRequest is the wire shape for POST /trades/{tradeID}/transitions.
type TransitionRequest struct {
	TargetState string `json:"target_state"`
}

func (r TransitionRequest) Target() (trade.State, error) {
	if r.TargetState == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "target_state is required")
	}
	// Unknown states are a normal blocked verdict, not a request error: the
	// attempt is still recorded as INVALID_EDGE.
	return trade.State(r.TargetState), nil
}

// ContextUpdateRequest is the wire shape for POST /trades/{tradeID}/context.
type ContextUpdateRequest struct {
	Flags              map[string]bool `json:"flags,omitempty"`
	EscrowBalanceMinor *int64          `json:"escrow_balance_minor,omitempty"`
	ComplianceVerdict  *string         `json:"compliance_verdict,omitempty"`
}

func (r ContextUpdateRequest) ToUpdate() (trade.ContextUpdate, error) {
	known := trade.KnownFlags()
	for name := range r.Flags {
		if !known[name] {
			return trade.ContextUpdate{}, dErrors.New(dErrors.CodeInvalidInput, "unknown context flag: "+name)
		}
	}
	if r.ComplianceVerdict != nil {
		switch *r.ComplianceVerdict {
		case "", "clear", "hold":
		default:
			return trade.ContextUpdate{}, dErrors.New(dErrors.CodeInvalidInput, "compliance_verdict must be clear, hold, or empty")
		}
	}
	if r.EscrowBalanceMinor != nil && *r.EscrowBalanceMinor < 0 {
		return trade.ContextUpdate{}, dErrors.New(dErrors.CodeInvalidInput, "escrow_balance_minor must not be negative")
	}
	return trade.ContextUpdate{
		Flags:              r.Flags,
		EscrowBalanceMinor: r.EscrowBalanceMinor,
		ComplianceVerdict:  r.ComplianceVerdict,
	}, nil
}

// MintTokenRequest is the wire shape for POST /tokens.
type MintTokenRequest struct {
	Party     string `json:"party"`
	CompanyID string `json:"company_id"`
	TTLSecs   int64  `json:"ttl_seconds,omitempty"`
}

func (r MintTokenRequest) ToActor() (id.Actor, error) {
	party, err := id.ParseParty(r.Party)
	if err != nil {
		return id.Actor{}, err
	}
	companyID, err := id.ParseCompanyID(r.CompanyID)
	if err != nil {
		return id.Actor{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "company_id is invalid")
	}
	return id.Actor{Party: party, CompanyID: companyID}, nil
}
