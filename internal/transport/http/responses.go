package handler

import (
	"time"

	"tradelane/internal/audit"
	"tradelane/internal/engine"
	"tradelane/internal/trade"
)

// TradeResponse is the wire shape of a trade snapshot.
type TradeResponse struct {
	ID             string        `json:"id"`
	State          string        `json:"state"`
	BuyerID        string        `json:"buyer_id"`
	SellerID       string        `json:"seller_id"`
	LogisticsID    string        `json:"logistics_id,omitempty"`
	Quantity       int64         `json:"quantity"`
	UnitPriceMinor int64         `json:"unit_price_minor"`
	Currency       string        `json:"currency"`
	RFQID          string        `json:"rfq_id"`
	QuoteID        string        `json:"quote_id"`
	Context        trade.Context `json:"context"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func FromTrade(t *trade.Trade) TradeResponse {
	resp := TradeResponse{
		ID:             t.ID.String(),
		State:          string(t.State),
		BuyerID:        t.BuyerID.String(),
		SellerID:       t.SellerID.String(),
		Quantity:       t.Quantity,
		UnitPriceMinor: t.UnitPriceMinor,
		Currency:       t.Currency,
		RFQID:          t.RFQID.String(),
		QuoteID:        t.QuoteID.String(),
		Context:        t.Context,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if !t.LogisticsID.IsNil() {
		resp.LogisticsID = t.LogisticsID.String()
	}
	return resp
}

// TransitionResponse reports the engine's verdict for one attempt. A blocked
// attempt is still a 200: the verdict itself is the answer.
type TransitionResponse struct {
	Decision        string        `json:"decision"`
	ReasonCode      string        `json:"reason_code"`
	RequiredActions []string      `json:"required_actions,omitempty"`
	AttemptSeq      int64         `json:"attempt_seq"`
	Trade           TradeResponse `json:"trade"`
}

func FromTransitionResult(res *engine.TransitionResult) TransitionResponse {
	actions := make([]string, 0, len(res.Verdict.RequiredActions))
	for _, a := range res.Verdict.RequiredActions {
		actions = append(actions, string(a))
	}
	return TransitionResponse{
		Decision:        string(res.Verdict.Decision),
		ReasonCode:      string(res.Verdict.Reason),
		RequiredActions: actions,
		AttemptSeq:      res.AttemptSeq,
		Trade:           FromTrade(res.Trade),
	}
}

// EventsResponse is the audit feed envelope.
type EventsResponse struct {
	Events []audit.Record `json:"events"`
}

// TokenResponse carries a minted actor token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
