// Package domain defines typed identifiers used across the kernel. Wrapping
// uuid.UUID keeps trade, company, and document ids from being mixed up at
// compile time instead of at 3am.
package domain

import (
	"github.com/google/uuid"

	dErrors "tradelane/pkg/domain-errors"
)

type (
	// TradeID identifies a trade aggregate.
	TradeID uuid.UUID
	// CompanyID identifies a buyer, seller, or logistics company.
	CompanyID uuid.UUID
	// RFQID identifies the request-for-quote a trade originated from.
	RFQID uuid.UUID
	// QuoteID identifies the accepted quote a trade originated from.
	QuoteID uuid.UUID
	// EventID identifies a single emitted kernel event.
	EventID uuid.UUID
)

func (id TradeID) String() string   { return uuid.UUID(id).String() }
func (id CompanyID) String() string { return uuid.UUID(id).String() }
func (id RFQID) String() string     { return uuid.UUID(id).String() }
func (id QuoteID) String() string   { return uuid.UUID(id).String() }
func (id EventID) String() string   { return uuid.UUID(id).String() }

func (id TradeID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RFQID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id QuoteID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewTradeID mints a fresh trade identifier.
func NewTradeID() TradeID { return TradeID(uuid.New()) }

// NewEventID mints a fresh event identifier.
func NewEventID() EventID { return EventID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseTradeID validates and converts a raw string into a TradeID.
func ParseTradeID(raw string) (TradeID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return TradeID{}, err
	}
	return TradeID(parsed), nil
}

// ParseCompanyID validates and converts a raw string into a CompanyID.
func ParseCompanyID(raw string) (CompanyID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return CompanyID{}, err
	}
	return CompanyID(parsed), nil
}

// ParseRFQID validates and converts a raw string into an RFQID.
func ParseRFQID(raw string) (RFQID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return RFQID{}, err
	}
	return RFQID(parsed), nil
}

// ParseQuoteID validates and converts a raw string into a QuoteID.
func ParseQuoteID(raw string) (QuoteID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return QuoteID{}, err
	}
	return QuoteID(parsed), nil
}
