package audit

import (
	"context"

	id "tradelane/pkg/domain"
)

// Store persists audit records. Appends assign the global sequence number and
// must participate in the ambient transaction when one is present, so an
// attempt record commits atomically with the state change it describes.
type Store interface {
	AppendAttempt(ctx context.Context, attempt *TransitionAttempt) error
	AppendAutomation(ctx context.Context, event *AutomationEvent) error

	// ListRecentByTrade returns the most recent records for a trade,
	// newest first by sequence number.
	ListRecentByTrade(ctx context.Context, tradeID id.TradeID, limit int) ([]Record, error)

	// ListRecentByCompany returns the most recent records across every trade
	// the company participates in, newest first by sequence number.
	ListRecentByCompany(ctx context.Context, companyID id.CompanyID, limit int) ([]Record, error)
}
