// Package events defines the kernel's event stream: the types the engine
// emits, the synchronous in-process dispatcher the automation bus subscribes
// to, and the transactional outbox that feeds the external Kafka topic.
package events

import (
	"time"

	id "tradelane/pkg/domain"
)

// Type classifies a kernel event.
type Type string

const (
	// TypeStateTransition is emitted for every applied transition.
	TypeStateTransition Type = "state_transition"
	// TypeContextUpdated is emitted when a collaborator signal changes a
	// trade's context.
	TypeContextUpdated Type = "context_updated"
)

// Event is one committed kernel occurrence. Consumers are idempotent on ID;
// delivery to the external feed is at-least-once.
type Event struct {
	ID      id.EventID `json:"id"`
	Type    Type       `json:"type"`
	TradeID id.TradeID `json:"trade_id"`

	// Actor is the audit rendering of who caused the event.
	Actor string `json:"actor"`

	// FromState/ToState are set for state_transition events.
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state,omitempty"`

	// ChangedFields lists the context fields a context_updated event touched.
	ChangedFields []string `json:"changed_fields,omitempty"`

	// Origin names the automation rule whose firing produced this event.
	// Empty for actor-initiated events. The automation bus uses it to keep a
	// rule from consuming its own output.
	Origin string `json:"origin,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
