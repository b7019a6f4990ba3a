// Package audit defines the event records emitted after every successful
// state transition in the registry. Events are append-only observational
// records for off-service consumers (indexers, verification bots); nothing
// in the registry reads them back for control flow.
package audit

import (
	"context"
	"encoding/json"
	"time"

	id "bindery/pkg/domain"
)

// Wire-format identifiers. Consumers key on these to pick a decoder.
const (
	EventStandard = "account-bindings"
	EventVersion  = "1.0.0"
)

// EventName tags each record with the operation that produced it.
type EventName string

const (
	EventBindingProposed          EventName = "binding_proposed"
	EventBindingProposalCancelled EventName = "binding_proposal_cancelled"
	EventBindingAccepted          EventName = "binding_accepted"
	EventOwnerChanged             EventName = "owner_changed"
	EventManagerAdded             EventName = "manager_added"
	EventManagerRemoved           EventName = "manager_removed"
)

// Event is emitted from domain logic after a completed state transition.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Name      EventName `json:"event"`
	Timestamp time.Time `json:"timestamp"`

	// Binding payload. CreatedAt is the proposal timestamp in unix ms,
	// present for proposal lifecycle events.
	AccountID id.AccountID `json:"account_id,omitempty"`
	Platform  string       `json:"platform,omitempty"`
	Handle    string       `json:"handle,omitempty"`
	CreatedAt int64        `json:"created_at,omitempty"`

	// Admin payload.
	OldOwner  id.AccountID `json:"old_owner_id,omitempty"`
	NewOwner  id.AccountID `json:"new_owner_id,omitempty"`
	ManagerID id.AccountID `json:"manager_id,omitempty"`

	// Correlation ID from the HTTP request context, when available.
	RequestID string `json:"request_id,omitempty"`
}

// envelope is the versioned wire shape shared by the log and Kafka sinks.
type envelope struct {
	Standard string            `json:"standard"`
	Version  string            `json:"version"`
	Event    EventName         `json:"event"`
	Data     []json.RawMessage `json:"data"`
}

// MarshalEnvelope renders the versioned wire form of an event:
// {"standard":"account-bindings","version":"1.0.0","event":...,"data":[...]}.
func MarshalEnvelope(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Standard: EventStandard,
		Version:  EventVersion,
		Event:    event.Name,
		Data:     []json.RawMessage{data},
	})
}

// Store persists emitted events. Implementations: in-memory (tests and
// default wiring), log sink (EVENT_JSON lines), Kafka producer.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error)
}
