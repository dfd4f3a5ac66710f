// Package events publishes ledger mutation events to a message broker so
// downstream consumers (the audit worker, external sync jobs) can observe
// confirmed writes. Publishing is best-effort: a failed publish never
// fails the mutation that triggered it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// Event types, one per confirmed mutation.
const (
	TypeCreated = "transaction.created"
	TypeUpdated = "transaction.updated"
	TypeDeleted = "transaction.deleted"
)

// Event is the broker message emitted after a confirmed mutation.
// Amount travels as a decimal string to avoid float drift in consumers.
type Event struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	OwnerID       string    `json:"owner_id"`
	Kind          string    `json:"kind"`
	Label         string    `json:"label,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Category      string    `json:"category,omitempty"`
	Date          time.Time `json:"date"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher is the port the ledger stores publish through.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewEvent builds an event of the given type from a confirmed record.
func NewEvent(eventType string, t core.Transaction) Event {
	return Event{
		Type:          eventType,
		TransactionID: t.ID,
		OwnerID:       t.OwnerID,
		Kind:          string(t.Kind),
		Label:         t.Label,
		Amount:        t.Amount.String(),
		Category:      t.Category,
		Date:          t.Date,
		Timestamp:     time.Now().UTC(),
	}
}

// NewDeleteEvent builds a deletion event; only the id and owner are known
// to be meaningful once the record is gone.
func NewDeleteEvent(id, ownerID string, kind core.Kind) Event {
	return Event{
		Type:          TypeDeleted,
		TransactionID: id,
		OwnerID:       ownerID,
		Kind:          string(kind),
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to its wire representation.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON parses an event from its wire representation.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
