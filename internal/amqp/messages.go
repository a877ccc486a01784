package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
)

// LedgerEvent announces a change to a user's ledger. It carries ids only;
// consumers load the current row from the database.
type LedgerEvent struct {
	Kind      EventKind `json:"kind"`
	EntityID  string    `json:"entityId"`
	UserID    string    `json:"userId"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, entityID, userID, month string) *LedgerEvent {
	return &LedgerEvent{
		Kind:      kind,
		EntityID:  entityID,
		UserID:    userID,
		Month:     month,
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.EntityID == "" {
		return nil, fmt.Errorf("event %s without entity id", e.Kind)
	}
	return &e, nil
}
