package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
)

var ErrInvalidEvent = errors.New("invalid transaction event")

// TransactionEvent announces a change to one owner's month. It carries no
// amounts: the consumer reloads the month from the store.
type TransactionEvent struct {
	Event         EventType `json:"event"`
	OwnerID       string    `json:"owner_id"`
	TransactionID string    `json:"transaction_id"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent stamps the event with the current time.
func NewTransactionEvent(event EventType, ownerID, transactionID string, year, month int) *TransactionEvent {
	return &TransactionEvent{
		Event:         event,
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Year:          year,
		Month:         month,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionEvent) Validate() error {
	if m.Event != EventTransactionCreated && m.Event != EventTransactionDeleted {
		return ErrInvalidEvent
	}
	if m.OwnerID == "" || m.Year < 1 || m.Month < 1 || m.Month > 12 {
		return ErrInvalidEvent
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates a message body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
