package amqp

import (
	"encoding/json"
	"time"
)

const (
	TypeListCompleted = "list.completed"
	TypeBudgetAlert   = "budget.alert"
)

// Message is the envelope shared by all list events. It is deliberately
// lightweight: consumers fetch the full list from the database, so a stale
// message never exports stale data.
type Message struct {
	Type      string    `json:"type"`
	ListID    int64     `json:"list_id"`
	UserID    int64     `json:"user_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	// BudgetPercentTenths is set only on budget.alert messages.
	BudgetPercentTenths int64 `json:"budget_percent_tenths,omitempty"`
}

// NewListCompletedMessage announces that a list reached the completed state
// and is ready for ledger export.
func NewListCompletedMessage(listID, userID, version int64) *Message {
	return &Message{
		Type:      TypeListCompleted,
		ListID:    listID,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewBudgetAlertMessage announces that a list's spend crossed the owner's
// alert threshold.
func NewBudgetAlertMessage(listID, userID, version, percentTenths int64) *Message {
	return &Message{
		Type:                TypeBudgetAlert,
		ListID:              listID,
		UserID:              userID,
		Version:             version,
		BudgetPercentTenths: percentTenths,
		Timestamp:           time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON creates a message from JSON bytes
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
