package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces a committed write to a user's ledger.
// It carries no records; consumers read the snapshot themselves.
type LedgerChangedMessage struct {
	UserID    string    `json:"user_id"`
	Revision  int64     `json:"revision"`
	Months    []string  `json:"months,omitempty"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(userID string, revision int64, operation string, months []string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		UserID:    userID,
		Revision:  revision,
		Months:    months,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
