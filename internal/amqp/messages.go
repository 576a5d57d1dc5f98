package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrMissingUserID = errors.New("message without user id")

// TransactionsChangedMessage announces that a user's transaction list changed.
// It carries no record data; consumers reload from the store.
type TransactionsChangedMessage struct {
	UserID    string    `json:"uid"`
	Origin    string    `json:"origin"` // instance that performed the write
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionsChangedMessage(uid, origin string) *TransactionsChangedMessage {
	return &TransactionsChangedMessage{
		UserID:    uid,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionsChangedMessageFromJSON decodes and checks a message body.
func TransactionsChangedMessageFromJSON(data []byte) (*TransactionsChangedMessage, error) {
	var msg TransactionsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, ErrMissingUserID
	}
	return &msg, nil
}
