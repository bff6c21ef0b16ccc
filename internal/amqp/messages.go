package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RecordChangedMessage announces that the record collection changed.
// It carries no record data; consumers read the current state themselves.
type RecordChangedMessage struct {
	Op        string    `json:"op"`
	RecordID  string    `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordChangedMessage stamps a change notification with the current time.
func NewRecordChangedMessage(op, recordID string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Op:        op,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON parses a message body. A body without an
// operation is rejected.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Op == "" {
		return nil, errors.New("record changed message without op")
	}
	return &msg, nil
}
