package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EntrySyncMessage asks the worker to push one recorded batch of ledger
// rows to Google Sheets. The rows themselves are read from SQLite.
type EntrySyncMessage struct {
	BatchID   string    `json:"batch_id"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(batchID string, rows int) *EntrySyncMessage {
	return &EntrySyncMessage{
		BatchID:   batchID,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntrySyncMessageFromJSON decodes a message; a missing batch ID is an error.
func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BatchID == "" {
		return nil, errors.New("missing batch_id")
	}
	return &msg, nil
}
