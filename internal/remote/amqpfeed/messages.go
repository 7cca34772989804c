package amqpfeed

import (
	"encoding/json"
	"time"
)

// StateChangedMessage announces that a user's remote document was rewritten.
// It carries only the revision; subscribers fetch the full document from the
// document store.
type StateChangedMessage struct {
	UserID    string    `json:"userId"`
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStateChangedMessage(userID string, revision int64) *StateChangedMessage {
	return &StateChangedMessage{
		UserID:    userID,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *StateChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StateChangedMessageFromJSON(data []byte) (*StateChangedMessage, error) {
	var msg StateChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
