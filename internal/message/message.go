// Package message defines the agent message envelope exchanged between
// runtime components, with JSON round-trip helpers.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AgentMessage is a routed message between two agents.
type AgentMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// New creates a message stamped with the current time. The identifier
// is generated when empty.
func New(id, sender, recipient, content string) AgentMessage {
	if id == "" {
		id = uuid.New().String()
	}
	return AgentMessage{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Timestamp: time.Now().Unix(),
	}
}

// ToJSON serializes the message.
func (m AgentMessage) ToJSON() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("serialize message: %w", err)
	}
	return string(data), nil
}

// FromJSON deserializes a message.
func FromJSON(data string) (AgentMessage, error) {
	var m AgentMessage
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return AgentMessage{}, fmt.Errorf("deserialize message: %w", err)
	}
	return m, nil
}
