package amqp

import (
	"encoding/json"
	"time"
)

// DescriptionUsageMessage records that a description was used in an entry.
// Downstream consumers aggregate these into autocomplete suggestions.
type DescriptionUsageMessage struct {
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewDescriptionUsageMessage(description, category string) *DescriptionUsageMessage {
	return &DescriptionUsageMessage{
		Description: description,
		Category:    category,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DescriptionUsageMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func DescriptionUsageMessageFromJSON(data []byte) (*DescriptionUsageMessage, error) {
	var msg DescriptionUsageMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
