package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	QuoteCreated       EventType = "quote.created"
	QuoteUpdated       EventType = "quote.updated"
	QuoteStatusChanged EventType = "quote.status_changed"
	QuoteDeleted       EventType = "quote.deleted"
)

// QuoteEvent is a lightweight notification about a quote change.
// Consumers fetch the full quote from the database; Number is carried so
// deletions can still be matched downstream.
type QuoteEvent struct {
	Type      EventType `json:"type"`
	QuoteID   string    `json:"quoteId"`
	Number    string    `json:"number"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewQuoteEvent(eventType EventType, quoteID, number, status string) *QuoteEvent {
	return &QuoteEvent{
		Type:      eventType,
		QuoteID:   quoteID,
		Number:    number,
		Status:    status,
		Timestamp: time.Now(),
	}
}

func (m *QuoteEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// QuoteEventFromJSON decodes and sanity checks an event body.
func QuoteEventFromJSON(data []byte) (*QuoteEvent, error) {
	var msg QuoteEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case QuoteCreated, QuoteUpdated, QuoteStatusChanged, QuoteDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.QuoteID == "" {
		return nil, fmt.Errorf("event without quote id")
	}
	return &msg, nil
}
