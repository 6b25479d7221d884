package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// EventType names a collection mutation.
type EventType string

const (
	EventAdded   EventType = "expense.added"
	EventUpdated EventType = "expense.updated"
	EventRemoved EventType = "expense.removed"
)

func (t EventType) Valid() bool {
	switch t {
	case EventAdded, EventUpdated, EventRemoved:
		return true
	}
	return false
}

// ExpenseEvent describes one mutation of the collection. Index is the
// position the mutation applied to; for removals the record is the one
// that was removed.
type ExpenseEvent struct {
	Type        EventType `json:"type"`
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseEvent(t EventType, index int, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        t,
		Index:       index,
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Date:        e.Date.String(),
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
