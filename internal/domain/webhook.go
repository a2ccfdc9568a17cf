package domain

import "time"

// Events a party can subscribe to.
const (
	EventTradeExecuted  = "trade.executed"
	EventOrderCancelled = "order.cancelled"
	EventSessionCleared = "session.cleared"
)

// ValidEvent reports whether event is a known subscription event.
func ValidEvent(event string) bool {
	switch event {
	case EventTradeExecuted, EventOrderCancelled, EventSessionCleared:
		return true
	}
	return false
}

// Webhook represents a party's subscription to an event notification.
type Webhook struct {
	WebhookID string
	PartyID   string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
