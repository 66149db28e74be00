package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope that flows through the event bus.
// Host pushes and outbound command intents are both wrapped in one.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Host → panel actions. Values match the "action" tag on the wire.
	EventOpen           EventType = "open"
	EventInventoryItems EventType = "inventoryItems"
	EventRefresh        EventType = "refresh"
	EventPickups        EventType = "pickups"
	EventHistory        EventType = "history"
	EventClose          EventType = "close"
	EventNotification   EventType = "notification"

	// Panel → host command intents.
	EventCommand EventType = "command"

	// Host bridge connect/disconnect.
	EventHostStatus EventType = "host_status"
)

// InboundActions lists every action the host may push, in protocol order.
var InboundActions = []EventType{
	EventOpen,
	EventInventoryItems,
	EventRefresh,
	EventPickups,
	EventHistory,
	EventClose,
	EventNotification,
}

// New wraps payload in an Event with a fresh ID and the current time.
func New(t EventType, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
