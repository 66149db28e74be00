package fanout

import (
	"encoding/json"
	"fmt"

	"github.com/charleschow/ns-market/internal/events"
)

// Frames on the host push socket are flat JSON objects tagged by "action",
// with the payload fields at the top level:
//
//	{"action":"refresh","buyOrders":[...]}
type frameHeader struct {
	Action string `json:"action"`
}

// MarshalEvent serializes an inbound Event into a host push frame.
func MarshalEvent(evt events.Event) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if evt.Payload != nil {
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("payload for %s is not an object: %w", evt.Type, err)
		}
	}
	action, _ := json.Marshal(string(evt.Type))
	fields["action"] = action
	return json.Marshal(fields)
}

// Action returns the action tag of a frame without decoding the payload.
func Action(data []byte) (string, error) {
	var h frameHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return "", fmt.Errorf("unmarshal frame: %w", err)
	}
	if h.Action == "" {
		return "", fmt.Errorf("frame has no action")
	}
	return h.Action, nil
}

// UnmarshalEvent decodes a host push frame into a typed Event. Unknown
// actions return an error and an Event carrying the raw type.
func UnmarshalEvent(data []byte) (events.Event, error) {
	action, err := Action(data)
	if err != nil {
		return events.Event{}, err
	}

	evt := events.New(events.EventType(action), nil)

	switch evt.Type {
	case events.EventOpen:
		var p events.OpenEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return evt, fmt.Errorf("unmarshal open: %w", err)
		}
		evt.Payload = p
	case events.EventInventoryItems:
		var p events.InventoryEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return evt, fmt.Errorf("unmarshal inventoryItems: %w", err)
		}
		evt.Payload = p
	case events.EventRefresh:
		var p events.RefreshEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return evt, fmt.Errorf("unmarshal refresh: %w", err)
		}
		evt.Payload = p
	case events.EventPickups:
		var p events.PickupsEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return evt, fmt.Errorf("unmarshal pickups: %w", err)
		}
		evt.Payload = p
	case events.EventHistory:
		var p events.HistoryEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return evt, fmt.Errorf("unmarshal history: %w", err)
		}
		evt.Payload = p
	case events.EventClose:
		evt.Payload = events.CloseEvent{}
	case events.EventNotification:
		var p events.NotificationEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return evt, fmt.Errorf("unmarshal notification: %w", err)
		}
		evt.Payload = p
	default:
		return evt, fmt.Errorf("unknown action: %s", action)
	}

	return evt, nil
}
