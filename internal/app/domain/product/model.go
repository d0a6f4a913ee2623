// Package product defines the supply-chain product model and the closed set
// of lifecycle event types.
package product

import (
	"encoding/json"
	"fmt"
)

// Product is a tracked supply-chain item. Manufacturer never changes after
// creation; Owner changes only through a Received event.
type Product struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	Manufacturer string `json:"manufacturer"`
	Metadata     string `json:"metadata"`
	// CreatedAt is the creation instant in milliseconds since the epoch.
	CreatedAt  int64 `json:"created_at"`
	EventCount int64 `json:"event_count"`
}

// EventType classifies a lifecycle event. The set is closed: switching over
// it exhaustively is what makes the Received-transfers-ownership rule
// checkable at compile time.
type EventType int32

const (
	// EventUnknown indicates an unparsable event type.
	EventUnknown EventType = iota

	// EventCreated marks manufacture of the product.
	EventCreated

	// EventShipped marks departure from the current location.
	EventShipped

	// EventInTransit marks the product as being transported.
	EventInTransit

	// EventReceived marks receipt of the product and transfers ownership
	// to the acting identity.
	EventReceived

	// EventInspected marks a quality inspection.
	EventInspected

	// EventVerified marks official verification or certification.
	EventVerified

	// EventDelivered marks delivery to the final destination.
	EventDelivered
)

// EventTypes lists every valid event type in lifecycle order.
func EventTypes() []EventType {
	return []EventType{
		EventCreated,
		EventShipped,
		EventInTransit,
		EventReceived,
		EventInspected,
		EventVerified,
		EventDelivered,
	}
}

// String returns the canonical name of the event type.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "Created"
	case EventShipped:
		return "Shipped"
	case EventInTransit:
		return "InTransit"
	case EventReceived:
		return "Received"
	case EventInspected:
		return "Inspected"
	case EventVerified:
		return "Verified"
	case EventDelivered:
		return "Delivered"
	default:
		return fmt.Sprintf("event(%d)", t)
	}
}

// Valid reports whether the event type is a member of the closed set.
func (t EventType) Valid() bool {
	return t >= EventCreated && t <= EventDelivered
}

// TransfersOwnership reports whether applying this event reassigns the
// product owner to the acting identity. Receipt implies acceptance; every
// other type is an informational checkpoint.
func (t EventType) TransfersOwnership() bool {
	return t == EventReceived
}

// ParseEventType converts a canonical name to an EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "Created":
		return EventCreated, nil
	case "Shipped":
		return EventShipped, nil
	case "InTransit":
		return EventInTransit, nil
	case "Received":
		return EventReceived, nil
	case "Inspected":
		return EventInspected, nil
	case "Verified":
		return EventVerified, nil
	case "Delivered":
		return EventDelivered, nil
	default:
		return EventUnknown, fmt.Errorf("unknown event type %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *EventType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEventType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Event is a lifecycle transition applied to a product. Events are transient:
// only their effect on the product record is kept.
type Event struct {
	ProductID string    `json:"product_id"`
	Type      EventType `json:"event_type"`
	Actor     string    `json:"actor"`
	// Timestamp is milliseconds since the epoch.
	Timestamp int64 `json:"timestamp"`
}
