package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a notification that an update request changed status
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	RequestID  string                 `json:"request_id"`
	TargetType string                 `json:"target_type"`
	TargetID   string                 `json:"target_id"`
	Actor      string                 `json:"actor,omitempty"`
	Payload    map[string]interface{} `json:"payload"`
	Timestamp  time.Time              `json:"timestamp"`
}

// NewEvent creates a domain event with a generated ID and the current time
func NewEvent(eventType Type, requestID, targetType, targetID string, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		RequestID:  requestID,
		TargetType: targetType,
		TargetID:   targetID,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
}

// WithActor returns a copy of the event attributed to actor
func (e *Event) WithActor(actor string) *Event {
	c := *e
	c.Actor = actor
	return &c
}

// WithPayload returns a copy of the event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if str, ok := e.Payload[key].(string); ok {
		return str
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
