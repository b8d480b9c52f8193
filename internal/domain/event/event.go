package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// Event represents a domain event about one business record
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	BusinessType  entity.BusinessType    `json:"business_type"`
	RecordID      int64                  `json:"record_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a fresh ID and correlation chain
func NewEvent(eventType Type, businessType entity.BusinessType, recordID int64, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, businessType, recordID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, businessType entity.BusinessType, recordID int64, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		BusinessType:  businessType,
		RecordID:      recordID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with an added payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	clone := *e
	clone.Payload = newPayload
	return &clone
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if str, ok := e.Payload[key].(string); ok {
		return str
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
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

// GetPayloadIDs retrieves a list of ids from the payload
func (e *Event) GetPayloadIDs(key string) []int64 {
	switch v := e.Payload[key].(type) {
	case []int64:
		return append([]int64(nil), v...)
	case []interface{}:
		ids := make([]int64, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case int64:
				ids = append(ids, n)
			case int:
				ids = append(ids, int64(n))
			case float64:
				ids = append(ids, int64(n))
			}
		}
		return ids
	}
	return nil
}
