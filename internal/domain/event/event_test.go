package event

import (
	"testing"
	"time"

	"github.com/garyjia/ops-approval/internal/domain/entity"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"submitted", TypeRecordSubmitted, true},
		{"advanced", TypeRecordAdvanced, true},
		{"completed", TypeRecordCompleted, true},
		{"cancelled", TypeRecordCancelled, true},
		{"unknown type", Type("unknown.type"), false},
		{"empty string", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeRecordSubmitted, entity.BusinessTypeReimbursement, 123, map[string]interface{}{
		PayloadApprovers: []int64{7, 8},
	})

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if evt.CorrelationID == "" || evt.CorrelationID == evt.ID {
		t.Errorf("Event CorrelationID = %q, want a distinct non-empty id", evt.CorrelationID)
	}
	if evt.BusinessType != entity.BusinessTypeReimbursement {
		t.Errorf("Event BusinessType = %v, want %v", evt.BusinessType, entity.BusinessTypeReimbursement)
	}
	if evt.RecordID != 123 {
		t.Errorf("Event RecordID = %v, want %v", evt.RecordID, 123)
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	evt := NewEvent(TypeRecordCompleted, entity.BusinessTypeAssetRequest, 1, nil)
	if evt.Payload == nil {
		t.Fatal("Payload should be initialised")
	}
	if got := evt.GetPayloadString(PayloadStatus); got != "" {
		t.Errorf("GetPayloadString() = %q, want empty", got)
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeRecordAdvanced, entity.BusinessTypeAssetRequest, 9, nil, "chain-1")
	if evt.CorrelationID != "chain-1" {
		t.Errorf("Event CorrelationID = %v, want chain-1", evt.CorrelationID)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeRecordCompleted, entity.BusinessTypeReimbursement, 1, map[string]interface{}{
		PayloadStatus: "approved",
	})

	modified := original.WithPayload(PayloadActorID, int64(5))

	if _, exists := original.Payload[PayloadActorID]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.GetPayloadString(PayloadStatus) != "approved" {
		t.Error("Modified event should retain original payload")
	}
	if modified.GetPayloadInt(PayloadActorID) != 5 {
		t.Error("Modified event should have new payload")
	}
	if modified.ID != original.ID || modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should keep identity")
	}
}

func TestEvent_GetPayloadIDs(t *testing.T) {
	evt := NewEvent(TypeRecordSubmitted, entity.BusinessTypeReimbursement, 1, map[string]interface{}{
		"typed":   []int64{1, 2},
		"decoded": []interface{}{float64(3), 4, int64(5), "x"},
		"scalar":  int64(6),
	})

	tests := []struct {
		key  string
		want []int64
	}{
		{"typed", []int64{1, 2}},
		{"decoded", []int64{3, 4, 5}},
		{"scalar", nil},
		{"missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := evt.GetPayloadIDs(tt.key)
			if len(got) != len(tt.want) {
				t.Fatalf("GetPayloadIDs(%s) = %v, want %v", tt.key, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("GetPayloadIDs(%s)[%d] = %v, want %v", tt.key, i, got[i], tt.want[i])
				}
			}
		})
	}
}
