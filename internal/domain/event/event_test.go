package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	for _, typ := range AllTypes {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if Type("instance.created").IsValid() {
		t.Error("unknown type should be invalid")
	}
	if Type("").IsValid() {
		t.Error("empty type should be invalid")
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeRequestSucceeded, "req-1", "Order", "O-1", map[string]interface{}{"status": "Success"})
	after := time.Now()

	if evt.ID == "" {
		t.Error("expected generated ID")
	}
	if evt.Type != TypeRequestSucceeded {
		t.Errorf("Type = %v, want %v", evt.Type, TypeRequestSucceeded)
	}
	if evt.RequestID != "req-1" || evt.TargetType != "Order" || evt.TargetID != "O-1" {
		t.Errorf("unexpected identity fields: %+v", evt)
	}
	if evt.Timestamp.Before(before) || evt.Timestamp.After(after) {
		t.Errorf("Timestamp %v not within [%v, %v]", evt.Timestamp, before, after)
	}
	if evt.GetPayloadString("status") != "Success" {
		t.Errorf("payload status = %q", evt.GetPayloadString("status"))
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	evt := NewEvent(TypeRequestCreated, "req-1", "Order", "O-1", nil)
	if evt.Payload == nil {
		t.Fatal("payload should be initialised")
	}
}

func TestEvent_WithPayloadIsImmutable(t *testing.T) {
	original := NewEvent(TypeRequestFailed, "req-1", "Order", "O-1", map[string]interface{}{"a": 1})
	modified := original.WithPayload("b", 2)

	if _, ok := original.Payload["b"]; ok {
		t.Error("original payload should not be modified")
	}
	if modified.GetPayloadInt("a") != 1 || modified.GetPayloadInt("b") != 2 {
		t.Errorf("modified payload = %v", modified.Payload)
	}
	if modified.ID != original.ID {
		t.Error("WithPayload should keep the event ID")
	}
}

func TestEvent_WithActor(t *testing.T) {
	original := NewEvent(TypeRequestApproved, "req-1", "Order", "O-1", nil)
	withActor := original.WithActor("manager")

	if original.Actor != "" {
		t.Error("original actor should stay empty")
	}
	if withActor.Actor != "manager" {
		t.Errorf("Actor = %q, want manager", withActor.Actor)
	}
}

func TestEvent_GetPayloadInt(t *testing.T) {
	evt := NewEvent(TypeRequestReverted, "req-1", "Order", "O-1", map[string]interface{}{
		"int":     3,
		"int64":   int64(4),
		"float64": float64(5),
		"string":  "6",
	})

	tests := map[string]int64{"int": 3, "int64": 4, "float64": 5, "string": 0, "missing": 0}
	for key, want := range tests {
		if got := evt.GetPayloadInt(key); got != want {
			t.Errorf("GetPayloadInt(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestEvent_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		evt := NewEvent(TypeRequestCreated, "req", "Order", "O-1", nil)
		if seen[evt.ID] {
			t.Fatalf("duplicate event ID %s", evt.ID)
		}
		seen[evt.ID] = true
	}
}
