package engine

import "testing"

func TestEventBusSubscribeAndEmit(t *testing.T) {
	bus := NewEventBus()

	var all, filtered int
	bus.Subscribe(func(Event) { all++ })
	id := bus.SubscribeTypes(func(evt Event) {
		filtered++
		if _, ok := evt.Payload.(StatusChangedEvent); !ok {
			t.Errorf("payload = %T, want StatusChangedEvent", evt.Payload)
		}
	}, EventStatusChanged)

	bus.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{Number: "WO-1001"}})
	bus.Emit(Event{Type: EventWorkOrderCreated, Payload: WorkOrderCreatedEvent{Number: "WO-1001"}})

	if all != 2 {
		t.Errorf("all = %d, want 2", all)
	}
	if filtered != 1 {
		t.Errorf("filtered = %d, want 1", filtered)
	}

	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{}})
	if filtered != 1 {
		t.Errorf("filtered after unsubscribe = %d, want 1", filtered)
	}
	if all != 3 {
		t.Errorf("all = %d, want 3", all)
	}
}

func TestEventBusTimestampDefault(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe(func(evt Event) {
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not defaulted")
		}
	})
	bus.Emit(Event{Type: EventLineRefreshed, Payload: LineRefreshedEvent{Trigger: "status"}})
}

func TestBusEmitterBridgesLifecycleEvents(t *testing.T) {
	bus := NewEventBus()
	var got []EventType
	bus.Subscribe(func(evt Event) { got = append(got, evt.Type) })

	em := &busEmitter{bus: bus}
	em.EmitWorkOrderCreated(1, "WO-1001", "admin")
	em.EmitStatusChanged(1, "WO-1001", "PLANNED", "RELEASED", "admin", "")
	em.EmitStageCompleted(1, "WO-1001", "KITTING", 0, false)

	want := []EventType{EventWorkOrderCreated, EventStatusChanged, EventStageCompleted}
	if len(got) != len(want) {
		t.Fatalf("events = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
