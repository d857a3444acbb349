package engine

// busEmitter bridges lifecycle commit notifications onto the EventBus.
type busEmitter struct {
	bus *EventBus
}

func (e *busEmitter) EmitWorkOrderCreated(workOrderID int64, number, actor string) {
	e.bus.Emit(Event{Type: EventWorkOrderCreated, Payload: WorkOrderCreatedEvent{
		WorkOrderID: workOrderID,
		Number:      number,
		Actor:       actor,
	}})
}

func (e *busEmitter) EmitStatusChanged(workOrderID int64, number, oldStatus, newStatus, actor, detail string) {
	e.bus.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{
		WorkOrderID: workOrderID,
		Number:      number,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		Actor:       actor,
		Detail:      detail,
	}})
}

func (e *busEmitter) EmitStageCompleted(workOrderID int64, number, stageCode string, stageIndex int, isComplete bool) {
	e.bus.Emit(Event{Type: EventStageCompleted, Payload: StageCompletedEvent{
		WorkOrderID: workOrderID,
		Number:      number,
		StageCode:   stageCode,
		StageIndex:  stageIndex,
		IsComplete:  isComplete,
	}})
}
