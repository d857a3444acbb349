package lifecycle

// Emitter receives in-process notifications after a lifecycle transaction
// commits. The engine bridges these onto its event bus for SSE and the
// line-state cache.
type Emitter interface {
	EmitWorkOrderCreated(workOrderID int64, number, actor string)
	EmitStatusChanged(workOrderID int64, number, oldStatus, newStatus, actor, detail string)
	EmitStageCompleted(workOrderID int64, number, stageCode string, stageIndex int, isComplete bool)
}

// NopEmitter discards all notifications.
type NopEmitter struct{}

func (NopEmitter) EmitWorkOrderCreated(int64, string, string) {}

func (NopEmitter) EmitStatusChanged(int64, string, string, string, string, string) {}

func (NopEmitter) EmitStageCompleted(int64, string, string, int, bool) {}
