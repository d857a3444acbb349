package engine

const (
	EventWorkOrderCreated EventType = iota + 1
	EventStatusChanged
	EventStageCompleted
	EventLineRefreshed
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type WorkOrderCreatedEvent struct {
	WorkOrderID int64
	Number      string
	Actor       string
}

type StatusChangedEvent struct {
	WorkOrderID int64
	Number      string
	OldStatus   string
	NewStatus   string
	Actor       string
	Detail      string
}

type StageCompletedEvent struct {
	WorkOrderID int64
	Number      string
	StageCode   string
	StageIndex  int
	IsComplete  bool
}

type LineRefreshedEvent struct {
	Trigger string
}

type ConnectionEvent struct {
	Detail string
}
