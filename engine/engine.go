package engine

import (
	"log"
	"time"

	"hullcore/config"
	"hullcore/lifecycle"
	"hullcore/linestate"
	"hullcore/messaging"
	"hullcore/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	LineState  *linestate.Manager
	MsgClient  *messaging.Client
	LogFunc    LogFunc
	Debug      bool
}

// Engine owns the lifecycle controller and wires its post-commit
// notifications to the line-state cache and the SSE event bus.
type Engine struct {
	cfg          *config.Config
	configPath   string
	db           *store.DB
	controller   *lifecycle.Controller
	lineState    *linestate.Manager
	msgClient    *messaging.Client
	Events       *EventBus
	logFn        LogFunc
	stopChan     chan struct{}
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		lineState:  c.LineState,
		msgClient:  c.MsgClient,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
}

func (e *Engine) Start() {
	// Create the controller with a bus-backed emitter
	e.controller = lifecycle.NewController(e.db, &busEmitter{bus: e.Events}, lifecycle.ControllerConfig{
		Topic:      e.cfg.Messaging.LifecycleTopic,
		PlantID:    e.cfg.Messaging.PlantID,
		StartGrace: e.cfg.Release.StartGrace,
	})

	// Wire event handlers
	e.wireEventHandlers()

	// Emit initial connection status
	e.checkConnectionStatus()

	// Start periodic connection health check
	go e.connectionHealthLoop()

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                     { return e.db }
func (e *Engine) AppConfig() *config.Config         { return e.cfg }
func (e *Engine) ConfigPath() string                { return e.configPath }
func (e *Engine) Controller() *lifecycle.Controller { return e.controller }
func (e *Engine) LineState() *linestate.Manager     { return e.lineState }
func (e *Engine) MsgClient() *messaging.Client      { return e.msgClient }

func (e *Engine) wireEventHandlers() {
	// Any lifecycle transition can move a work order between departments,
	// so refresh the line-state cache after each one.
	e.Events.SubscribeTypes(func(evt Event) {
		trigger := ""
		switch ev := evt.Payload.(type) {
		case WorkOrderCreatedEvent:
			e.logFn("engine: work order %s created by %s", ev.Number, ev.Actor)
			trigger = "created"
		case StatusChangedEvent:
			e.logFn("engine: work order %s %s -> %s (%s)", ev.Number, ev.OldStatus, ev.NewStatus, ev.Actor)
			trigger = "status"
		case StageCompletedEvent:
			e.logFn("engine: work order %s completed stage %s (index %d, final=%v)", ev.Number, ev.StageCode, ev.StageIndex, ev.IsComplete)
			trigger = "stage"
		}
		e.refreshLineState(trigger)
	}, EventWorkOrderCreated, EventStatusChanged, EventStageCompleted)
}

func (e *Engine) refreshLineState(trigger string) {
	if e.lineState == nil {
		return
	}
	if err := e.lineState.Refresh(); err != nil {
		e.logFn("engine: line-state refresh: %v", err)
		return
	}
	e.Events.Emit(Event{Type: EventLineRefreshed, Payload: LineRefreshedEvent{Trigger: trigger}})
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient == nil {
		return
	}
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured")
	}
	e.checkConnectionStatus()
}
