package lifecycle

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hullcore/messaging"
	"hullcore/store"
)

// Controller orchestrates every work-order lifecycle operation. Each
// operation validates authorization and the state machine, then applies the
// transition together with its stage event, version snapshot, audit entries
// and outbox notification in a single store transaction. The emitter fires
// only after the transaction commits.
type Controller struct {
	db         *store.DB
	emitter    Emitter
	topic      string
	plantID    string
	startGrace time.Duration
	now        func() time.Time
}

type ControllerConfig struct {
	Topic   string
	PlantID string
	// StartGrace is how far in the past a planned start date may lie at
	// release time. Defaults to 24h.
	StartGrace time.Duration
}

func NewController(db *store.DB, emitter Emitter, cfg ControllerConfig) *Controller {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	grace := cfg.StartGrace
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	return &Controller{
		db:         db,
		emitter:    emitter,
		topic:      cfg.Topic,
		plantID:    cfg.PlantID,
		startGrace: grace,
		now:        time.Now,
	}
}

// --- shared helpers ---

func loadWorkOrder(tx *store.Tx, id int64) (*store.WorkOrder, error) {
	wo, err := tx.GetWorkOrder(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return wo, nil
}

// fragment renders a before/after audit fragment. An unencodable value
// degrades to the empty fragment rather than failing the transaction.
func fragment(fields map[string]any) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}

var plannedDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parsePlannedDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range plannedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, &ValidationError{Field: field, Detail: "unrecognized date format"}
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// resolveStage loads the routing stages and resolves the work order's
// current stage and its owning department.
func resolveStage(tx *store.Tx, wo *store.WorkOrder) (*store.RoutingStage, int64, error) {
	stages, err := tx.ListRoutingStages(wo.RoutingID)
	if err != nil {
		return nil, 0, err
	}
	stage, ok := CurrentStage(stages, wo.CurrentStageIndex)
	if !ok {
		return nil, 0, ErrNoCurrentStage
	}
	wc, err := tx.GetWorkCenter(stage.WorkCenterID)
	if err != nil {
		return nil, 0, err
	}
	return stage, wc.DepartmentID, nil
}

// validateStation checks that the station exists, is active and belongs to
// the current stage's work center.
func validateStation(tx *store.Tx, stationID int64, stage *store.RoutingStage) error {
	if stationID == 0 {
		return &ValidationError{Field: "station_id", Detail: "station is required"}
	}
	st, err := tx.GetStation(stationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidStation
		}
		return err
	}
	if !st.Active || st.WorkCenterID != stage.WorkCenterID {
		return ErrInvalidStation
	}
	return nil
}

func (c *Controller) enqueueNotice(tx *store.Tx, msgType string, payload any) error {
	if c.topic == "" {
		return nil
	}
	env := messaging.NewEnvelope(msgType, c.plantID, payload)
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return tx.EnqueueOutbox(c.topic, data, msgType, c.plantID)
}

// recordVersion snapshots the work order's current in-memory state. Callers
// update wo before calling so the snapshot reflects the post-transition
// values inside the same transaction.
func (c *Controller) recordVersion(tx *store.Tx, wo *store.WorkOrder, reason, actor string) (int, error) {
	rd, err := tx.GetRoutingDefinition(wo.RoutingID)
	if err != nil {
		return 0, err
	}
	stages, err := tx.ListRoutingStages(wo.RoutingID)
	if err != nil {
		return 0, err
	}
	snap, err := buildSnapshot(wo, rd, stages)
	if err != nil {
		return 0, err
	}
	v := &store.WorkOrderVersion{WorkOrderID: wo.ID, Snapshot: snap, Reason: reason, Actor: actor}
	if err := tx.InsertVersion(v); err != nil {
		return 0, err
	}
	return v.VersionNumber, nil
}

// --- operations ---

// Create makes a new PLANNED work order against a released routing
// definition, freezing the product spec snapshot at creation time.
func (c *Controller) Create(actor Actor, req CreateRequest) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Number) == "" {
		return nil, &ValidationError{Field: "number", Detail: "work order number is required"}
	}
	if strings.TrimSpace(req.HullID) == "" {
		return nil, &ValidationError{Field: "hull_id", Detail: "hull identifier is required"}
	}
	if strings.TrimSpace(req.ProductSKU) == "" {
		return nil, &ValidationError{Field: "product_sku", Detail: "product SKU is required"}
	}
	if req.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Detail: "quantity must be positive"}
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !validPriority(priority) {
		return nil, &ValidationError{Field: "priority", Detail: "unknown priority"}
	}
	plannedStart, err := parsePlannedDate("planned_start", req.PlannedStart)
	if err != nil {
		return nil, err
	}
	plannedFinish, err := parsePlannedDate("planned_finish", req.PlannedFinish)
	if err != nil {
		return nil, err
	}

	var wo *store.WorkOrder
	var versionNumber int
	err = c.db.WithTx(func(tx *store.Tx) error {
		rd, err := tx.GetRoutingDefinition(req.RoutingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &ValidationError{Field: "routing_id", Detail: "routing definition not found"}
			}
			return err
		}
		if rd.Status != RoutingReleased {
			return &ValidationError{Field: "routing_id", Detail: "routing definition is not released"}
		}
		stages, err := tx.ListRoutingStages(rd.ID)
		if err != nil {
			return err
		}
		spec, err := buildSpecSnapshot(req.ProductSKU, rd, stages)
		if err != nil {
			return err
		}
		wo = &store.WorkOrder{
			Number:        req.Number,
			HullID:        req.HullID,
			ProductSKU:    req.ProductSKU,
			Quantity:      req.Quantity,
			Priority:      priority,
			Status:        StatusPlanned,
			RoutingID:     rd.ID,
			PlannedStart:  plannedStart,
			PlannedFinish: plannedFinish,
			SpecSnapshot:  spec,
		}
		if err := tx.CreateWorkOrder(wo); err != nil {
			return err
		}
		versionNumber, err = c.recordVersion(tx, wo, "Created", actor.ID)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(actor.ID, "CREATE", "work_order", wo.ID, "",
			fragment(map[string]any{"status": StatusPlanned, "number": wo.Number})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgWorkOrderCreated, messaging.WorkOrderCreatedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			HullID:      wo.HullID,
			ProductSKU:  wo.ProductSKU,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitWorkOrderCreated(wo.ID, wo.Number, actor.ID)
	return &Result{
		Success:       true,
		Message:       "work order created",
		WorkOrderID:   wo.ID,
		Number:        wo.Number,
		Status:        wo.Status,
		VersionNumber: versionNumber,
	}, nil
}

// Release moves PLANNED to RELEASED after validating the planned dates and
// refreshing the spec snapshot from the routing definition.
func (c *Controller) Release(actor Actor, id int64) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	var wo *store.WorkOrder
	var versionNumber int
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if err := checkRelease(wo.Status); err != nil {
			return err
		}
		if wo.PlannedStart == nil || wo.PlannedFinish == nil {
			return &ValidationError{Field: "planned_start", Detail: "planned start and finish dates are required for release"}
		}
		if !wo.PlannedStart.Before(*wo.PlannedFinish) {
			return &ValidationError{Field: "planned_start", Detail: "planned start date must be before planned finish date"}
		}
		// Boundary inclusive: a start exactly at now-grace is accepted.
		if wo.PlannedStart.Before(c.now().Add(-c.startGrace)) {
			return &ValidationError{Field: "planned_start", Detail: "planned start date is more than 1 day in the past"}
		}
		rd, err := tx.GetRoutingDefinition(wo.RoutingID)
		if err != nil {
			return fmt.Errorf("resolve routing definition: %w", err)
		}
		stages, err := tx.ListRoutingStages(rd.ID)
		if err != nil {
			return err
		}
		if len(EnabledStages(stages)) == 0 {
			return &ValidationError{Field: "routing_id", Detail: "routing definition has no enabled stages"}
		}
		spec, err := buildSpecSnapshot(wo.ProductSKU, rd, stages)
		if err != nil {
			return err
		}
		if err := tx.UpdateSpecSnapshot(wo.ID, wo.RowVersion, spec); err != nil {
			return err
		}
		wo.SpecSnapshot = spec
		wo.RowVersion++

		prev := wo.Status
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            StatusReleased,
			PreviousStatus:    prev,
			CurrentStageIndex: wo.CurrentStageIndex,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = prev
		wo.Status = StatusReleased
		wo.RowVersion++

		versionNumber, err = c.recordVersion(tx, wo, "Released", actor.ID)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(actor.ID, "RELEASE", "work_order", wo.ID,
			fragment(map[string]any{"status": prev}),
			fragment(map[string]any{"status": StatusReleased})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   prev,
			NewStatus:   StatusReleased,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStatusChanged(wo.ID, wo.Number, StatusPlanned, StatusReleased, actor.ID, "")
	return &Result{
		Success:       true,
		Message:       "work order released",
		WorkOrderID:   wo.ID,
		Number:        wo.Number,
		Status:        wo.Status,
		StageIndex:    wo.CurrentStageIndex,
		VersionNumber: versionNumber,
	}, nil
}

// Start records a START event at the current stage. A RELEASED order moves
// to IN_PROGRESS; starting an order already IN_PROGRESS logs the event but
// changes nothing else.
func (c *Controller) Start(actor Actor, req StageRequest) (*Result, error) {
	var wo *store.WorkOrder
	var stage *store.RoutingStage
	var changed bool
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, req.WorkOrderID)
		if err != nil {
			return err
		}
		var deptID int64
		stage, deptID, err = resolveStage(tx, wo)
		if err != nil {
			return err
		}
		if err := canActAtStage(actor, req.SelectedDepartmentID, deptID); err != nil {
			return err
		}
		if err := checkStageWork("start", wo.Status); err != nil {
			return err
		}
		if err := validateStation(tx, req.StationID, stage); err != nil {
			return err
		}
		if err := tx.AppendStageEvent(&store.StageEvent{
			EventUUID:      uuid.New().String(),
			WorkOrderID:    wo.ID,
			RoutingStageID: stage.ID,
			StationID:      &req.StationID,
			Actor:          actor.ID,
			Kind:           EventStart,
			Note:           req.Note,
		}); err != nil {
			return err
		}
		if wo.Status != StatusReleased {
			return nil
		}
		prev := wo.Status
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            StatusInProgress,
			PreviousStatus:    prev,
			CurrentStageIndex: wo.CurrentStageIndex,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = prev
		wo.Status = StatusInProgress
		wo.RowVersion++
		changed = true
		if err := tx.AppendAudit(actor.ID, "START", "work_order", wo.ID,
			fragment(map[string]any{"status": prev}),
			fragment(map[string]any{"status": StatusInProgress, "stage": stage.Code})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   prev,
			NewStatus:   StatusInProgress,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	if changed {
		c.emitter.EmitStatusChanged(wo.ID, wo.Number, StatusReleased, StatusInProgress, actor.ID, stage.Code)
	}
	return &Result{
		Success:     true,
		Message:     fmt.Sprintf("started %s", stage.Code),
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		Status:      wo.Status,
		StageIndex:  wo.CurrentStageIndex,
	}, nil
}

// Pause records a PAUSE event at the current stage and puts the order on
// hold, remembering the status it interrupted.
func (c *Controller) Pause(actor Actor, req StageRequest) (*Result, error) {
	var wo *store.WorkOrder
	var stage *store.RoutingStage
	var prev string
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, req.WorkOrderID)
		if err != nil {
			return err
		}
		var deptID int64
		stage, deptID, err = resolveStage(tx, wo)
		if err != nil {
			return err
		}
		if err := canActAtStage(actor, req.SelectedDepartmentID, deptID); err != nil {
			return err
		}
		if err := checkPause(wo.Status); err != nil {
			return err
		}
		if err := validateStation(tx, req.StationID, stage); err != nil {
			return err
		}
		if err := tx.AppendStageEvent(&store.StageEvent{
			EventUUID:      uuid.New().String(),
			WorkOrderID:    wo.ID,
			RoutingStageID: stage.ID,
			StationID:      &req.StationID,
			Actor:          actor.ID,
			Kind:           EventPause,
			Note:           req.Note,
		}); err != nil {
			return err
		}
		prev = wo.Status
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            StatusHold,
			PreviousStatus:    prev,
			CurrentStageIndex: wo.CurrentStageIndex,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = prev
		wo.Status = StatusHold
		wo.RowVersion++
		if err := tx.AppendAudit(actor.ID, "PAUSE", "work_order", wo.ID,
			fragment(map[string]any{"status": prev}),
			fragment(map[string]any{"status": StatusHold, "previousStatus": prev, "stage": stage.Code})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   prev,
			NewStatus:   StatusHold,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStatusChanged(wo.ID, wo.Number, prev, StatusHold, actor.ID, stage.Code)
	return &Result{
		Success:        true,
		Message:        fmt.Sprintf("paused at %s", stage.Code),
		WorkOrderID:    wo.ID,
		Number:         wo.Number,
		Status:         wo.Status,
		StageIndex:     wo.CurrentStageIndex,
		PreviousStatus: prev,
	}, nil
}

// Complete records a COMPLETE event at the current stage. A non-final stage
// advances the index by one and sets the order back to RELEASED for the next
// stage's pickup; completing the final stage sets COMPLETED with the index
// unchanged.
func (c *Controller) Complete(actor Actor, req StageRequest) (*Result, error) {
	if req.GoodQty < 0 || req.ScrapQty < 0 {
		return nil, &ValidationError{Field: "good_qty", Detail: "quantities cannot be negative"}
	}
	var wo *store.WorkOrder
	var stage *store.RoutingStage
	var final bool
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, req.WorkOrderID)
		if err != nil {
			return err
		}
		stages, err := tx.ListRoutingStages(wo.RoutingID)
		if err != nil {
			return err
		}
		var ok bool
		stage, ok = CurrentStage(stages, wo.CurrentStageIndex)
		if !ok {
			return ErrNoCurrentStage
		}
		wc, err := tx.GetWorkCenter(stage.WorkCenterID)
		if err != nil {
			return err
		}
		if err := canActAtStage(actor, req.SelectedDepartmentID, wc.DepartmentID); err != nil {
			return err
		}
		if err := checkStageWork("complete", wo.Status); err != nil {
			return err
		}
		if err := validateStation(tx, req.StationID, stage); err != nil {
			return err
		}
		if err := tx.AppendStageEvent(&store.StageEvent{
			EventUUID:      uuid.New().String(),
			WorkOrderID:    wo.ID,
			RoutingStageID: stage.ID,
			StationID:      &req.StationID,
			Actor:          actor.ID,
			Kind:           EventComplete,
			GoodQty:        req.GoodQty,
			ScrapQty:       req.ScrapQty,
			Note:           req.Note,
		}); err != nil {
			return err
		}

		prev := wo.Status
		prevIndex := wo.CurrentStageIndex
		final = isFinalStage(stages, wo.CurrentStageIndex)
		update := store.StateUpdate{CurrentStageIndex: wo.CurrentStageIndex, PreviousStatus: prev}
		if final {
			completedAt := c.now()
			update.Status = StatusCompleted
			update.CompletedAt = &completedAt
			wo.CompletedAt = &completedAt
		} else {
			update.Status = StatusReleased
			update.CurrentStageIndex = wo.CurrentStageIndex + 1
		}
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, update); err != nil {
			return err
		}
		wo.PreviousStatus = prev
		wo.Status = update.Status
		wo.CurrentStageIndex = update.CurrentStageIndex
		wo.RowVersion++
		if err := tx.AppendAudit(actor.ID, "COMPLETE", "work_order", wo.ID,
			fragment(map[string]any{"status": prev, "stageIndex": prevIndex}),
			fragment(map[string]any{"status": wo.Status, "stageIndex": wo.CurrentStageIndex, "stage": stage.Code})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStageCompleted, messaging.StageCompletedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			StageCode:   stage.Code,
			StageIndex:  prevIndex,
			GoodQty:     req.GoodQty,
			ScrapQty:    req.ScrapQty,
			IsComplete:  final,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStageCompleted(wo.ID, wo.Number, stage.Code, wo.CurrentStageIndex, final)
	msg := fmt.Sprintf("completed %s", stage.Code)
	if final {
		msg = "work order completed"
	}
	return &Result{
		Success:     true,
		Message:     msg,
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		Status:      wo.Status,
		StageIndex:  wo.CurrentStageIndex,
		IsComplete:  final,
	}, nil
}

// Hold is the administrative hold: no station context, reason required.
func (c *Controller) Hold(actor Actor, id int64, reason string) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "reason", Detail: "hold reason is required"}
	}
	var wo *store.WorkOrder
	var prev string
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if err := checkHold(wo.Status); err != nil {
			return err
		}
		prev = wo.Status
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            StatusHold,
			PreviousStatus:    prev,
			CurrentStageIndex: wo.CurrentStageIndex,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = prev
		wo.Status = StatusHold
		wo.RowVersion++
		if err := tx.AppendAudit(actor.ID, "HOLD", "work_order", wo.ID,
			fragment(map[string]any{"status": prev}),
			fragment(map[string]any{"status": StatusHold, "reason": reason, "previousStatus": prev})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   prev,
			NewStatus:   StatusHold,
			Reason:      reason,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStatusChanged(wo.ID, wo.Number, prev, StatusHold, actor.ID, reason)
	return &Result{
		Success:        true,
		Message:        "work order placed on hold",
		WorkOrderID:    wo.ID,
		Number:         wo.Number,
		Status:         wo.Status,
		StageIndex:     wo.CurrentStageIndex,
		PreviousStatus: prev,
	}, nil
}

// Unhold restores the status the hold interrupted. The stored
// previous_status column is authoritative; the audit trail is a fallback
// for rows written before the column existed, and RELEASED is the default
// when neither source knows.
func (c *Controller) Unhold(actor Actor, id int64) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	var wo *store.WorkOrder
	var target string
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if err := checkUnhold(wo.Status); err != nil {
			return err
		}
		target = wo.PreviousStatus
		if target == "" || target == StatusHold {
			target, err = holdInterruptedStatus(tx, wo.ID)
			if err != nil {
				return err
			}
		}
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            target,
			PreviousStatus:    StatusHold,
			CurrentStageIndex: wo.CurrentStageIndex,
			CompletedAt:       wo.CompletedAt,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = StatusHold
		wo.Status = target
		wo.RowVersion++
		if err := tx.AppendAudit(actor.ID, "UNHOLD", "work_order", wo.ID,
			fragment(map[string]any{"status": StatusHold}),
			fragment(map[string]any{"status": target})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   StatusHold,
			NewStatus:   target,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStatusChanged(wo.ID, wo.Number, StatusHold, target, actor.ID, "")
	return &Result{
		Success:     true,
		Message:     "hold released",
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		Status:      wo.Status,
		StageIndex:  wo.CurrentStageIndex,
	}, nil
}

// holdInterruptedStatus reads the most recent HOLD audit entry and returns
// its recorded previousStatus, defaulting to RELEASED.
func holdInterruptedStatus(tx *store.Tx, workOrderID int64) (string, error) {
	entry, err := tx.LatestEntityAudit("HOLD", "work_order", workOrderID)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return StatusReleased, nil
	}
	var after struct {
		PreviousStatus string `json:"previousStatus"`
	}
	if err := json.Unmarshal([]byte(entry.After), &after); err != nil || after.PreviousStatus == "" {
		return StatusReleased, nil
	}
	return after.PreviousStatus, nil
}

// Cancel moves any non-completed, non-closed order to CANCELLED.
func (c *Controller) Cancel(actor Actor, id int64, reason string) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	var wo *store.WorkOrder
	var prev string
	var versionNumber int
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if err := checkCancel(wo.Status); err != nil {
			return err
		}
		prev = wo.Status
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            StatusCancelled,
			PreviousStatus:    prev,
			CurrentStageIndex: wo.CurrentStageIndex,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = prev
		wo.Status = StatusCancelled
		wo.RowVersion++
		versionNumber, err = c.recordVersion(tx, wo, "Cancelled", actor.ID)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(actor.ID, "CANCEL", "work_order", wo.ID,
			fragment(map[string]any{"status": prev}),
			fragment(map[string]any{"status": StatusCancelled, "reason": reason})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   prev,
			NewStatus:   StatusCancelled,
			Reason:      reason,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStatusChanged(wo.ID, wo.Number, prev, StatusCancelled, actor.ID, reason)
	return &Result{
		Success:       true,
		Message:       "work order cancelled",
		WorkOrderID:   wo.ID,
		Number:        wo.Number,
		Status:        wo.Status,
		StageIndex:    wo.CurrentStageIndex,
		VersionNumber: versionNumber,
	}, nil
}

// Uncancel returns a CANCELLED order to PLANNED.
func (c *Controller) Uncancel(actor Actor, id int64) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	var wo *store.WorkOrder
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if err := checkUncancel(wo.Status); err != nil {
			return err
		}
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            StatusPlanned,
			PreviousStatus:    StatusCancelled,
			CurrentStageIndex: wo.CurrentStageIndex,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = StatusCancelled
		wo.Status = StatusPlanned
		wo.RowVersion++
		if err := tx.AppendAudit(actor.ID, "UNCANCEL", "work_order", wo.ID,
			fragment(map[string]any{"status": StatusCancelled}),
			fragment(map[string]any{"status": StatusPlanned})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   StatusCancelled,
			NewStatus:   StatusPlanned,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStatusChanged(wo.ID, wo.Number, StatusCancelled, StatusPlanned, actor.ID, "")
	return &Result{
		Success:     true,
		Message:     "work order restored to planned",
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		Status:      wo.Status,
		StageIndex:  wo.CurrentStageIndex,
	}, nil
}

// Close archives a COMPLETED or CANCELLED order. Admin only.
func (c *Controller) Close(actor Actor, id int64) (*Result, error) {
	if !validRole(actor.Role) {
		return nil, ErrUnauthorized
	}
	if actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	var wo *store.WorkOrder
	var prev string
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if err := checkClose(wo.Status); err != nil {
			return err
		}
		prev = wo.Status
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            StatusClosed,
			PreviousStatus:    prev,
			CurrentStageIndex: wo.CurrentStageIndex,
			CompletedAt:       wo.CompletedAt,
		}); err != nil {
			return err
		}
		wo.PreviousStatus = prev
		wo.Status = StatusClosed
		wo.RowVersion++
		if err := tx.AppendAudit(actor.ID, "CLOSE", "work_order", wo.ID,
			fragment(map[string]any{"status": prev}),
			fragment(map[string]any{"status": StatusClosed})); err != nil {
			return err
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   prev,
			NewStatus:   StatusClosed,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	c.emitter.EmitStatusChanged(wo.ID, wo.Number, prev, StatusClosed, actor.ID, "")
	return &Result{
		Success:     true,
		Message:     "work order closed",
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		Status:      wo.Status,
	}, nil
}

// UpdateFields edits the administratively mutable fields. Hull, SKU and
// quantity are frozen once the order is active; priority and planned dates
// may change until the order is closed. One audit entry per changed field.
func (c *Controller) UpdateFields(actor Actor, id int64, req UpdateRequest) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Detail: "quantity must be positive"}
	}
	if req.Priority != nil && !validPriority(*req.Priority) {
		return nil, &ValidationError{Field: "priority", Detail: "unknown priority"}
	}
	var newStart, newFinish *time.Time
	var err error
	if req.PlannedStart != nil {
		if newStart, err = parsePlannedDate("planned_start", *req.PlannedStart); err != nil {
			return nil, err
		}
	}
	if req.PlannedFinish != nil {
		if newFinish, err = parsePlannedDate("planned_finish", *req.PlannedFinish); err != nil {
			return nil, err
		}
	}

	var wo *store.WorkOrder
	var versionNumber int
	var changedFields []string
	err = c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if wo.Status == StatusClosed {
			return &TransitionError{Action: "update", From: wo.Status}
		}
		identityChange := (req.HullID != nil && *req.HullID != wo.HullID) ||
			(req.ProductSKU != nil && *req.ProductSKU != wo.ProductSKU) ||
			(req.Quantity != nil && *req.Quantity != wo.Quantity)
		if identityChange && !identityFieldsMutable(wo.Status) {
			return &TransitionError{Action: "update", From: wo.Status,
				Reason: "hull, SKU and quantity are frozen once a work order is active"}
		}

		u := store.FieldUpdate{
			HullID:        wo.HullID,
			ProductSKU:    wo.ProductSKU,
			Quantity:      wo.Quantity,
			Priority:      wo.Priority,
			PlannedStart:  wo.PlannedStart,
			PlannedFinish: wo.PlannedFinish,
		}
		type change struct {
			field         string
			before, after any
		}
		var changes []change
		if req.HullID != nil && *req.HullID != wo.HullID {
			changes = append(changes, change{"hull_id", wo.HullID, *req.HullID})
			u.HullID = *req.HullID
		}
		if req.ProductSKU != nil && *req.ProductSKU != wo.ProductSKU {
			changes = append(changes, change{"product_sku", wo.ProductSKU, *req.ProductSKU})
			u.ProductSKU = *req.ProductSKU
		}
		if req.Quantity != nil && *req.Quantity != wo.Quantity {
			changes = append(changes, change{"quantity", wo.Quantity, *req.Quantity})
			u.Quantity = *req.Quantity
		}
		if req.Priority != nil && *req.Priority != wo.Priority {
			changes = append(changes, change{"priority", wo.Priority, *req.Priority})
			u.Priority = *req.Priority
		}
		if req.PlannedStart != nil && !timePtrEqual(newStart, wo.PlannedStart) {
			changes = append(changes, change{"planned_start", wo.PlannedStart, newStart})
			u.PlannedStart = newStart
		}
		if req.PlannedFinish != nil && !timePtrEqual(newFinish, wo.PlannedFinish) {
			changes = append(changes, change{"planned_finish", wo.PlannedFinish, newFinish})
			u.PlannedFinish = newFinish
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.ApplyFieldUpdate(wo.ID, wo.RowVersion, u); err != nil {
			return err
		}
		wo.HullID = u.HullID
		wo.ProductSKU = u.ProductSKU
		wo.Quantity = u.Quantity
		wo.Priority = u.Priority
		wo.PlannedStart = u.PlannedStart
		wo.PlannedFinish = u.PlannedFinish
		wo.RowVersion++

		for _, ch := range changes {
			changedFields = append(changedFields, ch.field)
			if err := tx.AppendAudit(actor.ID, "UPDATE", "work_order", wo.ID,
				fragment(map[string]any{ch.field: ch.before}),
				fragment(map[string]any{ch.field: ch.after})); err != nil {
				return err
			}
		}
		versionNumber, err = c.recordVersion(tx, wo, "Updated: "+strings.Join(changedFields, ", "), actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	msg := "work order updated"
	if len(changedFields) == 0 {
		msg = "no changes"
	}
	return &Result{
		Success:       true,
		Message:       msg,
		WorkOrderID:   wo.ID,
		Number:        wo.Number,
		Status:        wo.Status,
		StageIndex:    wo.CurrentStageIndex,
		VersionNumber: versionNumber,
	}, nil
}

// CreateVersion takes a manual snapshot of the work order's current state.
func (c *Controller) CreateVersion(actor Actor, id int64, reason string) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Manual snapshot"
	}
	var wo *store.WorkOrder
	var versionNumber int
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, id)
		if err != nil {
			return err
		}
		versionNumber, err = c.recordVersion(tx, wo, reason, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Success:       true,
		Message:       "version created",
		WorkOrderID:   wo.ID,
		Number:        wo.Number,
		Status:        wo.Status,
		VersionNumber: versionNumber,
	}, nil
}

// Restore overwrites the work order's mutable fields from a recorded
// version, then records a new forward version. History is never rewritten.
func (c *Controller) Restore(actor Actor, workOrderID, versionID int64) (*Result, error) {
	if err := requireManage(actor); err != nil {
		return nil, err
	}
	var wo *store.WorkOrder
	var prev string
	var versionNumber int
	err := c.db.WithTx(func(tx *store.Tx) error {
		var err error
		wo, err = loadWorkOrder(tx, workOrderID)
		if err != nil {
			return err
		}
		v, err := tx.GetVersion(wo.ID, versionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		snap, err := decodeSnapshot(v.Snapshot)
		if err != nil {
			return err
		}
		prev = wo.Status

		if err := tx.ApplyFieldUpdate(wo.ID, wo.RowVersion, store.FieldUpdate{
			HullID:        snap.HullID,
			ProductSKU:    snap.ProductSKU,
			Quantity:      snap.Quantity,
			Priority:      snap.Priority,
			PlannedStart:  snap.PlannedStart,
			PlannedFinish: snap.PlannedFinish,
		}); err != nil {
			return err
		}
		wo.RowVersion++
		if err := tx.ApplyStateUpdate(wo.ID, wo.RowVersion, store.StateUpdate{
			Status:            snap.Status,
			PreviousStatus:    snap.PreviousStatus,
			CurrentStageIndex: snap.CurrentStageIndex,
			CompletedAt:       snap.CompletedAt,
		}); err != nil {
			return err
		}
		wo.HullID = snap.HullID
		wo.ProductSKU = snap.ProductSKU
		wo.Quantity = snap.Quantity
		wo.Priority = snap.Priority
		wo.PlannedStart = snap.PlannedStart
		wo.PlannedFinish = snap.PlannedFinish
		wo.Status = snap.Status
		wo.PreviousStatus = snap.PreviousStatus
		wo.CurrentStageIndex = snap.CurrentStageIndex
		wo.CompletedAt = snap.CompletedAt
		wo.RowVersion++

		versionNumber, err = c.recordVersion(tx, wo,
			fmt.Sprintf("Restored from version %d", v.VersionNumber), actor.ID)
		if err != nil {
			return err
		}
		if err := tx.AppendAudit(actor.ID, "RESTORE", "work_order", wo.ID,
			fragment(map[string]any{"status": prev}),
			fragment(map[string]any{"status": snap.Status, "restoredFrom": v.VersionNumber})); err != nil {
			return err
		}
		if snap.Status == prev {
			return nil
		}
		return c.enqueueNotice(tx, messaging.MsgStatusChanged, messaging.StatusChangedNotice{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			OldStatus:   prev,
			NewStatus:   snap.Status,
			Actor:       actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	if wo.Status != prev {
		c.emitter.EmitStatusChanged(wo.ID, wo.Number, prev, wo.Status, actor.ID, "restore")
	}
	return &Result{
		Success:       true,
		Message:       "work order restored",
		WorkOrderID:   wo.ID,
		Number:        wo.Number,
		Status:        wo.Status,
		StageIndex:    wo.CurrentStageIndex,
		VersionNumber: versionNumber,
	}, nil
}

// GetWorkOrder is the gated single-order read: operators only see orders
// whose current stage belongs to their department.
func (c *Controller) GetWorkOrder(actor Actor, id int64) (*store.WorkOrder, error) {
	if !validRole(actor.Role) {
		return nil, ErrUnauthorized
	}
	wo, err := c.db.GetWorkOrder(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if capabilitiesFor(actor.Role).ActAnyDepartment {
		return wo, nil
	}
	stages, err := c.db.ListRoutingStages(wo.RoutingID)
	if err != nil {
		return nil, err
	}
	stage, ok := CurrentStage(stages, wo.CurrentStageIndex)
	if !ok {
		return nil, ErrNoCurrentStage
	}
	wc, err := c.db.GetWorkCenter(stage.WorkCenterID)
	if err != nil {
		return nil, err
	}
	if err := canActAtStage(actor, nil, wc.DepartmentID); err != nil {
		return nil, err
	}
	return wo, nil
}
