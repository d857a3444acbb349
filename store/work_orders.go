package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrStaleWorkOrder is returned when a mutation loses an optimistic
// concurrency race: the row was updated by someone else after it was read.
var ErrStaleWorkOrder = errors.New("work order was modified concurrently")

type WorkOrder struct {
	ID                int64      `json:"id"`
	Number            string     `json:"number"`
	HullID            string     `json:"hull_id"`
	ProductSKU        string     `json:"product_sku"`
	Quantity          int        `json:"quantity"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	PreviousStatus    string     `json:"previous_status,omitempty"`
	RoutingID         int64      `json:"routing_id"`
	CurrentStageIndex int        `json:"current_stage_index"`
	PlannedStart      *time.Time `json:"planned_start,omitempty"`
	PlannedFinish     *time.Time `json:"planned_finish,omitempty"`
	SpecSnapshot      string     `json:"spec_snapshot"`
	RowVersion        int        `json:"row_version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

const workOrderSelectCols = `id, number, hull_id, product_sku, quantity, priority, status, previous_status, routing_id, current_stage_index, planned_start, planned_finish, spec_snapshot, row_version, created_at, updated_at, completed_at`

func scanWorkOrder(row interface{ Scan(...any) error }) (*WorkOrder, error) {
	var wo WorkOrder
	var plannedStart, plannedFinish, createdAt, updatedAt, completedAt any
	err := row.Scan(&wo.ID, &wo.Number, &wo.HullID, &wo.ProductSKU, &wo.Quantity,
		&wo.Priority, &wo.Status, &wo.PreviousStatus, &wo.RoutingID, &wo.CurrentStageIndex,
		&plannedStart, &plannedFinish, &wo.SpecSnapshot, &wo.RowVersion,
		&createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	wo.PlannedStart = parseTimePtr(plannedStart)
	wo.PlannedFinish = parseTimePtr(plannedFinish)
	wo.CreatedAt = parseTime(createdAt)
	wo.UpdatedAt = parseTime(updatedAt)
	wo.CompletedAt = parseTimePtr(completedAt)
	return &wo, nil
}

func scanWorkOrders(rows *sql.Rows) ([]*WorkOrder, error) {
	var orders []*WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, wo)
	}
	return orders, rows.Err()
}

func createWorkOrder(q querier, wo *WorkOrder) error {
	plannedStart := bindTimePtr(wo.PlannedStart)
	plannedFinish := bindTimePtr(wo.PlannedFinish)
	err := q.QueryRow(q.Q(`INSERT INTO work_orders (number, hull_id, product_sku, quantity, priority, status, routing_id, current_stage_index, planned_start, planned_finish, spec_snapshot) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		wo.Number, wo.HullID, wo.ProductSKU, wo.Quantity, wo.Priority, wo.Status,
		wo.RoutingID, wo.CurrentStageIndex, plannedStart, plannedFinish, wo.SpecSnapshot).Scan(&wo.ID)
	if err != nil {
		return fmt.Errorf("create work order: %w", err)
	}
	wo.RowVersion = 1
	return nil
}

func (db *DB) CreateWorkOrder(wo *WorkOrder) error { return createWorkOrder(db, wo) }
func (t *Tx) CreateWorkOrder(wo *WorkOrder) error  { return createWorkOrder(t, wo) }

func getWorkOrder(q querier, id int64) (*WorkOrder, error) {
	row := q.QueryRow(q.Q(fmt.Sprintf(`SELECT %s FROM work_orders WHERE id=?`, workOrderSelectCols)), id)
	return scanWorkOrder(row)
}

func (db *DB) GetWorkOrder(id int64) (*WorkOrder, error) { return getWorkOrder(db, id) }
func (t *Tx) GetWorkOrder(id int64) (*WorkOrder, error)  { return getWorkOrder(t, id) }

func (db *DB) GetWorkOrderByNumber(number string) (*WorkOrder, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM work_orders WHERE number=?`, workOrderSelectCols)), number)
	return scanWorkOrder(row)
}

func (db *DB) ListWorkOrders(status string, limit int) ([]*WorkOrder, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM work_orders WHERE status=? ORDER BY id DESC LIMIT ?`, workOrderSelectCols)), status, limit)
	} else {
		rows, err = db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM work_orders ORDER BY id DESC LIMIT ?`, workOrderSelectCols)), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkOrders(rows)
}

// ListActiveWorkOrders returns orders still on the production line.
func (db *DB) ListActiveWorkOrders() ([]*WorkOrder, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM work_orders WHERE status IN ('RELEASED', 'IN_PROGRESS', 'HOLD') ORDER BY id`, workOrderSelectCols)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkOrders(rows)
}

// StateUpdate carries the mutable lifecycle fields written on a transition.
type StateUpdate struct {
	Status            string
	PreviousStatus    string
	CurrentStageIndex int
	CompletedAt       *time.Time
}

// applyStateUpdate writes a lifecycle transition guarded by the row version
// read at the start of the transaction. Zero rows affected means a
// concurrent writer got there first.
func applyStateUpdate(q querier, id int64, rowVersion int, u StateUpdate) error {
	completedAt := bindTimePtr(u.CompletedAt)
	res, err := q.Exec(q.Q(`UPDATE work_orders SET status=?, previous_status=?, current_stage_index=?, completed_at=?, row_version=row_version+1, updated_at=datetime('now','localtime') WHERE id=? AND row_version=?`),
		u.Status, u.PreviousStatus, u.CurrentStageIndex, completedAt, id, rowVersion)
	if err != nil {
		return fmt.Errorf("update work order state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleWorkOrder
	}
	return nil
}

func (t *Tx) ApplyStateUpdate(id int64, rowVersion int, u StateUpdate) error {
	return applyStateUpdate(t, id, rowVersion, u)
}

// FieldUpdate carries the administratively editable work-order fields.
type FieldUpdate struct {
	HullID        string
	ProductSKU    string
	Quantity      int
	Priority      string
	PlannedStart  *time.Time
	PlannedFinish *time.Time
}

func applyFieldUpdate(q querier, id int64, rowVersion int, u FieldUpdate) error {
	plannedStart := bindTimePtr(u.PlannedStart)
	plannedFinish := bindTimePtr(u.PlannedFinish)
	res, err := q.Exec(q.Q(`UPDATE work_orders SET hull_id=?, product_sku=?, quantity=?, priority=?, planned_start=?, planned_finish=?, row_version=row_version+1, updated_at=datetime('now','localtime') WHERE id=? AND row_version=?`),
		u.HullID, u.ProductSKU, u.Quantity, u.Priority, plannedStart, plannedFinish, id, rowVersion)
	if err != nil {
		return fmt.Errorf("update work order fields: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleWorkOrder
	}
	return nil
}

func (t *Tx) ApplyFieldUpdate(id int64, rowVersion int, u FieldUpdate) error {
	return applyFieldUpdate(t, id, rowVersion, u)
}

func (t *Tx) UpdateSpecSnapshot(id int64, rowVersion int, snapshot string) error {
	res, err := t.Exec(t.Q(`UPDATE work_orders SET spec_snapshot=?, row_version=row_version+1, updated_at=datetime('now','localtime') WHERE id=? AND row_version=?`),
		snapshot, id, rowVersion)
	if err != nil {
		return fmt.Errorf("update spec snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleWorkOrder
	}
	return nil
}
