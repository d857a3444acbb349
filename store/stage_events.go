package store

import (
	"fmt"
	"time"
)

type StageEvent struct {
	ID             int64     `json:"id"`
	EventUUID      string    `json:"event_uuid"`
	WorkOrderID    int64     `json:"work_order_id"`
	RoutingStageID int64     `json:"routing_stage_id"`
	StationID      *int64    `json:"station_id,omitempty"`
	Actor          string    `json:"actor"`
	Kind           string    `json:"kind"`
	GoodQty        int       `json:"good_qty"`
	ScrapQty       int       `json:"scrap_qty"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func appendStageEvent(q querier, e *StageEvent) error {
	var stationID any
	if e.StationID != nil {
		stationID = *e.StationID
	}
	err := q.QueryRow(q.Q(`INSERT INTO stage_events (event_uuid, work_order_id, routing_stage_id, station_id, actor, kind, good_qty, scrap_qty, note) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		e.EventUUID, e.WorkOrderID, e.RoutingStageID, stationID, e.Actor, e.Kind, e.GoodQty, e.ScrapQty, e.Note).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("append stage event: %w", err)
	}
	return nil
}

func (db *DB) AppendStageEvent(e *StageEvent) error { return appendStageEvent(db, e) }
func (t *Tx) AppendStageEvent(e *StageEvent) error  { return appendStageEvent(t, e) }

const stageEventSelectCols = `id, event_uuid, work_order_id, routing_stage_id, station_id, actor, kind, good_qty, scrap_qty, note, created_at`

func (db *DB) ListStageEvents(workOrderID int64) ([]*StageEvent, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM stage_events WHERE work_order_id=? ORDER BY created_at, id`, stageEventSelectCols)), workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*StageEvent
	for rows.Next() {
		var e StageEvent
		var stationID any
		var createdAt any
		if err := rows.Scan(&e.ID, &e.EventUUID, &e.WorkOrderID, &e.RoutingStageID, &stationID,
			&e.Actor, &e.Kind, &e.GoodQty, &e.ScrapQty, &e.Note, &createdAt); err != nil {
			return nil, err
		}
		if id, ok := stationID.(int64); ok {
			e.StationID = &id
		}
		e.CreatedAt = parseTime(createdAt)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// LastStageEvent returns the newest event for a work order, or nil if none.
func (db *DB) LastStageEvent(workOrderID int64) (*StageEvent, error) {
	var e StageEvent
	var stationID any
	var createdAt any
	err := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM stage_events WHERE work_order_id=? ORDER BY created_at DESC, id DESC LIMIT 1`, stageEventSelectCols)), workOrderID).
		Scan(&e.ID, &e.EventUUID, &e.WorkOrderID, &e.RoutingStageID, &stationID,
			&e.Actor, &e.Kind, &e.GoodQty, &e.ScrapQty, &e.Note, &createdAt)
	if err != nil {
		return nil, err
	}
	if id, ok := stationID.(int64); ok {
		e.StationID = &id
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}
