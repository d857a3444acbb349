package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRoutingFrozen is returned on any attempt to change the stage set of a
// released routing definition.
var ErrRoutingFrozen = errors.New("routing definition is released and frozen")

type RoutingDefinition struct {
	ID         int64      `json:"id"`
	Model      string     `json:"model"`
	TrimLevel  string     `json:"trim_level"`
	Version    int        `json:"version"`
	Status     string     `json:"status"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type RoutingStage struct {
	ID              int64  `json:"id"`
	RoutingID       int64  `json:"routing_id"`
	Sequence        int    `json:"sequence"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Enabled         bool   `json:"enabled"`
	WorkCenterID    int64  `json:"work_center_id"`
	StandardMinutes int    `json:"standard_minutes"`
}

func scanRoutingDefinition(row interface{ Scan(...any) error }) (*RoutingDefinition, error) {
	var rd RoutingDefinition
	var releasedAt, createdAt any
	err := row.Scan(&rd.ID, &rd.Model, &rd.TrimLevel, &rd.Version, &rd.Status, &releasedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	rd.ReleasedAt = parseTimePtr(releasedAt)
	rd.CreatedAt = parseTime(createdAt)
	return &rd, nil
}

const routingSelectCols = `id, model, trim_level, version, status, released_at, created_at`

func (db *DB) CreateRoutingDefinition(rd *RoutingDefinition) error {
	if rd.Status == "" {
		rd.Status = "DRAFT"
	}
	if rd.Version == 0 {
		rd.Version = 1
	}
	err := db.QueryRow(db.Q(`INSERT INTO routing_definitions (model, trim_level, version, status) VALUES (?, ?, ?, ?) RETURNING id`),
		rd.Model, rd.TrimLevel, rd.Version, rd.Status).Scan(&rd.ID)
	if err != nil {
		return fmt.Errorf("create routing definition: %w", err)
	}
	return nil
}

func getRoutingDefinition(q querier, id int64) (*RoutingDefinition, error) {
	row := q.QueryRow(q.Q(fmt.Sprintf(`SELECT %s FROM routing_definitions WHERE id=?`, routingSelectCols)), id)
	return scanRoutingDefinition(row)
}

func (db *DB) GetRoutingDefinition(id int64) (*RoutingDefinition, error) {
	return getRoutingDefinition(db, id)
}
func (t *Tx) GetRoutingDefinition(id int64) (*RoutingDefinition, error) {
	return getRoutingDefinition(t, id)
}

// GetReleasedRouting returns the highest released version for a model/trim.
func (db *DB) GetReleasedRouting(model, trimLevel string) (*RoutingDefinition, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM routing_definitions WHERE model=? AND trim_level=? AND status='RELEASED' ORDER BY version DESC LIMIT 1`, routingSelectCols)),
		model, trimLevel)
	return scanRoutingDefinition(row)
}

func (db *DB) ListRoutingDefinitions() ([]*RoutingDefinition, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM routing_definitions ORDER BY model, trim_level, version DESC`, routingSelectCols)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []*RoutingDefinition
	for rows.Next() {
		rd, err := scanRoutingDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, rd)
	}
	return defs, rows.Err()
}

// ReleaseRoutingDefinition freezes a draft. The transition is monotonic:
// releasing twice, or releasing a definition with no stages, is an error.
func (db *DB) ReleaseRoutingDefinition(id int64) error {
	return db.WithTx(func(tx *Tx) error {
		rd, err := tx.GetRoutingDefinition(id)
		if err != nil {
			return err
		}
		if rd.Status != "DRAFT" {
			return fmt.Errorf("routing definition %d is %s, only drafts can be released", id, rd.Status)
		}
		var stageCount int
		if err := tx.QueryRow(tx.Q(`SELECT COUNT(*) FROM routing_stages WHERE routing_id=?`), id).Scan(&stageCount); err != nil {
			return err
		}
		if stageCount == 0 {
			return fmt.Errorf("routing definition %d has no stages", id)
		}
		_, err = tx.Exec(tx.Q(`UPDATE routing_definitions SET status='RELEASED', released_at=datetime('now','localtime') WHERE id=?`), id)
		return err
	})
}

// CloneRoutingDefinition copies a definition and its stages into a new draft
// with the next version number for the same model/trim.
func (db *DB) CloneRoutingDefinition(id int64) (*RoutingDefinition, error) {
	src, err := db.GetRoutingDefinition(id)
	if err != nil {
		return nil, err
	}
	var maxVersion int
	if err := db.QueryRow(db.Q(`SELECT COALESCE(MAX(version), 0) FROM routing_definitions WHERE model=? AND trim_level=?`),
		src.Model, src.TrimLevel).Scan(&maxVersion); err != nil {
		return nil, err
	}
	clone := &RoutingDefinition{Model: src.Model, TrimLevel: src.TrimLevel, Version: maxVersion + 1, Status: "DRAFT"}
	err = db.WithTx(func(tx *Tx) error {
		if err := tx.QueryRow(tx.Q(`INSERT INTO routing_definitions (model, trim_level, version, status) VALUES (?, ?, ?, 'DRAFT') RETURNING id`),
			clone.Model, clone.TrimLevel, clone.Version).Scan(&clone.ID); err != nil {
			return fmt.Errorf("clone routing definition: %w", err)
		}
		_, err := tx.Exec(tx.Q(`INSERT INTO routing_stages (routing_id, sequence, code, name, enabled, work_center_id, standard_minutes) SELECT ?, sequence, code, name, enabled, work_center_id, standard_minutes FROM routing_stages WHERE routing_id=?`),
			clone.ID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

func (db *DB) requireDraft(routingID int64) error {
	rd, err := db.GetRoutingDefinition(routingID)
	if err != nil {
		return err
	}
	if rd.Status != "DRAFT" {
		return ErrRoutingFrozen
	}
	return nil
}

func (db *DB) CreateRoutingStage(s *RoutingStage) error {
	if err := db.requireDraft(s.RoutingID); err != nil {
		return err
	}
	err := db.QueryRow(db.Q(`INSERT INTO routing_stages (routing_id, sequence, code, name, enabled, work_center_id, standard_minutes) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		s.RoutingID, s.Sequence, s.Code, s.Name, s.Enabled, s.WorkCenterID, s.StandardMinutes).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create routing stage: %w", err)
	}
	return nil
}

func (db *DB) UpdateRoutingStage(s *RoutingStage) error {
	if err := db.requireDraft(s.RoutingID); err != nil {
		return err
	}
	_, err := db.Exec(db.Q(`UPDATE routing_stages SET sequence=?, code=?, name=?, enabled=?, work_center_id=?, standard_minutes=? WHERE id=? AND routing_id=?`),
		s.Sequence, s.Code, s.Name, s.Enabled, s.WorkCenterID, s.StandardMinutes, s.ID, s.RoutingID)
	return err
}

func (db *DB) DeleteRoutingStage(routingID, stageID int64) error {
	if err := db.requireDraft(routingID); err != nil {
		return err
	}
	_, err := db.Exec(db.Q(`DELETE FROM routing_stages WHERE id=? AND routing_id=?`), stageID, routingID)
	return err
}

const stageSelectCols = `id, routing_id, sequence, code, name, enabled, work_center_id, standard_minutes`

func scanRoutingStages(rows *sql.Rows) ([]*RoutingStage, error) {
	var stages []*RoutingStage
	for rows.Next() {
		var s RoutingStage
		if err := rows.Scan(&s.ID, &s.RoutingID, &s.Sequence, &s.Code, &s.Name, &s.Enabled, &s.WorkCenterID, &s.StandardMinutes); err != nil {
			return nil, err
		}
		stages = append(stages, &s)
	}
	return stages, rows.Err()
}

func listRoutingStages(q querier, routingID int64) ([]*RoutingStage, error) {
	rows, err := q.Query(q.Q(fmt.Sprintf(`SELECT %s FROM routing_stages WHERE routing_id=? ORDER BY sequence`, stageSelectCols)), routingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoutingStages(rows)
}

func (db *DB) ListRoutingStages(routingID int64) ([]*RoutingStage, error) {
	return listRoutingStages(db, routingID)
}
func (t *Tx) ListRoutingStages(routingID int64) ([]*RoutingStage, error) {
	return listRoutingStages(t, routingID)
}
