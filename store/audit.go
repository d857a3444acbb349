package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type AuditEntry struct {
	ID         int64     `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Before     string    `json:"before"`
	After      string    `json:"after"`
	CreatedAt  time.Time `json:"created_at"`
}

func appendAudit(q querier, actor, action, entityType string, entityID int64, before, after string) error {
	if before == "" {
		before = "{}"
	}
	if after == "" {
		after = "{}"
	}
	_, err := q.Exec(q.Q(`INSERT INTO audit_log (actor, action, entity_type, entity_id, before_json, after_json) VALUES (?, ?, ?, ?, ?, ?)`),
		actor, action, entityType, entityID, before, after)
	return err
}

func (db *DB) AppendAudit(actor, action, entityType string, entityID int64, before, after string) error {
	return appendAudit(db, actor, action, entityType, entityID, before, after)
}
func (t *Tx) AppendAudit(actor, action, entityType string, entityID int64, before, after string) error {
	return appendAudit(t, actor, action, entityType, entityID, before, after)
}

const auditSelectCols = `id, actor, action, entity_type, entity_id, before_json, after_json, created_at`

func scanAuditEntry(row interface{ Scan(...any) error }) (*AuditEntry, error) {
	var e AuditEntry
	var createdAt any
	if err := row.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &e.Before, &e.After, &createdAt); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (db *DB) ListAuditLog(limit int) ([]*AuditEntry, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM audit_log ORDER BY id DESC LIMIT ?`, auditSelectCols)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *DB) ListEntityAudit(entityType string, entityID int64) ([]*AuditEntry, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM audit_log WHERE entity_type=? AND entity_id=? ORDER BY id DESC`, auditSelectCols)), entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestEntityAudit returns the most recent audit entry for an entity with
// the given action, or nil if there is none.
func latestEntityAudit(q querier, action, entityType string, entityID int64) (*AuditEntry, error) {
	row := q.QueryRow(q.Q(fmt.Sprintf(`SELECT %s FROM audit_log WHERE entity_type=? AND entity_id=? AND action=? ORDER BY id DESC LIMIT 1`, auditSelectCols)),
		entityType, entityID, action)
	e, err := scanAuditEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (db *DB) LatestEntityAudit(action, entityType string, entityID int64) (*AuditEntry, error) {
	return latestEntityAudit(db, action, entityType, entityID)
}
func (t *Tx) LatestEntityAudit(action, entityType string, entityID int64) (*AuditEntry, error) {
	return latestEntityAudit(t, action, entityType, entityID)
}
