package store

import (
	"fmt"
	"time"
)

type WorkOrderVersion struct {
	ID            int64     `json:"id"`
	WorkOrderID   int64     `json:"work_order_id"`
	VersionNumber int       `json:"version_number"`
	Snapshot      string    `json:"snapshot"`
	Reason        string    `json:"reason"`
	Actor         string    `json:"actor"`
	CreatedAt     time.Time `json:"created_at"`
}

// InsertVersion assigns the next gapless version number for the work order
// and writes the snapshot. Callers never supply the number; it is computed
// as max+1 inside the same transaction as the triggering mutation.
func (t *Tx) InsertVersion(v *WorkOrderVersion) error {
	var maxVersion int
	if err := t.QueryRow(t.Q(`SELECT COALESCE(MAX(version_number), 0) FROM work_order_versions WHERE work_order_id=?`), v.WorkOrderID).Scan(&maxVersion); err != nil {
		return fmt.Errorf("next version number: %w", err)
	}
	v.VersionNumber = maxVersion + 1
	err := t.QueryRow(t.Q(`INSERT INTO work_order_versions (work_order_id, version_number, snapshot, reason, actor) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		v.WorkOrderID, v.VersionNumber, v.Snapshot, v.Reason, v.Actor).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

const versionSelectCols = `id, work_order_id, version_number, snapshot, reason, actor, created_at`

func getVersion(q querier, workOrderID, versionID int64) (*WorkOrderVersion, error) {
	var v WorkOrderVersion
	var createdAt any
	err := q.QueryRow(q.Q(fmt.Sprintf(`SELECT %s FROM work_order_versions WHERE id=? AND work_order_id=?`, versionSelectCols)), versionID, workOrderID).
		Scan(&v.ID, &v.WorkOrderID, &v.VersionNumber, &v.Snapshot, &v.Reason, &v.Actor, &createdAt)
	if err != nil {
		return nil, err
	}
	v.CreatedAt = parseTime(createdAt)
	return &v, nil
}

func (db *DB) GetVersion(workOrderID, versionID int64) (*WorkOrderVersion, error) {
	return getVersion(db, workOrderID, versionID)
}
func (t *Tx) GetVersion(workOrderID, versionID int64) (*WorkOrderVersion, error) {
	return getVersion(t, workOrderID, versionID)
}

func (db *DB) ListVersions(workOrderID int64) ([]*WorkOrderVersion, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM work_order_versions WHERE work_order_id=? ORDER BY version_number`, versionSelectCols)), workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var versions []*WorkOrderVersion
	for rows.Next() {
		var v WorkOrderVersion
		var createdAt any
		if err := rows.Scan(&v.ID, &v.WorkOrderID, &v.VersionNumber, &v.Snapshot, &v.Reason, &v.Actor, &createdAt); err != nil {
			return nil, err
		}
		v.CreatedAt = parseTime(createdAt)
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}
