package store

import (
	"database/sql"
	"fmt"
	"time"
)

type Department struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

type WorkCenter struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DepartmentID int64     `json:"department_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type Station struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	WorkCenterID int64     `json:"work_center_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Departments ---

func (db *DB) CreateDepartment(d *Department) error {
	err := db.QueryRow(db.Q(`INSERT INTO departments (name, code) VALUES (?, ?) RETURNING id`), d.Name, d.Code).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

func (db *DB) GetDepartment(id int64) (*Department, error) {
	var d Department
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT id, name, code, created_at FROM departments WHERE id=?`), id).
		Scan(&d.ID, &d.Name, &d.Code, &createdAt)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func (db *DB) ListDepartments() ([]*Department, error) {
	rows, err := db.Query(db.Q(`SELECT id, name, code, created_at FROM departments ORDER BY name`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var depts []*Department
	for rows.Next() {
		var d Department
		var createdAt any
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &createdAt); err != nil {
			return nil, err
		}
		d.CreatedAt = parseTime(createdAt)
		depts = append(depts, &d)
	}
	return depts, rows.Err()
}

// --- Work centers ---

func (db *DB) CreateWorkCenter(wc *WorkCenter) error {
	err := db.QueryRow(db.Q(`INSERT INTO work_centers (name, department_id) VALUES (?, ?) RETURNING id`), wc.Name, wc.DepartmentID).Scan(&wc.ID)
	if err != nil {
		return fmt.Errorf("create work center: %w", err)
	}
	return nil
}

func getWorkCenter(q querier, id int64) (*WorkCenter, error) {
	var wc WorkCenter
	var createdAt any
	err := q.QueryRow(q.Q(`SELECT id, name, department_id, created_at FROM work_centers WHERE id=?`), id).
		Scan(&wc.ID, &wc.Name, &wc.DepartmentID, &createdAt)
	if err != nil {
		return nil, err
	}
	wc.CreatedAt = parseTime(createdAt)
	return &wc, nil
}

func (db *DB) GetWorkCenter(id int64) (*WorkCenter, error) { return getWorkCenter(db, id) }
func (t *Tx) GetWorkCenter(id int64) (*WorkCenter, error)  { return getWorkCenter(t, id) }

func (db *DB) ListWorkCenters() ([]*WorkCenter, error) {
	rows, err := db.Query(db.Q(`SELECT id, name, department_id, created_at FROM work_centers ORDER BY name`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var centers []*WorkCenter
	for rows.Next() {
		var wc WorkCenter
		var createdAt any
		if err := rows.Scan(&wc.ID, &wc.Name, &wc.DepartmentID, &createdAt); err != nil {
			return nil, err
		}
		wc.CreatedAt = parseTime(createdAt)
		centers = append(centers, &wc)
	}
	return centers, rows.Err()
}

// --- Stations ---

func (db *DB) CreateStation(s *Station) error {
	err := db.QueryRow(db.Q(`INSERT INTO stations (name, work_center_id, active) VALUES (?, ?, ?) RETURNING id`), s.Name, s.WorkCenterID, s.Active).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create station: %w", err)
	}
	return nil
}

func getStation(q querier, id int64) (*Station, error) {
	var s Station
	var createdAt any
	err := q.QueryRow(q.Q(`SELECT id, name, work_center_id, active, created_at FROM stations WHERE id=?`), id).
		Scan(&s.ID, &s.Name, &s.WorkCenterID, &s.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (db *DB) GetStation(id int64) (*Station, error) { return getStation(db, id) }
func (t *Tx) GetStation(id int64) (*Station, error)  { return getStation(t, id) }

func (db *DB) ListStations(workCenterID int64) ([]*Station, error) {
	var rows *sql.Rows
	var err error
	if workCenterID != 0 {
		rows, err = db.Query(db.Q(`SELECT id, name, work_center_id, active, created_at FROM stations WHERE work_center_id=? ORDER BY name`), workCenterID)
	} else {
		rows, err = db.Query(db.Q(`SELECT id, name, work_center_id, active, created_at FROM stations ORDER BY name`))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stations []*Station
	for rows.Next() {
		var s Station
		var createdAt any
		if err := rows.Scan(&s.ID, &s.Name, &s.WorkCenterID, &s.Active, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTime(createdAt)
		stations = append(stations, &s)
	}
	return stations, rows.Err()
}

func (db *DB) SetStationActive(id int64, active bool) error {
	_, err := db.Exec(db.Q(`UPDATE stations SET active=? WHERE id=?`), active, id)
	return err
}

// StationDepartment resolves the owning department of a station through its
// work center.
func stationDepartment(q querier, stationID int64) (int64, error) {
	var deptID int64
	err := q.QueryRow(q.Q(`SELECT wc.department_id FROM stations s JOIN work_centers wc ON wc.id = s.work_center_id WHERE s.id=?`), stationID).Scan(&deptID)
	return deptID, err
}

func (db *DB) StationDepartment(stationID int64) (int64, error) {
	return stationDepartment(db, stationID)
}
func (t *Tx) StationDepartment(stationID int64) (int64, error) {
	return stationDepartment(t, stationID)
}
