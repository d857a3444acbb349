package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"hullcore/config"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFacility creates a department, work center and active station.
func seedFacility(t *testing.T, db *DB, deptCode string) (*Department, *WorkCenter, *Station) {
	t.Helper()
	dept := &Department{Name: deptCode + " Dept", Code: deptCode}
	if err := db.CreateDepartment(dept); err != nil {
		t.Fatalf("create department: %v", err)
	}
	wc := &WorkCenter{Name: deptCode + " Center", DepartmentID: dept.ID}
	if err := db.CreateWorkCenter(wc); err != nil {
		t.Fatalf("create work center: %v", err)
	}
	st := &Station{Name: deptCode + "-01", WorkCenterID: wc.ID, Active: true}
	if err := db.CreateStation(st); err != nil {
		t.Fatalf("create station: %v", err)
	}
	return dept, wc, st
}

// --- Facilities ---

func TestFacilitiesCRUD(t *testing.T) {
	db := testDB(t)

	dept, wc, st := seedFacility(t, db, "LAM")
	if dept.ID == 0 || wc.ID == 0 || st.ID == 0 {
		t.Fatal("IDs should be assigned")
	}

	got, err := db.GetDepartment(dept.ID)
	if err != nil {
		t.Fatalf("get department: %v", err)
	}
	if got.Code != "LAM" {
		t.Errorf("Code = %q, want %q", got.Code, "LAM")
	}

	deptID, err := db.StationDepartment(st.ID)
	if err != nil {
		t.Fatalf("station department: %v", err)
	}
	if deptID != dept.ID {
		t.Errorf("StationDepartment = %d, want %d", deptID, dept.ID)
	}

	if err := db.SetStationActive(st.ID, false); err != nil {
		t.Fatalf("set inactive: %v", err)
	}
	st2, _ := db.GetStation(st.ID)
	if st2.Active {
		t.Error("station should be inactive")
	}

	seedFacility(t, db, "RIG")
	depts, _ := db.ListDepartments()
	if len(depts) != 2 {
		t.Errorf("departments = %d, want 2", len(depts))
	}
	centers, _ := db.ListWorkCenters()
	if len(centers) != 2 {
		t.Errorf("work centers = %d, want 2", len(centers))
	}
	stations, _ := db.ListStations(wc.ID)
	if len(stations) != 1 {
		t.Errorf("stations in wc = %d, want 1", len(stations))
	}
}

// --- Routing definitions ---

func seedRouting(t *testing.T, db *DB, wcID int64, stageCount int) *RoutingDefinition {
	t.Helper()
	rd := &RoutingDefinition{Model: "V230", TrimLevel: "SPORT"}
	if err := db.CreateRoutingDefinition(rd); err != nil {
		t.Fatalf("create routing: %v", err)
	}
	for i := 1; i <= stageCount; i++ {
		s := &RoutingStage{
			RoutingID:       rd.ID,
			Sequence:        i * 10,
			Code:            "STAGE-" + string(rune('A'+i-1)),
			Name:            "Stage " + string(rune('A'+i-1)),
			Enabled:         true,
			WorkCenterID:    wcID,
			StandardMinutes: 60,
		}
		if err := db.CreateRoutingStage(s); err != nil {
			t.Fatalf("create stage %d: %v", i, err)
		}
	}
	return rd
}

func TestRoutingReleaseFreezesStages(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")

	rd := seedRouting(t, db, wc.ID, 2)
	if rd.Version != 1 || rd.Status != "DRAFT" {
		t.Fatalf("new routing = v%d %s, want v1 DRAFT", rd.Version, rd.Status)
	}

	if err := db.ReleaseRoutingDefinition(rd.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := db.GetRoutingDefinition(rd.ID)
	if got.Status != "RELEASED" {
		t.Errorf("status = %s, want RELEASED", got.Status)
	}
	if got.ReleasedAt == nil {
		t.Error("ReleasedAt should be set")
	}

	// Frozen: no stage mutations after release
	err := db.CreateRoutingStage(&RoutingStage{RoutingID: rd.ID, Sequence: 30, Code: "X", Name: "X", Enabled: true, WorkCenterID: wc.ID})
	if !errors.Is(err, ErrRoutingFrozen) {
		t.Errorf("create stage after release: %v, want ErrRoutingFrozen", err)
	}
	stages, _ := db.ListRoutingStages(rd.ID)
	err = db.UpdateRoutingStage(stages[0])
	if !errors.Is(err, ErrRoutingFrozen) {
		t.Errorf("update stage after release: %v, want ErrRoutingFrozen", err)
	}
	err = db.DeleteRoutingStage(rd.ID, stages[0].ID)
	if !errors.Is(err, ErrRoutingFrozen) {
		t.Errorf("delete stage after release: %v, want ErrRoutingFrozen", err)
	}

	// Monotonic: no second release
	if err := db.ReleaseRoutingDefinition(rd.ID); err == nil {
		t.Error("expected error releasing an already-released definition")
	}
}

func TestRoutingReleaseRequiresStages(t *testing.T) {
	db := testDB(t)
	rd := &RoutingDefinition{Model: "V230", TrimLevel: "BASE"}
	db.CreateRoutingDefinition(rd)
	if err := db.ReleaseRoutingDefinition(rd.ID); err == nil {
		t.Error("expected error releasing a definition with no stages")
	}
}

func TestRoutingCloneAndReleasedLookup(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")

	rd := seedRouting(t, db, wc.ID, 2)
	db.ReleaseRoutingDefinition(rd.ID)

	clone, err := db.CloneRoutingDefinition(rd.ID)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if clone.Version != 2 || clone.Status != "DRAFT" {
		t.Errorf("clone = v%d %s, want v2 DRAFT", clone.Version, clone.Status)
	}
	cloneStages, _ := db.ListRoutingStages(clone.ID)
	if len(cloneStages) != 2 {
		t.Errorf("clone stages = %d, want 2", len(cloneStages))
	}

	// Released lookup ignores the draft clone
	released, err := db.GetReleasedRouting("V230", "SPORT")
	if err != nil {
		t.Fatalf("released lookup: %v", err)
	}
	if released.ID != rd.ID {
		t.Errorf("released = %d, want %d", released.ID, rd.ID)
	}

	// Release the clone, lookup now returns v2
	db.ReleaseRoutingDefinition(clone.ID)
	released2, _ := db.GetReleasedRouting("V230", "SPORT")
	if released2.Version != 2 {
		t.Errorf("released version = %d, want 2", released2.Version)
	}
}

// --- Work orders ---

func seedWorkOrder(t *testing.T, db *DB, routingID int64) *WorkOrder {
	t.Helper()
	wo := &WorkOrder{
		Number:     "WO-1001",
		HullID:     "HULL-0042",
		ProductSKU: "V230-SPORT",
		Quantity:   1,
		Priority:   "NORMAL",
		Status:     "PLANNED",
		RoutingID:  routingID,
	}
	if err := db.CreateWorkOrder(wo); err != nil {
		t.Fatalf("create work order: %v", err)
	}
	return wo
}

func TestWorkOrderCRUD(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")
	rd := seedRouting(t, db, wc.ID, 2)

	wo := seedWorkOrder(t, db, rd.ID)
	if wo.ID == 0 {
		t.Fatal("ID should be assigned")
	}
	if wo.RowVersion != 1 {
		t.Errorf("RowVersion = %d, want 1", wo.RowVersion)
	}

	got, err := db.GetWorkOrder(wo.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Number != "WO-1001" || got.HullID != "HULL-0042" {
		t.Errorf("got %q/%q", got.Number, got.HullID)
	}

	got2, err := db.GetWorkOrderByNumber("WO-1001")
	if err != nil {
		t.Fatalf("getByNumber: %v", err)
	}
	if got2.ID != wo.ID {
		t.Errorf("getByNumber ID = %d, want %d", got2.ID, wo.ID)
	}

	all, _ := db.ListWorkOrders("", 10)
	if len(all) != 1 {
		t.Errorf("all = %d, want 1", len(all))
	}
	planned, _ := db.ListWorkOrders("PLANNED", 10)
	if len(planned) != 1 {
		t.Errorf("planned = %d, want 1", len(planned))
	}
	active, _ := db.ListActiveWorkOrders()
	if len(active) != 0 {
		t.Errorf("active = %d, want 0 (still planned)", len(active))
	}
}

func TestWorkOrderOptimisticConcurrency(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")
	rd := seedRouting(t, db, wc.ID, 2)
	wo := seedWorkOrder(t, db, rd.ID)

	err := db.WithTx(func(tx *Tx) error {
		return tx.ApplyStateUpdate(wo.ID, wo.RowVersion, StateUpdate{
			Status: "RELEASED", PreviousStatus: "PLANNED",
		})
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Re-using the stale row version must fail
	err = db.WithTx(func(tx *Tx) error {
		return tx.ApplyStateUpdate(wo.ID, wo.RowVersion, StateUpdate{
			Status: "IN_PROGRESS", PreviousStatus: "RELEASED",
		})
	})
	if !errors.Is(err, ErrStaleWorkOrder) {
		t.Fatalf("stale update err = %v, want ErrStaleWorkOrder", err)
	}

	// The failed transaction left nothing behind
	got, _ := db.GetWorkOrder(wo.ID)
	if got.Status != "RELEASED" {
		t.Errorf("status = %s, want RELEASED", got.Status)
	}
	if got.RowVersion != 2 {
		t.Errorf("row version = %d, want 2", got.RowVersion)
	}
	if got.PreviousStatus != "PLANNED" {
		t.Errorf("previous status = %s, want PLANNED", got.PreviousStatus)
	}
}

func TestWithTxRollback(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")
	rd := seedRouting(t, db, wc.ID, 1)

	boom := errors.New("boom")
	err := db.WithTx(func(tx *Tx) error {
		wo := &WorkOrder{Number: "WO-ROLLBACK", HullID: "H", ProductSKU: "S", Quantity: 1, Priority: "NORMAL", Status: "PLANNED", RoutingID: rd.ID}
		if err := tx.CreateWorkOrder(wo); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := db.GetWorkOrderByNumber("WO-ROLLBACK"); err == nil {
		t.Error("insert should have been rolled back")
	}
}

// --- Versions ---

func TestVersionNumbersGaplessAndIncreasing(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")
	rd := seedRouting(t, db, wc.ID, 1)
	wo := seedWorkOrder(t, db, rd.ID)

	for i := 0; i < 3; i++ {
		err := db.WithTx(func(tx *Tx) error {
			return tx.InsertVersion(&WorkOrderVersion{WorkOrderID: wo.ID, Snapshot: "{}", Reason: "test", Actor: "tester"})
		})
		if err != nil {
			t.Fatalf("insert version %d: %v", i, err)
		}
	}

	versions, err := db.ListVersions(wo.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len = %d, want 3", len(versions))
	}
	for i, v := range versions {
		if v.VersionNumber != i+1 {
			t.Errorf("version[%d] = %d, want %d", i, v.VersionNumber, i+1)
		}
	}

	got, err := db.GetVersion(wo.ID, versions[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VersionNumber != 2 {
		t.Errorf("VersionNumber = %d, want 2", got.VersionNumber)
	}
}

// --- Stage events ---

func TestStageEventsAppendOnlyOrdering(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")
	rd := seedRouting(t, db, wc.ID, 1)
	wo := seedWorkOrder(t, db, rd.ID)
	stages, _ := db.ListRoutingStages(rd.ID)

	kinds := []string{"START", "PAUSE", "START", "COMPLETE"}
	for i, kind := range kinds {
		e := &StageEvent{
			EventUUID:      "evt-" + string(rune('a'+i)),
			WorkOrderID:    wo.ID,
			RoutingStageID: stages[0].ID,
			Actor:          "op1",
			Kind:           kind,
		}
		if err := db.AppendStageEvent(e); err != nil {
			t.Fatalf("append %s: %v", kind, err)
		}
	}

	events, err := db.ListStageEvents(wo.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("len = %d, want 4", len(events))
	}
	for i, e := range events {
		if e.Kind != kinds[i] {
			t.Errorf("event[%d] = %s, want %s", i, e.Kind, kinds[i])
		}
	}

	last, err := db.LastStageEvent(wo.ID)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last.Kind != "COMPLETE" {
		t.Errorf("last kind = %s, want COMPLETE", last.Kind)
	}

	// Duplicate event uuid is rejected
	err = db.AppendStageEvent(&StageEvent{EventUUID: "evt-a", WorkOrderID: wo.ID, RoutingStageID: stages[0].ID, Actor: "op1", Kind: "START"})
	if err == nil {
		t.Error("expected unique violation on duplicate event uuid")
	}
}

// --- Audit ---

func TestAuditLog(t *testing.T) {
	db := testDB(t)

	db.AppendAudit("sup1", "HOLD", "work_order", 1, `{"status":"IN_PROGRESS"}`, `{"status":"HOLD","previousStatus":"IN_PROGRESS"}`)
	db.AppendAudit("sup1", "UNHOLD", "work_order", 1, `{"status":"HOLD"}`, `{"status":"IN_PROGRESS"}`)
	db.AppendAudit("admin", "UPDATE", "work_order", 2, "", "")

	entries, err := db.ListAuditLog(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("len = %d, want 3", len(entries))
	}
	// Most recent first
	if entries[0].Action != "UPDATE" {
		t.Errorf("first action = %q, want UPDATE", entries[0].Action)
	}
	// Empty fragments default to {}
	if entries[0].Before != "{}" || entries[0].After != "{}" {
		t.Errorf("fragments = %q/%q, want {}", entries[0].Before, entries[0].After)
	}

	woEntries, _ := db.ListEntityAudit("work_order", 1)
	if len(woEntries) != 2 {
		t.Errorf("entity entries = %d, want 2", len(woEntries))
	}

	latest, err := db.LatestEntityAudit("HOLD", "work_order", 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Action != "HOLD" {
		t.Errorf("latest = %+v, want HOLD entry", latest)
	}

	none, err := db.LatestEntityAudit("HOLD", "work_order", 99)
	if err != nil {
		t.Fatalf("latest missing: %v", err)
	}
	if none != nil {
		t.Errorf("latest for unknown entity = %+v, want nil", none)
	}
}

// --- Outbox ---

func TestOutboxCRUD(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueOutbox("hullcore.lifecycle", []byte(`{"test":true}`), "status_changed", "plant-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	db.EnqueueOutbox("hullcore.lifecycle", []byte(`{"test":2}`), "stage_completed", "plant-1")

	msgs, err := db.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].MsgType != "status_changed" {
		t.Errorf("msg_type = %q, want status_changed", msgs[0].MsgType)
	}
	if msgs[0].PlantID != "plant-1" {
		t.Errorf("plant_id = %q, want plant-1", msgs[0].PlantID)
	}

	db.AckOutbox(msgs[0].ID)
	msgs2, _ := db.ListPendingOutbox(10)
	if len(msgs2) != 1 {
		t.Errorf("pending after ack = %d, want 1", len(msgs2))
	}

	db.IncrementOutboxRetries(msgs2[0].ID)
	msgs3, _ := db.ListPendingOutbox(10)
	if msgs3[0].Retries != 1 {
		t.Errorf("retries = %d, want 1", msgs3[0].Retries)
	}
}

// --- Users ---

func TestUserCRUD(t *testing.T) {
	db := testDB(t)
	dept, _, _ := seedFacility(t, db, "LAM")

	u := &User{Username: "op1", PasswordHash: "hash", Role: "OPERATOR", DepartmentID: &dept.ID}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := db.GetUser("op1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Role != "OPERATOR" {
		t.Errorf("Role = %q, want OPERATOR", got.Role)
	}
	if got.DepartmentID == nil || *got.DepartmentID != dept.ID {
		t.Errorf("DepartmentID = %v, want %d", got.DepartmentID, dept.ID)
	}

	exists, err := db.UserExists()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("UserExists should be true")
	}
}

// --- Dialect ---

func TestRebind(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT * FROM t WHERE a=? AND b=?", "SELECT * FROM t WHERE a=$1 AND b=$2"},
		{"INSERT INTO t (a) VALUES (?)", "INSERT INTO t (a) VALUES ($1)"},
		{"SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		got := Rebind(tt.input)
		if got != tt.want {
			t.Errorf("Rebind(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWorkOrderTimestampRoundTrip(t *testing.T) {
	db := testDB(t)
	_, wc, _ := seedFacility(t, db, "LAM")
	rd := seedRouting(t, db, wc.ID, 2)

	start := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC)
	finish := start.Add(48 * time.Hour)
	wo := &WorkOrder{
		Number:        "WO-2001",
		HullID:        "HULL-0099",
		ProductSKU:    "V230-SPORT",
		Quantity:      1,
		Priority:      "NORMAL",
		Status:        "PLANNED",
		RoutingID:     rd.ID,
		PlannedStart:  &start,
		PlannedFinish: &finish,
	}
	if err := db.CreateWorkOrder(wo); err != nil {
		t.Fatalf("create work order: %v", err)
	}

	got, err := db.GetWorkOrder(wo.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if got.PlannedStart == nil || !got.PlannedStart.Equal(start) {
		t.Errorf("PlannedStart = %v, want %v", got.PlannedStart, start)
	}
	if got.PlannedFinish == nil || !got.PlannedFinish.Equal(finish) {
		t.Errorf("PlannedFinish = %v, want %v", got.PlannedFinish, finish)
	}

	newStart := start.Add(time.Hour)
	err = db.WithTx(func(tx *Tx) error {
		return tx.ApplyFieldUpdate(wo.ID, got.RowVersion, FieldUpdate{
			HullID:        got.HullID,
			ProductSKU:    got.ProductSKU,
			Quantity:      got.Quantity,
			Priority:      got.Priority,
			PlannedStart:  &newStart,
			PlannedFinish: &finish,
		})
	})
	if err != nil {
		t.Fatalf("apply field update: %v", err)
	}
	got, err = db.GetWorkOrder(wo.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if got.PlannedStart == nil || !got.PlannedStart.Equal(newStart) {
		t.Errorf("PlannedStart after update = %v, want %v", got.PlannedStart, newStart)
	}

	completedAt := time.Date(2026, 9, 2, 16, 45, 0, 0, time.UTC)
	err = db.WithTx(func(tx *Tx) error {
		return tx.ApplyStateUpdate(wo.ID, got.RowVersion, StateUpdate{
			Status:            "COMPLETED",
			PreviousStatus:    got.Status,
			CurrentStageIndex: got.CurrentStageIndex,
			CompletedAt:       &completedAt,
		})
	})
	if err != nil {
		t.Fatalf("apply state update: %v", err)
	}
	got, err = db.GetWorkOrder(wo.ID)
	if err != nil {
		t.Fatalf("get work order: %v", err)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completedAt)
	}
}

func TestBindTime(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	local := time.Date(2026, 8, 29, 7, 0, 0, 0, loc)
	if got := bindTime(local); got != "2026-08-29 13:00:00" {
		t.Errorf("bindTime = %q, want UTC text", got)
	}
	if got := bindTimePtr(nil); got != nil {
		t.Errorf("bindTimePtr(nil) = %v, want nil", got)
	}
	if back := parseTime(bindTime(local)); !back.Equal(local) {
		t.Errorf("round-trip = %v, want %v", back, local)
	}
}

func TestParseTime(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if got := parseTime(now); !got.Equal(now) {
		t.Errorf("parseTime(time.Time) = %v, want %v", got, now)
	}
	if got := parseTime("2026-03-14 09:30:00"); got.Hour() != 9 || got.Minute() != 30 {
		t.Errorf("parseTime(string) = %v", got)
	}
	if got := parseTimePtr(nil); got != nil {
		t.Errorf("parseTimePtr(nil) = %v, want nil", got)
	}
}
