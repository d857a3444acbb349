package www

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"hullcore/config"
	"hullcore/engine"
	"hullcore/store"
)

func testServer(t *testing.T) (*httptest.Server, *store.DB) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: filepath.Join(t.TempDir(), "hullcore.yaml"),
		DB:         db,
	})
	eng.Start()
	t.Cleanup(eng.Stop)

	handler, stopWeb := NewRouter(eng)
	t.Cleanup(stopWeb)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, db
}

func loginClient(t *testing.T, srv *httptest.Server, username, password string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(srv.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s = %d, want 200", username, resp.StatusCode)
	}
	return client
}

func seedUser(t *testing.T, db *store.DB, username, role string, deptID *int64) {
	t.Helper()
	hash, err := hashPassword("pw")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.CreateUser(&store.User{Username: username, PasswordHash: hash, Role: role, DepartmentID: deptID}); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
}

func getStatus(t *testing.T, client *http.Client, url string) int {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestWorkOrderSubResourcesApplyDepartmentGate(t *testing.T) {
	srv, db := testServer(t)

	lam := &store.Department{Name: "Lamination", Code: "LAM"}
	if err := db.CreateDepartment(lam); err != nil {
		t.Fatalf("create department: %v", err)
	}
	rig := &store.Department{Name: "Rigging", Code: "RIG"}
	if err := db.CreateDepartment(rig); err != nil {
		t.Fatalf("create department: %v", err)
	}
	wc := &store.WorkCenter{Name: "Lamination Bay", DepartmentID: lam.ID}
	if err := db.CreateWorkCenter(wc); err != nil {
		t.Fatalf("create work center: %v", err)
	}
	rd := &store.RoutingDefinition{Model: "V230", TrimLevel: "SPORT"}
	if err := db.CreateRoutingDefinition(rd); err != nil {
		t.Fatalf("create routing: %v", err)
	}
	stage := &store.RoutingStage{RoutingID: rd.ID, Sequence: 10, Code: "LAMINATION", Name: "Lamination", Enabled: true, WorkCenterID: wc.ID}
	if err := db.CreateRoutingStage(stage); err != nil {
		t.Fatalf("create stage: %v", err)
	}
	wo := &store.WorkOrder{Number: "WO-3001", HullID: "HULL-0007", ProductSKU: "V230-SPORT", Quantity: 1, Priority: "NORMAL", Status: "RELEASED", RoutingID: rd.ID}
	if err := db.CreateWorkOrder(wo); err != nil {
		t.Fatalf("create work order: %v", err)
	}

	seedUser(t, db, "rig-op", "OPERATOR", &rig.ID)
	seedUser(t, db, "lam-op", "OPERATOR", &lam.ID)

	paths := []string{
		fmt.Sprintf("/api/work-orders/%d", wo.ID),
		fmt.Sprintf("/api/work-orders/%d/events", wo.ID),
		fmt.Sprintf("/api/work-orders/%d/audit", wo.ID),
		fmt.Sprintf("/api/work-orders/%d/versions", wo.ID),
		fmt.Sprintf("/api/work-orders/%d/versions/1", wo.ID),
	}

	// Operator from another department is denied every view of the order.
	rigOp := loginClient(t, srv, "rig-op", "pw")
	for _, p := range paths {
		if code := getStatus(t, rigOp, srv.URL+p); code != http.StatusForbidden {
			t.Errorf("GET %s as rig-op = %d, want 403", p, code)
		}
	}

	// Operator at the current stage's department can read all of them.
	lamOp := loginClient(t, srv, "lam-op", "pw")
	for _, p := range paths[:4] {
		if code := getStatus(t, lamOp, srv.URL+p); code != http.StatusOK {
			t.Errorf("GET %s as lam-op = %d, want 200", p, code)
		}
	}

	// The seeded admin passes the gate everywhere.
	admin := loginClient(t, srv, "admin", "admin")
	for _, p := range paths[:4] {
		if code := getStatus(t, admin, srv.URL+p); code != http.StatusOK {
			t.Errorf("GET %s as admin = %d, want 200", p, code)
		}
	}

	// No version rows exist yet, so the gated single-version read is a 404.
	if code := getStatus(t, admin, srv.URL+paths[4]); code != http.StatusNotFound {
		t.Errorf("GET %s as admin = %d, want 404", paths[4], code)
	}
}
