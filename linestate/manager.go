package linestate

import (
	"context"
	"log"

	"hullcore/lifecycle"
	"hullcore/store"
)

// Manager keeps a per-department view of the live production line: every
// active work order grouped by the department that owns its current stage.
// SQL is the source of truth, Redis is a write-through cache for dashboards.
// A nil Redis store degrades to SQL-only reads and never fails a refresh.
type Manager struct {
	db    *store.DB
	redis *RedisStore
}

func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// Refresh recomputes every department's line from SQL and pushes the result
// into Redis. Called after each lifecycle transition and on startup.
func (m *Manager) Refresh() error {
	lines, err := m.computeLines()
	if err != nil {
		return err
	}
	if m.redis == nil {
		return nil
	}
	ctx := context.Background()
	for deptID, line := range lines {
		if err := m.redis.UpdateDeptMeta(ctx, deptID, &DeptMeta{
			DepartmentID: deptID,
			Name:         line.DepartmentName,
			Code:         line.Code,
		}); err != nil {
			log.Printf("linestate: cache meta for dept %d: %v", deptID, err)
			continue
		}
		if err := m.redis.SetDeptOrders(ctx, deptID, line.Orders); err != nil {
			log.Printf("linestate: cache orders for dept %d: %v", deptID, err)
		}
	}
	return nil
}

// SyncFromSQL rebuilds the whole cache from scratch. Called on startup so a
// stale Redis never survives a restart.
func (m *Manager) SyncFromSQL() error {
	if m.redis != nil {
		if err := m.redis.FlushAll(context.Background()); err != nil {
			log.Printf("linestate: flush redis: %v", err)
		}
	}
	if err := m.Refresh(); err != nil {
		return err
	}
	log.Printf("linestate: cache rebuilt from sql")
	return nil
}

// GetDeptLine reads one department's line from Redis, falling back to SQL.
func (m *Manager) GetDeptLine(deptID int64) (*DeptLine, error) {
	if m.redis != nil {
		ctx := context.Background()
		meta, err := m.redis.GetDeptMeta(ctx, deptID)
		if err == nil && meta != nil {
			orders, _ := m.redis.GetDeptOrders(ctx, deptID)
			return &DeptLine{
				DepartmentID:   meta.DepartmentID,
				DepartmentName: meta.Name,
				Code:           meta.Code,
				Orders:         orders,
				OrderCount:     len(orders),
			}, nil
		}
	}
	lines, err := m.computeLines()
	if err != nil {
		return nil, err
	}
	if line, ok := lines[deptID]; ok {
		return line, nil
	}
	dept, err := m.db.GetDepartment(deptID)
	if err != nil {
		return nil, err
	}
	return &DeptLine{DepartmentID: dept.ID, DepartmentName: dept.Name, Code: dept.Code}, nil
}

// GetAllLines returns every department's line keyed by department id.
func (m *Manager) GetAllLines() (map[int64]*DeptLine, error) {
	if m.redis != nil {
		ctx := context.Background()
		ids, err := m.redis.GetAllDeptIDs(ctx)
		if err == nil && len(ids) > 0 {
			lines := make(map[int64]*DeptLine)
			for _, id := range ids {
				if line, err := m.GetDeptLine(id); err == nil {
					lines[id] = line
				}
			}
			return lines, nil
		}
	}
	return m.computeLines()
}

// computeLines derives the department view from SQL: for every active work
// order, resolve its current stage and group it under the stage's owning
// department.
func (m *Manager) computeLines() (map[int64]*DeptLine, error) {
	depts, err := m.db.ListDepartments()
	if err != nil {
		return nil, err
	}
	lines := make(map[int64]*DeptLine, len(depts))
	for _, d := range depts {
		lines[d.ID] = &DeptLine{DepartmentID: d.ID, DepartmentName: d.Name, Code: d.Code}
	}

	orders, err := m.db.ListActiveWorkOrders()
	if err != nil {
		return nil, err
	}
	for _, wo := range orders {
		stages, err := m.db.ListRoutingStages(wo.RoutingID)
		if err != nil {
			log.Printf("linestate: stages for work order %d: %v", wo.ID, err)
			continue
		}
		stage, ok := lifecycle.CurrentStage(stages, wo.CurrentStageIndex)
		if !ok {
			continue
		}
		wc, err := m.db.GetWorkCenter(stage.WorkCenterID)
		if err != nil {
			continue
		}
		line, ok := lines[wc.DepartmentID]
		if !ok {
			continue
		}
		line.Orders = append(line.Orders, LineItem{
			WorkOrderID: wo.ID,
			Number:      wo.Number,
			HullID:      wo.HullID,
			Status:      wo.Status,
			StageCode:   stage.Code,
			StageIndex:  wo.CurrentStageIndex,
			Priority:    wo.Priority,
		})
		line.OrderCount = len(line.Orders)
	}
	return lines, nil
}
