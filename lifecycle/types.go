package lifecycle

// Work order statuses.
const (
	StatusPlanned    = "PLANNED"
	StatusReleased   = "RELEASED"
	StatusInProgress = "IN_PROGRESS"
	StatusHold       = "HOLD"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusClosed     = "CLOSED"
)

// Work order priorities.
const (
	PriorityLow      = "LOW"
	PriorityNormal   = "NORMAL"
	PriorityHigh     = "HIGH"
	PriorityCritical = "CRITICAL"
)

// Actor roles.
const (
	RoleAdmin      = "ADMIN"
	RoleSupervisor = "SUPERVISOR"
	RoleOperator   = "OPERATOR"
)

// Stage event kinds.
const (
	EventStart    = "START"
	EventPause    = "PAUSE"
	EventComplete = "COMPLETE"
)

// Routing definition statuses.
const (
	RoutingDraft    = "DRAFT"
	RoutingReleased = "RELEASED"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// Result is the outcome of a lifecycle operation, shaped for thin handlers.
type Result struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	WorkOrderID    int64  `json:"work_order_id"`
	Number         string `json:"number"`
	Status         string `json:"status"`
	StageIndex     int    `json:"stage_index"`
	IsComplete     bool   `json:"is_complete,omitempty"`
	PreviousStatus string `json:"previous_status,omitempty"`
	VersionNumber  int    `json:"version_number,omitempty"`
}

// CreateRequest describes a new work order. The routing must already be
// released for the given model/trim.
type CreateRequest struct {
	Number        string `json:"number"`
	HullID        string `json:"hull_id"`
	ProductSKU    string `json:"product_sku"`
	Quantity      int    `json:"quantity"`
	Priority      string `json:"priority"`
	RoutingID     int64  `json:"routing_id"`
	PlannedStart  string `json:"planned_start,omitempty"`
	PlannedFinish string `json:"planned_finish,omitempty"`
}

// StageRequest carries the parameters shared by START/PAUSE/COMPLETE.
// SelectedDepartmentID lets an operator with multiple memberships choose the
// department they are acting for; the gate applies the same equality rule.
type StageRequest struct {
	WorkOrderID          int64  `json:"work_order_id"`
	StationID            int64  `json:"station_id"`
	SelectedDepartmentID *int64 `json:"selected_department_id,omitempty"`
	GoodQty              int    `json:"good_qty,omitempty"`
	ScrapQty             int    `json:"scrap_qty,omitempty"`
	Note                 string `json:"note,omitempty"`
}

// UpdateRequest carries administrative field edits. Nil means "leave alone".
type UpdateRequest struct {
	HullID        *string `json:"hull_id,omitempty"`
	ProductSKU    *string `json:"product_sku,omitempty"`
	Quantity      *int    `json:"quantity,omitempty"`
	Priority      *string `json:"priority,omitempty"`
	PlannedStart  *string `json:"planned_start,omitempty"`
	PlannedFinish *string `json:"planned_finish,omitempty"`
}

func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func validRole(r string) bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleOperator:
		return true
	}
	return false
}
