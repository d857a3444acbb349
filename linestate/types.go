package linestate

// LineItem is one active work order sitting at a department's stage, shaped
// for dashboard consumption.
type LineItem struct {
	WorkOrderID int64  `json:"work_order_id"`
	Number      string `json:"number"`
	HullID      string `json:"hull_id"`
	Status      string `json:"status"`
	StageCode   string `json:"stage_code"`
	StageIndex  int    `json:"stage_index"`
	Priority    string `json:"priority"`
}

type DeptLine struct {
	DepartmentID   int64      `json:"department_id"`
	DepartmentName string     `json:"department_name"`
	Code           string     `json:"code"`
	Orders         []LineItem `json:"orders"`
	OrderCount     int        `json:"order_count"`
}

type DeptMeta struct {
	DepartmentID int64  `json:"department_id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
}
