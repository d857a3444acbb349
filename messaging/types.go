package messaging

import "time"

// Envelope is the typed wrapper for all lifecycle messages published to
// downstream consumers (scheduling, ERP sync, andon boards).
type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	PlantID   string    `json:"plant_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Message types.
const (
	MsgWorkOrderCreated = "work_order_created"
	MsgStatusChanged    = "status_changed"
	MsgStageCompleted   = "stage_completed"
)

type WorkOrderCreatedNotice struct {
	WorkOrderID int64  `json:"work_order_id"`
	Number      string `json:"number"`
	HullID      string `json:"hull_id"`
	ProductSKU  string `json:"product_sku"`
	Actor       string `json:"actor"`
}

type StatusChangedNotice struct {
	WorkOrderID int64  `json:"work_order_id"`
	Number      string `json:"number"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	Reason      string `json:"reason,omitempty"`
	Actor       string `json:"actor"`
}

type StageCompletedNotice struct {
	WorkOrderID int64  `json:"work_order_id"`
	Number      string `json:"number"`
	StageCode   string `json:"stage_code"`
	StageIndex  int    `json:"stage_index"`
	GoodQty     int    `json:"good_qty"`
	ScrapQty    int    `json:"scrap_qty"`
	IsComplete  bool   `json:"is_complete"`
	Actor       string `json:"actor"`
}
