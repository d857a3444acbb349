package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"

	"hullcore/store"
)

// Snapshot is the full serialized state of a work order written into the
// version store, including a summary of its routing definition.
type Snapshot struct {
	Number            string         `json:"number"`
	HullID            string         `json:"hull_id"`
	ProductSKU        string         `json:"product_sku"`
	Quantity          int            `json:"quantity"`
	Priority          string         `json:"priority"`
	Status            string         `json:"status"`
	PreviousStatus    string         `json:"previous_status,omitempty"`
	CurrentStageIndex int            `json:"current_stage_index"`
	PlannedStart      *time.Time     `json:"planned_start,omitempty"`
	PlannedFinish     *time.Time     `json:"planned_finish,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	Routing           RoutingSummary `json:"routing"`
}

type RoutingSummary struct {
	Model     string         `json:"model"`
	TrimLevel string         `json:"trim_level"`
	Version   int            `json:"version"`
	Stages    []StageSummary `json:"stages"`
}

type StageSummary struct {
	Sequence        int    `json:"sequence"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Enabled         bool   `json:"enabled"`
	WorkCenterID    int64  `json:"work_center_id"`
	StandardMinutes int    `json:"standard_minutes"`
}

func routingSummary(rd *store.RoutingDefinition, stages []*store.RoutingStage) RoutingSummary {
	rs := RoutingSummary{Model: rd.Model, TrimLevel: rd.TrimLevel, Version: rd.Version}
	for _, s := range stages {
		rs.Stages = append(rs.Stages, StageSummary{
			Sequence:        s.Sequence,
			Code:            s.Code,
			Name:            s.Name,
			Enabled:         s.Enabled,
			WorkCenterID:    s.WorkCenterID,
			StandardMinutes: s.StandardMinutes,
		})
	}
	return rs
}

func buildSnapshot(wo *store.WorkOrder, rd *store.RoutingDefinition, stages []*store.RoutingStage) (string, error) {
	snap := Snapshot{
		Number:            wo.Number,
		HullID:            wo.HullID,
		ProductSKU:        wo.ProductSKU,
		Quantity:          wo.Quantity,
		Priority:          wo.Priority,
		Status:            wo.Status,
		PreviousStatus:    wo.PreviousStatus,
		CurrentStageIndex: wo.CurrentStageIndex,
		PlannedStart:      wo.PlannedStart,
		PlannedFinish:     wo.PlannedFinish,
		CompletedAt:       wo.CompletedAt,
		Routing:           routingSummary(rd, stages),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

func decodeSnapshot(data string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// SpecSnapshot is the frozen product specification captured on a work order
// at creation and refreshed at release.
type SpecSnapshot struct {
	Model          string         `json:"model"`
	TrimLevel      string         `json:"trim_level"`
	RoutingVersion int            `json:"routing_version"`
	ProductSKU     string         `json:"product_sku"`
	Stages         []StageSummary `json:"stages"`
}

func buildSpecSnapshot(sku string, rd *store.RoutingDefinition, stages []*store.RoutingStage) (string, error) {
	rs := routingSummary(rd, stages)
	snap := SpecSnapshot{
		Model:          rs.Model,
		TrimLevel:      rs.TrimLevel,
		RoutingVersion: rs.Version,
		ProductSKU:     sku,
		Stages:         rs.Stages,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal spec snapshot: %w", err)
	}
	return string(data), nil
}
