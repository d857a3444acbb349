package www

import (
	"errors"
	"net/http"

	"hullcore/lifecycle"
	"hullcore/store"
)

func (h *Handlers) apiListRoutings(w http.ResponseWriter, r *http.Request) {
	routings, err := h.engine.DB().ListRoutingDefinitions()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, routings)
}

func (h *Handlers) apiGetRouting(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	rd, err := h.engine.DB().GetRoutingDefinition(id)
	if err != nil {
		h.jsonError(w, "routing not found", http.StatusNotFound)
		return
	}
	stages, err := h.engine.DB().ListRoutingStages(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{
		"routing": rd,
		"stages":  stages,
	})
}

func (h *Handlers) apiCreateRouting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model     string `json:"model"`
		TrimLevel string `json:"trim_level"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Model == "" || req.TrimLevel == "" {
		h.jsonError(w, "model and trim_level are required", http.StatusBadRequest)
		return
	}
	rd := &store.RoutingDefinition{
		Model:     req.Model,
		TrimLevel: req.TrimLevel,
		Version:   1,
		Status:    lifecycle.RoutingDraft,
	}
	if err := h.engine.DB().CreateRoutingDefinition(rd); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, rd)
}

func (h *Handlers) apiReleaseRouting(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().ReleaseRoutingDefinition(id); err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiCloneRouting(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	clone, err := h.engine.DB().CloneRoutingDefinition(id)
	if err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return
	}
	h.jsonOK(w, clone)
}

func (h *Handlers) apiCreateStage(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var stage store.RoutingStage
	if err := decodeBody(r, &stage); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	stage.RoutingID = id
	if stage.Code == "" || stage.WorkCenterID == 0 {
		h.jsonError(w, "code and work_center_id are required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateRoutingStage(&stage); err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return
	}
	h.jsonOK(w, &stage)
}

func (h *Handlers) apiUpdateStage(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	stageID, err := urlID(r, "stageID")
	if err != nil {
		h.jsonError(w, "invalid stage id", http.StatusBadRequest)
		return
	}
	var stage store.RoutingStage
	if err := decodeBody(r, &stage); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	stage.ID = stageID
	stage.RoutingID = id
	if err := h.engine.DB().UpdateRoutingStage(&stage); err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return
	}
	h.jsonOK(w, &stage)
}

func (h *Handlers) apiDeleteStage(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	stageID, err := urlID(r, "stageID")
	if err != nil {
		h.jsonError(w, "invalid stage id", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().DeleteRoutingStage(id, stageID); err != nil {
		if errors.Is(err, store.ErrRoutingFrozen) {
			h.jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}
