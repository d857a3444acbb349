package www

import (
	"net/http"
	"strconv"

	"hullcore/lifecycle"
)

func (h *Handlers) apiListWorkOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	orders, err := h.engine.DB().ListWorkOrders(status, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, orders)
}

func (h *Handlers) apiGetWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	wo, err := h.engine.Controller().GetWorkOrder(h.currentActor(r), id)
	if err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return
	}
	h.jsonOK(w, wo)
}

func (h *Handlers) apiCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().Create(h.currentActor(r), req)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiUpdateWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req lifecycle.UpdateRequest
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().UpdateFields(h.currentActor(r), id, req)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiReleaseWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().Release(h.currentActor(r), id)
	h.writeResult(w, res, err)
}

// stageRequest decodes the shared START/PAUSE/COMPLETE body and overrides the
// work order ID from the URL.
func (h *Handlers) stageRequest(w http.ResponseWriter, r *http.Request) (lifecycle.StageRequest, bool) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return lifecycle.StageRequest{}, false
	}
	var req lifecycle.StageRequest
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return lifecycle.StageRequest{}, false
	}
	req.WorkOrderID = id
	return req, true
}

func (h *Handlers) apiStartStage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.stageRequest(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Controller().Start(h.currentActor(r), req)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiPauseStage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.stageRequest(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Controller().Pause(h.currentActor(r), req)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiCompleteStage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.stageRequest(w, r)
	if !ok {
		return
	}
	res, err := h.engine.Controller().Complete(h.currentActor(r), req)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiHoldWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().Hold(h.currentActor(r), id, req.Reason)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiUnholdWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().Unhold(h.currentActor(r), id)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiCancelWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	decodeBody(r, &req) // body optional
	res, err := h.engine.Controller().Cancel(h.currentActor(r), id, req.Reason)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiUncancelWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().Uncancel(h.currentActor(r), id)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiCloseWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().Close(h.currentActor(r), id)
	h.writeResult(w, res, err)
}

// gatedWorkOrderID parses the work order ID and applies the same read gate as
// the single-order endpoint, so sub-resources never leak across departments.
func (h *Handlers) gatedWorkOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	if _, err := h.engine.Controller().GetWorkOrder(h.currentActor(r), id); err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return 0, false
	}
	return id, true
}

func (h *Handlers) apiListStageEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gatedWorkOrderID(w, r)
	if !ok {
		return
	}
	events, err := h.engine.DB().ListStageEvents(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, events)
}

func (h *Handlers) apiWorkOrderAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gatedWorkOrderID(w, r)
	if !ok {
		return
	}
	entries, err := h.engine.DB().ListEntityAudit("work_order", id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gatedWorkOrderID(w, r)
	if !ok {
		return
	}
	versions, err := h.engine.DB().ListVersions(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, versions)
}

func (h *Handlers) apiCreateVersion(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	decodeBody(r, &req) // body optional
	res, err := h.engine.Controller().CreateVersion(h.currentActor(r), id, req.Reason)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiGetVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.gatedWorkOrderID(w, r)
	if !ok {
		return
	}
	versionID, err := urlID(r, "version")
	if err != nil {
		h.jsonError(w, "invalid version id", http.StatusBadRequest)
		return
	}
	version, err := h.engine.DB().GetVersion(id, versionID)
	if err != nil {
		h.jsonError(w, "version not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, version)
}

func (h *Handlers) apiRestoreVersion(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	versionID, err := urlID(r, "version")
	if err != nil {
		h.jsonError(w, "invalid version id", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Controller().Restore(h.currentActor(r), id, versionID)
	h.writeResult(w, res, err)
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.engine.DB().ListAuditLog(limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}
