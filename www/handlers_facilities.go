package www

import (
	"net/http"
	"strconv"

	"hullcore/store"
)

func (h *Handlers) apiListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.engine.DB().ListDepartments()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, depts)
}

func (h *Handlers) apiCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var d store.Department
	if err := decodeBody(r, &d); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if d.Code == "" || d.Name == "" {
		h.jsonError(w, "code and name are required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateDepartment(&d); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, &d)
}

func (h *Handlers) apiListWorkCenters(w http.ResponseWriter, r *http.Request) {
	wcs, err := h.engine.DB().ListWorkCenters()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, wcs)
}

func (h *Handlers) apiCreateWorkCenter(w http.ResponseWriter, r *http.Request) {
	var wc store.WorkCenter
	if err := decodeBody(r, &wc); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if wc.Name == "" || wc.DepartmentID == 0 {
		h.jsonError(w, "name and department_id are required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateWorkCenter(&wc); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, &wc)
}

func (h *Handlers) apiListStations(w http.ResponseWriter, r *http.Request) {
	var workCenterID int64
	if wc := r.URL.Query().Get("work_center_id"); wc != "" {
		id, err := strconv.ParseInt(wc, 10, 64)
		if err != nil {
			h.jsonError(w, "invalid work_center_id", http.StatusBadRequest)
			return
		}
		workCenterID = id
	}
	stations, err := h.engine.DB().ListStations(workCenterID)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, stations)
}

func (h *Handlers) apiCreateStation(w http.ResponseWriter, r *http.Request) {
	var s store.Station
	if err := decodeBody(r, &s); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if s.Name == "" || s.WorkCenterID == 0 {
		h.jsonError(w, "name and work_center_id are required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().CreateStation(&s); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, &s)
}

func (h *Handlers) apiSetStationActive(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().SetStationActive(id, req.Active); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiDeptLine(w http.ResponseWriter, r *http.Request) {
	deptID, err := urlID(r, "deptID")
	if err != nil {
		h.jsonError(w, "invalid department id", http.StatusBadRequest)
		return
	}
	line, err := h.engine.LineState().GetDeptLine(deptID)
	if err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return
	}
	h.jsonOK(w, line)
}

func (h *Handlers) apiAllLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.engine.LineState().GetAllLines()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, lines)
}
