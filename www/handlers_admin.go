package www

import (
	"net/http"

	"hullcore/lifecycle"
	"hullcore/store"
)

func (h *Handlers) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Password     string `json:"password"`
		Role         string `json:"role"`
		DepartmentID *int64 `json:"department_id,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		h.jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}
	switch req.Role {
	case lifecycle.RoleAdmin, lifecycle.RoleSupervisor, lifecycle.RoleOperator:
	default:
		h.jsonError(w, "invalid role", http.StatusBadRequest)
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	user := &store.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
	}
	if err := h.engine.DB().CreateUser(user); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, user)
}

func (h *Handlers) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.AppConfig())
}

func (h *Handlers) apiSaveConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	if err := decodeBody(r, cfg); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.engine.ReconfigureMessaging()
	h.jsonOK(w, map[string]string{"status": "ok"})
}
