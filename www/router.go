package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"hullcore/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Public routes
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/api/health", h.apiHealthCheck)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Route("/api/work-orders", func(r chi.Router) {
			r.Get("/", h.apiListWorkOrders)
			r.Post("/", h.apiCreateWorkOrder)
			r.Get("/{id}", h.apiGetWorkOrder)
			r.Put("/{id}", h.apiUpdateWorkOrder)
			r.Post("/{id}/release", h.apiReleaseWorkOrder)
			r.Post("/{id}/start", h.apiStartStage)
			r.Post("/{id}/pause", h.apiPauseStage)
			r.Post("/{id}/complete", h.apiCompleteStage)
			r.Post("/{id}/hold", h.apiHoldWorkOrder)
			r.Post("/{id}/unhold", h.apiUnholdWorkOrder)
			r.Post("/{id}/cancel", h.apiCancelWorkOrder)
			r.Post("/{id}/uncancel", h.apiUncancelWorkOrder)
			r.Post("/{id}/close", h.apiCloseWorkOrder)
			r.Get("/{id}/events", h.apiListStageEvents)
			r.Get("/{id}/audit", h.apiWorkOrderAudit)
			r.Get("/{id}/versions", h.apiListVersions)
			r.Post("/{id}/versions", h.apiCreateVersion)
			r.Get("/{id}/versions/{version}", h.apiGetVersion)
			r.Post("/{id}/versions/{version}/restore", h.apiRestoreVersion)
		})

		r.Route("/api/routings", func(r chi.Router) {
			r.Get("/", h.apiListRoutings)
			r.Get("/{id}", h.apiGetRouting)
			r.Group(func(r chi.Router) {
				r.Use(h.requireRoutingManage)
				r.Post("/", h.apiCreateRouting)
				r.Post("/{id}/release", h.apiReleaseRouting)
				r.Post("/{id}/clone", h.apiCloneRouting)
				r.Post("/{id}/stages", h.apiCreateStage)
				r.Put("/{id}/stages/{stageID}", h.apiUpdateStage)
				r.Delete("/{id}/stages/{stageID}", h.apiDeleteStage)
			})
		})

		r.Get("/api/departments", h.apiListDepartments)
		r.Get("/api/work-centers", h.apiListWorkCenters)
		r.Get("/api/stations", h.apiListStations)
		r.Get("/api/linestate", h.apiAllLines)
		r.Get("/api/linestate/{deptID}", h.apiDeptLine)
		r.Get("/api/audit", h.apiAuditLog)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/api/departments", h.apiCreateDepartment)
			r.Post("/api/work-centers", h.apiCreateWorkCenter)
			r.Post("/api/stations", h.apiCreateStation)
			r.Post("/api/stations/{id}/active", h.apiSetStationActive)
			r.Post("/api/users", h.apiCreateUser)
			r.Get("/api/config", h.apiGetConfig)
			r.Post("/api/config/save", h.apiSaveConfig)
		})
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	messagingOK := false
	if mc := h.engine.MsgClient(); mc != nil {
		messagingOK = mc.IsConnected()
	}
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"messaging": messagingOK,
	})
}
