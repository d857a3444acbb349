package www

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"hullcore/lifecycle"
	"hullcore/store"
)

const sessionName = "hullcore-session"

func newSessionStore(secret string) *sessions.CookieStore {
	if secret == "" {
		secret = "hullcore-default-secret-change-me"
	}
	s := sessions.NewCookieStore([]byte(secret))
	s.Options.HttpOnly = true
	s.Options.Secure = false // runs on plain HTTP (plant LAN)
	s.Options.SameSite = http.SameSiteLaxMode
	return s
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *Handlers) isAuthenticated(r *http.Request) bool {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	auth, ok := session.Values["authenticated"].(bool)
	return ok && auth
}

// currentActor rebuilds the lifecycle actor from the session. The zero actor
// has an invalid role, so every controller call fails with ErrUnauthorized.
func (h *Handlers) currentActor(r *http.Request) lifecycle.Actor {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return lifecycle.Actor{}
	}
	actor := lifecycle.Actor{}
	actor.ID, _ = session.Values["username"].(string)
	actor.Role, _ = session.Values["role"].(string)
	if deptID, ok := session.Values["department_id"].(int64); ok {
		actor.DepartmentID = &deptID
	}
	return actor
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAuthenticated(r) {
			h.jsonError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRoutingManage gates routing authoring endpoints. Work order
// operations enforce their own permissions inside the controller.
func (h *Handlers) requireRoutingManage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := h.currentActor(r)
		if !lifecycle.CapabilitiesFor(actor.Role).ManageRoutings {
			h.jsonError(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.currentActor(r).Role != lifecycle.RoleAdmin {
			h.jsonError(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.engine.DB().GetUser(req.Username)
	if err != nil || !checkPassword(user.PasswordHash, req.Password) {
		h.jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = user.Username
	session.Values["role"] = user.Role
	if user.DepartmentID != nil {
		session.Values["department_id"] = *user.DepartmentID
	} else {
		delete(session.Values, "department_id")
	}
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}

	h.jsonOK(w, map[string]any{
		"username":      user.Username,
		"role":          user.Role,
		"department_id": user.DepartmentID,
	})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	delete(session.Values, "username")
	delete(session.Values, "role")
	delete(session.Values, "department_id")
	session.Save(r, w)
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) ensureDefaultAdmin(db *store.DB) {
	exists, err := db.UserExists()
	if err != nil || exists {
		return
	}
	hash, err := hashPassword("admin")
	if err != nil {
		return
	}
	db.CreateUser(&store.User{Username: "admin", PasswordHash: hash, Role: lifecycle.RoleAdmin})
	log.Printf("www: created default admin user")
}
