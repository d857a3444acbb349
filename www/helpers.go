package www

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hullcore/lifecycle"
	"hullcore/store"
)

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// errorStatus maps domain errors onto HTTP statuses so handlers stay thin.
func errorStatus(err error) int {
	var te *lifecycle.TransitionError
	var ve *lifecycle.ValidationError
	switch {
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, lifecycle.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, store.ErrStaleWorkOrder), errors.Is(err, store.ErrRoutingFrozen):
		return http.StatusConflict
	case errors.As(err, &te):
		return http.StatusConflict
	case errors.As(err, &ve),
		errors.Is(err, lifecycle.ErrNoCurrentStage),
		errors.Is(err, lifecycle.ErrInvalidStation),
		errors.Is(err, lifecycle.ErrOnHold):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeResult sends a controller result, or its error with the mapped status.
func (h *Handlers) writeResult(w http.ResponseWriter, res *lifecycle.Result, err error) {
	if err != nil {
		h.jsonError(w, err.Error(), errorStatus(err))
		return
	}
	h.jsonOK(w, res)
}

func urlID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
