package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/postleo/riftinsights/internal/logic"
	"github.com/postleo/riftinsights/internal/store"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]bool, len(h.checks))
	allHealthy := true
	for name, ping := range h.checks {
		err := ping(ctx)
		checks[name] = err == nil
		if err != nil {
			allHealthy = false
			h.logger.Warnw("Readiness check failed", "dependency", name, "error", err)
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":      allHealthy,
		"checks":     checks,
		"queueDepth": h.queueDepth(),
	})
}

// serviceError maps a service error to a response. Missing data is a 404,
// anything else is logged and reported as a 500.
func (h *Handler) serviceError(w http.ResponseWriter, err error, msg string, keysAndValues ...interface{}) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.errorResponse(w, http.StatusNotFound, "Season not found")
	case errors.Is(err, logic.ErrEmptyDataset):
		h.errorResponse(w, http.StatusNotFound, "No archived matches for this season")
	default:
		h.logger.Errorw(msg, append(keysAndValues, "error", err)...)
		h.errorResponse(w, http.StatusInternalServerError, msg)
	}
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	return "Invalid " + fe.Field() + ": failed " + fe.Tag() + " check"
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

func currentYear(now time.Time) int {
	return now.UTC().Year()
}
