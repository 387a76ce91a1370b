package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gptstore/gptstore/internal/pagination"
	"github.com/gptstore/gptstore/internal/problem"
	"github.com/gptstore/gptstore/internal/server/middleware"
	"github.com/gptstore/gptstore/internal/store"
)

// writeJSON serializes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readJSON decodes the request body into v. The body is closed regardless of
// the outcome.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// tenantFromPath authorizes the {gptID} path segment against the resolved
// principal. A mismatch reports NotFound rather than Forbidden so the
// existence of other tenants' resources is never confirmed.
func tenantFromPath(w http.ResponseWriter, r *http.Request, gptID string) bool {
	p := middleware.Principal(r.Context())
	if p == nil || p.TenantID != gptID {
		problem.Write(w, r, problem.NotFound("GPT not found"))
		return false
	}
	return true
}

// failStore converts a storage error into the right problem. Unexpected
// errors are logged in full; the client sees only the generic internal body.
func failStore(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFoundDetail string) {
	if errors.Is(err, store.ErrNotFound) {
		problem.Write(w, r, problem.NotFound(notFoundDetail))
		return
	}
	logger.Error("storage failure",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)
	problem.Write(w, r, problem.Internal())
}

// failParams converts a pagination parse error into its problem kind.
func failParams(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, pagination.ErrInvalidCursor) {
		problem.Write(w, r, problem.InvalidCursor(err.Error()))
		return
	}
	problem.Write(w, r, problem.Validation(err.Error()))
}
