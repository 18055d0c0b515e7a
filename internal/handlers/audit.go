package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/crucial707/tools-sys/internal/repo"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// AuditHandler serves the audit log.
type AuditHandler struct {
	Repo *repo.AuditRepo
}

// ListAudit returns recent audit log entries. Query: limit (default 50, max 200), offset (default 0).
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	entries, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list audit", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	JSONSuccess(w, http.StatusOK, entries)
}

// pagination reads limit and offset, ignoring values out of range.
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= maxPageLimit {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			offset = val
		}
	}
	return limit, offset
}

// recordAudit writes an audit row. Failures are logged and never fail the request.
func recordAudit(r *http.Request, audit *repo.AuditRepo, username, action, resourceType string, resourceID int64, details string) {
	if audit == nil {
		return
	}
	if err := audit.Log(r.Context(), username, action, resourceType, resourceID, details); err != nil {
		slog.Warn("audit log write failed", "action", action, "resource_type", resourceType, "resource_id", resourceID, "error", err)
	}
}
