package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/crucial707/tools-sys/internal/middleware"
	"github.com/crucial707/tools-sys/internal/models"
	"github.com/crucial707/tools-sys/internal/repo"
	"github.com/go-chi/chi/v5"
)

type ToolHandler struct {
	Repo  *repo.ToolRepo
	Audit *repo.AuditRepo
}

//
// ==========================
// List Tools
// ==========================
//

// ListTools returns the catalog newest first. The optional q parameter filters by name or description.
func (h *ToolHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	var (
		tools []models.Tool
		err   error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		tools, err = h.Repo.Search(r.Context(), q)
	} else {
		tools, err = h.Repo.List(r.Context())
	}
	if err != nil {
		slog.Error("list tools", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	JSONSuccess(w, http.StatusOK, tools)
}

//
// ==========================
// Get Tool
// ==========================
//

func (h *ToolHandler) GetTool(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	tool, err := h.Repo.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		JSONError(w, "tool not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get tool", "id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	JSONSuccess(w, http.StatusOK, tool)
}

//
// ==========================
// Create Tool
// ==========================
//

func (h *ToolHandler) CreateTool(w http.ResponseWriter, r *http.Request) {
	var input models.ToolInput
	if !decodeJSON(w, r, &input) {
		return
	}
	normalizeToolInput(&input)
	if !validateInput(w, input) {
		return
	}

	id, err := h.Repo.Create(r.Context(), input)
	if err != nil {
		slog.Error("create tool", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	username, _ := middleware.GetUsername(r.Context())
	recordAudit(r, h.Audit, username, "create", "tool", id, input.Name)
	JSONSuccess(w, http.StatusCreated, map[string]interface{}{
		"id":      id,
		"message": "tool created",
	})
}

//
// ==========================
// Update Tool
// ==========================
//

func (h *ToolHandler) UpdateTool(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	var input models.ToolInput
	if !decodeJSON(w, r, &input) {
		return
	}
	normalizeToolInput(&input)
	if !validateInput(w, input) {
		return
	}

	err := h.Repo.Update(r.Context(), id, input)
	if errors.Is(err, repo.ErrNotFound) {
		JSONError(w, "tool not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("update tool", "id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	username, _ := middleware.GetUsername(r.Context())
	recordAudit(r, h.Audit, username, "update", "tool", id, input.Name)
	JSONSuccess(w, http.StatusOK, map[string]string{"message": "tool updated"})
}

//
// ==========================
// Delete Tool
// ==========================
//

func (h *ToolHandler) DeleteTool(w http.ResponseWriter, r *http.Request) {
	id, ok := toolID(w, r)
	if !ok {
		return
	}

	err := h.Repo.Delete(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		JSONError(w, "tool not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("delete tool", "id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	username, _ := middleware.GetUsername(r.Context())
	recordAudit(r, h.Audit, username, "delete", "tool", id, "")
	JSONSuccess(w, http.StatusOK, map[string]string{"message": "tool deleted"})
}

func toolID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		JSONError(w, "invalid tool id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// normalizeToolInput trims whitespace and stores blank optional fields as NULL.
func normalizeToolInput(in *models.ToolInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Route = strings.TrimSpace(in.Route)
	for _, p := range []**string{&in.Description, &in.Version, &in.Icon} {
		if *p == nil {
			continue
		}
		if v := strings.TrimSpace(**p); v == "" {
			*p = nil
		} else {
			*p = &v
		}
	}
}
