package handler

import (
	"net/http"
	"time"

	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/store"
)

// AuditLogHandler exposes the audit trail. Root only.
type AuditLogHandler struct {
	store *store.Store
}

// NewAuditLogHandler creates a new AuditLogHandler.
func NewAuditLogHandler(st *store.Store) *AuditLogHandler {
	return &AuditLogHandler{store: st}
}

// List returns audit entries, newest first. Supports team_id, user_id,
// method, status, from, to (RFC 3339), limit, and offset query parameters.
// GET /audit-logs
func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := model.AuditLogFilter{
		TeamID: queryString(r, "team_id"),
		UserID: queryString(r, "user_id"),
		Method: queryString(r, "method"),
		Status: queryString(r, "status"),
		Limit:  limit,
		Offset: offset,
	}
	if v := queryString(r, "from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'from' timestamp, want RFC 3339")
			return
		}
		filter.From = t
	}
	if v := queryString(r, "to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'to' timestamp, want RFC 3339")
			return
		}
		filter.To = t
	}

	entries, err := h.store.ListAuditLogs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit logs")
		return
	}
	total64 := int64(0)
	if total, err := h.store.CountAuditLogs(r.Context(), filter); err == nil {
		total64 = int64(total)
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: entries,
		Meta:     &model.ResponseMeta{Count: len(entries), Total: &total64, Limit: limit, Offset: offset},
	})
}
