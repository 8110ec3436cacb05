package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/store"
)

// Audit returns an HTTP middleware that records one audit log entry per
// handled request, after the response is written. The record captures who
// made the request, what was asked, and how it ended. A failed write is
// logged but never affects the response.
func Audit(st *store.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			entry := &model.AuditLog{
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     model.AuditStatusSuccess,
				StatusCode: ww.status,
				IPAddress:  r.RemoteAddr,
				UserAgent:  r.UserAgent(),
				DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
			}
			if ww.status >= 400 {
				entry.Status = model.AuditStatusFailure
			}
			if id := GetIdentity(r.Context()); id != nil {
				entry.CredentialID = id.CredentialID
				entry.TeamID = id.TeamID
				entry.UserID = id.UserID
			}
			if pc, err := auth.ClassifyPath(r.URL.Path); err == nil && len(pc.Segments) > 0 {
				last := pc.Segments[len(pc.Segments)-1]
				entry.ResourceType = string(last.Type)
				entry.ResourceID = last.ID
			}

			// The request context may already be canceled.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := st.CreateAuditLog(ctx, entry); err != nil {
				logger.Error("audit log write failed",
					"error", err,
					"method", entry.Method,
					"path", entry.Path,
					"request_id", GetRequestID(r.Context()),
				)
			}
		})
	}
}
