package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/service"
)

type contextKeyAuth string

const (
	// identityKey is the context key for the authenticated identity.
	identityKey contextKeyAuth = "auth_identity"

	// pathContextKey is the context key for the classified request path.
	pathContextKey contextKeyAuth = "auth_path_context"
)

// Authenticate returns an HTTP middleware that resolves the request's API key
// to an identity. The key is read from the configured header (X-API-Key by
// default). On success the identity is attached to the request context; on
// failure a 401 JSON error response is returned with a WWW-Authenticate
// challenge. A missing key and a wrong key are indistinguishable to the
// client.
func Authenticate(authSvc *service.AuthService, header string) func(http.Handler) http.Handler {
	if header == "" {
		header = "X-API-Key"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authSvc.Authenticate(r.Context(), r.Header.Get(header))
			if err != nil {
				w.Header().Set("WWW-Authenticate", "ApiKey")
				if errors.Is(err, auth.ErrStoreUnavailable) {
					writeAuthError(w, http.StatusUnauthorized, "Credential store unavailable")
					return
				}
				writeAuthError(w, http.StatusUnauthorized,
					fmt.Sprintf("Authentication required. Provide a valid %s header.", header))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize returns an HTTP middleware that classifies the request path and
// checks the identity against the permission rules. It must run after
// Authenticate. Unroutable paths and ownership checks against missing
// resources yield 404; an insufficient role or failed ownership check yields
// 403. The classified path context is attached for downstream handlers.
func Authorize(authorizer *auth.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pc, err := auth.ClassifyPath(r.URL.Path)
			if err != nil {
				writeAuthError(w, http.StatusNotFound, "Not found")
				return
			}

			id := GetIdentity(r.Context())
			if err := authorizer.Authorize(r.Context(), id, r.Method, pc); err != nil {
				status, message := authzStatus(err)
				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", "ApiKey")
				}
				writeAuthError(w, status, message)
				return
			}

			ctx := context.WithValue(r.Context(), pathContextKey, pc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authzStatus maps an authorization error to a response status and message.
// The message never reveals which check failed beyond the status class.
func authzStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrStoreUnavailable):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, auth.ErrNotRoutable), errors.Is(err, auth.ErrResourceMissing):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusForbidden, "Forbidden"
	}
}

// GetIdentity extracts the authenticated identity from the context. Returns
// nil if no identity is present (i.e., unauthenticated request).
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}

// GetPathContext extracts the classified path from the context. Returns nil
// before Authorize has run.
func GetPathContext(ctx context.Context) *auth.PathContext {
	if pc, ok := ctx.Value(pathContextKey).(*auth.PathContext); ok {
		return pc
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, status, message)
}
