package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/haasonsaas/taskpilot/pkg/models"
)

// ownerKey is the context key under which Middleware stores the
// authenticated user. Handlers reach it through UserFromContext.
type ownerKey struct{}

// WithUser attaches an authenticated user to the context. It is exported for
// tests and internal callers that bypass the HTTP middleware.
func WithUser(ctx context.Context, user *models.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, ownerKey{}, user)
}

// UserFromContext returns the authenticated user placed there by Middleware.
// Handlers behind the middleware can rely on ok being true; anything else is
// a wiring bug.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ownerKey{}).(*models.User)
	return user, ok
}

// Middleware validates the Authorization header and attaches the resulting
// user to the request context. Requests without a valid bearer token are
// rejected before any handler logic runs.
func Middleware(jwt *JWTService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		user, err := jwt.Validate(token)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
