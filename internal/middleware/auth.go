package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akulagin/mlservice/internal/api/httpx"
	"github.com/akulagin/mlservice/internal/models"
	"github.com/akulagin/mlservice/internal/services"
)

type userKey struct{}

// CurrentUser returns the authenticated user placed in context by Auth.
func CurrentUser(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey{}).(models.User)
	return u, ok
}

type AuthMiddleware struct {
	users *services.UserService
}

func NewAuthMiddleware(us *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{users: us}
}

// Auth requires "Authorization: Bearer <token>" and resolves the token's
// subject to a stored user before letting the request through.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		u, err := m.users.Authenticate(token)
		if err != nil {
			httpx.WriteAppError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
