package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sandeepkv93/edupro-device-guard/internal/http/response"
)

// RequireRole admits callers holding at least one of roles and logs every denial.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	required := strings.Join(roles, ",")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			for _, role := range roles {
				if claims.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			slog.WarnContext(r.Context(), "role check denied",
				"user_id", claims.Subject,
				"required", required,
				"path", r.URL.Path,
			)
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", map[string]string{"required": required})
		})
	}
}
