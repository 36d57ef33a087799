package middleware

import (
	"net/http"

	quorumgate "github.com/quorumgate/quorumgate"
)

// RequirePermission returns middleware that verifies the bearer token and
// additionally requires every bit of mask on the token's permission bitmap.
func RequirePermission(engine *quorumgate.Engine, mask uint32) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !claims.HasPermission(mask) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
