package middleware

import (
	"context"
	"net/http"
	"strings"

	quorumgate "github.com/quorumgate/quorumgate"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified token claims injected by [Guard].
func ClaimsFromContext(ctx context.Context) (*quorumgate.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*quorumgate.TokenClaims)
	return claims, ok
}

// Guard returns middleware that verifies the bearer token on each request
// and injects the decoded claims into the request context.
func Guard(engine *quorumgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.VerifyToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
