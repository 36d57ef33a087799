package quorumgate

import "context"

type clientIPContextKey struct{}
type originContextKey struct{}
type userAgentContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// to backfill request metadata for the fraud model and audit trail when
// the request itself carries none.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithOrigin attaches the caller's origin identifier to ctx. Velocity
// tracking is keyed by origin.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. Used by the
// fraud model's behavior heuristics.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func originFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	origin, _ := ctx.Value(originContextKey{}).(string)
	return origin
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
