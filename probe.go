package quorumgate

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quorumgate/quorumgate/internal/rate"
)

// NewRedisFrequencyProbe returns a frequency probe for
// [Builder.WithFrequencyProbe] backed by fixed-window Redis counters. An
// origin that exceeds maxRequests within one window fails the probe.
// Redis outages degrade to a pass; the probe is one heuristic of the
// pattern check, not an enforcement point.
func NewRedisFrequencyProbe(client redis.UniversalClient, maxRequests int, window time.Duration) func(ctx context.Context, req *AuthenticationRequest) bool {
	limiter := rate.New(client, rate.Config{
		MaxRequests: maxRequests,
		Window:      window,
	})

	return func(ctx context.Context, req *AuthenticationRequest) bool {
		origin := ""
		if req.Metadata != nil {
			origin = req.Metadata.Origin
			if origin == "" {
				origin = req.Metadata.IPAddress
			}
		}
		if origin == "" {
			return true
		}

		ok, err := limiter.Allow(ctx, origin)
		if err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return false
			}
			return true
		}
		return ok
	}
}
