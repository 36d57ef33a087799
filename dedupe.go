package quorumgate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quorumgate/quorumgate/crypto"
)

// requestCache deduplicates identical requests inside a short TTL window.
// It is best-effort: a Redis failure degrades to normal processing, it
// never blocks issuance.
type requestCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func newRequestCache(client redis.UniversalClient, prefix string, ttl time.Duration) *requestCache {
	return &requestCache{client: client, prefix: prefix, ttl: ttl}
}

// key hashes the canonical request bytes so two structurally identical
// requests map to the same entry regardless of signature or metadata
// differences.
func (c *requestCache) key(req *AuthenticationRequest) (string, error) {
	canonical, err := CanonicalRequestBytes(req)
	if err != nil {
		return "", err
	}
	return c.prefix + ":req:" + crypto.Hash(canonical), nil
}

// Get returns the previously issued token for an identical request, if
// one is cached.
func (c *requestCache) Get(ctx context.Context, req *AuthenticationRequest) (string, bool) {
	key, err := c.key(req)
	if err != nil {
		return "", false
	}
	tok, err := c.client.Get(ctx, key).Result()
	if err != nil {
		// redis.Nil and transient failures both degrade to a miss
		return "", false
	}
	return tok, true
}

// Put stores the issued token under the request's dedupe key. Concurrent
// writers for the same key race benignly: last writer wins.
func (c *requestCache) Put(ctx context.Context, req *AuthenticationRequest, token string) {
	key, err := c.key(req)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, token, c.ttl).Err()
}
