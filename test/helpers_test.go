//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	quorumgate "github.com/quorumgate/quorumgate"
	"github.com/redis/go-redis/v9"
)

func newIntegrationEngine(t *testing.T) (*quorumgate.Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := quorumgate.DefaultConfig()
	cfg.Validation.MinimumQuorum = 2
	cfg.Validation.FraudThreshold = 0.5
	cfg.Token.Departments = []string{"cardiology"}

	engine, err := quorumgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("engine build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func integrationRequest(id string) *quorumgate.AuthenticationRequest {
	return &quorumgate.AuthenticationRequest{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Data:      map[string]any{"resource": "records", "action": "read"},
		Metadata: &quorumgate.RequestMetadata{
			Origin:     "clinic-7",
			UserAgent:  "quorumgate-integration/1.0",
			IPAddress:  "10.0.0.8",
			Department: "cardiology",
		},
	}
}
