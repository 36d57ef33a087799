package quorumgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quorumgate/quorumgate/crypto"
	"github.com/quorumgate/quorumgate/fraud"
	"github.com/quorumgate/quorumgate/merkle"
	"github.com/quorumgate/quorumgate/token"
)

// Builder defines a public type used by quorumgate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	checks      []Check
	recordStore RecordStore
	probe       frequencyProbe
	auditSink   AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithChecks appends custom checks to the built-in pipeline. Names must
// not collide with the built-in checks.
func (b *Builder) WithChecks(checks ...Check) *Builder {
	b.checks = append(b.checks, checks...)
	return b
}

// WithRecordStore wires the external lookup behind the records check.
// Without a store the records check returns a constant placeholder score.
func (b *Builder) WithRecordStore(store RecordStore) *Builder {
	b.recordStore = store
	return b
}

// WithFrequencyProbe replaces the pattern check's request-frequency
// heuristic. The default probe accepts everything.
func (b *Builder) WithFrequencyProbe(probe func(ctx context.Context, req *AuthenticationRequest) bool) *Builder {
	b.probe = probe
	return b
}

// WithTrustedRequestKeys registers the Ed25519 public keys the signature
// check verifies against, keyed by caller key ID.
func (b *Builder) WithTrustedRequestKeys(keys map[string][]byte) *Builder {
	b.config.Crypto.TrustedRequestKeys = keys
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled && b.redis == nil {
		return nil, errors.New("request cache requires redis client")
	}

	// -------- SIGNING CORE --------
	grace := cfg.Crypto.RotationGrace
	if grace <= 0 {
		grace = time.Duration(token.MaxValiditySeconds) * time.Second
	}

	ring, err := crypto.NewKeyRing(grace)
	if err != nil {
		return nil, err
	}

	var signer *crypto.HybridSigner
	if !cfg.Token.SingleScheme {
		signer, err = crypto.NewHybridSigner(ring, cfg.Crypto.SignatureCacheSize)
		if err != nil {
			return nil, err
		}
	}

	// -------- FRAUD MODEL --------
	scorer := fraud.NewScorer(fraud.Config{
		TrustedOrigins: cfg.Fraud.TrustedOrigins,
		Regions:        cfg.Fraud.Regions,
		VelocityWindow: cfg.Fraud.VelocityWindow,
		HistoryWindow:  cfg.Fraud.HistoryWindow,
		HistoryCap:     cfg.Fraud.HistoryCap,
	})

	// -------- TOKEN ISSUER --------
	issuer, err := token.NewIssuer(token.Config{
		Issuer:          cfg.Token.Issuer,
		Audience:        cfg.Token.Audience,
		ValiditySeconds: cfg.Token.ValiditySeconds,
		Departments:     cfg.Token.Departments,
		SingleScheme:    cfg.Token.SingleScheme,
	}, ring, signer)
	if err != nil {
		return nil, err
	}

	// -------- CHECK PIPELINE --------
	checks := []Check{
		newSignatureCheck(defaultSignatureWeight, cfg.Crypto.TrustedRequestKeys),
		newRecordsCheck(defaultRecordsWeight, b.recordStore),
		newFraudCheck(defaultFraudWeight, scorer),
		newPatternCheck(defaultPatternWeight, cfg.Validation.RequiredFields, b.probe, time.Now),
	}
	builtin := make(map[string]struct{}, len(checks))
	for _, c := range checks {
		builtin[c.Name()] = struct{}{}
	}
	for _, c := range b.checks {
		if _, ok := builtin[c.Name()]; ok {
			return nil, fmt.Errorf("check %q shadows a built-in check", c.Name())
		}
		checks = append(checks, c)
	}

	metrics := NewMetrics(cfg.Metrics)

	validator, err := newValidator(cfg.Validation, checks, metrics)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		validator: validator,
		scorer:    scorer,
		issuer:    issuer,
		ring:      ring,
		encap:     crypto.NewEncapsulator(),
		auditTree: merkle.New(nil),
		metrics:   metrics,
	}

	if cfg.Cache.Enabled {
		engine.dedupe = newRequestCache(b.redis, cfg.Cache.RedisPrefix, cfg.Cache.TTL)
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	b.built = true

	return engine, nil
}
