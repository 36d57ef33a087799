package quorumgate

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/quorumgate/quorumgate/token"
)

// Config defines the engine configuration surface. Instances are intended
// to be configured before [Builder.Build] and then treated as immutable.
type Config struct {
	Validation ValidationConfig
	Fraud      FraudConfig
	Token      TokenConfig
	Crypto     CryptoConfig
	Cache      CacheConfig
	Scaling    ScalingConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
VALIDATION CONFIG
====================================
*/

// ValidationConfig tunes the check pipeline.
type ValidationConfig struct {
	TimeoutMs      int     // per-check budget, not a whole-call budget
	ParallelChecks int     // concurrent check ceiling per request
	FraudThreshold float64 // minimum weighted score for success
	MinimumQuorum  int     // minimum passing checks, independent of score
	MaxClockSkew   time.Duration
	RequiredFields []string // logical fields the pattern check expects in data
}

/*
====================================
FRAUD CONFIG
====================================
*/

// FraudConfig tunes the scoring model's environment, not its weights.
// Weights are swapped at runtime via [Engine.UpdateFraudWeights].
type FraudConfig struct {
	TrustedOrigins []string
	Regions        []string // CIDR prefixes of recognized regions
	VelocityWindow time.Duration
	HistoryWindow  time.Duration
	HistoryCap     int
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig tunes issuance. ValiditySeconds above the 300s ceiling is
// clamped, never an error.
type TokenConfig struct {
	Issuer          string
	Audience        []string
	ValiditySeconds int
	Departments     []string // emergency-access allow-list
	SingleScheme    bool     // classical-only signing
}

/*
====================================
CRYPTO CONFIG
====================================
*/

// CryptoConfig tunes the signing core.
type CryptoConfig struct {
	SignatureCacheSize int
	TrustedRequestKeys map[string][]byte // key id → Ed25519 public key
	RotationGrace      time.Duration     // zero selects the max token validity
}

// CacheConfig tunes the Redis-backed request dedupe cache.
type CacheConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
}

// ScalingConfig is consumed by cluster bootstrap, not by the engine
// itself; it is validated here so a misconfigured deployment fails at
// construction rather than at scale-out.
type ScalingConfig struct {
	MinValidators     int
	MaxValidators     int
	ScaleThresholdCPU float64
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Validation: ValidationConfig{
			TimeoutMs:      100,
			ParallelChecks: 8,
			FraudThreshold: 0.7,
			MinimumQuorum:  3,
			MaxClockSkew:   5 * time.Minute,
		},
		Fraud: FraudConfig{
			VelocityWindow: time.Minute,
			HistoryWindow:  10 * time.Minute,
			HistoryCap:     1000,
		},
		Token: TokenConfig{
			Issuer:          "quorumgate",
			ValiditySeconds: token.MaxValiditySeconds,
		},
		Crypto: CryptoConfig{
			SignatureCacheSize: 1000,
		},
		Cache: CacheConfig{
			Enabled:     true,
			RedisPrefix: "qg",
			TTL:         time.Minute,
		},
		Scaling: ScalingConfig{
			MinValidators:     3,
			MaxValidators:     100,
			ScaleThresholdCPU: 0.8,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the engine defaults. Callers adjust fields on the
// returned copy before handing it to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate rejects misconfiguration that must not be silently tolerated.
// It normalizes the token validity by clamping it to the 300s ceiling.
func (c *Config) Validate() error {
	if c.Validation.TimeoutMs <= 0 {
		return errors.New("Validation.TimeoutMs must be positive")
	}
	if c.Validation.ParallelChecks <= 0 {
		return errors.New("Validation.ParallelChecks must be positive")
	}
	if c.Validation.FraudThreshold <= 0 || c.Validation.FraudThreshold > 1 {
		return errors.New("Validation.FraudThreshold must be in (0, 1]")
	}
	if c.Validation.MinimumQuorum < 1 {
		return errors.New("Validation.MinimumQuorum must be at least 1")
	}
	if c.Validation.MaxClockSkew <= 0 {
		return errors.New("Validation.MaxClockSkew must be positive")
	}

	for _, raw := range c.Fraud.Regions {
		if _, err := netip.ParsePrefix(raw); err != nil {
			return fmt.Errorf("Fraud.Regions entry %q is not a CIDR prefix: %w", raw, err)
		}
	}
	if c.Fraud.HistoryCap < 0 {
		return errors.New("Fraud.HistoryCap must not be negative")
	}

	if c.Token.ValiditySeconds <= 0 {
		return errors.New("Token.ValiditySeconds must be positive")
	}
	if c.Token.ValiditySeconds > token.MaxValiditySeconds {
		c.Token.ValiditySeconds = token.MaxValiditySeconds
	}
	if c.Token.Issuer == "" {
		return errors.New("Token.Issuer must be set")
	}

	if c.Crypto.SignatureCacheSize <= 0 {
		return errors.New("Crypto.SignatureCacheSize must be positive")
	}
	for kid, key := range c.Crypto.TrustedRequestKeys {
		if kid == "" {
			return errors.New("Crypto.TrustedRequestKeys contains an empty key id")
		}
		if len(key) != 32 {
			return fmt.Errorf("Crypto.TrustedRequestKeys[%q] is not an Ed25519 public key", kid)
		}
	}
	if c.Crypto.RotationGrace < 0 {
		return errors.New("Crypto.RotationGrace must not be negative")
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return errors.New("Cache.TTL must be positive when the cache is enabled")
	}

	if c.Scaling.MinValidators < 1 {
		return errors.New("Scaling.MinValidators must be at least 1")
	}
	if c.Scaling.MaxValidators < c.Scaling.MinValidators {
		return errors.New("Scaling.MaxValidators must be >= MinValidators")
	}
	if c.Scaling.ScaleThresholdCPU <= 0 || c.Scaling.ScaleThresholdCPU > 1 {
		return errors.New("Scaling.ScaleThresholdCPU must be in (0, 1]")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Validation.RequiredFields = append([]string(nil), cfg.Validation.RequiredFields...)
	out.Fraud.TrustedOrigins = append([]string(nil), cfg.Fraud.TrustedOrigins...)
	out.Fraud.Regions = append([]string(nil), cfg.Fraud.Regions...)
	out.Token.Audience = append([]string(nil), cfg.Token.Audience...)
	out.Token.Departments = append([]string(nil), cfg.Token.Departments...)
	if cfg.Crypto.TrustedRequestKeys != nil {
		out.Crypto.TrustedRequestKeys = make(map[string][]byte, len(cfg.Crypto.TrustedRequestKeys))
		for kid, key := range cfg.Crypto.TrustedRequestKeys {
			out.Crypto.TrustedRequestKeys[kid] = append([]byte(nil), key...)
		}
	}
	return out
}
