package quorumgate

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quorumgate/quorumgate/crypto"
	"github.com/quorumgate/quorumgate/fraud"
)

// Default weights of the built-in checks. Custom checks registered through
// the builder carry their own weights.
const (
	defaultSignatureWeight = 1.0
	defaultRecordsWeight   = 1.0
	defaultFraudWeight     = 1.0
	defaultPatternWeight   = 1.0
)

// placeholderRecordScore is returned by the records check when no backing
// store is configured.
const placeholderRecordScore = 0.95

// newSignatureCheck verifies the caller-attached Ed25519 signatures over
// the canonical request bytes. The check passes when at least one attached
// signature verifies against a trusted key. A request without signatures
// scores 0 rather than erroring so that its weight still counts.
func newSignatureCheck(weight float64, trusted map[string][]byte) Check {
	return NewCheck(CheckSignature, weight, func(_ context.Context, req *AuthenticationRequest) (float64, error) {
		if len(req.Signatures) == 0 || len(trusted) == 0 {
			return 0, nil
		}
		canonical, err := CanonicalRequestBytes(req)
		if err != nil {
			return 0, fmt.Errorf("canonicalize request: %w", err)
		}
		for _, sig := range req.Signatures {
			raw, err := hex.DecodeString(sig.Value)
			if err != nil {
				continue
			}
			if sig.KeyID != "" {
				if pub, ok := trusted[sig.KeyID]; ok && crypto.VerifyClassical(pub, canonical, raw) {
					return 1, nil
				}
				continue
			}
			for _, pub := range trusted {
				if crypto.VerifyClassical(pub, canonical, raw) {
					return 1, nil
				}
			}
		}
		return 0, nil
	})
}

// newRecordsCheck consults the external record store for the request ID.
// Without a store it returns a constant placeholder score so the pipeline
// stays runnable before the store is wired.
func newRecordsCheck(weight float64, store RecordStore) Check {
	return NewCheck(CheckRecords, weight, func(ctx context.Context, req *AuthenticationRequest) (float64, error) {
		if store == nil {
			return placeholderRecordScore, nil
		}
		exists, err := store.Exists(ctx, req.ID)
		if err != nil {
			return 0, fmt.Errorf("record lookup: %w", err)
		}
		if exists {
			return 1, nil
		}
		return 0, nil
	})
}

// newFraudCheck scores legitimacy as the complement of the fraud model's
// probability. Velocity tracking happens inside the scorer as a side
// effect of Analyze.
func newFraudCheck(weight float64, scorer *fraud.Scorer) Check {
	return NewCheck(CheckFraudModel, weight, func(_ context.Context, req *AuthenticationRequest) (float64, error) {
		return 1 - scorer.Analyze(fraudRequest(req)), nil
	})
}

// frequencyProbe is the pluggable third heuristic of the pattern check.
// The default implementation accepts everything.
type frequencyProbe func(ctx context.Context, req *AuthenticationRequest) bool

// newPatternCheck averages three boolean heuristics: request freshness
// under one minute, structural completeness of the data payload, and the
// frequency probe.
func newPatternCheck(weight float64, requiredFields []string, probe frequencyProbe, now func() time.Time) Check {
	if probe == nil {
		probe = func(context.Context, *AuthenticationRequest) bool { return true }
	}
	return NewCheck(CheckPattern, weight, func(ctx context.Context, req *AuthenticationRequest) (float64, error) {
		passed := 0

		if age := now().UnixMilli() - req.Timestamp; age >= 0 && age < 60_000 {
			passed++
		}

		if structuralComplete(req.Data, requiredFields) {
			passed++
		}

		if probe(ctx, req) {
			passed++
		}

		return float64(passed) / 3, nil
	})
}

func structuralComplete(data map[string]any, required []string) bool {
	if len(required) == 0 {
		return len(data) > 0
	}
	for _, f := range required {
		if _, ok := data[f]; !ok {
			return false
		}
	}
	return true
}

// fraudRequest adapts an engine request to the fraud package's view.
func fraudRequest(req *AuthenticationRequest) fraud.Request {
	fr := fraud.Request{
		ID:             req.ID,
		Timestamp:      req.Timestamp,
		Data:           req.Data,
		SignatureCount: len(req.Signatures),
	}
	if req.Metadata != nil {
		fr.Origin = req.Metadata.Origin
		fr.UserAgent = req.Metadata.UserAgent
		fr.IPAddress = req.Metadata.IPAddress
	}
	return fr
}

// RedisRecordStore is a [RecordStore] backed by Redis key existence.
type RedisRecordStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRecordStore creates a [RedisRecordStore]. Records are expected
// under "<prefix>:rec:<id>".
func NewRedisRecordStore(client redis.UniversalClient, prefix string) *RedisRecordStore {
	return &RedisRecordStore{client: client, prefix: prefix}
}

// Exists reports whether a record key is present for the given ID.
func (s *RedisRecordStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+":rec:"+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
