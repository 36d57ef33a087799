package quorumgate

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func testValidationConfig() ValidationConfig {
	return ValidationConfig{
		TimeoutMs:      200,
		ParallelChecks: 8,
		FraudThreshold: 0.7,
		MinimumQuorum:  2,
		MaxClockSkew:   5 * time.Minute,
	}
}

func constantCheck(name string, weight, score float64) Check {
	return NewCheck(name, weight, func(context.Context, *AuthenticationRequest) (float64, error) {
		return score, nil
	})
}

func validRequest() *AuthenticationRequest {
	return &AuthenticationRequest{
		ID:        "req-100",
		Timestamp: time.Now().UnixMilli(),
		Data:      map[string]any{"resource": "records"},
	}
}

func TestValidatorRequiresChecks(t *testing.T) {
	if _, err := newValidator(testValidationConfig(), nil, NewMetrics(MetricsConfig{})); !errors.Is(err, ErrNoChecksRegistered) {
		t.Fatalf("expected ErrNoChecksRegistered, got %v", err)
	}
}

func TestValidatorRejectsDuplicateNames(t *testing.T) {
	checks := []Check{constantCheck("a", 1, 1), constantCheck("a", 1, 1)}
	if _, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{})); err == nil {
		t.Fatal("expected error for duplicate check names")
	}
}

func TestValidatorRejectsNonPositiveWeight(t *testing.T) {
	checks := []Check{constantCheck("a", 0, 1)}
	if _, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{})); err == nil {
		t.Fatal("expected error for zero weight")
	}
}

func TestPrecheckRejectsMalformed(t *testing.T) {
	v, err := newValidator(testValidationConfig(), []Check{constantCheck("a", 1, 1)}, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	bad := []*AuthenticationRequest{
		nil,
		{Timestamp: time.Now().UnixMilli(), Data: map[string]any{}},
		{ID: "x", Data: map[string]any{}},
		{ID: "x", Timestamp: time.Now().UnixMilli()},
	}
	for i, req := range bad {
		if _, err := v.Validate(context.Background(), req); !errors.Is(err, ErrRequestMalformed) {
			t.Fatalf("case %d: expected ErrRequestMalformed, got %v", i, err)
		}
	}
}

func TestPrecheckRejectsStaleTimestamp(t *testing.T) {
	v, err := newValidator(testValidationConfig(), []Check{constantCheck("a", 1, 1)}, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	req := validRequest()
	req.Timestamp = time.Now().Add(-time.Hour).UnixMilli()
	if _, err := v.Validate(context.Background(), req); !errors.Is(err, ErrRequestStale) {
		t.Fatalf("expected ErrRequestStale for old timestamp, got %v", err)
	}

	req.Timestamp = time.Now().Add(time.Hour).UnixMilli()
	if _, err := v.Validate(context.Background(), req); !errors.Is(err, ErrRequestStale) {
		t.Fatalf("expected ErrRequestStale for future timestamp, got %v", err)
	}
}

func TestWeightedAggregation(t *testing.T) {
	checks := []Check{
		constantCheck("a", 2, 1.0),
		constantCheck("b", 1, 0.4),
		constantCheck("c", 1, 0.8),
	}
	v, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	res, err := v.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := (2*1.0 + 1*0.4 + 1*0.8) / 4
	if math.Abs(res.Score-want) > 1e-9 {
		t.Fatalf("expected score %f, got %f", want, res.Score)
	}
	if res.ChecksPassed != 2 {
		t.Fatalf("expected 2 passing checks, got %d", res.ChecksPassed)
	}
	if res.TotalChecks != 3 {
		t.Fatalf("expected 3 total checks, got %d", res.TotalChecks)
	}
	if !res.Success {
		t.Fatal("expected success at score 0.8 with quorum 2")
	}
}

func TestQuorumIndependentOfScore(t *testing.T) {
	// One heavy passing check dominates the score while only one check
	// passes: the quorum requirement must still fail the request.
	checks := []Check{
		constantCheck("a", 10, 1.0),
		constantCheck("b", 1, 0.1),
		constantCheck("c", 1, 0.1),
	}
	v, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	res, err := v.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Score < 0.7 {
		t.Fatalf("expected dominating score, got %f", res.Score)
	}
	if res.ChecksPassed != 1 {
		t.Fatalf("expected 1 passing check, got %d", res.ChecksPassed)
	}
	if res.Success {
		t.Fatal("expected quorum failure despite high score")
	}
}

func TestErroringCheckCountsWithZeroScore(t *testing.T) {
	checks := []Check{
		constantCheck("a", 1, 1.0),
		constantCheck("b", 1, 1.0),
		NewCheck("broken", 1, func(context.Context, *AuthenticationRequest) (float64, error) {
			return 0, errors.New("backend unavailable")
		}),
	}
	v, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	res, err := v.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// The erroring check contributes 0 but its weight stays in the
	// denominator: (1 + 1 + 0) / 3.
	if math.Abs(res.Score-2.0/3) > 1e-9 {
		t.Fatalf("expected score 2/3, got %f", res.Score)
	}
	d := res.Details["broken"]
	if d.Error == "" || d.Passed || d.TimedOut {
		t.Fatalf("unexpected detail for erroring check: %+v", d)
	}
}

func TestPanickingCheckIsContained(t *testing.T) {
	checks := []Check{
		constantCheck("a", 1, 1.0),
		constantCheck("b", 1, 1.0),
		NewCheck("panicky", 1, func(context.Context, *AuthenticationRequest) (float64, error) {
			panic("boom")
		}),
	}
	v, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	res, err := v.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Details["panicky"].Error == "" {
		t.Fatal("expected panic recorded as check error")
	}
}

func TestTimedOutCheckDroppedFromAggregate(t *testing.T) {
	cfg := testValidationConfig()
	cfg.TimeoutMs = 30

	checks := []Check{
		constantCheck("a", 1, 0.9),
		constantCheck("b", 1, 0.9),
		NewCheck("slow", 5, func(ctx context.Context, _ *AuthenticationRequest) (float64, error) {
			select {
			case <-time.After(2 * time.Second):
				return 1, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}),
	}
	metrics := NewMetrics(MetricsConfig{Enabled: true})
	v, err := newValidator(cfg, checks, metrics)
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	start := time.Now()
	res, err := v.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected timeout to bound the call, took %v", elapsed)
	}

	// The slow check's weight is excluded entirely: (0.9 + 0.9) / 2.
	if math.Abs(res.Score-0.9) > 1e-9 {
		t.Fatalf("expected score 0.9 with timed-out check dropped, got %f", res.Score)
	}
	d := res.Details["slow"]
	if !d.TimedOut || d.Score != 0 {
		t.Fatalf("expected timed-out detail, got %+v", d)
	}
	if res.ChecksPassed != 2 {
		t.Fatalf("expected 2 passing checks, got %d", res.ChecksPassed)
	}
	if got := metrics.Value(MetricCheckTimeout); got != 1 {
		t.Fatalf("expected 1 timeout recorded, got %d", got)
	}
}

func TestScoreClampedToUnitInterval(t *testing.T) {
	checks := []Check{
		NewCheck("hot", 1, func(context.Context, *AuthenticationRequest) (float64, error) {
			return 7.5, nil
		}),
		NewCheck("cold", 1, func(context.Context, *AuthenticationRequest) (float64, error) {
			return -3, nil
		}),
	}
	v, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	res, err := v.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Details["hot"].Score != 1 {
		t.Fatalf("expected clamp to 1, got %f", res.Details["hot"].Score)
	}
	if res.Details["cold"].Score != 0 {
		t.Fatalf("expected clamp to 0, got %f", res.Details["cold"].Score)
	}
}

func TestFraudScoreFromDetailEntry(t *testing.T) {
	checks := []Check{
		constantCheck(CheckFraudModel, 1, 0.8),
		constantCheck("a", 1, 1.0),
	}
	v, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	res, err := v.Validate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if math.Abs(res.FraudScore-0.2) > 1e-9 {
		t.Fatalf("expected fraud score 0.2, got %f", res.FraudScore)
	}
}

// An erroring fraud-model check scores 0, so the reported fraud score is
// the full penalty of 1. Only a timeout suppresses the penalty: the model
// never answered, so there is nothing to invert.
func TestFraudScoreOnErrorAndTimeout(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		checks := []Check{
			NewCheck(CheckFraudModel, 1, func(context.Context, *AuthenticationRequest) (float64, error) {
				return 0, errors.New("model backend unavailable")
			}),
			constantCheck("a", 1, 1.0),
		}
		v, err := newValidator(testValidationConfig(), checks, NewMetrics(MetricsConfig{}))
		if err != nil {
			t.Fatalf("newValidator: %v", err)
		}

		res, err := v.Validate(context.Background(), validRequest())
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if res.FraudScore != 1 {
			t.Fatalf("expected fraud score 1 for erroring fraud model, got %f", res.FraudScore)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		cfg := testValidationConfig()
		cfg.TimeoutMs = 30

		checks := []Check{
			NewCheck(CheckFraudModel, 1, func(ctx context.Context, _ *AuthenticationRequest) (float64, error) {
				select {
				case <-time.After(2 * time.Second):
					return 1, nil
				case <-ctx.Done():
					return 0, ctx.Err()
				}
			}),
			constantCheck("a", 1, 1.0),
		}
		v, err := newValidator(cfg, checks, NewMetrics(MetricsConfig{}))
		if err != nil {
			t.Fatalf("newValidator: %v", err)
		}

		res, err := v.Validate(context.Background(), validRequest())
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if !res.Details[CheckFraudModel].TimedOut {
			t.Fatalf("expected timed-out fraud model detail, got %+v", res.Details[CheckFraudModel])
		}
		if res.FraudScore != 0 {
			t.Fatalf("expected fraud score 0 for timed-out fraud model, got %f", res.FraudScore)
		}
	})
}

func TestParallelismBounded(t *testing.T) {
	cfg := testValidationConfig()
	cfg.ParallelChecks = 2
	cfg.TimeoutMs = 1000

	var mu sync.Mutex
	cur, peak := 0, 0

	track := func(name string) Check {
		return NewCheck(name, 1, func(context.Context, *AuthenticationRequest) (float64, error) {
			mu.Lock()
			cur++
			if cur > peak {
				peak = cur
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			cur--
			mu.Unlock()
			return 1, nil
		})
	}

	checks := []Check{track("a"), track("b"), track("c"), track("d"), track("e")}
	v, err := newValidator(cfg, checks, NewMetrics(MetricsConfig{}))
	if err != nil {
		t.Fatalf("newValidator: %v", err)
	}

	if _, err := v.Validate(context.Background(), validRequest()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Fatalf("expected at most 2 concurrent checks, observed %d", peak)
	}
}
