package quorumgate

import (
	"context"
	"fmt"
	"time"
)

// validator orchestrates the registered checks for one request: full
// fan-out with a per-check timeout, then weighted aggregation into a
// ValidationResult.
type validator struct {
	checks  []Check
	cfg     ValidationConfig
	metrics *Metrics
	now     func() time.Time
}

func newValidator(cfg ValidationConfig, checks []Check, metrics *Metrics) (*validator, error) {
	if len(checks) == 0 {
		return nil, ErrNoChecksRegistered
	}
	seen := make(map[string]struct{}, len(checks))
	for _, c := range checks {
		if c.Name() == "" {
			return nil, fmt.Errorf("check with empty name")
		}
		if c.Weight() <= 0 {
			return nil, fmt.Errorf("check %q has non-positive weight", c.Name())
		}
		if _, ok := seen[c.Name()]; ok {
			return nil, fmt.Errorf("duplicate check name %q", c.Name())
		}
		seen[c.Name()] = struct{}{}
	}
	return &validator{checks: checks, cfg: cfg, metrics: metrics, now: time.Now}, nil
}

type checkResult struct {
	name    string
	weight  float64
	outcome CheckOutcome
	// counted is false when the check timed out: its result is dropped
	// from both the numerator and the denominator of the weighted score.
	counted bool
}

// Validate runs the pipeline. Only the structural pre-check raises; every
// per-check failure is recovered locally and recorded in Details.
func (v *validator) Validate(ctx context.Context, req *AuthenticationRequest) (*ValidationResult, error) {
	start := v.now()

	if err := v.precheck(req); err != nil {
		return nil, err
	}

	timeout := time.Duration(v.cfg.TimeoutMs) * time.Millisecond
	sem := make(chan struct{}, v.cfg.ParallelChecks)
	results := make(chan checkResult, len(v.checks))

	for _, c := range v.checks {
		go func(c Check) {
			sem <- struct{}{}
			defer func() { <-sem }()
			outcome, counted := runCheck(ctx, c, req, timeout)
			results <- checkResult{name: c.Name(), weight: c.Weight(), outcome: outcome, counted: counted}
		}(c)
	}

	details := make(map[string]CheckOutcome, len(v.checks))
	var weightSum, weightedScore float64
	checksPassed := 0

	for range v.checks {
		r := <-results
		details[r.name] = r.outcome
		if !r.counted {
			v.metrics.Inc(MetricCheckTimeout)
			continue
		}
		if r.outcome.Error != "" {
			v.metrics.Inc(MetricCheckFailure)
		}
		weightSum += r.weight
		weightedScore += r.outcome.Score * r.weight
		if r.outcome.Passed {
			checksPassed++
		}
	}

	finalScore := 0.0
	if weightSum > 0 {
		finalScore = weightedScore / weightSum
	}

	fraudScore := 0.0
	if d, ok := details[CheckFraudModel]; ok && !d.TimedOut {
		fraudScore = 1 - d.Score
	}

	return &ValidationResult{
		Success:      finalScore >= v.cfg.FraudThreshold && checksPassed >= v.cfg.MinimumQuorum,
		Score:        finalScore,
		ChecksPassed: checksPassed,
		TotalChecks:  len(v.checks),
		FraudScore:   fraudScore,
		Details:      details,
		Duration:     v.now().Sub(start),
	}, nil
}

// precheck rejects structurally invalid requests before any check runs.
// This is the only synchronous failure path of Validate.
func (v *validator) precheck(req *AuthenticationRequest) error {
	if req == nil || req.ID == "" || req.Timestamp == 0 || req.Data == nil {
		return ErrRequestMalformed
	}

	skew := v.now().UnixMilli() - req.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > v.cfg.MaxClockSkew.Milliseconds() {
		return fmt.Errorf("%w: skew %dms exceeds %dms", ErrRequestStale, skew, v.cfg.MaxClockSkew.Milliseconds())
	}
	return nil
}

// runCheck races one check against its own timer. A timed-out check is not
// waited for; its goroutine finishes on its own and the result is dropped.
func runCheck(ctx context.Context, c Check, req *AuthenticationRequest, timeout time.Duration) (CheckOutcome, bool) {
	type execResult struct {
		score float64
		err   error
	}

	started := time.Now()
	done := make(chan execResult, 1)
	cctx, cancel := context.WithTimeout(ctx, timeout)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				done <- execResult{err: fmt.Errorf("check panicked: %v", r)}
			}
		}()
		score, err := c.Execute(cctx, req)
		done <- execResult{score: score, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		elapsed := time.Since(started)
		if r.err != nil {
			return CheckOutcome{Score: 0, Passed: false, Error: r.err.Error(), Elapsed: elapsed}, true
		}
		score := r.score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		return CheckOutcome{Score: score, Passed: score >= 0.5, Elapsed: elapsed}, true
	case <-timer.C:
		return CheckOutcome{TimedOut: true, Elapsed: timeout}, false
	}
}
