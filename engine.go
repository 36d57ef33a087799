package quorumgate

import (
	"context"
	"fmt"

	"github.com/quorumgate/quorumgate/crypto"
	"github.com/quorumgate/quorumgate/fraud"
	internalaudit "github.com/quorumgate/quorumgate/internal/audit"
	"github.com/quorumgate/quorumgate/merkle"
	"github.com/quorumgate/quorumgate/token"
)

// Engine defines a public type used by quorumgate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config    Config
	validator *validator
	scorer    *fraud.Scorer
	issuer    *token.Issuer
	ring      *crypto.KeyRing
	encap     *crypto.Encapsulator
	auditTree *merkle.Tree
	dedupe    *requestCache
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
}

// Authenticate runs the full issuance flow: dedupe lookup, validation,
// token issuance, audit anchoring. On a cache hit the previously issued
// token is returned with a nil ValidationResult.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, req *AuthenticationRequest) (string, *ValidationResult, error) {
	if e == nil || e.validator == nil {
		return "", nil, ErrEngineNotReady
	}

	req = e.backfillMetadata(ctx, req)

	if e.dedupe != nil && req != nil {
		if tok, ok := e.dedupe.Get(ctx, req); ok {
			e.metrics.Inc(MetricDedupeHit)
			e.auditRequestEvent(ctx, AuditEventDedupeHit, req, true, "")
			return tok, nil, nil
		}
		e.metrics.Inc(MetricDedupeMiss)
	}

	result, err := e.Validate(ctx, req)
	if err != nil {
		e.metrics.Inc(MetricRequestRejected)
		e.auditRequestEvent(ctx, AuditEventRequestRejected, req, false, err.Error())
		return "", nil, err
	}

	if !result.Success {
		e.metrics.Inc(MetricTokenRejected)
		e.auditRequestEvent(ctx, AuditEventValidationFailed, req, false,
			fmt.Sprintf("score %.3f, %d/%d checks passed", result.Score, result.ChecksPassed, result.TotalChecks))
		return "", result, fmt.Errorf("%w: score %.3f, %d/%d checks passed",
			ErrValidationRejected, result.Score, result.ChecksPassed, result.TotalChecks)
	}

	department := ""
	if req.Metadata != nil {
		department = req.Metadata.Department
	}

	tokenStr, claims, err := e.issuer.Issue(tokenOutcome(result), department)
	if err != nil {
		e.metrics.Inc(MetricTokenRejected)
		e.auditRequestEvent(ctx, AuditEventTokenRejected, req, false, err.Error())
		return "", result, err
	}

	e.metrics.Inc(MetricTokenIssued)
	e.anchorToken(claims)

	if e.dedupe != nil {
		e.dedupe.Put(ctx, req, tokenStr)
	}

	event := AuditEvent{
		EventType: AuditEventTokenIssued,
		RequestID: req.ID,
		TokenID:   claims.ID,
		Success:   true,
	}
	if req.Metadata != nil {
		event.Origin = req.Metadata.Origin
		event.Department = req.Metadata.Department
		event.IP = req.Metadata.IPAddress
	}
	e.emitAudit(ctx, event)

	return tokenStr, result, nil
}

// Validate runs the check pipeline without issuing a token.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, req *AuthenticationRequest) (*ValidationResult, error) {
	if e == nil || e.validator == nil {
		return nil, ErrEngineNotReady
	}

	result, err := e.validator.Validate(ctx, req)
	if err != nil {
		e.metrics.Inc(MetricValidationFailure)
		return nil, err
	}

	e.metrics.Observe(MetricValidateLatency, result.Duration)
	if result.Success {
		e.metrics.Inc(MetricValidationSuccess)
	} else {
		e.metrics.Inc(MetricValidationFailure)
	}
	return result, nil
}

// IssueEmergencyToken mints a short-lived read-only token outside the
// validation pipeline. Every denial and every grant is audited.
//
// IssueEmergencyToken may return an error when input validation, dependency calls, or security checks fail.
// IssueEmergencyToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueEmergencyToken(ctx context.Context, department, practitioner, reason string) (string, error) {
	if e == nil || e.issuer == nil {
		return "", ErrEngineNotReady
	}

	tokenStr, claims, err := e.issuer.IssueEmergency(department, practitioner, reason)
	if err != nil {
		e.metrics.Inc(MetricEmergencyTokenDenied)
		e.emitAudit(ctx, AuditEvent{
			EventType:  AuditEventEmergencyDenied,
			Department: department,
			Success:    false,
			Error:      err.Error(),
			Metadata:   map[string]string{"practitioner": practitioner, "reason": reason},
		})
		return "", err
	}

	e.metrics.Inc(MetricEmergencyTokenIssued)
	e.anchorToken(claims)
	e.emitAudit(ctx, AuditEvent{
		EventType:  AuditEventEmergencyIssued,
		TokenID:    claims.ID,
		Department: department,
		Success:    true,
		Metadata:   map[string]string{"practitioner": practitioner, "reason": reason},
	})

	return tokenStr, nil
}

// VerifyToken decodes and verifies a previously issued token, accepting
// the previous signing key inside the rotation grace window.
//
// VerifyToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyToken(tokenStr string) (*TokenClaims, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.issuer.Verify(tokenStr)
	if err != nil {
		e.metrics.Inc(MetricTokenVerifyFailure)
		return nil, err
	}
	e.metrics.Inc(MetricTokenVerifySuccess)
	return claims, nil
}

// RotateKeys generates fresh signing key material and returns the new key
// ID. Tokens signed by the previous key stay verifiable for the grace
// window.
//
// RotateKeys may return an error when input validation, dependency calls, or security checks fail.
// RotateKeys does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RotateKeys(ctx context.Context) (string, error) {
	if e == nil || e.issuer == nil {
		return "", ErrEngineNotReady
	}

	kid, err := e.issuer.Rotate()
	if err != nil {
		return "", err
	}
	e.metrics.Inc(MetricKeyRotation)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditEventKeyRotated,
		Success:   true,
		Metadata:  map[string]string{"kid": kid},
	})
	return kid, nil
}

// ActiveKID returns the key ID currently used for signing.
func (e *Engine) ActiveKID() string {
	return e.issuer.ActiveKID()
}

// UpdateFraudWeights swaps selected fraud-model coefficients atomically.
// In-flight scoring keeps the snapshot it started with.
//
// UpdateFraudWeights may return an error when input validation, dependency calls, or security checks fail.
// UpdateFraudWeights does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateFraudWeights(overrides map[string]float64) error {
	if e == nil || e.scorer == nil {
		return ErrEngineNotReady
	}
	return e.scorer.UpdateWeights(overrides)
}

// ActiveFraudWeights returns the fraud-model coefficient snapshot
// currently in effect.
func (e *Engine) ActiveFraudWeights() fraud.Weights {
	return e.scorer.ActiveWeights()
}

// Encapsulator exposes the ML-KEM-768 key encapsulation surface for
// callers establishing shared secrets with the engine's operator.
func (e *Engine) Encapsulator() *crypto.Encapsulator {
	return e.encap
}

// anchorToken appends the issued token's ID hash to the audit
// accumulator.
func (e *Engine) anchorToken(claims *token.Claims) {
	e.auditTree.AddLeaf([]byte(claims.ID))
}

// AuditRoot returns the current root of the issued-token accumulator, or
// the empty string before any issuance.
func (e *Engine) AuditRoot() string {
	return e.auditTree.Root()
}

// AuditProof returns an inclusion proof for the i-th issued token.
//
// AuditProof may return an error when input validation, dependency calls, or security checks fail.
// AuditProof does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditProof(index int) (merkle.Proof, error) {
	return e.auditTree.Proof(index)
}

// AuditLen reports how many tokens have been anchored.
func (e *Engine) AuditLen() int {
	return e.auditTree.Len()
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// Close drains the audit dispatcher. The engine must not be used after
// Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// backfillMetadata fills missing metadata fields from context values
// without mutating the caller's request.
func (e *Engine) backfillMetadata(ctx context.Context, req *AuthenticationRequest) *AuthenticationRequest {
	if req == nil {
		return nil
	}

	ip := clientIPFromContext(ctx)
	origin := originFromContext(ctx)
	agent := userAgentFromContext(ctx)
	if ip == "" && origin == "" && agent == "" {
		return req
	}

	clone := *req
	meta := RequestMetadata{}
	if req.Metadata != nil {
		meta = *req.Metadata
	}
	if meta.IPAddress == "" {
		meta.IPAddress = ip
	}
	if meta.Origin == "" {
		meta.Origin = origin
	}
	if meta.UserAgent == "" {
		meta.UserAgent = agent
	}
	clone.Metadata = &meta
	return &clone
}

// tokenOutcome adapts a ValidationResult to the issuer's view, lifting
// the signature and compliance verdicts out of the detail map.
func tokenOutcome(result *ValidationResult) token.ValidationOutcome {
	return token.ValidationOutcome{
		Success:               result.Success,
		Score:                 result.Score,
		ChecksPassed:          result.ChecksPassed,
		FraudScore:            result.FraudScore,
		SignatureCheckPassed:  result.Details[CheckSignature].Passed,
		ComplianceCheckPassed: result.Details[CheckCompliance].Passed,
	}
}
