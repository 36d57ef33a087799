package quorumgate

import (
	"context"
	"encoding/json"
	"io"
	"time"

	internalaudit "github.com/quorumgate/quorumgate/internal/audit"
	"github.com/quorumgate/quorumgate/token"
)

// Well-known check names. The transfer permission bit keys off the
// signature and compliance entries in [ValidationResult.Details].
const (
	// CheckSignature is an exported constant or variable used by the token engine.
	CheckSignature = "signature"
	// CheckRecords is an exported constant or variable used by the token engine.
	CheckRecords = "records"
	// CheckFraudModel is an exported constant or variable used by the token engine.
	CheckFraudModel = "fraud_model"
	// CheckPattern is an exported constant or variable used by the token engine.
	CheckPattern = "pattern"
	// CheckCompliance is an exported constant or variable used by the token engine.
	CheckCompliance = "compliance"
)

// AuthenticationRequest is the unit of work handed to the engine. It is
// immutable once received; the engine never mutates it.
type AuthenticationRequest struct {
	ID         string             `json:"id"`
	Timestamp  int64              `json:"timestamp"` // ms epoch
	Data       map[string]any     `json:"data"`
	Signatures []RequestSignature `json:"signatures,omitempty"`
	Metadata   *RequestMetadata   `json:"metadata,omitempty"`
}

// RequestSignature is one caller-attached Ed25519 signature over the
// canonical serialization of {id, timestamp, data}.
type RequestSignature struct {
	KeyID string `json:"key_id,omitempty"`
	Value string `json:"value"` // hex
}

// RequestMetadata carries optional caller context consumed by the fraud
// model and audit trail.
type RequestMetadata struct {
	Origin     string `json:"origin,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	Department string `json:"department,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
}

// Check is one registered legitimacy check. Execute returns a score in
// [0,1]; boolean checks return 0 or 1. A returned error marks the check
// unsuccessful without aborting sibling checks.
type Check interface {
	Name() string
	Weight() float64
	Execute(ctx context.Context, req *AuthenticationRequest) (float64, error)
}

type funcCheck struct {
	name   string
	weight float64
	fn     func(ctx context.Context, req *AuthenticationRequest) (float64, error)
}

func (c funcCheck) Name() string    { return c.name }
func (c funcCheck) Weight() float64 { return c.weight }
func (c funcCheck) Execute(ctx context.Context, req *AuthenticationRequest) (float64, error) {
	return c.fn(ctx, req)
}

// NewCheck wraps a plain function as a [Check].
func NewCheck(name string, weight float64, fn func(ctx context.Context, req *AuthenticationRequest) (float64, error)) Check {
	return funcCheck{name: name, weight: weight, fn: fn}
}

// CheckOutcome is the per-check entry of [ValidationResult.Details].
type CheckOutcome struct {
	Score    float64       `json:"score"`
	Passed   bool          `json:"passed"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// ValidationResult is the verdict produced once per request. It is never
// mutated after construction.
type ValidationResult struct {
	Success      bool                    `json:"success"`
	Score        float64                 `json:"score"`
	ChecksPassed int                     `json:"checksPassed"`
	TotalChecks  int                     `json:"totalChecks"`
	FraudScore   float64                 `json:"fraudScore"`
	Details      map[string]CheckOutcome `json:"details"`
	Duration     time.Duration           `json:"duration"`
}

// RecordStore is the external lookup collaborator behind the records
// check. Implementations must be safe for concurrent use.
type RecordStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// TokenClaims is the decoded token payload returned by
// [Engine.VerifyToken].
type TokenClaims = token.Claims

// Permission bitmap bits re-exported from the token package.
const (
	// PermissionRead is an exported constant or variable used by the token engine.
	PermissionRead = token.PermissionRead
	// PermissionWrite is an exported constant or variable used by the token engine.
	PermissionWrite = token.PermissionWrite
	// PermissionAdmin is an exported constant or variable used by the token engine.
	PermissionAdmin = token.PermissionAdmin
	// PermissionTransfer is an exported constant or variable used by the token engine.
	PermissionTransfer = token.PermissionTransfer
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// canonicalRequest is the signed and deduplicated view of a request:
// id, timestamp, and data only, with map keys in sorted order courtesy of
// encoding/json.
type canonicalRequest struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// CanonicalRequestBytes returns the canonical serialization of
// {id, timestamp, data} used for signature checks and deduplication. It is
// deterministic for a given request.
func CanonicalRequestBytes(req *AuthenticationRequest) ([]byte, error) {
	return json.Marshal(canonicalRequest{
		ID:        req.ID,
		Timestamp: req.Timestamp,
		Data:      req.Data,
	})
}
