package internaldefs

import (
	quorumgate "github.com/quorumgate/quorumgate"
)

// CounterDef defines a public type used by quorumgate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   quorumgate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by quorumgate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   quorumgate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the token engine.
var CounterDefs = []CounterDef{
	{ID: quorumgate.MetricValidationSuccess, Name: "quorumgate_validation_success_total", Help: "Requests that cleared the weighted validation quorum."},
	{ID: quorumgate.MetricValidationFailure, Name: "quorumgate_validation_failure_total", Help: "Requests rejected by the weighted validation quorum."},
	{ID: quorumgate.MetricRequestRejected, Name: "quorumgate_request_rejected_total", Help: "Requests rejected before validation ran."},
	{ID: quorumgate.MetricCheckTimeout, Name: "quorumgate_check_timeout_total", Help: "Validation checks dropped after exceeding their per-check timeout."},
	{ID: quorumgate.MetricCheckFailure, Name: "quorumgate_check_failure_total", Help: "Validation checks that returned an error."},
	{ID: quorumgate.MetricTokenIssued, Name: "quorumgate_token_issued_total", Help: "Issued access tokens."},
	{ID: quorumgate.MetricTokenRejected, Name: "quorumgate_token_rejected_total", Help: "Token issuance attempts rejected."},
	{ID: quorumgate.MetricEmergencyTokenIssued, Name: "quorumgate_emergency_token_issued_total", Help: "Issued emergency tokens."},
	{ID: quorumgate.MetricEmergencyTokenDenied, Name: "quorumgate_emergency_token_denied_total", Help: "Emergency token requests denied by the department allow-list."},
	{ID: quorumgate.MetricTokenVerifySuccess, Name: "quorumgate_token_verify_success_total", Help: "Successful token verifications."},
	{ID: quorumgate.MetricTokenVerifyFailure, Name: "quorumgate_token_verify_failure_total", Help: "Failed token verifications."},
	{ID: quorumgate.MetricKeyRotation, Name: "quorumgate_key_rotation_total", Help: "Signing key rotations."},
	{ID: quorumgate.MetricDedupeHit, Name: "quorumgate_dedupe_hit_total", Help: "Requests answered from the deduplication cache."},
	{ID: quorumgate.MetricDedupeMiss, Name: "quorumgate_dedupe_miss_total", Help: "Requests that missed the deduplication cache."},
}

// HistogramDefs is an exported constant or variable used by the token engine.
var HistogramDefs = []HistogramDef{
	{ID: quorumgate.MetricValidateLatency, Name: "quorumgate_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the token engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the token engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
