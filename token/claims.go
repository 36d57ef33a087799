package token

import "github.com/golang-jwt/jwt/v5"

// Permission bitmap bits. Each bit independently gates a capability.
const (
	// PermissionRead is an exported constant or variable used by the token engine.
	PermissionRead uint32 = 1 << iota
	// PermissionWrite is an exported constant or variable used by the token engine.
	PermissionWrite
	// PermissionAdmin is an exported constant or variable used by the token engine.
	PermissionAdmin
	// PermissionTransfer is an exported constant or variable used by the token engine.
	PermissionTransfer
)

// ChecksPassedOverride is the checks_passed sentinel carried by emergency
// tokens, meaning the validation pipeline was overridden.
const ChecksPassedOverride = -1

// ValidationSummary is the validation evidence embedded in a token payload.
type ValidationSummary struct {
	Score        float64 `json:"score"`
	ChecksPassed int     `json:"checks_passed"`
	FraudScore   float64 `json:"fraud_score"`
}

// EmergencyGrant records who invoked emergency access and why. The engine
// additionally persists an audit record; the token copy exists so the
// consumer can log it without a lookup.
type EmergencyGrant struct {
	Practitioner string `json:"practitioner"`
	Reason       string `json:"reason"`
	IssuedAt     int64  `json:"issuedAt"`
}

// Claims is the token payload. jti lives in RegisteredClaims.ID and must be
// globally unique per issuer lifetime; replay detection against it is the
// consumer's responsibility.
type Claims struct {
	Validation   ValidationSummary `json:"validation_results"`
	Permissions  uint32            `json:"permissions"`
	QuantumReady bool              `json:"quantum_ready"`
	Department   string            `json:"department,omitempty"`
	Emergency    *EmergencyGrant   `json:"emergency,omitempty"`
	jwt.RegisteredClaims
}

// HasPermission reports whether every bit of mask is set on the claims.
func (c *Claims) HasPermission(mask uint32) bool {
	return c.Permissions&mask == mask
}
