// Package token issues and verifies the signed access tokens minted after
// validation. The wire format is base64url(header).base64url(payload).
// base64url(signature) with header {alg: "EdDSA", typ: "JWT", kid}; in
// hybrid mode the signature segment decodes to classicalHex + "." +
// quantumHex and both components must verify.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/quorumgate/quorumgate/crypto"
)

var (
	// ErrNotValidated is an exported constant or variable used by the token engine.
	ErrNotValidated = errors.New("validation result not successful")
	// ErrTokenFormat is an exported constant or variable used by the token engine.
	ErrTokenFormat = errors.New("invalid token format")
	// ErrTokenSignature is an exported constant or variable used by the token engine.
	ErrTokenSignature = errors.New("invalid token signature")
	// ErrTokenExpired is an exported constant or variable used by the token engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is an exported constant or variable used by the token engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSignerNotReady is an exported constant or variable used by the token engine.
	ErrSignerNotReady = errors.New("signer not initialized")
	// ErrEmergencyUnauthorized is an exported constant or variable used by the token engine.
	ErrEmergencyUnauthorized = errors.New("emergency access not authorized")
)

const (
	// MaxValiditySeconds is the hard ceiling on exp − iat for standard tokens.
	MaxValiditySeconds = 300
	// EmergencyValiditySeconds is the fixed validity of emergency tokens.
	EmergencyValiditySeconds = 60
)

// ValidationOutcome is the issuer's view of a validation verdict. The root
// package adapts its ValidationResult into this form.
type ValidationOutcome struct {
	Success               bool
	Score                 float64
	ChecksPassed          int
	FraudScore            float64
	SignatureCheckPassed  bool
	ComplianceCheckPassed bool
}

// Config tunes the issuer. ValiditySeconds above MaxValiditySeconds is
// clamped, never an error: requesting more has no effect beyond the max.
type Config struct {
	Issuer          string
	Audience        []string
	ValiditySeconds int
	SingleScheme    bool     // sign with the classical scheme only
	Departments     []string // emergency-access allow-list, empty denies all
}

// Issuer mints and verifies tokens under a rotating key ring.
// Safe for concurrent use.
type Issuer struct {
	cfg    Config
	ring   *crypto.KeyRing
	signer *crypto.HybridSigner
	now    func() time.Time
}

// NewIssuer builds an Issuer. The signer may be nil only in single-scheme
// mode; a missing ring is a fatal construction error.
func NewIssuer(cfg Config, ring *crypto.KeyRing, signer *crypto.HybridSigner) (*Issuer, error) {
	if ring == nil {
		return nil, ErrSignerNotReady
	}
	if !cfg.SingleScheme && signer == nil {
		return nil, ErrSignerNotReady
	}
	if cfg.ValiditySeconds <= 0 || cfg.ValiditySeconds > MaxValiditySeconds {
		cfg.ValiditySeconds = MaxValiditySeconds
	}
	return &Issuer{cfg: cfg, ring: ring, signer: signer, now: time.Now}, nil
}

// Issue builds, signs, and encodes a token for a successful validation
// verdict. The permission bitmap follows the verdict: read always, write at
// score ≥ 0.9, admin at score ≥ 0.95 with fraud < 0.05, transfer when both
// the signature and compliance checks passed.
func (i *Issuer) Issue(outcome ValidationOutcome, department string) (string, *Claims, error) {
	if !outcome.Success {
		return "", nil, ErrNotValidated
	}

	permissions := PermissionRead
	if outcome.Score >= 0.9 {
		permissions |= PermissionWrite
	}
	if outcome.Score >= 0.95 && outcome.FraudScore < 0.05 {
		permissions |= PermissionAdmin
	}
	if outcome.SignatureCheckPassed && outcome.ComplianceCheckPassed {
		permissions |= PermissionTransfer
	}

	now := i.now()
	claims := &Claims{
		Validation: ValidationSummary{
			Score:        outcome.Score,
			ChecksPassed: outcome.ChecksPassed,
			FraudScore:   outcome.FraudScore,
		},
		Permissions:  permissions,
		QuantumReady: true,
		Department:   department,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings(i.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(i.cfg.ValiditySeconds) * time.Second)),
		},
	}

	signed, err := i.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssueEmergency mints a fixed 60-second read-only token outside the
// validation pipeline. Department and practitioner pairs outside the
// configured allow-list fail closed. The caller persists the audit record.
func (i *Issuer) IssueEmergency(department, practitioner, reason string) (string, *Claims, error) {
	if practitioner == "" || reason == "" || !i.departmentAllowed(department) {
		return "", nil, ErrEmergencyUnauthorized
	}

	now := i.now()
	claims := &Claims{
		Validation: ValidationSummary{
			Score:        1,
			ChecksPassed: ChecksPassedOverride,
			FraudScore:   0,
		},
		Permissions:  PermissionRead,
		QuantumReady: true,
		Department:   department,
		Emergency: &EmergencyGrant{
			Practitioner: practitioner,
			Reason:       reason,
			IssuedAt:     now.UnixMilli(),
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings(i.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(EmergencyValiditySeconds * time.Second)),
		},
	}

	signed, err := i.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks format, then signature against the active or
// still-in-grace previous key, then expiry, and returns the decoded
// payload.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrTokenFormat
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrTokenSignature
		}
		km, ok := i.ring.VerificationKey(kid)
		if !ok {
			return nil, ErrTokenSignature
		}
		return verifyKey{material: km, hybrid: !i.cfg.SingleScheme}, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrTokenFormat, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrTokenSignature):
			return nil, ErrTokenSignature
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Rotate generates new key material and switches the active signer.
// Previously issued tokens verify until the rotation grace window closes.
func (i *Issuer) Rotate() (string, error) {
	km, err := i.ring.Rotate()
	if err != nil {
		return "", err
	}
	return km.KID, nil
}

// ActiveKID returns the key identifier tokens are currently signed under.
func (i *Issuer) ActiveKID() string {
	km := i.ring.Active()
	if km == nil {
		return ""
	}
	return km.KID
}

func (i *Issuer) sign(claims *Claims) (string, error) {
	km := i.ring.Active()
	if km == nil {
		return "", ErrSignerNotReady
	}
	tok := jwt.NewWithClaims(methodEdDSA, claims)
	tok.Header["kid"] = km.KID
	if i.cfg.SingleScheme {
		return tok.SignedString(classicalSigningKey{material: km})
	}
	return tok.SignedString(hybridSigningKey{material: km, signer: i.signer})
}

func (i *Issuer) departmentAllowed(department string) bool {
	for _, allowed := range i.cfg.Departments {
		if strings.EqualFold(allowed, department) {
			return true
		}
	}
	return false
}

// signingMethodEdDSA signs the JWT signing string with either the hybrid
// pair or the classical key alone, dispatching on the key type. It replaces
// the library's stock EdDSA method registration; for plain ed25519 keys the
// behavior is identical to the stock method.
type signingMethodEdDSA struct{}

var methodEdDSA = signingMethodEdDSA{}

func init() {
	jwt.RegisterSigningMethod("EdDSA", func() jwt.SigningMethod { return methodEdDSA })
}

type hybridSigningKey struct {
	material *crypto.KeyMaterial
	signer   *crypto.HybridSigner
}

type classicalSigningKey struct {
	material *crypto.KeyMaterial
}

type verifyKey struct {
	material *crypto.KeyMaterial
	hybrid   bool
}

// Alg identifies the method in the token header.
func (signingMethodEdDSA) Alg() string { return "EdDSA" }

// Sign produces the raw signature bytes for signingString.
func (signingMethodEdDSA) Sign(signingString string, key any) ([]byte, error) {
	switch k := key.(type) {
	case hybridSigningKey:
		sig, err := k.signer.SignWith(k.material, []byte(signingString))
		if err != nil {
			return nil, err
		}
		return []byte(sig.Hybrid), nil
	case classicalSigningKey:
		return k.material.Classical.Sign([]byte(signingString)), nil
	case ed25519.PrivateKey:
		return ed25519.Sign(k, []byte(signingString)), nil
	default:
		return nil, jwt.ErrInvalidKeyType
	}
}

// Verify checks sig over signingString. Verification failures map to the
// library's signature error; no error is returned for untrusted input
// beyond that.
func (signingMethodEdDSA) Verify(signingString string, sig []byte, key any) error {
	switch k := key.(type) {
	case verifyKey:
		if k.hybrid {
			if !crypto.VerifyHybrid([]byte(signingString), string(sig), k.material.Classical.PublicKey(), k.material) {
				return jwt.ErrTokenSignatureInvalid
			}
			return nil
		}
		if !crypto.VerifyClassical(k.material.Classical.PublicKey(), []byte(signingString), sig) {
			return jwt.ErrTokenSignatureInvalid
		}
		return nil
	case ed25519.PublicKey:
		if !crypto.VerifyClassical(k, []byte(signingString), sig) {
			return jwt.ErrTokenSignatureInvalid
		}
		return nil
	default:
		return jwt.ErrInvalidKeyType
	}
}
