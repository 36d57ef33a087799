package quorumgate

import (
	"errors"

	"github.com/quorumgate/quorumgate/token"
)

var (
	// ErrRequestMalformed is an exported constant or variable used by the token engine.
	ErrRequestMalformed = errors.New("malformed authentication request")
	// ErrRequestStale is an exported constant or variable used by the token engine.
	ErrRequestStale = errors.New("request timestamp outside acceptance window")
	// ErrValidationRejected is an exported constant or variable used by the token engine.
	ErrValidationRejected = errors.New("request failed validation")
	// ErrNoChecksRegistered is an exported constant or variable used by the token engine.
	ErrNoChecksRegistered = errors.New("no validation checks registered")
	// ErrEngineNotReady is an exported constant or variable used by the token engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrCacheUnavailable is an exported constant or variable used by the token engine.
	ErrCacheUnavailable = errors.New("request cache unavailable")
)

// Token error sentinels re-exported from the token package.
var (
	// ErrTokenFormat is an exported constant or variable used by the token engine.
	ErrTokenFormat = token.ErrTokenFormat
	// ErrTokenSignature is an exported constant or variable used by the token engine.
	ErrTokenSignature = token.ErrTokenSignature
	// ErrTokenExpired is an exported constant or variable used by the token engine.
	ErrTokenExpired = token.ErrTokenExpired
	// ErrTokenInvalid is an exported constant or variable used by the token engine.
	ErrTokenInvalid = token.ErrTokenInvalid
	// ErrSignerNotReady is an exported constant or variable used by the token engine.
	ErrSignerNotReady = token.ErrSignerNotReady
	// ErrNotValidated is an exported constant or variable used by the token engine.
	ErrNotValidated = token.ErrNotValidated
	// ErrEmergencyUnauthorized is an exported constant or variable used by the token engine.
	ErrEmergencyUnauthorized = token.ErrEmergencyUnauthorized
)

// IsValidationError reports whether err classifies as malformed input
// (4xx-equivalent): the request never reached the check pipeline.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrRequestMalformed) || errors.Is(err, ErrRequestStale)
}

// IsTokenError reports whether err classifies as a token fault
// (401-equivalent): bad format, bad signature, expired, or a signer that
// was never initialized.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenFormat) ||
		errors.Is(err, ErrTokenSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrSignerNotReady)
}
