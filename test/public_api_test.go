package test

import (
	"context"
	"testing"

	quorumgate "github.com/quorumgate/quorumgate"
	"github.com/quorumgate/quorumgate/token"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = quorumgate.New

	var _ *quorumgate.Engine
	var _ quorumgate.Config
	var _ quorumgate.AuthenticationRequest
	var _ quorumgate.ValidationResult
	var _ quorumgate.CheckOutcome
	var _ quorumgate.Check
	var _ quorumgate.RecordStore
	var _ quorumgate.AuditSink
	var _ quorumgate.MetricsSnapshot
	var _ quorumgate.TokenClaims

	var _ error = quorumgate.ErrRequestMalformed
	var _ error = quorumgate.ErrRequestStale
	var _ error = quorumgate.ErrValidationRejected
	var _ error = quorumgate.ErrEngineNotReady
	var _ error = quorumgate.ErrTokenExpired
	var _ error = quorumgate.ErrTokenSignature
	var _ error = quorumgate.ErrEmergencyUnauthorized

	var _ func(*quorumgate.Engine, context.Context, *quorumgate.AuthenticationRequest) (string, *quorumgate.ValidationResult, error) = (*quorumgate.Engine).Authenticate
	var _ func(*quorumgate.Engine, context.Context, *quorumgate.AuthenticationRequest) (*quorumgate.ValidationResult, error) = (*quorumgate.Engine).Validate
	var _ func(*quorumgate.Engine, context.Context, string, string, string) (string, error) = (*quorumgate.Engine).IssueEmergencyToken
	var _ func(*quorumgate.Engine, string) (*quorumgate.TokenClaims, error) = (*quorumgate.Engine).VerifyToken
	var _ func(*quorumgate.Engine, context.Context) (string, error) = (*quorumgate.Engine).RotateKeys

	var _ uint32 = token.PermissionRead | token.PermissionWrite | token.PermissionAdmin | token.PermissionTransfer
}
