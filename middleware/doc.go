// Package middleware exposes HTTP middleware adapters for token verification and
// permission enforcement built on top of quorumgate.Engine verification.
//
// # Guards
//
//   - [Guard] — verifies the bearer token and injects claims into the context.
//   - [RequirePermission] — Guard plus a permission bitmap requirement.
//
// Each guard reads the Authorization header, calls Engine.VerifyToken, and injects
// the decoded claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// verification logic itself — all decisions are delegated to Engine.VerifyToken.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond the claims' permission bitmap.
package middleware
