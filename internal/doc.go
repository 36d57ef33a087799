// Package internal contains helper packages that are intentionally private to
// quorumgate.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — core Redis-backed frequency counter primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public quorumgate API.
//   - Be imported by any package outside the quorumgate module.
package internal
