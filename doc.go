// Package quorumgate provides a low-latency token issuance engine: a
// bounded-time, multi-check legitimacy assessment of incoming
// authentication requests, a linear fraud-scoring model with sliding-window
// velocity tracking, and hybrid classical/post-quantum signed access tokens.
//
// The package is designed for concurrent gateway workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// quorumgate is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (ValidationResult, MetricsSnapshot, etc.).
// Signing primitives live in crypto/, the fraud model in fraud/, batch
// integrity trees in merkle/, token encoding in token/, and audit dispatch
// under internal/.
//
// # What this package must NOT do
//
//   - Expose Redis clients, key material, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports quorumgate (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path. Within one request every registered check
// runs concurrently against its own timeout; the decision never waits
// longer than the slowest surviving check. Token signing is CPU-bound with
// the two hybrid sub-signatures computed in parallel.
package quorumgate
