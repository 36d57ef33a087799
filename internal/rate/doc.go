// Package rate provides internal primitives used to build Redis-backed frequency
// counters behind the pattern check's request-rate heuristic.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefix:
//   - qf: — requests per-origin
//
// # What this package must NOT do
//
//   - Implement scoring policy (that lives in the validation pipeline).
//   - Be imported outside the quorumgate module.
package rate
