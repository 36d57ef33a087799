// Package crypto implements the signing core of quorumgate: an Ed25519
// classical signer, an ML-DSA-44 post-quantum signer, the hybrid composition
// of the two, an ML-KEM-768 key encapsulator, and rotating key material.
//
// # Design
//
// Hybrid signatures carry both a classical and a post-quantum component and
// verify only when both components verify. Breaking a token therefore
// requires breaking both cryptosystems. Repeated messages are served from a
// bounded insertion-order cache keyed by the SHA-256 of the message.
//
// # Architecture boundaries
//
// This package owns key generation, signing, verification, and rotation
// state. Token encoding lives in token/, orchestration in the root package.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import the root package or any sibling package.
//   - Return errors for untrusted-input verification failures; verification
//     is fail-closed and reports false.
package crypto
