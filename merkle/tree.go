// Package merkle builds and verifies batch integrity trees over committed
// records. Trees use hex-encoded SHA-256 hashes; an unpaired trailing node
// is paired with itself to compute its parent, and proofs carry no entry
// for levels where the node had no sibling. Both rules must stay identical
// on the generation and verification sides.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// ErrIndexOutOfRange is an exported constant or variable used by the token engine.
var ErrIndexOutOfRange = errors.New("leaf index out of range")

// ErrInvalidRange is an exported constant or variable used by the token engine.
var ErrInvalidRange = errors.New("invalid leaf range")

// Proof is the exchange format for a single-leaf membership proof: an
// ordered sibling-hash list plus the leaf's original index and the leaf
// count of the source tree. The count lets verification re-derive which
// levels had an unpaired trailing node and therefore carry no sibling
// entry. A proof is valid only against the root of the tree it was
// derived from.
type Proof struct {
	Root      string   `json:"root"`
	LeafIndex int      `json:"leafIndex"`
	LeafCount int      `json:"leafCount"`
	Siblings  []string `json:"siblings"`
}

// Tree is an ordered Merkle accumulator. The zero leaves case has the empty
// string as root. All methods are safe for concurrent use.
type Tree struct {
	mu     sync.RWMutex
	leaves [][]byte
	levels [][]string
}

// New builds a tree over the given leaves. Leaf bytes are copied.
func New(leaves [][]byte) *Tree {
	t := &Tree{}
	t.leaves = make([][]byte, len(leaves))
	for i, leaf := range leaves {
		t.leaves[i] = append([]byte(nil), leaf...)
	}
	t.rebuild()
	return t
}

// AddLeaf appends a leaf and rebuilds every level. Rebuilding is O(n).
func (t *Tree) AddLeaf(leaf []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, append([]byte(nil), leaf...))
	t.rebuild()
}

// Root returns the top hash, or the empty string for a tree with no leaves.
func (t *Tree) Root() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.levels) == 0 {
		return ""
	}
	return t.levels[len(t.levels)-1][0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.leaves)
}

// Proof returns the membership proof for the leaf at index. For each level
// below the top, the sibling hash is appended when it exists; an unpaired
// trailing node contributes no entry since its duplicate is implicit.
func (t *Tree) Proof(index int) (Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.leaves) {
		return Proof{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(t.leaves))
	}

	siblings := []string{}
	pos := index
	for level := 0; level < len(t.levels)-1; level++ {
		sibling := pos ^ 1
		if sibling < len(t.levels[level]) {
			siblings = append(siblings, t.levels[level][sibling])
		}
		pos /= 2
	}

	return Proof{
		Root:      t.levels[len(t.levels)-1][0],
		LeafIndex: index,
		LeafCount: len(t.leaves),
		Siblings:  siblings,
	}, nil
}

// BatchRoot computes the root of an independent sub-tree over the leaf
// range [start, end). It is a separate tree, not an inclusion proof against
// the full tree.
func (t *Tree) BatchRoot(start, end int) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if start < 0 || end > len(t.leaves) || start >= end {
		return "", fmt.Errorf("%w: [%d, %d) of %d", ErrInvalidRange, start, end, len(t.leaves))
	}
	sub := New(t.leaves[start:end])
	return sub.Root(), nil
}

// Verify recomputes the leaf hash and folds the proof in level by level,
// walking the same level widths the source tree had. At a level where the
// node is the unpaired trailing entry it hashes with itself and consumes
// no sibling; everywhere else position parity decides concatenation order.
// The folded value must equal root and every sibling must be consumed.
func Verify(leaf []byte, index, leafCount int, siblings []string, root string) bool {
	if leafCount <= 0 || index < 0 || index >= leafCount {
		return false
	}

	current := hashHex(leaf)
	pos := index
	next := 0
	for width := leafCount; width > 1; width = (width + 1) / 2 {
		if pos == width-1 && width%2 == 1 {
			current = hashHex([]byte(current + current))
		} else {
			if next >= len(siblings) {
				return false
			}
			sibling := siblings[next]
			next++
			if pos%2 == 1 {
				current = hashHex([]byte(sibling + current))
			} else {
				current = hashHex([]byte(current + sibling))
			}
		}
		pos /= 2
	}
	return next == len(siblings) && current == root
}

// VerifyProof checks a Proof value against its embedded root.
func VerifyProof(leaf []byte, proof Proof) bool {
	return Verify(leaf, proof.LeafIndex, proof.LeafCount, proof.Siblings, proof.Root)
}

func (t *Tree) rebuild() {
	if len(t.leaves) == 0 {
		t.levels = nil
		return
	}

	level := make([]string, len(t.leaves))
	for i, leaf := range t.leaves {
		level[i] = hashHex(leaf)
	}
	t.levels = [][]string{level}

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left // duplicate-last rule
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashHex([]byte(left+right)))
		}
		t.levels = append(t.levels, next)
		level = next
	}
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
