// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package forkchoice tracks every known chain head and picks the
// canonical one: highest height, then highest cumulative weight, then
// lowest hash. Reorgs are bounded in depth and forbidden below the
// finalized checkpoint.
package forkchoice

import (
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

// archivedHeadsCapacity bounds the registry's memory to the live
// reorg-relevant window plus a generous informational tail: once a
// head falls below the finalized checkpoint it can never again be a
// reorg target or a common ancestor, so it is demoted out of the hot
// map into a bounded, eviction-safe cache for historical lookups only.
const archivedHeadsCapacity = 4096

var (
	ErrUnknownHead       = errors.New("forkchoice: unknown head")
	ErrReorgTooDeep      = errors.New("forkchoice: reorg exceeds MaxReorgDepth")
	ErrReorgBelowFinalized = errors.New("forkchoice: reorg ancestor is below the finalized checkpoint")
)

// ChainHead is the fork-choice-relevant summary of one known slice.
type ChainHead struct {
	Hash             mcrypto.Hash
	ParentHash       mcrypto.Hash
	Height           uint64
	Tau2Index        uint64
	CumulativeWeight uint64
	Timestamp        int64
}

// Less reports whether a loses the comparison to b: greater height
// wins, then greater cumulative weight, then lower hash (bit
// lexicographic) wins the tie.
func less(a, b ChainHead) bool {
	if a.Height != b.Height {
		return a.Height < b.Height
	}
	if a.CumulativeWeight != b.CumulativeWeight {
		return a.CumulativeWeight < b.CumulativeWeight
	}
	return hashGreater(a.Hash, b.Hash)
}

func hashGreater(a, b mcrypto.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// ReorgResult describes the effect of a completed reorg.
type ReorgResult struct {
	Depth    uint64
	Orphaned []mcrypto.Hash // previously-canonical hashes no longer on the chain
	Adopted  []mcrypto.Hash // newly-canonical hashes, ancestor exclusive, new head inclusive
}

// ForkChoice is the single-owner registry of known heads.
type ForkChoice struct {
	mu                 sync.RWMutex
	heads              map[mcrypto.Hash]ChainHead
	archived           *lru.Cache[mcrypto.Hash, ChainHead]
	canonical          mcrypto.Hash
	finalizedCheckpoint mcrypto.Hash
	finalizedHeight    uint64
}

// New creates a fork-choice registry seeded with the genesis head.
func New(genesis ChainHead) *ForkChoice {
	archived, err := lru.New[mcrypto.Hash, ChainHead](archivedHeadsCapacity)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// archivedHeadsCapacity never is.
		panic(err)
	}
	fc := &ForkChoice{
		heads:     map[mcrypto.Hash]ChainHead{genesis.Hash: genesis},
		archived:  archived,
		canonical: genesis.Hash,
	}
	return fc
}

// Insert records a newly validated head. It does not itself reorg;
// call ShouldReorg/ReorgTo to act on the result.
func (fc *ForkChoice) Insert(head ChainHead) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.heads[head.Hash] = head
}

// Canonical returns the current canonical head.
func (fc *ForkChoice) Canonical() ChainHead {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.heads[fc.canonical]
}

// HeadByHash looks up a known head by hash, canonical or not,
// including heads that have since been archived below the finalized
// checkpoint.
func (fc *ForkChoice) HeadByHash(hash mcrypto.Hash) (ChainHead, bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	if h, ok := fc.heads[hash]; ok {
		return h, true
	}
	return fc.archived.Get(hash)
}

// ShouldReorg reports whether newHead would displace the current
// canonical head under the comparison rule.
func (fc *ForkChoice) ShouldReorg(newHead ChainHead) bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return less(fc.heads[fc.canonical], newHead)
}

// CanReorgTo implements the finality gate: a reorg may never target,
// or pass through, the finalized checkpoint.
func (fc *ForkChoice) CanReorgTo(target mcrypto.Hash) bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	if target == fc.finalizedCheckpoint {
		return false
	}
	h, ok := fc.heads[target]
	if !ok {
		return false
	}
	return h.Height >= fc.finalizedHeight
}

// SetFinalizedCheckpoint records the chain's new finality floor and
// archives every head that falls below it: such a head can never again
// serve as a reorg target or common ancestor, so it no longer needs to
// live in the hot map.
func (fc *ForkChoice) SetFinalizedCheckpoint(hash mcrypto.Hash, height uint64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.finalizedCheckpoint = hash
	fc.finalizedHeight = height

	for h, head := range fc.heads {
		if head.Height < height && h != fc.canonical {
			fc.archived.Add(h, head)
			delete(fc.heads, h)
		}
	}
}

// ReorgTo switches the canonical pointer to newHead, computing the
// common ancestor and bounding both the reorg depth and how far below
// the finalized checkpoint it may reach.
func (fc *ForkChoice) ReorgTo(newHead mcrypto.Hash) (ReorgResult, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	target, ok := fc.lookup(newHead)
	if !ok {
		return ReorgResult{}, ErrUnknownHead
	}
	current := fc.heads[fc.canonical]

	ancestor, orphanedPath, adoptedPath, ok := fc.commonAncestor(current, target)
	if !ok {
		return ReorgResult{}, ErrUnknownHead
	}

	depth := current.Height - ancestor.Height
	if depth > types.MaxReorgDepth {
		return ReorgResult{}, ErrReorgTooDeep
	}
	if ancestor.Height < fc.finalizedHeight {
		return ReorgResult{}, ErrReorgBelowFinalized
	}

	fc.canonical = newHead
	return ReorgResult{Depth: depth, Orphaned: orphanedPath, Adopted: adoptedPath}, nil
}

// lookup resolves a hash against both the hot map and the archived,
// below-finality cache.
func (fc *ForkChoice) lookup(hash mcrypto.Hash) (ChainHead, bool) {
	if h, ok := fc.heads[hash]; ok {
		return h, true
	}
	return fc.archived.Get(hash)
}

// commonAncestor walks both chains back from their tips, collecting
// the hashes unique to each side, until the paths meet.
func (fc *ForkChoice) commonAncestor(a, b ChainHead) (ancestor ChainHead, aOnly, bOnly []mcrypto.Hash, ok bool) {
	aPath := map[mcrypto.Hash]uint64{a.Hash: a.Height}
	aWalk := a
	for aWalk.Height > 0 {
		parent, exists := fc.lookup(aWalk.ParentHash)
		if !exists {
			break
		}
		aPath[parent.Hash] = parent.Height
		aWalk = parent
	}

	bWalk := b
	bOnly = append(bOnly, bWalk.Hash)
	for {
		if _, inA := aPath[bWalk.Hash]; inA {
			ancestor = bWalk
			ok = true
			break
		}
		parent, exists := fc.lookup(bWalk.ParentHash)
		if !exists {
			return ChainHead{}, nil, nil, false
		}
		bWalk = parent
		bOnly = append(bOnly, bWalk.Hash)
	}
	reverse(bOnly)
	if len(bOnly) > 0 && bOnly[0] == ancestor.Hash {
		bOnly = bOnly[1:]
	}

	aWalk = a
	for aWalk.Hash != ancestor.Hash {
		aOnly = append(aOnly, aWalk.Hash)
		parent, exists := fc.lookup(aWalk.ParentHash)
		if !exists {
			break
		}
		aWalk = parent
	}

	return ancestor, aOnly, bOnly, ok
}

func reverse(hashes []mcrypto.Hash) {
	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
	}
}
