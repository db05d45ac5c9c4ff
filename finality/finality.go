// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finality accumulates per-slice attestations and derives
// safe/final status and periodic checkpoints from them. It performs
// only structural checks on attestations; cryptographic verification
// of the attester's signature is the caller's responsibility before
// Add is ever called.
package finality

import (
	"errors"
	"sync"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

var (
	ErrInvalidSignature      = errors.New("finality: attestation signature is empty")
	ErrInsufficientWeight    = errors.New("finality: attester weight is zero")
	ErrTooManyAttestations   = errors.New("finality: per-slice attestation cap reached")
	ErrAlreadyAttested       = errors.New("finality: attester already attested this slice")
)

// Status is the derived view of a slice's finality progress.
type Status struct {
	FinalityDepth     uint64
	AttestationWeight uint64
	IsSafe            bool
	IsFinal           bool
}

type slot struct {
	attestations []types.SliceAttestation
	attesters    map[mcrypto.PubKey]struct{}
}

// Tracker is the single-owner finality state for one chain.
type Tracker struct {
	mu                  sync.RWMutex
	attestations        map[mcrypto.Hash]*slot
	sliceIndices        map[mcrypto.Hash]uint64
	canonicalHead       uint64
	finalizedCheckpoint *types.FinalityCheckpoint
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		attestations: make(map[mcrypto.Hash]*slot),
		sliceIndices: make(map[mcrypto.Hash]uint64),
	}
}

// SetCanonicalHead updates the height status() measures depth against.
func (t *Tracker) SetCanonicalHead(height uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.canonicalHead = height
}

// Add records an attestation, enforcing the structural invariants from
// section 4.6. It does not itself verify a.Signature cryptographically.
func (t *Tracker) Add(a types.SliceAttestation) error {
	if len(a.Signature) == 0 {
		return ErrInvalidSignature
	}
	if a.AttesterWeight == 0 {
		return ErrInsufficientWeight
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.attestations[a.SliceHash]
	if !ok {
		s = &slot{attesters: make(map[mcrypto.PubKey]struct{})}
		t.attestations[a.SliceHash] = s
	}
	if _, dup := s.attesters[a.AttesterPubKey]; dup {
		return ErrAlreadyAttested
	}
	if len(s.attestations) >= types.MaxAttestationsPerSlice {
		return ErrTooManyAttestations
	}

	s.attestations = append(s.attestations, a)
	s.attesters[a.AttesterPubKey] = struct{}{}
	t.sliceIndices[a.SliceHash] = a.SliceIndex
	return nil
}

// Status derives a slice's finality status relative to the tracker's
// current canonical head.
func (t *Tracker) Status(sliceHash mcrypto.Hash) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	index, known := t.sliceIndices[sliceHash]
	var depth uint64
	if known && t.canonicalHead >= index {
		depth = t.canonicalHead - index
	}

	var weight uint64
	if s, ok := t.attestations[sliceHash]; ok {
		for _, a := range s.attestations {
			weight += a.AttesterWeight
		}
	}

	return Status{
		FinalityDepth:     depth,
		AttestationWeight: weight,
		IsSafe:            depth >= types.SafeDepth,
		IsFinal:           depth >= types.FinalDepth,
	}
}

// CanReorgTo implements the tracker-side finality gate: anything
// deeper than SafeDepth below the canonical head is reorg-frozen.
func (t *Tracker) CanReorgTo(targetHeight uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.canonicalHead < targetHeight {
		return true
	}
	return t.canonicalHead-targetHeight < types.SafeDepth
}

// CreateCheckpoint builds a FinalityCheckpoint for sliceIndex if it
// lands on a CheckpointInterval boundary, storing it as the new
// finalized checkpoint. It returns ok=false on any other index.
func (t *Tracker) CreateCheckpoint(sliceIndex uint64, slice *types.Slice) (types.FinalityCheckpoint, bool) {
	if sliceIndex%types.CheckpointInterval != 0 {
		return types.FinalityCheckpoint{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sliceHash := slice.Hash()
	s := t.attestations[sliceHash]

	root := attestationRoot(sliceHash, s)
	signatures := firstSignatures(s, 100)

	cp := types.FinalityCheckpoint{
		Tau3Index:        sliceIndex / types.CheckpointInterval,
		SliceHash:        sliceHash,
		SliceIndex:       sliceIndex,
		CumulativeWeight: slice.Header.CumulativeWeight,
		AttestationRoot:  root,
		Signatures:       signatures,
	}
	t.finalizedCheckpoint = &cp
	return cp, true
}

// FinalizedCheckpoint returns the most recently created checkpoint, if
// any.
func (t *Tracker) FinalizedCheckpoint() (types.FinalityCheckpoint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.finalizedCheckpoint == nil {
		return types.FinalityCheckpoint{}, false
	}
	return *t.finalizedCheckpoint, true
}

func attestationRoot(sliceHash mcrypto.Hash, s *slot) mcrypto.Hash {
	buf := make([]byte, 0, len(mcrypto.DomainAttestation)+64)
	buf = append(buf, mcrypto.DomainAttestation...)
	if s == nil {
		return mcrypto.Sum256(buf)
	}
	for _, a := range s.attestations {
		buf = append(buf, sliceHash[:]...)
		buf = append(buf, a.AttesterPubKey[:]...)
		buf = appendU64LE(buf, a.AttesterWeight)
	}
	return mcrypto.Sum256(buf)
}

func appendU64LE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(v >> (8 * i))
	}
	return append(buf, tmp[:]...)
}

func firstSignatures(s *slot, n int) [][]byte {
	if s == nil {
		return nil
	}
	if n > len(s.attestations) {
		n = len(s.attestations)
	}
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = s.attestations[i].Signature
	}
	return out
}
