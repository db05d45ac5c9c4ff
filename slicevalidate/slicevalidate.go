// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package slicevalidate implements the eight-step order in which an
// incoming slice is checked before it may enter fork-choice. Every
// step short-circuits the rest: a slice that fails step 2 is never
// checked for timestamp discipline.
package slicevalidate

import (
	"errors"
	"fmt"
	"math"
	"time"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/lottery"
	"github.com/montana-chain/consensus/types"
)

var (
	ErrTooManyPresences         = errors.New("slicevalidate: presence count exceeds MaxPresencesPerSlice")
	ErrDuplicatePresence        = errors.New("slicevalidate: duplicate presence for the same public key in this slice")
	ErrInvalidProducer          = errors.New("slicevalidate: producer is not the rank-slot lottery winner")
	ErrLotteryTicketMismatch    = errors.New("slicevalidate: header lottery_ticket does not match the recomputed winner ticket")
	ErrPresenceRootMismatch     = errors.New("slicevalidate: recomputed presence_root does not match header")
	ErrInvalidProducerSignature = errors.New("slicevalidate: invalid producer signature")
	ErrInvalidHeight            = errors.New("slicevalidate: height is not parent height + 1, or prev_slice_hash mismatch")
	ErrInvalidTimestamp         = errors.New("slicevalidate: timestamp discipline violated")
	ErrCumulativeWeightMismatch = errors.New("slicevalidate: recomputed cumulative weight does not match header")
	ErrWeightOverflow           = errors.New("slicevalidate: cumulative weight overflowed uint64")
)

// PresenceError wraps the underlying types.Presence validation failure
// with the offending presence's index in the slice, so callers can
// report which entry was bad without re-deriving it.
type PresenceError struct {
	Index int
	Err   error
}

func (e *PresenceError) Error() string {
	return fmt.Sprintf("slicevalidate: presence %d invalid: %v", e.Index, e.Err)
}

func (e *PresenceError) Unwrap() error { return e.Err }

// Parent is the subset of the parent slice's state a child's
// validation depends on.
type Parent struct {
	Hash             mcrypto.Hash
	Height           uint64
	Timestamp        int64
	CumulativeWeight uint64
}

// WeightLookup supplies a participant's current weight, as derived by
// package cooldown from registration and presence history.
type WeightLookup interface {
	Weight(pub mcrypto.PubKey, tier types.Tier) uint64
}

// Result carries the values validation derived as a side effect, so
// the caller (fork-choice) doesn't need to recompute them again.
type Result struct {
	CumulativeWeight uint64
	LotteryResult    types.LotteryResult
}

// Validate runs the eight-step check from section 4.4 against slice,
// given its parent's linkage state, a weight oracle, a signature
// verifier, and the validator's own clock.
func Validate(slice *types.Slice, parent Parent, weights WeightLookup, verifier mcrypto.Verifier, now time.Time) (Result, error) {
	h := &slice.Header

	// Step 1: presence count cap.
	if slice.PresenceCount() > types.MaxPresencesPerSlice {
		return Result{}, ErrTooManyPresences
	}
	if err := checkNoDuplicatePresences(slice); err != nil {
		return Result{}, err
	}

	// Step 2: reconstruct participants and run the lottery; the
	// producer must be the rank-slot winner.
	participants := reconstructParticipants(slice, weights)
	result, err := lottery.Draw(h.PrevSliceHash, h.Tau2Index, participants)
	if err != nil {
		return Result{}, fmt.Errorf("slicevalidate: %w", err)
	}
	if int(h.Slot) >= len(result.Winners) || result.Winners[h.Slot].PubKey != h.ProducerPubKey {
		return Result{}, ErrInvalidProducer
	}

	// Step 3: lottery ticket match.
	if h.LotteryTicket != result.Winners[h.Slot].Ticket {
		return Result{}, ErrLotteryTicketMismatch
	}

	// Step 4: presence_root recomputation.
	if slice.PresenceRoot() != h.PresenceRoot {
		return Result{}, ErrPresenceRootMismatch
	}

	// Step 5: per-presence validation.
	if err := validateAllPresences(slice, verifier, h.Tau2Index, now); err != nil {
		return Result{}, err
	}

	// Step 6: producer signature over hash(header).
	sliceHash := h.Hash()
	if !mcrypto.VerifyDomain(verifier, mcrypto.DomainSlice, h.ProducerPubKey, sliceHash[:], slice.ProducerSignature) {
		return Result{}, ErrInvalidProducerSignature
	}

	// Step 7: chain linkage.
	if h.PrevSliceHash != parent.Hash || h.Height != parent.Height+1 {
		return Result{}, ErrInvalidHeight
	}

	// Step 8: timestamp discipline.
	if h.Timestamp <= parent.Timestamp || h.Timestamp > now.Unix()+types.FutureTimestampSlackSecs {
		return Result{}, ErrInvalidTimestamp
	}

	weightSum, err := sumWeights(participants)
	if err != nil {
		return Result{}, ErrWeightOverflow
	}
	cumulativeWeight, err := addWeight(parent.CumulativeWeight, weightSum)
	if err != nil {
		return Result{}, ErrWeightOverflow
	}
	if h.CumulativeWeight != cumulativeWeight {
		return Result{}, ErrCumulativeWeightMismatch
	}

	return Result{CumulativeWeight: cumulativeWeight, LotteryResult: result}, nil
}

// checkNoDuplicatePresences enforces that no public key appears twice
// across a slice's two presence lists. Each presence carries its own
// signature, so a duplicate cannot be caught by presence_root or
// signature checks alone: it is a structurally valid, correctly
// signed proof repeated to double-count its producer's weight in the
// slice's recomputed cumulative weight (section 3's invariants).
func checkNoDuplicatePresences(slice *types.Slice) error {
	seen := make(map[mcrypto.PubKey]struct{}, slice.PresenceCount())
	for _, p := range slice.FullNodePresences {
		if _, dup := seen[p.ProducerPubKey]; dup {
			return ErrDuplicatePresence
		}
		seen[p.ProducerPubKey] = struct{}{}
	}
	for _, p := range slice.VerifiedUserPresences {
		if _, dup := seen[p.ProducerPubKey]; dup {
			return ErrDuplicatePresence
		}
		seen[p.ProducerPubKey] = struct{}{}
	}
	return nil
}

func reconstructParticipants(slice *types.Slice, weights WeightLookup) []types.Participant {
	out := make([]types.Participant, 0, slice.PresenceCount())
	for _, p := range slice.FullNodePresences {
		out = append(out, types.Participant{
			PubKey:       p.ProducerPubKey,
			Tier:         p.Tier,
			Weight:       weights.Weight(p.ProducerPubKey, p.Tier),
			PresenceHash: p.Hash(),
		})
	}
	for _, p := range slice.VerifiedUserPresences {
		out = append(out, types.Participant{
			PubKey:       p.ProducerPubKey,
			Tier:         p.Tier,
			Weight:       weights.Weight(p.ProducerPubKey, p.Tier),
			PresenceHash: p.Hash(),
		})
	}
	return out
}

func sumWeights(participants []types.Participant) (uint64, error) {
	var total uint64
	for _, p := range participants {
		var err error
		total, err = addWeight(total, p.Weight)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// addWeight returns a + b, reporting overflow instead of wrapping
// silently.
func addWeight(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrWeightOverflow
	}
	return a + b, nil
}

func validateAllPresences(slice *types.Slice, verifier mcrypto.Verifier, tau2Index uint64, now time.Time) error {
	idx := 0
	for i := range slice.FullNodePresences {
		if err := slice.FullNodePresences[i].Validate(verifier, tau2Index, now); err != nil {
			return &PresenceError{Index: idx, Err: err}
		}
		idx++
	}
	for i := range slice.VerifiedUserPresences {
		if err := slice.VerifiedUserPresences[i].Validate(verifier, tau2Index, now); err != nil {
			return &PresenceError{Index: idx, Err: err}
		}
		idx++
	}
	return nil
}
