// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import mcrypto "github.com/montana-chain/consensus/crypto"

// Slice is the ledger unit: Montana's equivalent of a block.
type Slice struct {
	Header                Header
	FullNodePresences     []Presence
	VerifiedUserPresences []Presence
	Transactions          [][]byte
	ProducerSignature     []byte
	Attestations          []SliceAttestation
}

// Hash returns the slice's identity hash (the header hash).
func (s *Slice) Hash() mcrypto.Hash {
	return s.Header.Hash()
}

// PresenceRoot recomputes the Merkle root over all included presences,
// Full Node presences first then Verified User presences, each in the
// slice's declared order, per section 4.4 step 4.
func (s *Slice) PresenceRoot() mcrypto.Hash {
	leaves := make([]mcrypto.Hash, 0, len(s.FullNodePresences)+len(s.VerifiedUserPresences))
	for i := range s.FullNodePresences {
		leaves = append(leaves, s.FullNodePresences[i].Hash())
	}
	for i := range s.VerifiedUserPresences {
		leaves = append(leaves, s.VerifiedUserPresences[i].Hash())
	}
	return mcrypto.MerkleRoot(leaves)
}

// PresenceCount returns the total number of included presences across
// both tiers.
func (s *Slice) PresenceCount() int {
	return len(s.FullNodePresences) + len(s.VerifiedUserPresences)
}

// Participant is the (pubkey, tier, weight) view of a presence used as
// lottery input; it is reconstructed from a slice's included presences
// during validation (section 4.4 step 2) and from pool snapshots during
// slice production (section 4.3).
type Participant struct {
	PubKey       mcrypto.PubKey
	Tier         Tier
	Weight       uint64
	PresenceHash mcrypto.Hash
}

// Winner is one admitted participant in a LotteryResult.
type Winner struct {
	PubKey mcrypto.PubKey
	Tier   Tier
	Ticket mcrypto.Hash
	Rank   int // 0 = primary producer, 1..9 = backup producers
	Weight uint64
}

// LotteryResult is the derived, immutable record of one tau2's
// producer selection.
type LotteryResult struct {
	Seed              mcrypto.Hash
	Tau2Index         uint64
	TotalWeight       uint64
	FullNodeWeight    uint64
	VerifiedUserWeight uint64
	Winners           []Winner
}

// SliceAttestation is a vote that a weighted participant considers a
// particular slice canonical.
type SliceAttestation struct {
	SliceHash      mcrypto.Hash
	AttesterPubKey mcrypto.PubKey
	AttesterWeight uint64
	SliceIndex     uint64
	Signature      []byte
}

// FinalityCheckpoint is produced every CheckpointInterval slices and,
// once created, forbids reorgs below its height.
type FinalityCheckpoint struct {
	Tau3Index        uint64
	SliceHash        mcrypto.Hash
	SliceIndex       uint64
	CumulativeWeight uint64
	AttestationRoot  mcrypto.Hash
	Signatures       [][]byte // up to 100, from the first attestations in the order they were recorded
}
