// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import "golang.org/x/crypto/sha3"

// Sum256 computes the SHA3-256 digest of data.
func Sum256(data []byte) Hash {
	return Hash(sha3.Sum256(data))
}

// MerkleRoot computes the Merkle root of leaves using pairwise SHA3-256
// under the MONTANA_MERKLE_V1 domain tag, duplicating the last node of
// an odd-sized level so every implementation across languages produces
// byte-identical roots.
func MerkleRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return Hash{}
	}
	level := make([]Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			left, right := level[2*i], level[2*i+1]
			buf := make([]byte, 0, len(DomainMerkle)+64)
			buf = append(buf, DomainMerkle...)
			buf = append(buf, left[:]...)
			buf = append(buf, right[:]...)
			next[i] = Sum256(buf)
		}
		level = next
	}
	return level[0]
}

// MerkleProof is an authentication path proving a single leaf's
// inclusion in a Merkle tree, used by light clients to verify "my
// presence is included in this slice" without downloading the full
// presence list.
type MerkleProof struct {
	LeafIndex  uint64
	Siblings   []Hash
	// Directions[i] is true when Siblings[i] is the right sibling at
	// that level.
	Directions []bool
}

// GenerateProof builds the authentication path for leaves[index].
func GenerateProof(leaves []Hash, index uint64) (MerkleProof, bool) {
	if index >= uint64(len(leaves)) {
		return MerkleProof{}, false
	}
	level := make([]Hash, len(leaves))
	copy(level, leaves)
	proof := MerkleProof{LeafIndex: index}
	idx := index
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		var sibling Hash
		var isRight bool
		if idx%2 == 0 {
			sibling = level[idx+1]
			isRight = true
		} else {
			sibling = level[idx-1]
			isRight = false
		}
		proof.Siblings = append(proof.Siblings, sibling)
		proof.Directions = append(proof.Directions, isRight)

		next := make([]Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			left, right := level[2*i], level[2*i+1]
			buf := make([]byte, 0, len(DomainMerkle)+64)
			buf = append(buf, DomainMerkle...)
			buf = append(buf, left[:]...)
			buf = append(buf, right[:]...)
			next[i] = Sum256(buf)
		}
		level = next
		idx /= 2
	}
	return proof, true
}

// VerifyProof checks that leaf, combined with proof, recomputes to root.
func VerifyProof(leaf Hash, proof MerkleProof, root Hash) bool {
	cur := leaf
	for i, sibling := range proof.Siblings {
		buf := make([]byte, 0, len(DomainMerkle)+64)
		buf = append(buf, DomainMerkle...)
		if proof.Directions[i] {
			buf = append(buf, cur[:]...)
			buf = append(buf, sibling[:]...)
		} else {
			buf = append(buf, sibling[:]...)
			buf = append(buf, cur[:]...)
		}
		cur = Sum256(buf)
	}
	return cur == root
}
