// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func leafHashes(n int) []Hash {
	leaves := make([]Hash, n)
	for i := range leaves {
		leaves[i] = Sum256([]byte{byte(i)})
	}
	return leaves
}

func TestMerkleRootDeterministic(t *testing.T) {
	leaves := leafHashes(5)
	r1 := MerkleRoot(leaves)
	r2 := MerkleRoot(leaves)
	require.Equal(t, r1, r2)
	require.False(t, r1.IsZero())
}

func TestMerkleRootEmpty(t *testing.T) {
	require.True(t, MerkleRoot(nil).IsZero())
}

func TestMerkleProofRoundTrip(t *testing.T) {
	leaves := leafHashes(7)
	root := MerkleRoot(leaves)
	for i := range leaves {
		proof, ok := GenerateProof(leaves, uint64(i))
		require.True(t, ok)
		require.True(t, VerifyProof(leaves[i], proof, root))
	}
}

func TestMerkleProofRejectsWrongLeaf(t *testing.T) {
	leaves := leafHashes(4)
	root := MerkleRoot(leaves)
	proof, ok := GenerateProof(leaves, 1)
	require.True(t, ok)
	require.False(t, VerifyProof(leaves[2], proof, root))
}
