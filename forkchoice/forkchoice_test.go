// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package forkchoice

import (
	"testing"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/stretchr/testify/require"
)

func h(b byte) mcrypto.Hash {
	var hh mcrypto.Hash
	hh[0] = b
	return hh
}

func TestShouldReorgByHeight(t *testing.T) {
	genesis := ChainHead{Hash: h(0), Height: 0}
	fc := New(genesis)

	taller := ChainHead{Hash: h(1), ParentHash: h(0), Height: 1, CumulativeWeight: 1}
	fc.Insert(taller)

	require.True(t, fc.ShouldReorg(taller))
}

func TestShouldReorgWeightTiebreak(t *testing.T) {
	genesis := ChainHead{Hash: h(0), Height: 0}
	fc := New(genesis)

	a := ChainHead{Hash: h(1), ParentHash: h(0), Height: 1, CumulativeWeight: 5}
	fc.Insert(a)
	_, err := fc.ReorgTo(a.Hash)
	require.NoError(t, err)

	heavier := ChainHead{Hash: h(2), ParentHash: h(0), Height: 1, CumulativeWeight: 10}
	require.True(t, fc.ShouldReorg(heavier))

	lighter := ChainHead{Hash: h(3), ParentHash: h(0), Height: 1, CumulativeWeight: 1}
	require.False(t, fc.ShouldReorg(lighter))
}

func TestShouldReorgLowerHashTiebreak(t *testing.T) {
	genesis := ChainHead{Hash: h(0), Height: 0}
	fc := New(genesis)

	a := ChainHead{Hash: h(0xFF), ParentHash: h(0), Height: 1, CumulativeWeight: 5}
	fc.Insert(a)
	_, err := fc.ReorgTo(a.Hash)
	require.NoError(t, err)

	lowerHash := ChainHead{Hash: h(0x01), ParentHash: h(0), Height: 1, CumulativeWeight: 5}
	require.True(t, fc.ShouldReorg(lowerHash), "equal height and weight: lower hash must win")
}

func TestReorgToRejectsTooDeep(t *testing.T) {
	genesis := ChainHead{Hash: h(0), Height: 0}
	fc := New(genesis)

	// Build a single long chain of MaxReorgDepth+1 and an immediate
	// sibling fork at height 1, so reorging onto the sibling from the
	// tip of the long chain exceeds the depth bound.
	prev := genesis
	for i := byte(1); i <= 101; i++ {
		head := ChainHead{Hash: h(i), ParentHash: prev.Hash, Height: uint64(i), CumulativeWeight: uint64(i)}
		fc.Insert(head)
		_, err := fc.ReorgTo(head.Hash)
		require.NoError(t, err)
		prev = head
	}

	sibling := ChainHead{Hash: h(200), ParentHash: h(0), Height: 1, CumulativeWeight: 1}
	fc.Insert(sibling)

	_, err := fc.ReorgTo(sibling.Hash)
	require.ErrorIs(t, err, ErrReorgTooDeep)
}

func TestReorgToRejectsBelowFinalized(t *testing.T) {
	genesis := ChainHead{Hash: h(0), Height: 0}
	fc := New(genesis)

	a := ChainHead{Hash: h(1), ParentHash: h(0), Height: 1, CumulativeWeight: 1}
	fc.Insert(a)
	_, err := fc.ReorgTo(a.Hash)
	require.NoError(t, err)

	fc.SetFinalizedCheckpoint(a.Hash, 1)

	sibling := ChainHead{Hash: h(2), ParentHash: h(0), Height: 1, CumulativeWeight: 1}
	fc.Insert(sibling)

	_, err = fc.ReorgTo(sibling.Hash)
	require.ErrorIs(t, err, ErrReorgBelowFinalized)
}

func TestSetFinalizedCheckpointArchivesBelowFloor(t *testing.T) {
	genesis := ChainHead{Hash: h(0), Height: 0}
	fc := New(genesis)

	a := ChainHead{Hash: h(1), ParentHash: h(0), Height: 1, CumulativeWeight: 1}
	fc.Insert(a)
	_, err := fc.ReorgTo(a.Hash)
	require.NoError(t, err)

	fc.SetFinalizedCheckpoint(a.Hash, 1)

	fc.mu.RLock()
	_, stillHot := fc.heads[genesis.Hash]
	fc.mu.RUnlock()
	require.False(t, stillHot, "genesis should have been archived below the finality floor")

	head, ok := fc.HeadByHash(genesis.Hash)
	require.True(t, ok, "archived heads remain reachable through HeadByHash")
	require.Equal(t, genesis.Height, head.Height)
}

func TestCanReorgToFinalityGate(t *testing.T) {
	genesis := ChainHead{Hash: h(0), Height: 0}
	fc := New(genesis)
	fc.SetFinalizedCheckpoint(genesis.Hash, 0)

	require.False(t, fc.CanReorgTo(genesis.Hash))
}
