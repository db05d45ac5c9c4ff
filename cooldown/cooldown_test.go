// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package cooldown

import (
	"testing"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
	"github.com/stretchr/testify/require"
)

func pub(b byte) mcrypto.PubKey {
	var p mcrypto.PubKey
	p[0] = b
	return p
}

func TestWeightAccumulatesWithinWindow(t *testing.T) {
	c := New()
	p := pub(1)
	for i := uint64(1); i <= 5; i++ {
		c.RecordPresence(p, types.TierFullNode, i)
	}
	require.Equal(t, uint64(5), c.Weight(p, types.TierFullNode, 5))
}

func TestWeightPrunesOutOfWindowEntries(t *testing.T) {
	c := New()
	p := pub(1)
	c.RecordPresence(p, types.TierFullNode, 1)
	require.Equal(t, uint64(1), c.Weight(p, types.TierFullNode, 1))

	far := uint64(1 + types.CheckpointInterval)
	require.Equal(t, uint64(0), c.Weight(p, types.TierFullNode, far), "the only presence is now outside the trailing tau3 window")
}

func TestWeightAppliesHighSuccessRateBonus(t *testing.T) {
	c := New()
	p := pub(1)
	for i := uint64(1); i <= types.CheckpointInterval; i++ {
		c.RecordPresence(p, types.TierFullNode, i)
	}
	// 100% success rate: bonus applies, floor(count*1.5).
	w := c.Weight(p, types.TierFullNode, types.CheckpointInterval)
	require.Equal(t, uint64(types.CheckpointInterval)*3/2, w)
}

func TestWeightNoBonusBelowThreshold(t *testing.T) {
	c := New()
	p := pub(1)
	// Present in only 10% of the window: well under the 90% bar.
	step := uint64(types.CheckpointInterval / 10)
	var count uint64
	for i := uint64(1); i <= types.CheckpointInterval; i += step {
		c.RecordPresence(p, types.TierFullNode, i)
		count++
	}
	w := c.Weight(p, types.TierFullNode, types.CheckpointInterval)
	require.Equal(t, count, w, "no bonus applied below the 90% success-rate threshold")
}

func TestReactivationCooldownZeroesWeight(t *testing.T) {
	c := New()
	p := pub(1)
	c.RecordRegistrationSnapshot(types.TierFullNode, 500) // establishes a cooldown duration within bounds

	c.RecordPresence(p, types.TierFullNode, 1)
	reactivateAt := uint64(1 + types.CheckpointInterval + 1)
	c.RecordPresence(p, types.TierFullNode, reactivateAt)

	require.Equal(t, uint64(0), c.Weight(p, types.TierFullNode, reactivateAt))
}

func TestGenesisExemptFromCooldown(t *testing.T) {
	c := New()
	p := pub(1)
	c.MarkGenesis(p)
	c.RecordRegistrationSnapshot(types.TierFullNode, 500)

	c.RecordPresence(p, types.TierFullNode, 1)
	reactivateAt := uint64(1 + types.CheckpointInterval + 1)
	c.RecordPresence(p, types.TierFullNode, reactivateAt)

	require.Equal(t, uint64(1), c.Weight(p, types.TierFullNode, reactivateAt))
}

func TestApplyGenesisSetExemptsEveryKey(t *testing.T) {
	c := New()
	a, b := pub(1), pub(2)
	c.ApplyGenesisSet(GenesisSet{a, b})
	c.RecordRegistrationSnapshot(types.TierFullNode, 500)

	for _, p := range []mcrypto.PubKey{a, b} {
		c.RecordPresence(p, types.TierFullNode, 1)
		reactivateAt := uint64(1 + types.CheckpointInterval + 1)
		c.RecordPresence(p, types.TierFullNode, reactivateAt)
		require.Equal(t, uint64(1), c.Weight(p, types.TierFullNode, reactivateAt))
	}
}

func TestRegistrationSnapshotClampsAndSmooths(t *testing.T) {
	c := New()

	// First snapshot: median of a single huge value clamps to the max,
	// and there is no prior duration to smooth against.
	d := c.RecordRegistrationSnapshot(types.TierFullNode, 1_000_000)
	require.Equal(t, uint64(types.CooldownMaxTau2), d)

	// Second snapshot: the two-value median (1, 1_000_000) is still
	// above the max, so the clamp alone holds duration at the ceiling.
	d2 := c.RecordRegistrationSnapshot(types.TierFullNode, 1)
	require.Equal(t, d, d2)

	// Third snapshot: the three-value median collapses to 1, clamping
	// to the floor — but smoothing permits at most a 20% drop per tau3.
	d3 := c.RecordRegistrationSnapshot(types.TierFullNode, 1)
	require.Equal(t, d2-d2*types.CooldownMaxChangePercent/100, d3)
	require.Less(t, d3, d2)
}

func TestRegistrationSnapshotClampsToMinimum(t *testing.T) {
	c := New()
	d := c.RecordRegistrationSnapshot(types.TierVerifiedUser, 0)
	require.Equal(t, uint64(types.CooldownMinTau2), d)
}
