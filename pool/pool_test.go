// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

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

func TestPoolAddAndSnapshot(t *testing.T) {
	p := New(10)
	pr := types.Presence{ProducerPubKey: pub(1), Tau2Index: 0, Tier: types.TierFullNode}
	require.NoError(t, p.Add(pr, 5))

	require.Equal(t, 1, p.Len())
	require.True(t, p.Contains(pub(1)))

	snap := p.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, uint64(5), snap[0].Weight)
}

func TestPoolAddDisplacesEarlierPresenceSameWindow(t *testing.T) {
	p := New(10)
	first := types.Presence{ProducerPubKey: pub(1), Tau2Index: 0, Tier: types.TierFullNode, Timestamp: 1}
	require.NoError(t, p.Add(first, 1))

	second := types.Presence{ProducerPubKey: pub(1), Tau2Index: 0, Tier: types.TierFullNode, Timestamp: 2}
	require.NoError(t, p.Add(second, 7))

	require.Equal(t, 1, p.Len(), "the resubmission displaces the earlier entry rather than adding a second one")
	snap := p.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, uint64(7), snap[0].Weight, "the later presence's weight wins")

	wrong := types.Presence{ProducerPubKey: pub(2), Tau2Index: 1, Tier: types.TierFullNode}
	require.ErrorIs(t, p.Add(wrong, 1), ErrWrongWindow)
}

func TestPoolRejectsWhenFull(t *testing.T) {
	p := New(1)
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(1)}, 1))
	require.ErrorIs(t, p.Add(types.Presence{ProducerPubKey: pub(2)}, 1), ErrPoolFull)
}

func TestPoolAddOverwritesExistingKeyEvenWhenFull(t *testing.T) {
	p := New(1)
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(1), Timestamp: 1}, 1))
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(1), Timestamp: 2}, 2),
		"overwriting the sole occupant of a full pool must not be rejected as full")
	require.Equal(t, 1, p.Len())
}

func TestPoolAdvanceResets(t *testing.T) {
	p := New(10)
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(1)}, 1))
	p.Advance(1)

	require.Equal(t, 0, p.Len())
	require.Equal(t, uint64(1), p.Tau2Index())
	require.False(t, p.Contains(pub(1)))
}

func TestPoolAdvanceArchivesHistory(t *testing.T) {
	p := New(10)
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(1)}, 7))
	p.Advance(1)

	snap, ok := p.History(0)
	require.True(t, ok)
	require.Len(t, snap, 1)
	require.Equal(t, uint64(7), snap[0].Weight)

	_, ok = p.History(1)
	require.False(t, ok)
}

func TestPoolHistoryEvictsOldestWindow(t *testing.T) {
	p := New(10)
	for i := uint64(0); i < historyWindows+2; i++ {
		p.Advance(i + 1)
	}
	_, ok := p.History(0)
	require.False(t, ok, "window 0 should have been evicted from the bounded history cache")
	_, ok = p.History(historyWindows + 1)
	require.True(t, ok)
}

func TestPoolPresencesDeterministicOrder(t *testing.T) {
	p := New(10)
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(3), Tier: types.TierFullNode}, 1))
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(1), Tier: types.TierFullNode}, 1))
	require.NoError(t, p.Add(types.Presence{ProducerPubKey: pub(2), Tier: types.TierVerifiedUser}, 1))

	fullNode, verifiedUser := p.Presences()
	require.Len(t, fullNode, 2)
	require.Len(t, verifiedUser, 1)
	require.True(t, fullNode[0].ProducerPubKey.Less(fullNode[1].ProducerPubKey))
}
