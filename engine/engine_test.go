// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"path/filepath"
	"testing"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/forkchoice"
	"github.com/montana-chain/consensus/storage/boltstore"
	"github.com/montana-chain/consensus/types"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, isFullNode bool) (*Engine, *mcrypto.Ed25519Signer) {
	t.Helper()
	signer, err := mcrypto.NewEd25519Signer()
	require.NoError(t, err)

	genesis := forkchoice.ChainHead{
		Hash:      mcrypto.Sum256([]byte("genesis")),
		Height:    0,
		Timestamp: types.GenesisTimestamp,
	}
	e := New(Config{
		Signer:     signer,
		Verifier:   mcrypto.Ed25519Verifier{},
		IsFullNode: isFullNode,
		Genesis:    genesis,
	})
	return e, signer
}

func TestSoleParticipantWinsAndProducesSlice(t *testing.T) {
	e, _ := newTestEngine(t, true)

	tau1Time := types.GenesisTimestamp + 60
	actions, err := e.Dispatch(Tau1Tick{Tau1Index: 1, NetworkTime: tau1Time})
	require.NoError(t, err)
	require.Contains(t, actions, PresenceSigned{Tau2Index: 0})

	tau2Time := types.GenesisTimestamp + types.Tau2Secs
	actions, err = e.Dispatch(Tau2Ended{Tau2Index: 0, NetworkTime: tau2Time})
	require.NoError(t, err)
	require.NotEmpty(t, actions)

	won, ok := actions[0].(LotteryWon)
	require.True(t, ok, "sole participant must always win slot 0")
	require.Equal(t, uint64(0), won.Tau2Index)

	canonical := e.ForkChoice().Canonical()
	require.Equal(t, uint64(1), canonical.Height)
	require.Equal(t, won.SliceHash, canonical.Hash)
}

func TestTau2EndedWithEmptyPoolReturnsNoPresences(t *testing.T) {
	e, _ := newTestEngine(t, false)

	// No presences were ever signed by this node and the pool is
	// empty, so the lottery has nobody to draw from.
	_, err := e.Dispatch(Tau2Ended{Tau2Index: 0, NetworkTime: types.GenesisTimestamp + types.Tau2Secs})
	require.ErrorIs(t, err, ErrNoPresences)
}

func TestGracePeriodRefusesPresence(t *testing.T) {
	e, signer := newTestEngine(t, false)

	// Push lastNetworkTime into the grace window: within the last 30s
	// of the tau2 boundary (600s period).
	_, err := e.Dispatch(Tau1Tick{Tau1Index: 1, NetworkTime: 570})
	require.NoError(t, err)

	p := types.Presence{
		ProducerPubKey: signer.PublicKey(),
		Tau2Index:      0,
		Timestamp:      570,
		Tier:           types.TierFullNode,
	}
	sig, err := mcrypto.SignDomain(signer, mcrypto.DomainPresence, p.SigningMessage())
	require.NoError(t, err)
	p.Signature = sig

	_, err = e.Dispatch(PresenceEvent{Proof: p})
	require.ErrorIs(t, err, ErrInGracePeriod)
}

func TestShutdownRefusesFurtherEvents(t *testing.T) {
	e, _ := newTestEngine(t, true)
	e.Shutdown()

	_, err := e.Dispatch(Tau1Tick{Tau1Index: 1, NetworkTime: types.GenesisTimestamp + 60})
	require.ErrorIs(t, err, ErrShuttingDown)
}

func TestSliceEventRejectsUnknownParent(t *testing.T) {
	e, _ := newTestEngine(t, false)

	slice := &types.Slice{}
	slice.Header.PrevSliceHash = mcrypto.Sum256([]byte("nobody-knows-this"))

	_, err := e.Dispatch(SliceEvent{Slice: slice})
	require.ErrorIs(t, err, ErrUnknownParent)
}

func TestStoreWiringPersistsAcceptedSliceAndHead(t *testing.T) {
	signer, err := mcrypto.NewEd25519Signer()
	require.NoError(t, err)

	store, err := boltstore.Open(filepath.Join(t.TempDir(), "montana.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	genesis := forkchoice.ChainHead{
		Hash:      mcrypto.Sum256([]byte("genesis")),
		Height:    0,
		Timestamp: types.GenesisTimestamp,
	}
	e := New(Config{
		Signer:     signer,
		Verifier:   mcrypto.Ed25519Verifier{},
		IsFullNode: true,
		Genesis:    genesis,
		Store:      store,
	})

	_, err = e.Dispatch(Tau1Tick{Tau1Index: 1, NetworkTime: types.GenesisTimestamp + 60})
	require.NoError(t, err)

	actions, err := e.Dispatch(Tau2Ended{Tau2Index: 0, NetworkTime: types.GenesisTimestamp + types.Tau2Secs})
	require.NoError(t, err)
	won := actions[0].(LotteryWon)

	persisted, err := store.GetSlice(won.SliceHash)
	require.NoError(t, err)
	require.Equal(t, won.SliceHash, persisted.Hash())

	head, err := store.Head()
	require.NoError(t, err)
	require.Equal(t, won.SliceHash, head)
}
