// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package finality

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

func TestAddRejectsStructuralInvariants(t *testing.T) {
	tr := New()
	sliceHash := mcrypto.Sum256([]byte("slice"))

	require.ErrorIs(t, tr.Add(types.SliceAttestation{SliceHash: sliceHash, AttesterPubKey: pub(1), AttesterWeight: 1}), ErrInvalidSignature)
	require.ErrorIs(t, tr.Add(types.SliceAttestation{SliceHash: sliceHash, AttesterPubKey: pub(1), Signature: []byte{1}}), ErrInsufficientWeight)

	valid := types.SliceAttestation{SliceHash: sliceHash, AttesterPubKey: pub(1), AttesterWeight: 1, Signature: []byte{1}}
	require.NoError(t, tr.Add(valid))
	require.ErrorIs(t, tr.Add(valid), ErrAlreadyAttested)
}

func TestAddEnforcesPerSliceCap(t *testing.T) {
	tr := New()
	sliceHash := mcrypto.Sum256([]byte("slice"))

	for i := 0; i < types.MaxAttestationsPerSlice; i++ {
		var p mcrypto.PubKey
		p[0] = byte(i)
		p[1] = byte(i >> 8)
		a := types.SliceAttestation{SliceHash: sliceHash, AttesterPubKey: p, AttesterWeight: 1, Signature: []byte{1}}
		require.NoError(t, tr.Add(a))
	}
	overflow := types.SliceAttestation{SliceHash: sliceHash, AttesterPubKey: pub(255), AttesterWeight: 1, Signature: []byte{1}}
	require.ErrorIs(t, tr.Add(overflow), ErrTooManyAttestations)
}

func TestStatusDepthAndThresholds(t *testing.T) {
	tr := New()
	sliceHash := mcrypto.Sum256([]byte("slice"))
	require.NoError(t, tr.Add(types.SliceAttestation{SliceHash: sliceHash, AttesterPubKey: pub(1), AttesterWeight: 10, Signature: []byte{1}, SliceIndex: 100}))

	tr.SetCanonicalHead(100)
	s := tr.Status(sliceHash)
	require.Equal(t, uint64(0), s.FinalityDepth)
	require.False(t, s.IsSafe)
	require.Equal(t, uint64(10), s.AttestationWeight)

	tr.SetCanonicalHead(106)
	s = tr.Status(sliceHash)
	require.Equal(t, uint64(6), s.FinalityDepth)
	require.True(t, s.IsSafe)
	require.False(t, s.IsFinal)

	tr.SetCanonicalHead(100 + types.FinalDepth)
	s = tr.Status(sliceHash)
	require.True(t, s.IsFinal)
}

func TestCanReorgToSafeDepthGate(t *testing.T) {
	tr := New()
	tr.SetCanonicalHead(10)
	require.True(t, tr.CanReorgTo(10))
	require.True(t, tr.CanReorgTo(5))
	require.False(t, tr.CanReorgTo(3))
}

func TestCreateCheckpointOnlyAtInterval(t *testing.T) {
	tr := New()
	slice := &types.Slice{}

	_, ok := tr.CreateCheckpoint(1, slice)
	require.False(t, ok)

	cp, ok := tr.CreateCheckpoint(types.CheckpointInterval, slice)
	require.True(t, ok)
	require.Equal(t, uint64(1), cp.Tau3Index)

	stored, ok := tr.FinalizedCheckpoint()
	require.True(t, ok)
	require.Equal(t, cp, stored)
}

func TestCreateCheckpointIncludesAttestations(t *testing.T) {
	tr := New()
	slice := &types.Slice{}
	sliceHash := slice.Hash()

	require.NoError(t, tr.Add(types.SliceAttestation{SliceHash: sliceHash, AttesterPubKey: pub(1), AttesterWeight: 1, Signature: []byte{0xAA}}))
	cp, ok := tr.CreateCheckpoint(types.CheckpointInterval, slice)
	require.True(t, ok)
	require.Len(t, cp.Signatures, 1)
	require.False(t, cp.AttestationRoot.IsZero())
}
