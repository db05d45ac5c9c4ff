// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package boltstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "montana.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pubkeyFromByte(b byte) mcrypto.PubKey {
	var p mcrypto.PubKey
	p[0] = b
	return p
}

func hashFromByte(b byte) mcrypto.Hash {
	var h mcrypto.Hash
	h[0] = b
	return h
}

func sampleSlice(height uint64) *types.Slice {
	return &types.Slice{
		Header: types.Header{
			Version:          1,
			Height:           height,
			Tau2Index:        height,
			Timestamp:        1735862400,
			PrevSliceHash:    hashFromByte(1),
			ProducerPubKey:   pubkeyFromByte(2),
			CumulativeWeight: 500,
		},
		FullNodePresences: []types.Presence{
			{
				ProducerPubKey: pubkeyFromByte(3),
				Tau2Index:      height,
				Timestamp:      1735862000,
				Tier:           types.TierFullNode,
				Signature:      []byte("sig"),
			},
		},
		VerifiedUserPresences: []types.Presence{
			{
				ProducerPubKey:  pubkeyFromByte(4),
				Tau2Index:       height,
				Tier:            types.TierVerifiedUser,
				AccumulatedTau2: 2,
				Liveness:        []byte("liveness-blob-that-is-long-enough-to-pass-length-checks"),
				Device: types.DeviceAttestation{
					AuthenticatorData: []byte("authenticator-data-at-least-37-bytes-long!!"),
					Signature:         []byte("device-sig"),
					CertChain:         [][]byte{[]byte("cert-one"), []byte("cert-two")},
					Format:            types.AttestationFormatPacked,
				},
				Signature: []byte("user-sig"),
			},
		},
		Transactions:      [][]byte{[]byte("tx1"), []byte("tx2")},
		ProducerSignature: []byte("producer-sig"),
		Attestations: []types.SliceAttestation{
			{
				AttesterPubKey: pubkeyFromByte(5),
				AttesterWeight: 10,
				SliceIndex:     height,
				Signature:      []byte("att-sig"),
			},
		},
	}
}

func TestPutGetSliceRoundTrips(t *testing.T) {
	s := openTestStore(t)
	slice := sampleSlice(1)
	slice.Attestations[0].SliceHash = slice.Hash()

	require.NoError(t, s.PutSlice(slice))

	got, err := s.GetSlice(slice.Hash())
	require.NoError(t, err)
	require.Equal(t, slice, got)
}

func TestGetSliceUnknownHashNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetSlice(hashFromByte(99))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSliceAtHeightUsesHeightIndex(t *testing.T) {
	s := openTestStore(t)
	slice := sampleSlice(7)
	require.NoError(t, s.PutSlice(slice))

	got, err := s.SliceAtHeight(7)
	require.NoError(t, err)
	require.Equal(t, slice.Hash(), got.Hash())

	_, err = s.SliceAtHeight(8)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHeadPointerPersists(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Head()
	require.ErrorIs(t, err, ErrNotFound)

	h := hashFromByte(42)
	require.NoError(t, s.SetHead(h))

	got, err := s.Head()
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestChainAgeSecsMeasuresFromHeadSliceTimestamp(t *testing.T) {
	s := openTestStore(t)
	slice := sampleSlice(1)
	slice.Header.Timestamp = 1000
	require.NoError(t, s.PutSlice(slice))
	require.NoError(t, s.SetHead(slice.Hash()))

	age, err := s.ChainAgeSecs(time.Unix(1500, 0))
	require.NoError(t, err)
	require.Equal(t, int64(500), age)
}

func TestWeightRoundTrips(t *testing.T) {
	s := openTestStore(t)
	pub := pubkeyFromByte(9)

	_, err := s.GetWeight(pub)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutWeight(pub, 777))
	got, err := s.GetWeight(pub)
	require.NoError(t, err)
	require.Equal(t, uint64(777), got)
}

func TestPresenceHistoryScopesByTau2Index(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutPresenceRecord(3, pubkeyFromByte(1), hashFromByte(10)))
	require.NoError(t, s.PutPresenceRecord(3, pubkeyFromByte(2), hashFromByte(11)))
	require.NoError(t, s.PutPresenceRecord(4, pubkeyFromByte(1), hashFromByte(12)))

	window3, err := s.PresenceHistory(3)
	require.NoError(t, err)
	require.Len(t, window3, 2)

	window4, err := s.PresenceHistory(4)
	require.NoError(t, err)
	require.Len(t, window4, 1)

	window5, err := s.PresenceHistory(5)
	require.NoError(t, err)
	require.Empty(t, window5)
}

func TestPutSliceDoesNotMoveHeadPointer(t *testing.T) {
	s := openTestStore(t)
	slice := sampleSlice(1)
	require.NoError(t, s.PutSlice(slice))

	_, err := s.Head()
	require.ErrorIs(t, err, ErrNotFound)
}
