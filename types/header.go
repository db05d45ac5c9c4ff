// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"encoding/binary"
	"errors"

	mcrypto "github.com/montana-chain/consensus/crypto"
)

// ErrTruncatedHeader is returned by DecodeHeader when buf is shorter
// than the fixed-size canonical encoding.
var ErrTruncatedHeader = errors.New("types: truncated header encoding")

// headerEncodedLen is the fixed length of Header.Encode()'s output:
// 4 (version) + 8 (height) + 8 (tau2Index) + 8 (timestamp) + 6*32
// (hashes/pubkey) + 4 (slot).
const headerEncodedLen = 4 + 8 + 8 + 8 + 6*32 + 4

// Header is a slice's fixed-size metadata. CumulativeWeight is carried
// here but, per SPEC_FULL.md's design notes, is an assertion the
// producer makes: it is never part of the hashed bytes and validation
// always recomputes it independently (section 4.4).
type Header struct {
	Version             uint32
	Height              uint64
	Tau2Index           uint64
	Timestamp           int64
	PrevSliceHash       mcrypto.Hash
	PresenceRoot        mcrypto.Hash
	TxRoot              mcrypto.Hash
	ProducerPubKey      mcrypto.PubKey
	LotteryTicket       mcrypto.Hash
	Slot                uint32
	FinalityCheckpoint  mcrypto.Hash // zero value means "absent"
	CumulativeWeight    uint64       // producer-asserted, unverified
}

// Encode returns the canonical byte sequence hashed to produce the
// slice hash: version_u32 || height_u64 || tau2_index_u64 ||
// timestamp_u64 || prev_slice_hash[32] || presence_root[32] ||
// tx_root[32] || producer_pubkey[32] || lottery_ticket[32] || slot_u32
// || finality_checkpoint_or_zero[32], little-endian throughout.
// CumulativeWeight is deliberately excluded.
func (h *Header) Encode() []byte {
	buf := make([]byte, 0, 4+8+8+8+32*6+4)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], h.Version)
	buf = append(buf, u32[:]...)
	buf = appendU64(buf, h.Height)
	buf = appendU64(buf, h.Tau2Index)
	buf = appendU64(buf, uint64(h.Timestamp))
	buf = append(buf, h.PrevSliceHash[:]...)
	buf = append(buf, h.PresenceRoot[:]...)
	buf = append(buf, h.TxRoot[:]...)
	buf = append(buf, h.ProducerPubKey[:]...)
	buf = append(buf, h.LotteryTicket[:]...)
	binary.LittleEndian.PutUint32(u32[:], h.Slot)
	buf = append(buf, u32[:]...)
	buf = append(buf, h.FinalityCheckpoint[:]...)
	return buf
}

// Hash returns the SHA3-256 digest of Encode(), which is the slice
// hash referenced everywhere else in the protocol.
func (h *Header) Hash() mcrypto.Hash {
	return mcrypto.Sum256(h.Encode())
}

// DecodeHeader parses the canonical encoding produced by Encode. It is
// the exact inverse: DecodeHeader(h.Encode()) reproduces h field for
// field, except CumulativeWeight, which Encode never serializes and
// every implementation recomputes independently (section 4.4).
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerEncodedLen {
		return Header{}, ErrTruncatedHeader
	}

	var h Header
	off := 0
	h.Version = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.Height = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.Tau2Index = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.Timestamp = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	copy(h.PrevSliceHash[:], buf[off:])
	off += 32
	copy(h.PresenceRoot[:], buf[off:])
	off += 32
	copy(h.TxRoot[:], buf[off:])
	off += 32
	copy(h.ProducerPubKey[:], buf[off:])
	off += 32
	copy(h.LotteryTicket[:], buf[off:])
	off += 32
	h.Slot = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	copy(h.FinalityCheckpoint[:], buf[off:])

	return h, nil
}
