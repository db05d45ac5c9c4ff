// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package boltstore

import (
	"encoding/binary"
	"errors"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

// ErrTruncatedRecord is returned by any decode helper when the buffer
// runs out before the field it expects, mirroring types.ErrTruncatedHeader
// for this package's own on-disk format.
var ErrTruncatedRecord = errors.New("boltstore: truncated record")

// reader walks a byte slice left to right, the same manual-offset style
// types.DecodeHeader uses, extended here with length-prefixed fields for
// the variable-size data a stored slice carries.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() (byte, error) {
	if r.off+1 > len(r.buf) {
		return 0, ErrTruncatedRecord
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, ErrTruncatedRecord
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, ErrTruncatedRecord
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) fixed(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, ErrTruncatedRecord
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) hash() (mcrypto.Hash, error) {
	var h mcrypto.Hash
	b, err := r.fixed(32)
	if err != nil {
		return h, err
	}
	copy(h[:], b)
	return h, nil
}

func (r *reader) pubkey() (mcrypto.PubKey, error) {
	h, err := r.hash()
	return mcrypto.PubKey(h), err
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	raw, err := r.fixed(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendHash(buf []byte, h mcrypto.Hash) []byte {
	return append(buf, h[:]...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendU32(buf, uint32(len(b)))
	return append(buf, b...)
}

func encodePresence(p types.Presence) []byte {
	buf := make([]byte, 0, 160)
	buf = appendHash(buf, mcrypto.Hash(p.ProducerPubKey))
	buf = appendU64(buf, p.Tau2Index)
	buf = appendU64(buf, p.Tau1)
	buf = appendHash(buf, p.PrevSliceHash)
	buf = appendU64(buf, uint64(p.Timestamp))
	buf = append(buf, byte(p.Tier))
	buf = append(buf, p.AccumulatedTau2)
	buf = appendBytes(buf, p.Liveness)
	buf = appendBytes(buf, p.Device.AuthenticatorData)
	buf = appendHash(buf, mcrypto.Hash(p.Device.ClientDataHash))
	buf = appendBytes(buf, p.Device.Signature)
	buf = appendU32(buf, uint32(len(p.Device.CertChain)))
	for _, cert := range p.Device.CertChain {
		buf = appendBytes(buf, cert)
	}
	buf = append(buf, byte(p.Device.Format))
	buf = appendBytes(buf, p.Signature)
	return buf
}

func decodePresence(r *reader) (types.Presence, error) {
	var p types.Presence
	pub, err := r.pubkey()
	if err != nil {
		return p, err
	}
	p.ProducerPubKey = pub
	if p.Tau2Index, err = r.u64(); err != nil {
		return p, err
	}
	if p.Tau1, err = r.u64(); err != nil {
		return p, err
	}
	if p.PrevSliceHash, err = r.hash(); err != nil {
		return p, err
	}
	ts, err := r.u64()
	if err != nil {
		return p, err
	}
	p.Timestamp = int64(ts)
	tier, err := r.u8()
	if err != nil {
		return p, err
	}
	p.Tier = types.Tier(tier)
	if p.AccumulatedTau2, err = r.u8(); err != nil {
		return p, err
	}
	if p.Liveness, err = r.bytes(); err != nil {
		return p, err
	}
	if p.Device.AuthenticatorData, err = r.bytes(); err != nil {
		return p, err
	}
	clientDataHash, err := r.hash()
	if err != nil {
		return p, err
	}
	p.Device.ClientDataHash = [32]byte(clientDataHash)
	if p.Device.Signature, err = r.bytes(); err != nil {
		return p, err
	}
	certCount, err := r.u32()
	if err != nil {
		return p, err
	}
	if certCount > 0 {
		p.Device.CertChain = make([][]byte, certCount)
		for i := range p.Device.CertChain {
			if p.Device.CertChain[i], err = r.bytes(); err != nil {
				return p, err
			}
		}
	}
	format, err := r.u8()
	if err != nil {
		return p, err
	}
	p.Device.Format = types.AttestationFormat(format)
	if p.Signature, err = r.bytes(); err != nil {
		return p, err
	}
	return p, nil
}

func encodePresenceList(buf []byte, presences []types.Presence) []byte {
	buf = appendU32(buf, uint32(len(presences)))
	for _, p := range presences {
		buf = append(buf, encodePresence(p)...)
	}
	return buf
}

func decodePresenceList(r *reader) ([]types.Presence, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]types.Presence, n)
	for i := range out {
		if out[i], err = decodePresence(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func encodeAttestation(a types.SliceAttestation) []byte {
	buf := make([]byte, 0, 96)
	buf = appendHash(buf, a.SliceHash)
	buf = appendHash(buf, mcrypto.Hash(a.AttesterPubKey))
	buf = appendU64(buf, a.AttesterWeight)
	buf = appendU64(buf, a.SliceIndex)
	buf = appendBytes(buf, a.Signature)
	return buf
}

func decodeAttestation(r *reader) (types.SliceAttestation, error) {
	var a types.SliceAttestation
	var err error
	if a.SliceHash, err = r.hash(); err != nil {
		return a, err
	}
	pub, err := r.pubkey()
	if err != nil {
		return a, err
	}
	a.AttesterPubKey = pub
	if a.AttesterWeight, err = r.u64(); err != nil {
		return a, err
	}
	if a.SliceIndex, err = r.u64(); err != nil {
		return a, err
	}
	if a.Signature, err = r.bytes(); err != nil {
		return a, err
	}
	return a, nil
}

// encodeSlice is this package's own on-disk format: the canonical header
// encoding (as hashed on the wire) followed by CumulativeWeight — which
// Header.Encode deliberately omits — and then every variable-length
// field the protocol type carries, each length-prefixed.
func encodeSlice(s *types.Slice) []byte {
	buf := make([]byte, 0, 512)
	buf = append(buf, s.Header.Encode()...)
	buf = appendU64(buf, s.Header.CumulativeWeight)
	buf = encodePresenceList(buf, s.FullNodePresences)
	buf = encodePresenceList(buf, s.VerifiedUserPresences)
	buf = appendU32(buf, uint32(len(s.Transactions)))
	for _, tx := range s.Transactions {
		buf = appendBytes(buf, tx)
	}
	buf = appendBytes(buf, s.ProducerSignature)
	buf = appendU32(buf, uint32(len(s.Attestations)))
	for _, a := range s.Attestations {
		buf = append(buf, encodeAttestation(a)...)
	}
	return buf
}

func decodeSlice(buf []byte) (*types.Slice, error) {
	header, err := types.DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	r := &reader{buf: buf, off: headerEncodedLen()}
	if header.CumulativeWeight, err = r.u64(); err != nil {
		return nil, err
	}

	s := &types.Slice{Header: header}
	if s.FullNodePresences, err = decodePresenceList(r); err != nil {
		return nil, err
	}
	if s.VerifiedUserPresences, err = decodePresenceList(r); err != nil {
		return nil, err
	}

	txCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	if txCount > 0 {
		s.Transactions = make([][]byte, txCount)
		for i := range s.Transactions {
			if s.Transactions[i], err = r.bytes(); err != nil {
				return nil, err
			}
		}
	}

	if s.ProducerSignature, err = r.bytes(); err != nil {
		return nil, err
	}

	attCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	if attCount > 0 {
		s.Attestations = make([]types.SliceAttestation, attCount)
		for i := range s.Attestations {
			if s.Attestations[i], err = decodeAttestation(r); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

// headerEncodedLen mirrors the fixed length of Header.Encode()'s output;
// duplicated here (rather than exported from types) because it is this
// package's own framing detail, not a protocol wire constant.
func headerEncodedLen() int {
	return 4 + 8 + 8 + 8 + 6*32 + 4
}
