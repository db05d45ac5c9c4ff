// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"encoding/binary"
	"errors"
	"time"

	mcrypto "github.com/montana-chain/consensus/crypto"
)

// Tier is a participant class. Full Nodes run unattended and sign every
// tau1; Verified Users attest liveness with a mobile device at
// randomized intervals.
type Tier uint8

const (
	TierFullNode Tier = iota
	TierVerifiedUser
)

func (t Tier) String() string {
	if t == TierVerifiedUser {
		return "VerifiedUser"
	}
	return "FullNode"
}

// AttestationFormat is a closed enum of WebAuthn/FIDO2 attestation
// statement formats a Verified User device may present.
type AttestationFormat uint8

const (
	AttestationFormatNone AttestationFormat = iota
	AttestationFormatPacked
	AttestationFormatTPM
	AttestationFormatAndroidKey
	AttestationFormatAndroidSafetyNet
	AttestationFormatFIDOU2F
	AttestationFormatApple
)

// DeviceAttestation is the FIDO2/WebAuthn device-binding evidence a
// Verified User presence carries.
type DeviceAttestation struct {
	AuthenticatorData []byte
	ClientDataHash    [32]byte
	Signature         []byte
	CertChain         [][]byte // optional
	Format            AttestationFormat
}

// authenticator data flag bits (WebAuthn §6.1).
const (
	flagUserPresent  = 1 << 0
	flagUserVerified = 1 << 2
)

// Presence is a signed claim by a node that it was online during a
// specific tau2 window.
type Presence struct {
	ProducerPubKey mcrypto.PubKey
	Tau2Index      uint64
	Tau1           uint64
	PrevSliceHash  mcrypto.Hash
	Timestamp      int64
	Tier           Tier

	// AccumulatedTau2 is only meaningful for VerifiedUser presences and
	// must lie in [1,4]. Its protocol-level meaning beyond that range
	// check is an open question (see SPEC_FULL.md); this type enforces
	// only the range, never infers semantics from the value.
	AccumulatedTau2 uint8

	// Liveness and Device are populated only for TierVerifiedUser.
	Liveness []byte
	Device   DeviceAttestation

	Signature []byte
}

var (
	ErrFutureTimestamp          = errors.New("presence: timestamp too far in the future")
	ErrExpiredTimestamp         = errors.New("presence: timestamp expired")
	ErrInvalidSignature         = errors.New("presence: invalid signature")
	ErrInvalidAccumulatedTau2   = errors.New("presence: accumulated_tau2 out of range [1,4]")
	ErrInvalidFido2AuthData     = errors.New("presence: invalid FIDO2 authenticator data")
	ErrFido2UserNotPresent      = errors.New("presence: FIDO2 user-present flag not set")
	ErrFido2UserNotVerified     = errors.New("presence: FIDO2 user-verified flag not set")
	ErrInvalidFido2Signature    = errors.New("presence: invalid FIDO2 device signature")
	ErrMissingAttestationCert   = errors.New("presence: missing attestation certificate")
	ErrInvalidLivenessAttestation = errors.New("presence: liveness attestation too short")
	ErrInGracePeriod            = errors.New("presence: submitted during grace period")
	ErrNotEligible              = errors.New("presence: tau2_index does not match current window")
)

// SigningMessage returns the canonical, length-prefixed little-endian
// encoding of the fields that are covered by Signature, in declaration
// order, per the wire encoding rules in SPEC_FULL.md section 6.
func (p *Presence) SigningMessage() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, p.ProducerPubKey[:]...)
	buf = appendU64(buf, p.Tau2Index)
	buf = appendU64(buf, p.Tau1)
	buf = append(buf, p.PrevSliceHash[:]...)
	buf = appendU64(buf, uint64(p.Timestamp))
	buf = append(buf, byte(p.Tier))
	if p.Tier == TierVerifiedUser {
		buf = append(buf, p.AccumulatedTau2)
		buf = appendBytes(buf, p.Liveness)
		buf = appendBytes(buf, p.Device.AuthenticatorData)
		buf = append(buf, p.Device.ClientDataHash[:]...)
		buf = append(buf, byte(p.Device.Format))
	}
	return buf
}

// Hash returns the leaf hash of this presence for Merkle inclusion in
// a slice's presence_root.
func (p *Presence) Hash() mcrypto.Hash {
	return mcrypto.Sum256(p.SigningMessage())
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendU64(buf, uint64(len(b)))
	return append(buf, b...)
}

// Validate checks the presence-level validity rules from section 3:
// signature, timestamp discipline, window membership, and — for
// Verified Users — FIDO2 flag and liveness-length checks. now is the
// validator's own clock (only used here and at construction, never
// inside engine handlers — see SPEC_FULL.md concurrency notes).
func (p *Presence) Validate(v mcrypto.Verifier, currentTau2Index uint64, now time.Time) error {
	if !mcrypto.VerifyDomain(v, mcrypto.DomainPresence, p.ProducerPubKey, p.SigningMessage(), p.Signature) {
		return ErrInvalidSignature
	}
	nowSecs := now.Unix()
	if p.Timestamp > nowSecs+FutureTimestampSlackSecs {
		return ErrFutureTimestamp
	}
	if p.Timestamp < nowSecs-ExpiredTimestampFloorSecs {
		return ErrExpiredTimestamp
	}
	if p.Tau2Index != currentTau2Index {
		return ErrNotEligible
	}
	if p.Tier != TierVerifiedUser {
		return nil
	}
	if p.AccumulatedTau2 < 1 || p.AccumulatedTau2 > 4 {
		return ErrInvalidAccumulatedTau2
	}
	// rpIdHash(32) || flags(1) || signCount(4), per WebAuthn §6.1.
	if len(p.Device.AuthenticatorData) < 37 {
		return ErrInvalidFido2AuthData
	}
	if len(p.Device.Signature) == 0 {
		// Structural stand-in for the expensive FIDO2 device-signature
		// verify, which is the caller's responsibility (same pattern as
		// the finality tracker's add_attestation check).
		return ErrInvalidFido2Signature
	}
	flags := p.Device.AuthenticatorData[32]
	if flags&flagUserPresent == 0 {
		return ErrFido2UserNotPresent
	}
	if flags&flagUserVerified == 0 {
		return ErrFido2UserNotVerified
	}
	if len(p.Liveness) < 64 {
		return ErrInvalidLivenessAttestation
	}
	if p.Device.Format != AttestationFormatNone && len(p.Device.CertChain) == 0 {
		return ErrMissingAttestationCert
	}
	return nil
}
