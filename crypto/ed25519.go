// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// Ed25519Signer is a reference Signer implementation. It stands in for
// the protocol's post-quantum ML-DSA-65 primitive, which is an external
// collaborator the core never constructs directly (see package doc);
// any Signer of that shape, classical or post-quantum, satisfies the
// consensus core's requirements.
type Ed25519Signer struct {
	pub  PubKey
	priv ed25519.PrivateKey
}

// NewEd25519Signer generates a fresh keypair.
func NewEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	var pk PubKey
	copy(pk[:], pub)
	return &Ed25519Signer{pub: pk, priv: priv}, nil
}

// NewEd25519SignerFromSeed builds a deterministic signer, primarily for
// tests and genesis key provisioning.
func NewEd25519SignerFromSeed(seed [ed25519.SeedSize]byte) *Ed25519Signer {
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub := priv.Public().(ed25519.PublicKey)
	var pk PubKey
	copy(pk[:], pub)
	return &Ed25519Signer{pub: pk, priv: priv}
}

func (s *Ed25519Signer) PublicKey() PubKey { return s.pub }

func (s *Ed25519Signer) Sign(msg []byte) ([]byte, error) {
	if s.priv == nil {
		return nil, errors.New("crypto: signer has no private key")
	}
	return ed25519.Sign(s.priv, msg), nil
}

// Ed25519Verifier is the matching reference Verifier.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(pub PubKey, msg []byte, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
