// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import mcrypto "github.com/montana-chain/consensus/crypto"

// Action is the tagged union of everything the engine asks the
// transport to do in response to an event. A single Dispatch call may
// return zero, one, or several actions.
type Action interface {
	isAction()
}

type PresenceSigned struct{ Tau2Index uint64 }

func (PresenceSigned) isAction() {}

type PresenceAccepted struct{ PubKey mcrypto.PubKey }

func (PresenceAccepted) isAction() {}

type LotteryWon struct {
	Tau2Index uint64
	SliceHash mcrypto.Hash
}

func (LotteryWon) isAction() {}

type WaitingForSlice struct {
	Tau2Index uint64
	Winner    mcrypto.PubKey
}

func (WaitingForSlice) isAction() {}

type SliceAccepted struct {
	Hash   mcrypto.Hash
	Height uint64
}

func (SliceAccepted) isAction() {}

type Reorg struct {
	NewHead mcrypto.Hash
	Depth   uint64
}

func (Reorg) isAction() {}

type CheckpointFinalized struct{ Tau3Index uint64 }

func (CheckpointFinalized) isAction() {}
