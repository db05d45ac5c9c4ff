// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

// Event is the tagged union of everything the transport may deliver to
// the engine. Event kinds the core does not recognize (peer
// connect/disconnect, raw transactions) are the transport's concern
// and never reach Dispatch.
type Event interface {
	isEvent()
}

// Tau1Tick fires once per tau1 (60s); Full Nodes sign a presence for
// the current tau2 window in response.
type Tau1Tick struct {
	Tau1Index   uint64
	NetworkTime int64
}

func (Tau1Tick) isEvent() {}

// Tau2Ended fires at the close of a tau2 window; the engine runs the
// lottery and either produces a slice or waits for one.
type Tau2Ended struct {
	Tau2Index   uint64
	NetworkTime int64
}

func (Tau2Ended) isEvent() {}

// PresenceEvent is a presence proof received from a peer.
type PresenceEvent struct {
	SourceAddr string
	Proof      types.Presence
}

func (PresenceEvent) isEvent() {}

// SliceEvent is a slice received from a peer, pending validation.
type SliceEvent struct {
	SourceAddr string
	Slice      *types.Slice
}

func (SliceEvent) isEvent() {}

// FinalityUpdateEvent carries a peer's view of the latest checkpoint.
type FinalityUpdateEvent struct {
	Tau3Index      uint64
	CheckpointHash mcrypto.Hash
}

func (FinalityUpdateEvent) isEvent() {}
