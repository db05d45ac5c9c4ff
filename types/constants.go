// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package types defines Montana's consensus data model: presence
// proofs, slices, lottery results, attestations, and finality
// checkpoints, together with the invariants that hold on the canonical
// fork. These constants must be identical across every implementation
// of the protocol.
package types

import "time"

const (
	Tau1Secs = 60  // presence-signing interval for Full Nodes
	Tau2Secs = 600 // slice production interval

	SlotsPerTau2      = 10
	SlotDurationSecs  = 60
	GracePeriodSecs   = 30

	FullNodeCapPercent     = 80
	VerifiedUserCapPercent = 20

	SafeDepth          = 6
	FinalDepth         = 2016
	CheckpointInterval = 2016

	MaxReorgDepth = 100

	CooldownMinTau2 = 144
	CooldownMaxTau2 = 25_920
	// CooldownSmoothWindows is the number of trailing tau3 snapshots
	// averaged (via median) when computing the next cooldown duration;
	// resolved from original_source/Montana ACP's COOLDOWN_SMOOTH_WINDOWS
	// since spec.md names the ±20% smoothing rule but not the window size.
	CooldownSmoothWindows     = 4
	CooldownMaxChangePercent  = 20

	MaxLotteryParticipants   = 10_000
	MaxPresencesPerSlice     = 5_000
	MaxAttestationsPerSlice  = 1_000
	PresencePoolCap          = 100_000

	FutureTimestampSlackSecs = 10

	// GenesisTimestamp is 2025-01-03 00:00:00 UTC.
	GenesisTimestamp int64 = 1735862400
)

// GenesisTime returns GenesisTimestamp as a time.Time.
func GenesisTime() time.Time {
	return time.Unix(GenesisTimestamp, 0).UTC()
}

// ExpiredTimestampFloorSecs is the maximum age, in seconds, a presence's
// timestamp may have before it is considered expired (2*tau2).
const ExpiredTimestampFloorSecs = 2 * Tau2Secs
