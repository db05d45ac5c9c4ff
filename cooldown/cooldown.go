// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cooldown derives participant weight from presence history
// and enforces the reactivation cooldown that keeps a Sybil fleet from
// waking up together and immediately swinging the lottery.
//
// Weight is counted per tau2 window rather than per tau1 tick: a
// participant's presence history is the set of tau2 windows in which
// it successfully submitted at least one presence, and the "success
// rate" in section 4.7 is that count over CheckpointInterval, the
// number of tau2 windows in one tau3.
package cooldown

import (
	"sort"
	"sync"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

// Cooldown is the single-owner table of presence history, reactivation
// state, and adaptive cooldown durations.
type Cooldown struct {
	mu sync.RWMutex

	presenceWindows map[mcrypto.PubKey][]uint64 // sorted, deduplicated tau2 indices
	lastActive      map[mcrypto.PubKey]uint64
	cooldownUntil   map[mcrypto.PubKey]uint64
	genesisExempt   map[mcrypto.PubKey]struct{}

	registrationHistory map[types.Tier][]uint64
	currentDuration     map[types.Tier]uint64
}

// New creates an empty cooldown table.
func New() *Cooldown {
	return &Cooldown{
		presenceWindows:     make(map[mcrypto.PubKey][]uint64),
		lastActive:          make(map[mcrypto.PubKey]uint64),
		cooldownUntil:       make(map[mcrypto.PubKey]uint64),
		genesisExempt:       make(map[mcrypto.PubKey]struct{}),
		registrationHistory: make(map[types.Tier][]uint64),
		currentDuration:     make(map[types.Tier]uint64),
	}
}

// MarkGenesis exempts pub from the reactivation cooldown permanently.
func (c *Cooldown) MarkGenesis(pub mcrypto.PubKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genesisExempt[pub] = struct{}{}
}

// GenesisSet is the fixed list of identities a chain's genesis
// configuration exempts from cooldown for its lifetime (section 4.7,
// 4.9). It is read once at engine construction and never mutated
// afterward.
type GenesisSet []mcrypto.PubKey

// ApplyGenesisSet marks every key in gs as genesis-exempt.
func (c *Cooldown) ApplyGenesisSet(gs GenesisSet) {
	for _, pub := range gs {
		c.MarkGenesis(pub)
	}
}

// RecordPresence registers that pub was seen in tau2Index, and, if the
// gap since its last recorded activity exceeds one tau3, triggers the
// reactivation cooldown (skipped for genesis-exempt participants).
func (c *Cooldown) RecordPresence(pub mcrypto.PubKey, tier types.Tier, tau2Index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastActive[pub]; ok && tau2Index > last && tau2Index-last > types.CheckpointInterval {
		if _, exempt := c.genesisExempt[pub]; !exempt {
			c.cooldownUntil[pub] = tau2Index + c.currentDuration[tier]
		}
	}
	c.lastActive[pub] = tau2Index

	windows := insertSortedUnique(c.presenceWindows[pub], tau2Index)
	c.presenceWindows[pub] = pruneOlderThan(windows, tau2Index)
}

// Weight returns pub's current lottery weight: zero while a
// reactivation cooldown is active (unless genesis-exempt), otherwise
// the count of tau2 windows with a recorded presence in the trailing
// tau3 window, boosted 1.5x (floor) at a >=90% success rate.
func (c *Cooldown) Weight(pub mcrypto.PubKey, tier types.Tier, currentTau2Index uint64) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if until, ok := c.cooldownUntil[pub]; ok && currentTau2Index < until {
		if _, exempt := c.genesisExempt[pub]; !exempt {
			return 0
		}
	}

	windows := pruneOlderThan(c.presenceWindows[pub], currentTau2Index)
	count := uint64(len(windows))
	if count == 0 {
		return 0
	}

	// rate = count / CheckpointInterval, compared against 90% without
	// floating point: count*10 >= CheckpointInterval*9.
	if count*10 >= types.CheckpointInterval*9 {
		return count * 3 / 2
	}
	return count
}

// RecordRegistrationSnapshot is called once per tau3 boundary with the
// number of new registrations observed for tier during that window. It
// recomputes and returns the cooldown duration that will apply to
// reactivations from this point on.
func (c *Cooldown) RecordRegistrationSnapshot(tier types.Tier, count uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := append(c.registrationHistory[tier], count)
	if len(history) > types.CooldownSmoothWindows {
		history = history[len(history)-types.CooldownSmoothWindows:]
	}
	c.registrationHistory[tier] = history

	target := clamp(median(history), types.CooldownMinTau2, types.CooldownMaxTau2)

	prev, hasPrev := c.currentDuration[tier]
	next := target
	if hasPrev && prev > 0 {
		maxUp := prev + prev*types.CooldownMaxChangePercent/100
		maxDown := prev - prev*types.CooldownMaxChangePercent/100
		if next > maxUp {
			next = maxUp
		} else if next < maxDown {
			next = maxDown
		}
	}
	c.currentDuration[tier] = next
	return next
}

// CurrentDuration returns the cooldown duration currently in effect
// for tier, or zero if no snapshot has ever been recorded for it.
func (c *Cooldown) CurrentDuration(tier types.Tier) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentDuration[tier]
}

func insertSortedUnique(windows []uint64, v uint64) []uint64 {
	i := sort.Search(len(windows), func(i int) bool { return windows[i] >= v })
	if i < len(windows) && windows[i] == v {
		return windows
	}
	windows = append(windows, 0)
	copy(windows[i+1:], windows[i:])
	windows[i] = v
	return windows
}

func pruneOlderThan(windows []uint64, currentTau2Index uint64) []uint64 {
	if currentTau2Index < types.CheckpointInterval {
		return windows
	}
	floor := currentTau2Index - types.CheckpointInterval + 1
	i := sort.Search(len(windows), func(i int) bool { return windows[i] >= floor })
	return windows[i:]
}

func clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func median(values []uint64) uint64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]uint64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
