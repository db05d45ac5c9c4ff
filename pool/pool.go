// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool holds the current tau2 window's accepted presences: a
// bounded, single-owner table the engine consults to build the next
// lottery's participant snapshot and a slice's presence lists.
package pool

import (
	"errors"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

// historyWindows bounds how many closed tau2 windows' participant
// snapshots the pool retains for operator/CLI lookback, beyond which
// the oldest window is evicted rather than accumulating forever.
const historyWindows = 16

var (
	ErrPoolFull    = errors.New("pool: at capacity")
	ErrWrongWindow = errors.New("pool: presence tau2_index does not match the pool's current window")
)

// Weigher supplies a participant's current weight, derived from their
// registration and presence history (see package cooldown). The pool
// itself holds no opinion on weight; it only tracks who showed up.
type Weigher interface {
	Weight(pub mcrypto.PubKey, tier types.Tier) uint64
}

type record struct {
	presence types.Presence
	weight   uint64
}

// Pool is the single-owner, mutex-guarded table of presences accepted
// during the active tau2 window. It is never shared by value; the
// engine holds one instance per chain.
type Pool struct {
	mu        sync.RWMutex
	tau2Index uint64
	cap       int
	records   map[mcrypto.PubKey]record
	history   *lru.Cache[uint64, []types.Participant]
}

// New creates an empty pool bounded at capacity entries, per
// PresencePoolCap.
func New(capacity int) *Pool {
	history, err := lru.New[uint64, []types.Participant](historyWindows)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// historyWindows never is.
		panic(err)
	}
	return &Pool{
		cap:     capacity,
		records: make(map[mcrypto.PubKey]record, minInt(capacity, 1024)),
		history: history,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Add records a validated presence for the pool's current window. A
// resubmitted presence for a pubkey already recorded in this window
// displaces the earlier entry rather than being rejected; only a
// window mismatch or a full pool (on a genuinely new key) fails. The
// caller (the engine's presence handler) is responsible for running
// Presence.Validate before calling Add; the pool trusts its input.
func (p *Pool) Add(presence types.Presence, weight uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if presence.Tau2Index != p.tau2Index {
		return ErrWrongWindow
	}
	_, exists := p.records[presence.ProducerPubKey]
	if !exists && len(p.records) >= p.cap {
		return ErrPoolFull
	}
	p.records[presence.ProducerPubKey] = record{presence: presence, weight: weight}
	return nil
}

// Contains reports whether pub already has a recorded presence in the
// current window.
func (p *Pool) Contains(pub mcrypto.PubKey) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.records[pub]
	return ok
}

// Len returns the number of presences recorded in the current window.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

// Tau2Index returns the window the pool is currently accepting
// presences for.
func (p *Pool) Tau2Index() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tau2Index
}

// Snapshot returns the participant view used to run the lottery and
// to sum a produced slice's presence weight: one Participant per
// recorded presence, order undefined (the caller sorts, e.g. by
// ticket, before use). A slice's presence lists come from Presences.
func (p *Pool) Snapshot() []types.Participant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Participant, 0, len(p.records))
	for pub, r := range p.records {
		out = append(out, types.Participant{
			PubKey:       pub,
			Tier:         r.presence.Tier,
			Weight:       r.weight,
			PresenceHash: r.presence.Hash(),
		})
	}
	return out
}

// Presences returns the raw recorded presences, split by tier in the
// order needed to build a slice's FullNodePresences/VerifiedUserPresences
// lists. Within each tier, presences are returned in pubkey order so
// that the produced ordering is reproducible independent of Go's
// non-deterministic map iteration.
func (p *Pool) Presences() (fullNode, verifiedUser []types.Presence) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pubs := make([]mcrypto.PubKey, 0, len(p.records))
	for pub := range p.records {
		pubs = append(pubs, pub)
	}
	sortPubKeys(pubs)

	for _, pub := range pubs {
		r := p.records[pub]
		if r.presence.Tier == types.TierVerifiedUser {
			verifiedUser = append(verifiedUser, r.presence)
		} else {
			fullNode = append(fullNode, r.presence)
		}
	}
	return fullNode, verifiedUser
}

func sortPubKeys(pubs []mcrypto.PubKey) {
	sort.Slice(pubs, func(i, j int) bool { return pubs[i].Less(pubs[j]) })
}

// Advance archives the closing window's participant snapshot into the
// bounded history cache, then clears the pool and opens the next tau2
// window. Called once per tau2 boundary by the engine, after the
// lottery has been run and the slice produced for the window being
// closed.
func (p *Pool) Advance(nextTau2Index uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	closing := make([]types.Participant, 0, len(p.records))
	for pub, r := range p.records {
		closing = append(closing, types.Participant{
			PubKey:       pub,
			Tier:         r.presence.Tier,
			Weight:       r.weight,
			PresenceHash: r.presence.Hash(),
		})
	}
	p.history.Add(p.tau2Index, closing)

	p.tau2Index = nextTau2Index
	p.records = make(map[mcrypto.PubKey]record, minInt(p.cap, 1024))
}

// History returns the archived participant snapshot for a previously
// closed tau2 window, if it is still within the retained lookback
// window.
func (p *Pool) History(tau2Index uint64) ([]types.Participant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.history.Get(tau2Index)
}
