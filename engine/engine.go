// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine implements Montana's single-owner, event-driven
// consensus state machine: it owns fork-choice, the finality tracker,
// the cooldown table, and the presence pool, and produces the actions
// a transport collaborator should broadcast in response to each event.
//
// Dispatch handlers never call the wall clock; every notion of "now"
// comes from the network_time carried on the most recent tau-tick
// event, consistent with the receiver re-deriving its own view rather
// than trusting a peer's clock. The only I/O a handler performs is the
// synchronous write to Config.Store when one is set.
package engine

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/montana-chain/consensus/cooldown"
	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/finality"
	"github.com/montana-chain/consensus/forkchoice"
	"github.com/montana-chain/consensus/lottery"
	"github.com/montana-chain/consensus/metrics"
	"github.com/montana-chain/consensus/mlog"
	"github.com/montana-chain/consensus/pool"
	"github.com/montana-chain/consensus/slicevalidate"
	"github.com/montana-chain/consensus/types"
)

// Config seeds a new Engine.
type Config struct {
	Signer     mcrypto.Signer
	Verifier   mcrypto.Verifier
	IsFullNode bool
	Genesis    forkchoice.ChainHead
	PoolCap    int // defaults to types.PresencePoolCap if zero
	// Log receives structural state transitions (slices accepted,
	// reorgs, checkpoints). Defaults to a no-op logger.
	Log *zap.Logger
	// Metrics receives rolling counter updates. Nil disables metrics
	// entirely rather than falling back to a throwaway registry, since
	// an engine that nobody scrapes has no reason to pay for it.
	Metrics *metrics.Metrics
	// Store persists every structurally accepted slice and the
	// canonical head pointer. Nil disables persistence; the engine runs
	// in-memory only and loses all state across a restart.
	Store ChainStore
	// GenesisKeys are permanently exempted from the reactivation
	// cooldown, per the chain's genesis configuration.
	GenesisKeys cooldown.GenesisSet
}

// ChainStore is the durable side of the engine: it remembers accepted
// slices and the canonical head across restarts. The engine never reads
// it back mid-dispatch — every handler's view of the world comes from
// its in-memory components — so a ChainStore only ever needs to accept
// writes here.
type ChainStore interface {
	PutSlice(slice *types.Slice) error
	SetHead(hash mcrypto.Hash) error
}

// Engine is the single-owner consensus state machine. Each component
// it wraps enforces its own lock discipline; Engine itself only
// guards its small scalar fields (currentTau2, lastNetworkTime,
// shutdown), matching the "at most one component lock per handler"
// invariant.
type Engine struct {
	signer     mcrypto.Signer
	verifier   mcrypto.Verifier
	isFullNode bool
	pub        mcrypto.PubKey

	forkChoice *forkchoice.ForkChoice
	finality   *finality.Tracker
	cooldown   *cooldown.Cooldown
	pool       *pool.Pool
	log        *zap.Logger
	metrics    *metrics.Metrics
	store      ChainStore

	scalarMu        sync.RWMutex
	currentTau2     uint64
	lastNetworkTime int64

	// dispatchID correlates one Dispatch call's log lines for operator
	// debugging. Safe without its own lock: Dispatch is cooperative and
	// single-threaded by design (see package doc), so at most one call
	// is ever in flight.
	dispatchID string

	shutdown atomic.Bool
}

// New constructs an Engine seeded with cfg.Genesis as the chain's
// starting head.
func New(cfg Config) *Engine {
	poolCap := cfg.PoolCap
	if poolCap == 0 {
		poolCap = types.PresencePoolCap
	}
	log := cfg.Log
	if log == nil {
		log = mlog.NewNop()
	}
	e := &Engine{
		signer:     cfg.Signer,
		verifier:   cfg.Verifier,
		isFullNode: cfg.IsFullNode,
		pub:        cfg.Signer.PublicKey(),
		forkChoice: forkchoice.New(cfg.Genesis),
		finality:   finality.New(),
		cooldown:   cooldown.New(),
		pool:       pool.New(poolCap),
		log:        log,
		metrics:    cfg.Metrics,
		store:      cfg.Store,
	}
	e.cooldown.ApplyGenesisSet(cfg.GenesisKeys)
	e.finality.SetCanonicalHead(cfg.Genesis.Height)
	return e
}

// Shutdown requests that the engine stop mutating state at the next
// dispatch boundary. In-flight slice production (within the current
// Dispatch call) still completes; it is simply never started again.
func (e *Engine) Shutdown() {
	e.shutdown.Store(true)
}

// ForkChoice exposes the engine's fork-choice registry for read-only
// inspection (e.g. by the CLI's rolling counters).
func (e *Engine) ForkChoice() *forkchoice.ForkChoice { return e.forkChoice }

// Finality exposes the engine's finality tracker for read-only
// inspection.
func (e *Engine) Finality() *finality.Tracker { return e.finality }

// Dispatch processes one event to completion and returns the actions
// the transport should take as a result.
func (e *Engine) Dispatch(ev Event) ([]Action, error) {
	if e.shutdown.Load() {
		return nil, ErrShuttingDown
	}
	e.dispatchID = uuid.NewString()
	switch v := ev.(type) {
	case Tau1Tick:
		return e.handleTau1Tick(v)
	case Tau2Ended:
		return e.handleTau2Ended(v)
	case PresenceEvent:
		return e.handlePresence(v)
	case SliceEvent:
		return e.handleSlice(v)
	case FinalityUpdateEvent:
		return e.handleFinalityUpdate(v)
	default:
		return nil, nil
	}
}

func (e *Engine) setNetworkTime(t int64) {
	e.scalarMu.Lock()
	e.lastNetworkTime = t
	e.scalarMu.Unlock()
}

func (e *Engine) now() time.Time {
	e.scalarMu.RLock()
	defer e.scalarMu.RUnlock()
	return time.Unix(e.lastNetworkTime, 0).UTC()
}

func (e *Engine) tau2() uint64 {
	e.scalarMu.RLock()
	defer e.scalarMu.RUnlock()
	return e.currentTau2
}

func (e *Engine) setTau2(v uint64) {
	e.scalarMu.Lock()
	e.currentTau2 = v
	e.scalarMu.Unlock()
}

type weightAdapter struct {
	cd   *cooldown.Cooldown
	tau2 uint64
}

func (w weightAdapter) Weight(pub mcrypto.PubKey, tier types.Tier) uint64 {
	return w.cd.Weight(pub, tier, w.tau2)
}

func (e *Engine) handleTau1Tick(ev Tau1Tick) ([]Action, error) {
	e.setNetworkTime(ev.NetworkTime)
	if !e.isFullNode {
		return nil, nil
	}

	tau2 := e.tau2()
	head := e.forkChoice.Canonical()

	p := types.Presence{
		ProducerPubKey: e.pub,
		Tau2Index:      tau2,
		Tau1:           ev.Tau1Index,
		PrevSliceHash:  head.Hash,
		Timestamp:      ev.NetworkTime,
		Tier:           types.TierFullNode,
	}
	sig, err := mcrypto.SignDomain(e.signer, mcrypto.DomainPresence, p.SigningMessage())
	if err != nil {
		return nil, err
	}
	p.Signature = sig

	weight := e.cooldown.Weight(e.pub, types.TierFullNode, tau2)
	if err := e.pool.Add(p, weight); err != nil {
		return nil, err
	}
	e.cooldown.RecordPresence(e.pub, types.TierFullNode, tau2)
	if e.metrics != nil {
		e.metrics.PresenceAccepted()
		e.metrics.SetPoolSize(e.pool.Len())
	}

	return []Action{PresenceSigned{Tau2Index: tau2}}, nil
}

func (e *Engine) handlePresence(ev PresenceEvent) ([]Action, error) {
	if e.inGracePeriod() {
		return nil, ErrInGracePeriod
	}

	tau2 := e.tau2()
	if err := ev.Proof.Validate(e.verifier, tau2, e.now()); err != nil {
		if e.metrics != nil {
			e.metrics.PresenceRejected()
		}
		return nil, err
	}

	weight := e.cooldown.Weight(ev.Proof.ProducerPubKey, ev.Proof.Tier, tau2)
	if err := e.pool.Add(ev.Proof, weight); err != nil {
		if e.metrics != nil {
			e.metrics.PresenceRejected()
		}
		return nil, err
	}
	e.cooldown.RecordPresence(ev.Proof.ProducerPubKey, ev.Proof.Tier, tau2)
	if e.metrics != nil {
		e.metrics.PresenceAccepted()
		e.metrics.SetPoolSize(e.pool.Len())
	}

	return []Action{PresenceAccepted{PubKey: ev.Proof.ProducerPubKey}}, nil
}

func (e *Engine) inGracePeriod() bool {
	e.scalarMu.RLock()
	t := e.lastNetworkTime
	e.scalarMu.RUnlock()
	offset := t % types.Tau2Secs
	return offset >= types.Tau2Secs-types.GracePeriodSecs
}

func (e *Engine) handleTau2Ended(ev Tau2Ended) ([]Action, error) {
	e.setNetworkTime(ev.NetworkTime)

	head := e.forkChoice.Canonical()
	snapshot := e.pool.Snapshot()

	result, err := lottery.Draw(head.Hash, ev.Tau2Index, snapshot)
	if err != nil {
		e.pool.Advance(ev.Tau2Index + 1)
		e.setTau2(ev.Tau2Index + 1)
		return nil, ErrNoPresences
	}

	winner := result.Winners[0]
	var actions []Action

	if winner.PubKey == e.pub {
		sliceActions, err := e.produceSlice(ev, head, result)
		if err != nil {
			return nil, err
		}
		actions = append(actions, sliceActions...)
	} else {
		actions = append(actions, WaitingForSlice{Tau2Index: ev.Tau2Index, Winner: winner.PubKey})
	}

	e.pool.Advance(ev.Tau2Index + 1)
	e.setTau2(ev.Tau2Index + 1)
	if e.metrics != nil {
		e.metrics.SetTau2Index(ev.Tau2Index + 1)
	}
	return actions, nil
}

func (e *Engine) produceSlice(ev Tau2Ended, head forkchoice.ChainHead, result types.LotteryResult) ([]Action, error) {
	fullNode, verifiedUser := e.pool.Presences()
	slice := &types.Slice{
		FullNodePresences:     fullNode,
		VerifiedUserPresences: verifiedUser,
	}

	var totalWeight uint64
	for _, p := range e.pool.Snapshot() {
		var err error
		totalWeight, err = addWeight(totalWeight, p.Weight)
		if err != nil {
			return nil, ErrWeightOverflow
		}
	}
	cumulativeWeight, err := addWeight(head.CumulativeWeight, totalWeight)
	if err != nil {
		return nil, ErrWeightOverflow
	}

	slice.Header = types.Header{
		Version:          1,
		Height:           head.Height + 1,
		Tau2Index:        ev.Tau2Index,
		Timestamp:        ev.NetworkTime,
		PrevSliceHash:    head.Hash,
		PresenceRoot:     slice.PresenceRoot(),
		ProducerPubKey:   e.pub,
		LotteryTicket:    result.Winners[0].Ticket,
		Slot:             0,
		CumulativeWeight: cumulativeWeight,
	}

	sliceHash := slice.Header.Hash()
	sig, err := mcrypto.SignDomain(e.signer, mcrypto.DomainSlice, sliceHash[:])
	if err != nil {
		return nil, err
	}
	slice.ProducerSignature = sig

	newHead := forkchoice.ChainHead{
		Hash:             sliceHash,
		ParentHash:       head.Hash,
		Height:           slice.Header.Height,
		Tau2Index:        slice.Header.Tau2Index,
		CumulativeWeight: slice.Header.CumulativeWeight,
		Timestamp:        slice.Header.Timestamp,
	}
	e.forkChoice.Insert(newHead)
	e.log.Info("slice produced",
		zap.String("correlationID", e.dispatchID),
		zap.Uint64("height", newHead.Height),
		zap.Uint64("tau2Index", newHead.Tau2Index),
		zap.Int("presences", slice.PresenceCount()),
	)

	actions := []Action{LotteryWon{Tau2Index: ev.Tau2Index, SliceHash: sliceHash}}
	reorgActions, err := e.adoptIfCanonical(newHead, slice)
	if err != nil {
		return nil, err
	}
	return append(actions, reorgActions...), nil
}

// addWeight returns a + b, reporting overflow instead of wrapping
// silently: a slice's cumulative weight must never roll over, since
// fork-choice relies on it strictly increasing with chain height.
func addWeight(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrWeightOverflow
	}
	return a + b, nil
}

func (e *Engine) handleSlice(ev SliceEvent) ([]Action, error) {
	parentHead, ok := e.forkChoice.HeadByHash(ev.Slice.Header.PrevSliceHash)
	if !ok {
		return nil, ErrUnknownParent
	}

	tau2 := e.tau2()
	weights := weightAdapter{cd: e.cooldown, tau2: tau2}
	parent := slicevalidate.Parent{
		Hash:             parentHead.Hash,
		Height:           parentHead.Height,
		Timestamp:        parentHead.Timestamp,
		CumulativeWeight: parentHead.CumulativeWeight,
	}

	result, err := slicevalidate.Validate(ev.Slice, parent, weights, e.verifier, e.now())
	if err != nil {
		if e.metrics != nil {
			e.metrics.SliceRejected()
		}
		return nil, err
	}

	sliceHash := ev.Slice.Hash()
	newHead := forkchoice.ChainHead{
		Hash:             sliceHash,
		ParentHash:       parent.Hash,
		Height:           ev.Slice.Header.Height,
		Tau2Index:        ev.Slice.Header.Tau2Index,
		CumulativeWeight: result.CumulativeWeight,
		Timestamp:        ev.Slice.Header.Timestamp,
	}
	e.forkChoice.Insert(newHead)

	return e.adoptIfCanonical(newHead, ev.Slice)
}

// adoptIfCanonical reorgs onto newHead when fork-choice favors it over
// the current canonical, subject to the reorg-depth and finality
// gates, and always emits SliceAccepted for a structurally valid
// slice regardless of whether it becomes canonical.
func (e *Engine) adoptIfCanonical(newHead forkchoice.ChainHead, slice *types.Slice) ([]Action, error) {
	actions := []Action{SliceAccepted{Hash: newHead.Hash, Height: newHead.Height}}
	if e.metrics != nil {
		e.metrics.SliceAccepted()
	}
	if e.store != nil {
		if err := e.store.PutSlice(slice); err != nil {
			return nil, err
		}
	}

	if !e.forkChoice.ShouldReorg(newHead) {
		return actions, nil
	}
	if !e.forkChoice.CanReorgTo(newHead.Hash) || !e.finality.CanReorgTo(newHead.Height) {
		e.log.Warn("reorg refused by fork-choice or finality gate",
			zap.String("correlationID", e.dispatchID),
			zap.Uint64("candidateHeight", newHead.Height),
		)
		return nil, ErrReorgRefused
	}

	reorgResult, err := e.forkChoice.ReorgTo(newHead.Hash)
	if err != nil {
		return nil, err
	}
	e.finality.SetCanonicalHead(newHead.Height)
	if e.store != nil {
		if err := e.store.SetHead(newHead.Hash); err != nil {
			return nil, err
		}
	}
	actions = append(actions, Reorg{NewHead: newHead.Hash, Depth: reorgResult.Depth})
	e.log.Info("reorg",
		zap.String("correlationID", e.dispatchID),
		zap.Uint64("newHeight", newHead.Height),
		zap.Uint64("depth", reorgResult.Depth),
	)
	if e.metrics != nil {
		e.metrics.Reorg(reorgResult.Depth)
		e.metrics.SetChainHeight(newHead.Height)
	}

	if cp, ok := e.finality.CreateCheckpoint(newHead.Height, slice); ok {
		e.forkChoice.SetFinalizedCheckpoint(cp.SliceHash, cp.SliceIndex)
		actions = append(actions, CheckpointFinalized{Tau3Index: cp.Tau3Index})
		e.log.Info("checkpoint finalized",
			zap.String("correlationID", e.dispatchID),
			zap.Uint64("tau3Index", cp.Tau3Index),
		)
		if e.metrics != nil {
			e.metrics.CheckpointFinalized(newHead.Timestamp)
		}
	}

	return actions, nil
}

func (e *Engine) handleFinalityUpdate(ev FinalityUpdateEvent) ([]Action, error) {
	cp, ok := e.finality.FinalizedCheckpoint()
	if !ok || cp.SliceHash != ev.CheckpointHash {
		return nil, nil
	}
	e.forkChoice.SetFinalizedCheckpoint(cp.SliceHash, cp.SliceIndex)
	return nil, nil
}
