// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes the consensus engine's rolling counters
// through Prometheus, registered against an injected
// prometheus.Registerer rather than the global default registry so a
// node can run more than one engine instance in-process (e.g. in
// tests) without collector collisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics is the set of counters and gauges the engine updates as it
// dispatches events. All fields are safe for concurrent use; the
// underlying prometheus types already serialize their own updates.
type Metrics struct {
	presencesAccepted prometheus.Counter
	presencesRejected prometheus.Counter
	slicesAccepted    prometheus.Counter
	slicesRejected    prometheus.Counter
	currentTau2Index  prometheus.Gauge
	chainHeight       prometheus.Gauge
	lastReorgDepth    prometheus.Gauge
	reorgsTotal       prometheus.Counter
	lastCheckpointAt  prometheus.Gauge
	checkpointsTotal  prometheus.Counter
	poolSize          prometheus.Gauge
}

// New builds and registers the Montana metric set against registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		presencesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montana_presences_accepted_total",
			Help: "Number of presence proofs accepted into the pool.",
		}),
		presencesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montana_presences_rejected_total",
			Help: "Number of presence proofs rejected during validation.",
		}),
		slicesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montana_slices_accepted_total",
			Help: "Number of slices that passed validation, own or received.",
		}),
		slicesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montana_slices_rejected_total",
			Help: "Number of slices rejected during validation.",
		}),
		currentTau2Index: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "montana_current_tau2_index",
			Help: "The tau2 index the engine is currently accepting presences for.",
		}),
		chainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "montana_chain_height",
			Help: "Height of the canonical chain head.",
		}),
		lastReorgDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "montana_last_reorg_depth",
			Help: "Depth of the most recent reorg, zero if none has occurred.",
		}),
		reorgsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montana_reorgs_total",
			Help: "Number of reorgs performed by fork-choice.",
		}),
		lastCheckpointAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "montana_last_checkpoint_unix_seconds",
			Help: "Wall-clock time, per network_time, of the last finalized checkpoint.",
		}),
		checkpointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "montana_checkpoints_finalized_total",
			Help: "Number of finality checkpoints created.",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "montana_presence_pool_size",
			Help: "Number of presences currently held in the pool for the active tau2 window.",
		}),
	}

	collectors := []prometheus.Collector{
		m.presencesAccepted,
		m.presencesRejected,
		m.slicesAccepted,
		m.slicesRejected,
		m.currentTau2Index,
		m.chainHeight,
		m.lastReorgDepth,
		m.reorgsTotal,
		m.lastCheckpointAt,
		m.checkpointsTotal,
		m.poolSize,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) PresenceAccepted()   { m.presencesAccepted.Inc() }
func (m *Metrics) PresenceRejected()   { m.presencesRejected.Inc() }
func (m *Metrics) SliceAccepted()      { m.slicesAccepted.Inc() }
func (m *Metrics) SliceRejected()      { m.slicesRejected.Inc() }
func (m *Metrics) SetTau2Index(i uint64)   { m.currentTau2Index.Set(float64(i)) }
func (m *Metrics) SetChainHeight(h uint64) { m.chainHeight.Set(float64(h)) }
func (m *Metrics) SetPoolSize(n int)       { m.poolSize.Set(float64(n)) }

// Reorg records a completed reorg of the given depth.
func (m *Metrics) Reorg(depth uint64) {
	m.lastReorgDepth.Set(float64(depth))
	m.reorgsTotal.Inc()
}

// CheckpointFinalized records a finality checkpoint observed at
// networkTime.
func (m *Metrics) CheckpointFinalized(networkTime int64) {
	m.lastCheckpointAt.Set(float64(networkTime))
	m.checkpointsTotal.Inc()
}

// Snapshot reads current values back out of the registered collectors,
// for tests and other in-process readers, without scraping the
// registry's text exposition format.
type Snapshot struct {
	PresencesAccepted float64
	PresencesRejected float64
	SlicesAccepted    float64
	SlicesRejected    float64
	CurrentTau2Index  float64
	ChainHeight       float64
	LastReorgDepth    float64
	LastCheckpointAt  float64
	PoolSize          float64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		PresencesAccepted: readValue(m.presencesAccepted),
		PresencesRejected: readValue(m.presencesRejected),
		SlicesAccepted:    readValue(m.slicesAccepted),
		SlicesRejected:    readValue(m.slicesRejected),
		CurrentTau2Index:  readValue(m.currentTau2Index),
		ChainHeight:       readValue(m.chainHeight),
		LastReorgDepth:    readValue(m.lastReorgDepth),
		LastCheckpointAt:  readValue(m.lastCheckpointAt),
		PoolSize:          readValue(m.poolSize),
	}
}

func readValue(m prometheus.Metric) float64 {
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		return 0
	}
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	default:
		return 0
	}
}
