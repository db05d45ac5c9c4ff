// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import mcrypto "github.com/montana-chain/consensus/crypto"

// Builder constructs a Config by starting from a preset and applying
// overrides, reporting errors only from Build rather than at each
// call, so call sites can chain freely.
type Builder struct {
	cfg Config
	err error
}

// NewBuilder starts from preset's Config.
func NewBuilder(preset NetworkType) *Builder {
	cfg, err := FromPreset(preset)
	return &Builder{cfg: cfg, err: err}
}

func (b *Builder) WithGenesisTimestamp(ts int64) *Builder {
	b.cfg.GenesisTimestamp = ts
	return b
}

func (b *Builder) WithBootstrapAnchors(anchors []string) *Builder {
	b.cfg.BootstrapAnchors = anchors
	return b
}

func (b *Builder) WithPoolCap(cap int) *Builder {
	b.cfg.PoolCap = cap
	return b
}

func (b *Builder) WithLogLevel(level string) *Builder {
	b.cfg.LogLevel = level
	return b
}

func (b *Builder) WithLogDevelopment(dev bool) *Builder {
	b.cfg.LogDevelopment = dev
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.cfg.MetricsEnabled = enabled
	return b
}

func (b *Builder) WithBatchVerifyWorkers(n int) *Builder {
	b.cfg.BatchVerifyWorkers = n
	return b
}

func (b *Builder) WithGenesisKeys(keys []mcrypto.PubKey) *Builder {
	b.cfg.GenesisKeys = keys
	return b
}

// Build returns the assembled Config, or an error: the preset
// resolution error if there was one, otherwise Valid's joined list of
// every violated rule.
func (b *Builder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	if err := b.cfg.Valid(); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}
