// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config assembles the handful of knobs a Montana node needs
// at startup: which network's protocol constants to pin, where to
// bootstrap from, and how to configure the ambient logging and metrics
// stack. The protocol constants themselves (tau1/tau2/tau3, the
// lottery quotas, the cooldown bounds, ...) are not configurable — they
// live as compile-time constants in package types, since every honest
// implementation of the protocol must agree on them bit-for-bit.
package config

import (
	"errors"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

// NetworkType selects a preset Config.
type NetworkType int

const (
	Mainnet NetworkType = iota
	Testnet
	Local
)

func (n NetworkType) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

var (
	ErrUnknownNetwork  = errors.New("config: unknown network type")
	ErrEmptyLogLevel   = errors.New("config: log level must not be empty")
	ErrNegativePoolCap = errors.New("config: pool capacity must not be negative")
)

// Config is the fully resolved set of values an engine and its
// transport are constructed from.
type Config struct {
	Network NetworkType

	// GenesisTimestamp pins the network's tau2/tau3 epoch origin. Per
	// network it differs only in this value and BootstrapAnchors; every
	// other protocol constant is shared and lives in package types.
	GenesisTimestamp int64

	// BootstrapAnchors are peer addresses consulted on startup to find
	// the canonical chain. A placeholder: address-book and
	// reachability verification are out of scope for the consensus
	// core, which only needs the list to exist as a config surface.
	BootstrapAnchors []string

	// PoolCap bounds the presence pool; defaults to
	// types.PresencePoolCap when zero.
	PoolCap int

	// LogLevel is one of the mlog.Level* constants.
	LogLevel string
	// LogDevelopment enables human-readable console logging.
	LogDevelopment bool

	// MetricsEnabled controls whether the node registers and exposes
	// the metrics package's Prometheus collectors.
	MetricsEnabled bool

	// BatchVerifyWorkers is the worker count for concurrent presence
	// signature verification. engine.BatchValidatePresences takes its
	// bound as a maxWorkers argument; neither engine.Config nor
	// montanad reads this field.
	BatchVerifyWorkers int

	// GenesisKeys are identities permanently exempt from the
	// reactivation cooldown, per the network's genesis configuration.
	// Empty by default: presets carry no operator-specific identities,
	// since those are deployment data, not protocol constants.
	GenesisKeys []mcrypto.PubKey
}

// Valid reports whether cfg is internally consistent enough to build an
// engine from. Every violated rule is collected before returning, not
// just the first, so a misconfigured node sees its whole problem list
// at once; errors.Is still works against each sentinel regardless of
// how many rules are violated, since errors.Join preserves them all.
func (cfg Config) Valid() error {
	var errs []error
	if cfg.LogLevel == "" {
		errs = append(errs, ErrEmptyLogLevel)
	}
	if cfg.PoolCap < 0 {
		errs = append(errs, ErrNegativePoolCap)
	}
	return errors.Join(errs...)
}
