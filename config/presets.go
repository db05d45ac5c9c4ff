// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "github.com/montana-chain/consensus/types"

// MainnetConfig is production defaults: pinned genesis, conservative
// logging, metrics on.
func MainnetConfig() Config {
	return Config{
		Network:            Mainnet,
		GenesisTimestamp:   types.GenesisTimestamp,
		BootstrapAnchors:   []string{"mainnet-anchor-0.montana.example:26656", "mainnet-anchor-1.montana.example:26656"},
		PoolCap:            types.PresencePoolCap,
		LogLevel:           "info",
		LogDevelopment:     false,
		MetricsEnabled:     true,
		BatchVerifyWorkers: 16,
	}
}

// TestnetConfig mirrors Mainnet's protocol constants (they are not
// network-specific) but uses a separate genesis epoch and anchor set,
// and a chattier default log level for debugging.
func TestnetConfig() Config {
	c := MainnetConfig()
	c.Network = Testnet
	c.GenesisTimestamp = types.GenesisTimestamp + types.CheckpointInterval*types.Tau2Secs
	c.BootstrapAnchors = []string{"testnet-anchor-0.montana.example:26656"}
	c.LogLevel = "debug"
	return c
}

// LocalConfig is for single-process development: no bootstrap anchors
// (the node is its own genesis), development console logging, metrics
// off by default, and a small pool cap since a dev box never sees
// anywhere near PresencePoolCap participants.
func LocalConfig() Config {
	c := MainnetConfig()
	c.Network = Local
	c.BootstrapAnchors = nil
	c.PoolCap = 256
	c.LogLevel = "debug"
	c.LogDevelopment = true
	c.MetricsEnabled = false
	c.BatchVerifyWorkers = 4
	return c
}

// FromPreset resolves a NetworkType to its Config.
func FromPreset(n NetworkType) (Config, error) {
	switch n {
	case Mainnet:
		return MainnetConfig(), nil
	case Testnet:
		return TestnetConfig(), nil
	case Local:
		return LocalConfig(), nil
	default:
		return Config{}, ErrUnknownNetwork
	}
}
