// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/montana-chain/consensus/config"
	"github.com/montana-chain/consensus/cooldown"
	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/engine"
	"github.com/montana-chain/consensus/forkchoice"
	"github.com/montana-chain/consensus/metrics"
	"github.com/montana-chain/consensus/mlog"
	"github.com/montana-chain/consensus/storage/boltstore"
)

func runCmd() *cobra.Command {
	var (
		network string
		datadir string
		seedHex string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single Montana node until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(network, datadir, seedHex)
		},
	}
	cmd.Flags().StringVar(&network, "network", "local", "network preset: mainnet, testnet, or local")
	cmd.Flags().StringVar(&datadir, "datadir", "./montana-data", "directory for the node's bbolt database")
	cmd.Flags().StringVar(&seedHex, "seed", "", "32-byte hex seed for a deterministic identity key; random if empty")
	return cmd
}

func parseNetwork(name string) (config.NetworkType, error) {
	switch name {
	case "mainnet":
		return config.Mainnet, nil
	case "testnet":
		return config.Testnet, nil
	case "local", "":
		return config.Local, nil
	default:
		return 0, fmt.Errorf("unknown network %q: want mainnet, testnet, or local", name)
	}
}

func runNode(network, datadir, seedHex string) error {
	preset, err := parseNetwork(network)
	if err != nil {
		return err
	}
	cfg, err := config.FromPreset(preset)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	logger, err := mlog.New(mlog.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
		Component:   "montanad",
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m, err = metrics.New(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("build metrics: %w", err)
		}
	}

	if err := os.MkdirAll(datadir, 0o755); err != nil {
		return fmt.Errorf("create datadir: %w", err)
	}
	store, err := boltstore.Open(filepath.Join(datadir, "montana.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	signer, err := nodeSigner(seedHex)
	if err != nil {
		return fmt.Errorf("build identity: %w", err)
	}

	genesis := forkchoice.ChainHead{
		Hash:      mcrypto.Sum256([]byte("montana-genesis:" + network)),
		Height:    0,
		Timestamp: cfg.GenesisTimestamp,
	}

	e := engine.New(engine.Config{
		Signer:     signer,
		Verifier:   mcrypto.Ed25519Verifier{},
		IsFullNode: true,
		Genesis:    genesis,
		PoolCap:    cfg.PoolCap,
		Log:         logger,
		Metrics:     m,
		Store:       store,
		GenesisKeys: cooldown.GenesisSet(cfg.GenesisKeys),
	})

	logger.Info("node starting",
		zap.String("network", network),
		zap.String("pubkey", signer.PublicKey().String()),
		zap.String("datadir", datadir),
	)

	return driveClock(e, logger, cfg.GenesisTimestamp)
}

func nodeSigner(seedHex string) (*mcrypto.Ed25519Signer, error) {
	if seedHex == "" {
		return mcrypto.NewEd25519Signer()
	}
	raw, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	var seed [ed25519.SeedSize]byte
	copy(seed[:], raw)
	return mcrypto.NewEd25519SignerFromSeed(seed), nil
}

// driveClock ticks tau1 and tau2 events from the wall clock relative to
// genesisTimestamp. This stands in for the real network's tau-tick
// source (out of scope here, see package doc): a production deployment
// derives ticks from peer-observed network time, not its own clock.
func driveClock(e *engine.Engine, logger *zap.Logger, genesisTimestamp int64) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastTau1, lastTau2 uint64
	for {
		select {
		case <-sigCh:
			logger.Info("shutdown requested")
			e.Shutdown()
			return nil
		case now := <-ticker.C:
			elapsed := now.Unix() - genesisTimestamp
			if elapsed < 0 {
				continue
			}
			tau1 := uint64(elapsed) / 60
			if tau1 > lastTau1 {
				lastTau1 = tau1
				if _, err := e.Dispatch(engine.Tau1Tick{Tau1Index: tau1, NetworkTime: now.Unix()}); err != nil {
					logger.Warn("tau1 tick rejected", zap.Error(err))
				}
			}
			tau2 := uint64(elapsed) / 600
			if tau2 > lastTau2 {
				lastTau2 = tau2
				if _, err := e.Dispatch(engine.Tau2Ended{Tau2Index: tau2 - 1, NetworkTime: now.Unix()}); err != nil {
					logger.Warn("tau2 boundary rejected", zap.Error(err))
				}
			}
		}
	}
}
