// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// montanad is the single-process reference node: it wires the config,
// logging, metrics, and storage packages into a running engine and
// drives it from the wall clock. It exists to exercise the consensus
// core end to end, not as a production deployment tool — real
// networking, peer discovery, and persistent key management are out of
// scope (see SPEC_FULL.md's Non-goals).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "montanad",
	Short: "Montana presence-based consensus reference node",
	Long: `montanad runs a single Montana consensus node in-process: it produces
and validates slices, tracks fork-choice and finality, and persists
accepted state to a local bbolt database.`,
}

func main() {
	rootCmd.AddCommand(runCmd(), statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "montanad: %v\n", err)
		os.Exit(1)
	}
}
