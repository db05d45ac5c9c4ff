// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/montana-chain/consensus/storage/boltstore"
)

func statusCmd() *cobra.Command {
	var datadir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the durable chain state from a node's data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(datadir)
		},
	}
	cmd.Flags().StringVar(&datadir, "datadir", "./montana-data", "directory containing the node's bbolt database")
	return cmd
}

// printStatus reports only what survives a restart: the rolling
// counters a live node exposes (presences/slices accepted or rejected,
// reorg depth, checkpoint timestamps) are process-local Prometheus
// state, scraped from the running node rather than read back here.
func printStatus(datadir string) error {
	store, err := boltstore.Open(filepath.Join(datadir, "montana.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	head, err := store.Head()
	if err != nil {
		return fmt.Errorf("no chain state recorded yet: %w", err)
	}
	slice, err := store.GetSlice(head)
	if err != nil {
		return fmt.Errorf("read head slice: %w", err)
	}
	age, err := store.ChainAgeSecs(time.Now())
	if err != nil {
		return fmt.Errorf("compute chain age: %w", err)
	}

	fmt.Printf("head:              %s\n", head)
	fmt.Printf("height:            %d\n", slice.Header.Height)
	fmt.Printf("tau2_index:        %d\n", slice.Header.Tau2Index)
	fmt.Printf("cumulative_weight: %d\n", slice.Header.CumulativeWeight)
	fmt.Printf("chain_age_secs:    %d\n", age)
	return nil
}
