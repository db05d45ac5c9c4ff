// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/montana-chain/consensus/types"
)

// BatchValidatePresences verifies a batch of presence proofs
// concurrently, bounded by maxWorkers, per the section 5 requirement
// that CPU-heavy signature verification be offloaded to a bounded
// worker pool rather than stall the dispatcher. It is intended for
// catch-up sync (validating a backlog gathered while offline), not the
// steady-state single-event Dispatch path.
func (e *Engine) BatchValidatePresences(ctx context.Context, proofs []types.Presence, maxWorkers int) ([]error, error) {
	results := make([]error, len(proofs))
	now := e.now()
	tau2 := e.tau2()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i := range proofs {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = proofs[i].Validate(e.verifier, tau2, now)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
