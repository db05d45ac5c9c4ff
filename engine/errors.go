// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "errors"

var (
	ErrNoPresences          = errors.New("engine: no presences in pool to run the lottery over")
	ErrInvalidLotteryWinner = errors.New("engine: lottery winner mismatch")
	ErrInvalidPresenceRoot  = errors.New("engine: produced slice's presence_root is inconsistent with its own pool")
	ErrSliceTimeout         = errors.New("engine: slice production did not complete before tau2 boundary")
	ErrUnknownParent        = errors.New("engine: slice references an unknown parent")
	ErrReorgRefused         = errors.New("engine: fork-choice or finality gate refused the reorg")
	ErrShuttingDown         = errors.New("engine: shutdown in progress")
	ErrInGracePeriod        = errors.New("engine: presence refused during grace period")
	ErrWeightOverflow       = errors.New("engine: cumulative weight overflowed uint64")
)
