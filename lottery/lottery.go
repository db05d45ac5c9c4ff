// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lottery implements Montana's grinding-resistant producer
// selection: a deterministic, seed-derived ranking of eligible
// participants, clamped by per-tier quotas, that every honest node
// recomputes independently and agrees on without exchanging a single
// message.
package lottery

import (
	"encoding/binary"
	"errors"
	"sort"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

var (
	// ErrTooManyParticipants is returned when a pool snapshot exceeds
	// MaxLotteryParticipants; the caller must not run the draw at all,
	// since a truncated field would no longer be reproducible from the
	// pool's own bookkeeping.
	ErrTooManyParticipants = errors.New("lottery: participant count exceeds MaxLotteryParticipants")
	ErrEmptyParticipantSet = errors.New("lottery: no eligible participants")
)

// Seed derives the draw's seed deterministically from the previous
// slice hash and the tau2 index being drawn for:
// SHA3-256(prev_slice_hash || tau2_index_LE). Neither value is known
// to any single participant in advance of the previous slice landing,
// which is what makes grinding the draw infeasible.
func Seed(prevSliceHash mcrypto.Hash, tau2Index uint64) mcrypto.Hash {
	var buf [40]byte
	copy(buf[:32], prevSliceHash[:])
	binary.LittleEndian.PutUint64(buf[32:], tau2Index)
	return mcrypto.Sum256(buf[:])
}

// Ticket computes a participant's draw ticket: SHA3-256(seed || pubkey).
// Tickets are independent across participants and uniformly
// distributed, so sorting by ticket value is equivalent to a fair
// shuffle keyed on the seed.
func Ticket(seed mcrypto.Hash, pub mcrypto.PubKey) mcrypto.Hash {
	var buf [64]byte
	copy(buf[:32], seed[:])
	copy(buf[32:], pub[:])
	return mcrypto.Sum256(buf[:])
}

type entry struct {
	participant types.Participant
	ticket      mcrypto.Hash
}

// Draw runs the deterministic lottery for one tau2 window over the
// given participant snapshot (normally the presence pool's snapshot of
// everyone who signed presence during the window). A single list of
// all eligible participants, across both tiers, is sorted by ascending
// ticket value (lower pubkey breaking ties) and admitted one at a
// time: an entry wins iff its tier's running selected weight plus its
// own weight does not exceed that tier's weight cap
// (FullNodeCapPercent/VerifiedUserCapPercent of the snapshot's total
// weight), and the draw stops once SlotsPerTau2 winners are admitted.
// This bounds each tier's admitted *weight*, not its admitted slot
// count, so a single outsized entry cannot exhaust its tier's whole
// cap in one slot and crowd out lower-ticket, lower-weight entries
// from the same tier (section 4.3).
func Draw(prevSliceHash mcrypto.Hash, tau2Index uint64, participants []types.Participant) (types.LotteryResult, error) {
	if len(participants) == 0 {
		return types.LotteryResult{}, ErrEmptyParticipantSet
	}
	if len(participants) > types.MaxLotteryParticipants {
		return types.LotteryResult{}, ErrTooManyParticipants
	}

	seed := Seed(prevSliceHash, tau2Index)

	var totalWeight uint64
	entries := make([]entry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, entry{participant: p, ticket: Ticket(seed, p.PubKey)})
		totalWeight += p.Weight
	}
	sortByTicket(entries)

	fullNodeCap := (totalWeight * types.FullNodeCapPercent) / 100
	verifiedUserCap := (totalWeight * types.VerifiedUserCapPercent) / 100

	var fullNodeWeight, verifiedUserWeight uint64
	winners := make([]types.Winner, 0, types.SlotsPerTau2)
	for _, e := range entries {
		if len(winners) >= types.SlotsPerTau2 {
			break
		}
		switch e.participant.Tier {
		case types.TierFullNode:
			if fullNodeWeight+e.participant.Weight > fullNodeCap {
				continue
			}
			fullNodeWeight += e.participant.Weight
		case types.TierVerifiedUser:
			if verifiedUserWeight+e.participant.Weight > verifiedUserCap {
				continue
			}
			verifiedUserWeight += e.participant.Weight
		default:
			continue
		}
		winners = append(winners, types.Winner{
			PubKey: e.participant.PubKey,
			Tier:   e.participant.Tier,
			Ticket: e.ticket,
			Weight: e.participant.Weight,
		})
	}

	// entries, and therefore winners, are already in ascending ticket
	// order: rank 0 is always the globally lowest ticket among winners.
	for i := range winners {
		winners[i].Rank = i
	}

	return types.LotteryResult{
		Seed:               seed,
		Tau2Index:          tau2Index,
		TotalWeight:        totalWeight,
		FullNodeWeight:     fullNodeWeight,
		VerifiedUserWeight: verifiedUserWeight,
		Winners:            winners,
	}, nil
}

func sortByTicket(e []entry) {
	sort.Slice(e, func(i, j int) bool {
		if e[i].ticket != e[j].ticket {
			return lessHash(e[i].ticket, e[j].ticket)
		}
		return e[i].participant.PubKey.Less(e[j].participant.PubKey)
	})
}

func lessHash(a, b mcrypto.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// VerifyWinner recomputes the ticket for pub under seed and reports
// whether it matches claimedTicket, the check a validator performs
// against a slice's asserted lottery_ticket field (section 4.4 step 3).
func VerifyWinner(seed mcrypto.Hash, pub mcrypto.PubKey, claimedTicket mcrypto.Hash) bool {
	return Ticket(seed, pub) == claimedTicket
}

// Rank returns the winner's rank and true if pub is among result's
// winners.
func Rank(result types.LotteryResult, pub mcrypto.PubKey) (int, bool) {
	for _, w := range result.Winners {
		if w.PubKey == pub {
			return w.Rank, true
		}
	}
	return 0, false
}
