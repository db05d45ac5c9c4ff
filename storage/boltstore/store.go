// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package boltstore is the durable chain store: every accepted slice,
// the canonical head pointer, registered participant weights, and a
// per-window presence history, each in its own bucket of a single
// bbolt database file. It is the engine's persistence boundary — the
// engine itself stays in-memory and asks this package to remember what
// it needs across restarts.
package boltstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	mcrypto "github.com/montana-chain/consensus/crypto"
	"github.com/montana-chain/consensus/types"
)

var (
	bucketSlices   = []byte("slices")
	bucketHeights  = []byte("heights")
	bucketMeta     = []byte("meta")
	bucketWeights  = []byte("weights")
	bucketPresence = []byte("presence_history")
)

var keyHead = []byte("head")

// ErrNotFound is returned by any Get* method when the key is absent.
var ErrNotFound = errors.New("boltstore: not found")

// Store is a single-process, single-owner handle on one chain's
// on-disk state. The zero value is not usable; construct with Open.
type Store struct {
	db *bolt.DB
}

// Open creates or reopens the database at path, creating every bucket
// this package needs if they don't already exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSlices, bucketHeights, bucketMeta, bucketWeights, bucketPresence} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutSlice persists a slice, keyed by its header hash, and records it
// in the height index. It does not move the canonical head pointer —
// callers decide canonicity via SetHead, since a stored slice may sit
// on a fork that never becomes canonical.
func (s *Store) PutSlice(slice *types.Slice) error {
	hash := slice.Hash()
	enc := encodeSlice(slice)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSlices).Put(hash[:], enc); err != nil {
			return err
		}
		var heightKey [8]byte
		binary.BigEndian.PutUint64(heightKey[:], slice.Header.Height)
		return tx.Bucket(bucketHeights).Put(heightKey[:], hash[:])
	})
}

// GetSlice looks up a slice by its header hash.
func (s *Store) GetSlice(hash mcrypto.Hash) (*types.Slice, error) {
	var out *types.Slice
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSlices).Get(hash[:])
		if raw == nil {
			return ErrNotFound
		}
		slice, err := decodeSlice(raw)
		if err != nil {
			return err
		}
		out = slice
		return nil
	})
	return out, err
}

// SliceAtHeight looks up the slice stored at height via the height
// index. If more than one slice was ever stored at that height (a
// since-orphaned fork), this returns whichever one PutSlice wrote last.
func (s *Store) SliceAtHeight(height uint64) (*types.Slice, error) {
	var out *types.Slice
	err := s.db.View(func(tx *bolt.Tx) error {
		var heightKey [8]byte
		binary.BigEndian.PutUint64(heightKey[:], height)
		hashRaw := tx.Bucket(bucketHeights).Get(heightKey[:])
		if hashRaw == nil {
			return ErrNotFound
		}
		raw := tx.Bucket(bucketSlices).Get(hashRaw)
		if raw == nil {
			return ErrNotFound
		}
		slice, err := decodeSlice(raw)
		if err != nil {
			return err
		}
		out = slice
		return nil
	})
	return out, err
}

// SetHead records hash as the canonical head pointer.
func (s *Store) SetHead(hash mcrypto.Hash) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyHead, hash[:])
	})
}

// Head returns the canonical head pointer set by the most recent
// SetHead call.
func (s *Store) Head() (mcrypto.Hash, error) {
	var h mcrypto.Hash
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keyHead)
		if raw == nil {
			return ErrNotFound
		}
		copy(h[:], raw)
		return nil
	})
	return h, err
}

// ChainAgeSecs returns how long ago, relative to now, the canonical
// head slice claims to have been produced.
func (s *Store) ChainAgeSecs(now time.Time) (int64, error) {
	head, err := s.Head()
	if err != nil {
		return 0, err
	}
	slice, err := s.GetSlice(head)
	if err != nil {
		return 0, err
	}
	return now.Unix() - slice.Header.Timestamp, nil
}

// PutWeight records a participant's currently registered weight.
func (s *Store) PutWeight(pub mcrypto.PubKey, weight uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], weight)
		return tx.Bucket(bucketWeights).Put(pub[:], buf[:])
	})
}

// GetWeight returns a participant's currently registered weight.
func (s *Store) GetWeight(pub mcrypto.PubKey) (uint64, error) {
	var weight uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketWeights).Get(pub[:])
		if raw == nil {
			return ErrNotFound
		}
		weight = binary.LittleEndian.Uint64(raw)
		return nil
	})
	return weight, err
}

func presenceHistoryKey(tau2Index uint64, pub mcrypto.PubKey) []byte {
	key := make([]byte, 8+32)
	binary.BigEndian.PutUint64(key[:8], tau2Index)
	copy(key[8:], pub[:])
	return key
}

// PutPresenceRecord records that pub submitted presenceHash during
// tau2Index, for later lookback (e.g. the cooldown tracker's
// per-window success-rate history, or operator audits).
func (s *Store) PutPresenceRecord(tau2Index uint64, pub mcrypto.PubKey, presenceHash mcrypto.Hash) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPresence).Put(presenceHistoryKey(tau2Index, pub), presenceHash[:])
	})
}

// PresenceHistory returns every presence hash recorded for tau2Index,
// in key order (which is not submission order).
func (s *Store) PresenceHistory(tau2Index uint64) ([]mcrypto.Hash, error) {
	var out []mcrypto.Hash
	prefix := make([]byte, 8)
	binary.BigEndian.PutUint64(prefix, tau2Index)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketPresence).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var h mcrypto.Hash
			copy(h[:], v)
			out = append(out, h)
		}
		return nil
	})
	return out, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
