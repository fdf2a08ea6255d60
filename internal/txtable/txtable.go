// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txtable implements the transaction table: a per-sender
// nonce-ordered pending set with commit/finalize status and a timed,
// counter-gated purge. Transactions are opaque beyond sender and nonce.
package txtable

import (
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/wire"
)

// StatusKind is the transaction lifecycle state.
type StatusKind int

const (
	StatusReceived StatusKind = iota
	StatusCommitted
	StatusFinalized
)

// Status carries the per-kind payload for a transaction table entry.
type Status struct {
	Kind StatusKind

	// Received / Committed / Finalized all carry the slot at which the tx
	// was last seen relevant.
	Slot uint64

	// Committed: block hash -> index within that block's tx list.
	Committed map[ids.ID]int

	// Finalized: the block that finalized this tx, and its opaque result.
	FinalizedBlock ids.ID
	Result         []byte
}

type entry struct {
	tx      *wire.Tx
	status  Status
	addedAt time.Time
}

type senderState struct {
	// nonce -> set of competing tx hashes at that nonce.
	byNonce   map[uint64]map[ids.ID]struct{}
	nextNonce uint64
}

// Table is the transaction table.
type Table struct {
	byHash  map[ids.ID]*entry
	senders map[ids.ID]*senderState

	keepAlive     time.Duration
	purgeEvery    int
	insertCounter int

	now func() time.Time
}

// New returns an empty table. now lets tests control the clock.
func New(keepAlive time.Duration, purgeEvery int, now func() time.Time) *Table {
	if now == nil {
		now = time.Now
	}
	return &Table{
		byHash:     make(map[ids.ID]*entry),
		senders:    make(map[ids.ID]*senderState),
		keepAlive:  keepAlive,
		purgeEvery: purgeEvery,
		now:        now,
	}
}

func (t *Table) sender(id ids.ID) *senderState {
	s, ok := t.senders[id]
	if !ok {
		s = &senderState{byNonce: make(map[uint64]map[ids.ID]struct{})}
		t.senders[id] = s
	}
	return s
}

// NextNonce returns the smallest nonce not yet finalized for sender.
func (t *Table) NextNonce(sender ids.ID) uint64 {
	return t.sender(sender).nextNonce
}

// AddCommit ingests a transaction received at slot. It rejects
// transactions already Finalized or whose nonce is below the sender's
// nextNonce; otherwise it upserts a Received entry, or bumps the slot of
// an existing Received/Committed entry for the same hash.
func (t *Table) AddCommit(tx *wire.Tx, slot uint64) bool {
	id := tx.ID()
	ss := t.sender(tx.Sender)
	if tx.Nonce < ss.nextNonce {
		return false
	}
	if e, ok := t.byHash[id]; ok {
		if e.status.Kind == StatusFinalized {
			return false
		}
		if slot > e.status.Slot {
			e.status.Slot = slot
		}
		return true
	}
	t.byHash[id] = &entry{
		tx:      tx,
		status:  Status{Kind: StatusReceived, Slot: slot},
		addedAt: t.now(),
	}
	if ss.byNonce[tx.Nonce] == nil {
		ss.byNonce[tx.Nonce] = make(map[ids.ID]struct{})
	}
	ss.byNonce[tx.Nonce][id] = struct{}{}
	t.insertCounter++
	return true
}

// CommitTransaction transitions Received -> Committed for tx, recording
// its index in block.
func (t *Table) CommitTransaction(block ids.ID, slot uint64, tx *wire.Tx, index int) {
	id := tx.ID()
	e, ok := t.byHash[id]
	if !ok {
		return
	}
	if e.status.Kind == StatusReceived {
		e.status.Kind = StatusCommitted
		e.status.Committed = make(map[ids.ID]int)
	}
	if e.status.Slot < slot {
		e.status.Slot = slot
	}
	if e.status.Committed == nil {
		e.status.Committed = make(map[ids.ID]int)
	}
	e.status.Committed[block] = index
}

// FinalizeTransactions transitions each tx Committed -> Finalized for the
// finalized block, deletes every competing tx at the same (sender, nonce)
// and advances nextNonce.
func (t *Table) FinalizeTransactions(block ids.ID, slot uint64, txs []*wire.Tx) {
	for _, tx := range txs {
		id := tx.ID()
		e, ok := t.byHash[id]
		if !ok {
			continue
		}
		e.status = Status{Kind: StatusFinalized, Slot: slot, FinalizedBlock: block}

		ss := t.sender(tx.Sender)
		for competitor := range ss.byNonce[tx.Nonce] {
			if competitor != id {
				delete(t.byHash, competitor)
			}
		}
		delete(ss.byNonce, tx.Nonce)
		if tx.Nonce >= ss.nextNonce {
			ss.nextNonce = tx.Nonce + 1
		}
	}
}

// RevertToReceived demotes a Committed tx back to Received, used when the
// only block(s) that had committed it are pruned at finalization.
func (t *Table) RevertToReceived(tx *wire.Tx) {
	e, ok := t.byHash[tx.ID()]
	if !ok || e.status.Kind != StatusCommitted {
		return
	}
	e.status = Status{Kind: StatusReceived, Slot: e.status.Slot}
}

// Status returns the current status of tx, if known.
func (t *Table) Status(id ids.ID) (Status, bool) {
	e, ok := t.byHash[id]
	if !ok {
		return Status{}, false
	}
	return e.status, true
}

// Get returns the transaction itself, if known.
func (t *Table) Get(id ids.ID) (*wire.Tx, bool) {
	e, ok := t.byHash[id]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// Len returns the number of tracked transactions.
func (t *Table) Len() int { return len(t.byHash) }

// SelectTransactions selects Received transactions for a new block, one
// sender's lowest pending nonce at a time (so assembly never proposes a
// gap). A transaction that would push the total past maxSize or maxEnergy
// is skipped and selection goes on with the remaining senders. It
// implements baker.TxSource.
func (t *Table) SelectTransactions(maxSize int, maxEnergy uint64) []*wire.Tx {
	var (
		out       []*wire.Tx
		size      int
		energy    uint64
	)
	for _, ss := range t.senders {
		nonce := ss.nextNonce
		hashes, ok := ss.byNonce[nonce]
		if !ok {
			continue
		}
		for h := range hashes {
			e := t.byHash[h]
			if e == nil || e.status.Kind != StatusReceived {
				continue
			}
			txBytes := e.tx.Bytes()
			if size+len(txBytes) > maxSize || energy+e.tx.Energy > maxEnergy {
				continue
			}
			out = append(out, e.tx)
			size += len(txBytes)
			energy += e.tx.Energy
			break // one tx per sender per assembly pass
		}
	}
	return out
}

// Purge drops Received transactions older than keepAlive that are not
// committed to any alive-or-finalized block, gated by an insertion
// counter to amortize cost. isAliveOrFinalized reports whether a block
// hash is still part of the chain (as opposed to pruned/dead), used to
// decide whether a Committed reference still counts.
func (t *Table) Purge(isAliveOrFinalized func(ids.ID) bool) {
	if t.insertCounter < t.purgeEvery {
		return
	}
	t.insertCounter = 0
	cutoff := t.now().Add(-t.keepAlive)

	for senderID, ss := range t.senders {
		// Walk nonces in ascending order so that fully-purging the lowest
		// bucket cascades to every higher bucket for that sender.
		nonces := sortedNonces(ss.byNonce)
		lowestFullyPurged := false
		for _, nonce := range nonces {
			hashes := ss.byNonce[nonce]
			if lowestFullyPurged {
				for h := range hashes {
					delete(t.byHash, h)
				}
				delete(ss.byNonce, nonce)
				continue
			}

			remaining := make(map[ids.ID]struct{})
			for h := range hashes {
				e := t.byHash[h]
				if e == nil {
					continue
				}
				if e.status.Kind != StatusReceived {
					remaining[h] = struct{}{}
					continue
				}
				stillReferenced := false
				for block := range e.status.Committed {
					if isAliveOrFinalized(block) {
						stillReferenced = true
						break
					}
				}
				if stillReferenced || e.addedAt.After(cutoff) {
					remaining[h] = struct{}{}
					continue
				}
				delete(t.byHash, h)
			}
			if len(remaining) == 0 {
				delete(ss.byNonce, nonce)
				if nonce == nonces[0] {
					lowestFullyPurged = true
				}
			} else {
				ss.byNonce[nonce] = remaining
			}
		}
		if len(ss.byNonce) == 0 {
			delete(t.senders, senderID)
		}
	}
}

func sortedNonces(m map[uint64]map[ids.ID]struct{}) []uint64 {
	out := make([]uint64, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
