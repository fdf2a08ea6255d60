// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/wire"
)

// Queue holds settled finalization records that have not yet been
// embedded in a subsequent block, ordered and indexed from
// firstIndex. It also accumulates, per index, the set of witness-creator
// parties seen even for rounds this node never finished driving.
type Queue struct {
	firstIndex uint64
	records    map[uint64]*wire.FinalizationRecord
	witnesses  map[uint64]map[uint32]struct{}
}

// NewQueue returns an empty queue rooted at firstIndex (normally 1, the
// first finalization index after genesis).
func NewQueue(firstIndex uint64) *Queue {
	return &Queue{
		firstIndex: firstIndex,
		records:    make(map[uint64]*wire.FinalizationRecord),
		witnesses:  make(map[uint64]map[uint32]struct{}),
	}
}

// FirstIndex returns the oldest index the queue still holds unsettled.
func (q *Queue) FirstIndex() uint64 { return q.firstIndex }

// Enqueue stores record as unsettled, if not already present.
func (q *Queue) Enqueue(record *wire.FinalizationRecord) {
	if _, ok := q.records[record.Index]; ok {
		return
	}
	q.records[record.Index] = record
}

// Record returns the unsettled record at index, if any.
func (q *Queue) Record(index uint64) (*wire.FinalizationRecord, bool) {
	r, ok := q.records[index]
	return r, ok
}

// FindByHash returns the unsettled record finalizing hash, if any is
// still queued.
func (q *Queue) FindByHash(hash ids.ID) (*wire.FinalizationRecord, bool) {
	for _, r := range q.records {
		if r.BlockHash == hash {
			return r, true
		}
	}
	return nil, false
}

// AddWitness folds one more witness-creator party into index's output
// witness set, independent of whether this node ever completed the round.
func (q *Queue) AddWitness(index uint64, party uint32) {
	set, ok := q.witnesses[index]
	if !ok {
		set = make(map[uint32]struct{})
		q.witnesses[index] = set
	}
	set[party] = struct{}{}
}

// OutputWitnesses returns the accumulated witness-creator parties for
// index.
func (q *Queue) OutputWitnesses(index uint64) []uint32 {
	set, ok := q.witnesses[index]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Advance drops every record and witness set strictly below index,
// called once a block finalized at a height beyond index has embedded
// its record. It advances firstIndex to index.
func (q *Queue) Advance(index uint64) {
	for i := q.firstIndex; i < index; i++ {
		delete(q.records, i)
		delete(q.witnesses, i)
	}
	if index > q.firstIndex {
		q.firstIndex = index
	}
}

// Len reports the number of unsettled records still queued.
func (q *Queue) Len() int { return len(q.records) }
