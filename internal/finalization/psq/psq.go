// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package psq is a priority search queue keyed by signature, used by the
// catch-up protocol to de-duplicate recently seen CatchUpStatus messages.
// Entries older than the retention window are purged on every insert.
package psq

import (
	"container/heap"
	"time"

	"github.com/luxfi/bakerchain/internal/wire"
)

type entry struct {
	sig   [wire.SignatureSize]byte
	seen  time.Time
	index int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].seen.Before(h[j].seen) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue de-duplicates signatures seen within the last Window, oldest first.
type Queue struct {
	Window time.Duration

	byHeap entryHeap
	bySig  map[[wire.SignatureSize]byte]*entry
}

// New returns an empty de-dup queue with the given retention window.
func New(window time.Duration) *Queue {
	return &Queue{
		Window: window,
		bySig:  make(map[[wire.SignatureSize]byte]*entry),
	}
}

// Seen reports whether sig was already recorded within the retention
// window (without inserting it), after purging anything now stale.
func (q *Queue) Seen(sig [wire.SignatureSize]byte, now time.Time) bool {
	q.purge(now)
	_, ok := q.bySig[sig]
	return ok
}

// Insert records sig as seen at now, purging entries older than Window
// first. Returns false if sig was already present (and leaves its
// timestamp unchanged, since the first sighting is what ages out).
func (q *Queue) Insert(sig [wire.SignatureSize]byte, now time.Time) bool {
	q.purge(now)
	if _, ok := q.bySig[sig]; ok {
		return false
	}
	e := &entry{sig: sig, seen: now}
	heap.Push(&q.byHeap, e)
	q.bySig[sig] = e
	return true
}

func (q *Queue) purge(now time.Time) {
	cutoff := now.Add(-q.Window)
	for q.byHeap.Len() > 0 && q.byHeap[0].seen.Before(cutoff) {
		e := heap.Pop(&q.byHeap).(*entry)
		delete(q.bySig, e.sig)
	}
}

// Len returns the number of currently retained signatures.
func (q *Queue) Len() int { return len(q.bySig) }
