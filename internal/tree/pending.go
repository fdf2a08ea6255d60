// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import (
	"container/heap"

	"github.com/luxfi/ids"
)

// pendingItem is one entry of the pending-block queue: (childHash,
// parentHash), priority-ordered by slot.
type pendingItem struct {
	slot     uint64
	seq      uint64 // insertion order, for stable ordering at equal slot
	child    ids.ID
	parent   ids.ID
	heapIdx  int
}

type pendingQueue []*pendingItem

func (q pendingQueue) Len() int { return len(q) }
func (q pendingQueue) Less(i, j int) bool {
	if q[i].slot != q[j].slot {
		return q[i].slot < q[j].slot
	}
	return q[i].seq < q[j].seq
}
func (q pendingQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIdx = i
	q[j].heapIdx = j
}
func (q *pendingQueue) Push(x any) {
	item := x.(*pendingItem)
	item.heapIdx = len(*q)
	*q = append(*q, item)
}
func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// pendingSet augments pendingQueue with O(1) resolution when a parent
// becomes alive.
type pendingSet struct {
	queue      pendingQueue
	byParent   map[ids.ID][]*pendingItem
	nextSeq    uint64
}

func newPendingSet() *pendingSet {
	return &pendingSet{byParent: make(map[ids.ID][]*pendingItem)}
}

func (p *pendingSet) add(slot uint64, child, parent ids.ID) {
	item := &pendingItem{slot: slot, seq: p.nextSeq, child: child, parent: parent}
	p.nextSeq++
	heap.Push(&p.queue, item)
	p.byParent[parent] = append(p.byParent[parent], item)
}

// drain returns and removes every pending child waiting on parent, in
// slot order.
func (p *pendingSet) drain(parent ids.ID) []ids.ID {
	items := p.byParent[parent]
	if len(items) == 0 {
		return nil
	}
	delete(p.byParent, parent)

	// Stable-sort the drained children by (slot, seq) to match the
	// priority queue's ordering, then remove them from the heap.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j-1], items[j]) == false; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
	for _, it := range items {
		if it.heapIdx >= 0 && it.heapIdx < len(p.queue) && p.queue[it.heapIdx] == it {
			heap.Remove(&p.queue, it.heapIdx)
		}
	}

	out := make([]ids.ID, len(items))
	for i, it := range items {
		out[i] = it.child
	}
	return out
}

func less(a, b *pendingItem) bool {
	if a.slot != b.slot {
		return a.slot < b.slot
	}
	return a.seq < b.seq
}

func (p *pendingSet) len() int { return p.queue.Len() }
