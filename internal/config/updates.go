// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

// Update is one pending chain-parameter change, scheduled to take effect
// at a given slot.
type Update struct {
	EffectiveSlot uint64
	Params        Parameters
}

// UpdateQueue holds pending parameter updates. It resolves the source's
// open question ("we may just want to keep unused protocol updates in the
// queue, even if their timestamps have elapsed") as: on each check, the
// first entry whose EffectiveSlot has elapsed is applied and removed from
// the queue; any other already-elapsed entries are dropped, not applied;
// entries that have not yet elapsed are left queued untouched.
type UpdateQueue struct {
	pending []Update
}

// NewUpdateQueue returns an empty queue.
func NewUpdateQueue() *UpdateQueue {
	return &UpdateQueue{}
}

// Schedule enqueues an update, keeping the queue ordered by EffectiveSlot.
func (q *UpdateQueue) Schedule(u Update) {
	i := 0
	for i < len(q.pending) && q.pending[i].EffectiveSlot <= u.EffectiveSlot {
		i++
	}
	q.pending = append(q.pending, Update{})
	copy(q.pending[i+1:], q.pending[i:])
	q.pending[i] = u
}

// Apply checks the queue against currentSlot. If any entries have
// elapsed, the first one's Parameters are returned with ok=true and every
// elapsed entry (including the applied one) is removed from the queue;
// entries that have not yet elapsed remain queued.
func (q *UpdateQueue) Apply(currentSlot uint64) (Parameters, bool) {
	var applied Parameters
	found := false
	remaining := q.pending[:0:0]
	for _, u := range q.pending {
		if u.EffectiveSlot > currentSlot {
			remaining = append(remaining, u)
			continue
		}
		if !found {
			applied = u.Params
			found = true
		}
		// Elapsed entries beyond the first are dropped, not kept.
	}
	q.pending = remaining
	return applied, found
}

// Pending returns the still-queued (not-yet-elapsed or never-checked)
// updates, for diagnostics/tests.
func (q *UpdateQueue) Pending() []Update {
	return append([]Update(nil), q.pending...)
}
