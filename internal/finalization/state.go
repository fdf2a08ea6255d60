// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finalization is the round orchestrator (C8): finalization index
// scheduling, a per-index pending-message buffer, catch-up replay, the
// finalization queue that reconciles settled records with block arrival,
// and the WMVBA round driver itself.
package finalization

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/wmvba"
)

// FailedRound records one exhausted delta attempt within an index: the
// delta it failed at, and the WeAreDone(false) signatures collected for
// it, used to answer catch-up summaries about rounds we gave up on.
type FailedRound struct {
	Delta      uint64
	Signatures map[uint32][64]byte
}

// ActiveRound is a finalization index's current WMVBA attempt: this node
// is a committee member and drives an Instance. Passive members (not in
// the committee) have a nil ActiveRound and only aggregate witnesses.
type ActiveRound struct {
	Delta    uint64
	Input    ids.ID
	Instance *wmvba.Instance
}

// pendingKey identifies one buffered message for de-duplication within
// the Map<FinIndex, Map<Delta, Set<PendingMsg>>> pending-message store.
type pendingKey struct {
	index uint64
	delta uint64
	sig   [64]byte
}

// State is the mutable per-finalization-index state: session id, current
// index, target block height, the committee for this index, the active
// or passive round, failed-round history and the buffered messages
// waiting on a future index or delta.
type State struct {
	SessionID    ids.ID
	CurrentIndex uint64
	TargetHeight uint64
	InitialDelta uint64
	Committee    *committee.Committee
	MinSkip      uint64

	Round        *ActiveRound
	FailedRounds []FailedRound

	pending map[pendingKey]*wire.FinalizationMessage
}

func newState() *State {
	return &State{pending: make(map[pendingKey]*wire.FinalizationMessage)}
}

// buffer stores msg under its (index, delta, signature) key, replacing
// nothing: equal keys are the same message re-received.
func (s *State) buffer(msg *wire.FinalizationMessage) {
	s.pending[pendingKey{index: msg.Index, delta: msg.Delta, sig: msg.Signature}] = msg
}

// drain removes and returns every buffered message at index, in
// unspecified order, for replay against a freshly started round.
func (s *State) drain(index uint64) []*wire.FinalizationMessage {
	var out []*wire.FinalizationMessage
	for k, msg := range s.pending {
		if k.index == index {
			out = append(out, msg)
			delete(s.pending, k)
		}
	}
	return out
}

// dropBelow discards every buffered message at an index below floor; the
// pending store only ever needs the current and next index (spec: "Entries
// at indices i+1 are kept as long as i is current").
func (s *State) dropBelow(floor uint64) {
	for k := range s.pending {
		if k.index < floor {
			delete(s.pending, k)
		}
	}
}
