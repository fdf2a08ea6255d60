// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wmvba implements the Weighted Multi-Valued Byzantine Agreement
// finalization state machine: Freeze, an ABBA binary-agreement core with
// CSS (Seen/DoneReporting) phases and a deterministic coin, and witness
// signature aggregation.
package wmvba

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/set"
)

// Bottom is the distinguished "no value" outcome of Freeze and the ABBA
// decision bit 0.
var Bottom ids.ID

// freezeState runs one Freeze instance: parties vote for a value (a block
// hash justified by the tree) or abstain; the outcome is either a unique
// value, once a weight-progress majority agrees, or Bottom once enough
// weight has voted without agreement.
type freezeState struct {
	committee *committee.Committee

	votedBy map[uint32]ids.ID // party index -> first vote (equivocation keeps only the first)
	weight  map[ids.ID]uint64 // proposed value -> accumulated weight
	voted   uint64            // distinct parties that have voted, by weight

	equivocators set.Set[uint32]

	decided bool
	result  ids.ID
}

func newFreezeState(c *committee.Committee) *freezeState {
	return &freezeState{
		committee:    c,
		votedBy:      make(map[uint32]ids.ID),
		weight:       make(map[ids.ID]uint64),
		equivocators: set.Set[uint32]{},
	}
}

// vote records party's proposal and reports whether Freeze has decided.
// A second, different vote from a party already recorded marks it an
// equivocator: its weight is not counted twice, and it is excluded from
// future justification.
func (f *freezeState) vote(party uint32, value ids.ID) (bool, ids.ID) {
	if f.decided {
		return true, f.result
	}
	if f.equivocators.Contains(party) {
		return false, ids.ID{}
	}
	if prior, seen := f.votedBy[party]; seen {
		if prior != value {
			f.equivocators.Add(party)
		}
		return false, ids.ID{}
	}

	p, ok := f.committee.ByIndex(party)
	if !ok {
		return false, ids.ID{}
	}
	f.votedBy[party] = value
	f.weight[value] += p.Weight
	f.voted += p.Weight

	progress := f.committee.ProgressWeight()
	if f.weight[value] >= progress {
		f.decided = true
		f.result = value
		return true, value
	}
	if f.voted >= progress {
		// Enough weight has voted but no single value reached progress
		// weight: Freeze cannot produce a unique value.
		f.decided = true
		f.result = Bottom
		return true, Bottom
	}
	return false, ids.ID{}
}
