// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wmvba

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/set"
)

// abbaPhase is one CSS (Core-Set Selection) round of the binary agreement:
// parties broadcast a ballot bit, report the set of parties whose ballot
// they have seen, then signal DoneReporting once their core set is fixed.
type abbaPhase struct {
	ballots       map[uint32]byte
	seenBy        map[uint32]map[uint32]byte // reporting party -> {party: ballot it saw}
	doneReporting set.Set[uint32]
}

func newAbbaPhase() *abbaPhase {
	return &abbaPhase{
		ballots:       make(map[uint32]byte),
		seenBy:        make(map[uint32]map[uint32]byte),
		doneReporting: set.Set[uint32]{},
	}
}

// abbaState drives phase-indexed binary agreement on "does a Freeze value
// exist" (bit 1) vs "no value" (bit 0).
type abbaState struct {
	committee *committee.Committee
	baid      []byte

	phase   uint32
	phases  map[uint32]*abbaPhase
	decided bool
	result  byte
}

func newAbbaState(c *committee.Committee, baid []byte, initialBallot byte) *abbaState {
	a := &abbaState{
		committee: c,
		baid:      baid,
		phases:    make(map[uint32]*abbaPhase),
	}
	a.phases[0] = newAbbaPhase()
	return a
}

// phaseBucket returns phase's ballot/seen/doneReporting bucket, creating it
// if this is the first message ever seen for it. Used for both the current
// phase and for phases ahead of or behind it: a message for a phase we
// have not reached yet is buffered here until we advance into it; a
// message for a phase we have already passed still lands here as a late
// aggregation witness, without re-triggering that phase's progress checks.
func (a *abbaState) phaseBucket(phase uint32) *abbaPhase {
	p, ok := a.phases[phase]
	if !ok {
		p = newAbbaPhase()
		a.phases[phase] = p
	}
	return p
}

// ballot records party's ballot bit for phase, if not already decided.
// Phases other than the current one are recorded but do not trigger
// progress: see phaseBucket.
func (a *abbaState) ballot(phase, party uint32, bit byte) {
	if a.decided {
		return
	}
	a.phaseBucket(phase).ballots[party] = bit
}

// seen records that reporter has observed the given ballots from a set of
// parties in phase. Phases other than the current one are recorded but do
// not trigger progress: see phaseBucket.
func (a *abbaState) seen(phase, reporter uint32, observed map[uint32]byte) {
	if a.decided {
		return
	}
	a.phaseBucket(phase).seenBy[reporter] = observed
}

// doneReportingFrom records that party considers its core set fixed for
// phase. A report for a phase other than the current one is buffered (or,
// if the phase has already passed, kept only as a witness) and does not
// itself advance anything; reaching the recorded phase replays it through
// the instance's own recursive ballot/seen/doneReporting sends, which
// recompute weight over the buffer transparently.
func (a *abbaState) doneReportingFrom(phase, party uint32) (advanced bool, decided bool, bit byte) {
	if a.decided {
		return false, a.decided, a.result
	}
	cur := a.phaseBucket(phase)
	cur.doneReporting.Add(party)

	if phase != a.phase {
		return false, false, 0
	}

	var reportedWeight uint64
	for _, p := range cur.doneReporting.List() {
		if party, ok := a.committee.ByIndex(p); ok {
			reportedWeight += party.Weight
		}
	}
	if reportedWeight < a.committee.ProgressWeight() {
		return false, false, 0
	}

	unanimous, bitValue := coreSetUnanimous(a.committee, cur)
	coin := deterministicCoin(a.baid, a.phase)
	if unanimous {
		a.decided = true
		a.result = bitValue
		return true, true, bitValue
	}

	a.phase++
	a.phaseBucket(a.phase) // keep any already-buffered future-phase messages
	return true, false, coin
}

// coreSetUnanimous reports whether every ballot reported in the phase's
// Seen sets agrees on one bit, with weight (summed over all Seen sets) at
// least ProgressWeight.
func coreSetUnanimous(c *committee.Committee, phase *abbaPhase) (bool, byte) {
	weight := map[byte]uint64{}
	for _, observed := range phase.seenBy {
		for partyIdx, bit := range observed {
			if p, ok := c.ByIndex(partyIdx); ok {
				weight[bit] += p.Weight
			}
		}
	}
	for _, b := range phase.ballots {
		weight[b] += 0 // ballots alone don't count without being "seen"; kept for completeness
	}
	progress := c.ProgressWeight()
	if weight[1] >= progress && weight[0] == 0 {
		return true, 1
	}
	if weight[0] >= progress && weight[1] == 0 {
		return true, 0
	}
	return false, 0
}

// ballotWeight sums the committee weight of parties that have cast a
// ballot in phase.
func (a *abbaState) ballotWeight(phase uint32) uint64 {
	p, ok := a.phases[phase]
	if !ok {
		return 0
	}
	var w uint64
	for idx := range p.ballots {
		if party, ok := a.committee.ByIndex(idx); ok {
			w += party.Weight
		}
	}
	return w
}

// seenWeight sums the committee weight of parties that have reported a
// Seen set in phase.
func (a *abbaState) seenWeight(phase uint32) uint64 {
	p, ok := a.phases[phase]
	if !ok {
		return 0
	}
	var w uint64
	for idx := range p.seenBy {
		if party, ok := a.committee.ByIndex(idx); ok {
			w += party.Weight
		}
	}
	return w
}

// observedBallots returns a copy of every ballot known for phase.
func (a *abbaState) observedBallots(phase uint32) map[uint32]byte {
	p, ok := a.phases[phase]
	if !ok {
		return nil
	}
	out := make(map[uint32]byte, len(p.ballots))
	for k, v := range p.ballots {
		out[k] = v
	}
	return out
}

// deterministicCoin derives the shared phase coin from baid and the phase
// number. Real deployments derive this from a threshold signature; this
// facade derives it deterministically from public values instead, since
// VRF/BLS material is already opaque in this engine (see internal/xcrypto).
func deterministicCoin(baid []byte, phase uint32) byte {
	buf := make([]byte, len(baid)+4)
	copy(buf, baid)
	binary.BigEndian.PutUint32(buf[len(baid):], phase)
	h := sha256.Sum256(buf)
	return h[0] & 1
}
