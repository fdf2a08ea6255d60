// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wmvba

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

// witnessAggregator collects per-party BLS signature shares over
// witnessMessage(baid, v) once ABBA has decided a value exists, and
// assembles the aggregate once collected weight exceeds CorruptWeight.
type witnessAggregator struct {
	committee *committee.Committee
	value     ids.ID

	sigs    map[uint32][xcrypto.BLSSigSize]byte
	weight  uint64
	decided bool
	parties []uint32
	agg     [xcrypto.BLSSigSize]byte
}

func newWitnessAggregator(c *committee.Committee, value ids.ID) *witnessAggregator {
	return &witnessAggregator{
		committee: c,
		value:     value,
		sigs:      make(map[uint32][xcrypto.BLSSigSize]byte),
	}
}

// add records party's signature share and reports whether the aggregate
// has reached quorum.
func (w *witnessAggregator) add(party uint32, sig [xcrypto.BLSSigSize]byte) (bool, []uint32, [xcrypto.BLSSigSize]byte) {
	if w.decided {
		return true, w.parties, w.agg
	}
	if _, dup := w.sigs[party]; dup {
		return false, nil, [xcrypto.BLSSigSize]byte{}
	}
	p, ok := w.committee.ByIndex(party)
	if !ok {
		return false, nil, [xcrypto.BLSSigSize]byte{}
	}
	w.sigs[party] = sig
	w.weight += p.Weight

	if w.weight <= w.committee.CorruptWeight {
		return false, nil, [xcrypto.BLSSigSize]byte{}
	}

	parties := make([]uint32, 0, len(w.sigs))
	shares := make([][xcrypto.BLSSigSize]byte, 0, len(w.sigs))
	for idx, s := range w.sigs {
		parties = append(parties, idx)
		shares = append(shares, s)
	}
	w.decided = true
	w.parties = parties
	w.agg = xcrypto.AggregateBLS(shares...)
	return true, parties, w.agg
}
