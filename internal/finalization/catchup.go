// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/wire"
)

// summary is the decoded form of CatchUpStatus.Summary: the sender's
// failed-round deltas for the current index, its active round's delta,
// and decided/hasValue flags for its current-round WMVBA instance.
// BuildCatchUpStatus never sets the two flags, so they are sent as false.
type summary struct {
	failedDeltas []uint64
	roundDelta   uint64
	decided      bool
	hasValue     bool
}

func encodeSummary(s summary) []byte {
	p := wire.NewPacker(16 + 8*len(s.failedDeltas))
	p.PackUint32(uint32(len(s.failedDeltas)))
	for _, d := range s.failedDeltas {
		p.PackUint64(d)
	}
	p.PackUint64(s.roundDelta)
	decided := byte(0)
	if s.decided {
		decided = 1
	}
	hasValue := byte(0)
	if s.hasValue {
		hasValue = 1
	}
	p.PackByte(decided)
	p.PackByte(hasValue)
	return p.Bytes
}

func decodeSummary(raw []byte) (summary, error) {
	u := wire.NewUnpacker(raw)
	n := u.UnpackUint32()
	if u.Err != nil {
		return summary{}, wire.ErrMalformed
	}
	s := summary{failedDeltas: make([]uint64, n)}
	for i := range s.failedDeltas {
		s.failedDeltas[i] = u.UnpackUint64()
	}
	s.roundDelta = u.UnpackUint64()
	s.decided = u.UnpackByte() != 0
	s.hasValue = u.UnpackByte() != 0
	if u.Err != nil || !u.Done() {
		return summary{}, wire.ErrMalformed
	}
	return s, nil
}

// BuildCatchUpStatus signs a CatchUpMessage announcing this node's
// progress: its failed-round deltas for the current index and the active
// round's delta. The summary's decided and hasValue flags are always false;
// the WMVBA instance's progress is not included.
func (o *Orchestrator) BuildCatchUpStatus() *wire.CatchUpStatus {
	s := o.state
	deltas := make([]uint64, len(s.FailedRounds))
	for i, fr := range s.FailedRounds {
		deltas[i] = fr.Delta
	}
	sum := summary{failedDeltas: deltas}
	if s.Round != nil {
		sum.roundDelta = s.Round.Delta
	}

	status := &wire.CatchUpStatus{
		SessionID: o.sessionID,
		Index:     s.CurrentIndex,
		Sender:    o.cfg.Me,
		Summary:   encodeSummary(sum),
	}
	status.SignWith(o.cfg.Sign)
	return status
}

// ProcessFinalizationSummary folds a peer's catch-up announcement into
// our view. When the peer is further along than us it reports whether
// we are behind and whether skov-level (block) catch-up looks
// necessary; when the peer is stuck at our own index with a longer
// failed-delta history or a larger round delta, its state is folded
// into ours to unstick a round pinned at an abandoned delta; when the
// peer is behind us, directed replies carrying our settled records and
// blocks for the indices it is missing are returned for the caller to
// unicast back to it. Duplicate status messages within the de-dup
// window are reported as already seen via a false first return value.
func (o *Orchestrator) ProcessFinalizationSummary(from ids.NodeID, status *wire.CatchUpStatus) (wire.CatchUpResult, bool, error) {
	fresh := o.dedup.Insert(status.Signature, o.cfg.Clock())
	if !fresh {
		return wire.CatchUpResult{}, false, nil
	}
	if status.SessionID != o.sessionID {
		return wire.CatchUpResult{}, true, nil
	}
	sum, err := decodeSummary(status.Summary)
	if err != nil {
		return wire.CatchUpResult{}, true, err
	}

	result := wire.CatchUpResult{}
	switch {
	case status.Index > o.state.CurrentIndex:
		result.Behind = true
		result.SkovCatchUpNeeded = status.Index > o.state.CurrentIndex+1

	case status.Index == o.state.CurrentIndex:
		if len(sum.failedDeltas) > len(o.state.FailedRounds) {
			// The peer has pushed further into failed deltas than we
			// have, so report that we are behind at this index.
			result.Behind = true
		}
		if err := o.absorbPeerRoundState(sum); err != nil {
			return result, true, err
		}

	default: // status.Index < o.state.CurrentIndex: the peer is behind us
		result.Directed = o.directedReplies(from, status.Index)
	}
	if result.Behind && o.cfg.Metrics != nil {
		o.cfg.Metrics.CatchUpBehind.Inc()
	}
	return result, true, nil
}
