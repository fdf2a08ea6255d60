// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"errors"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/internal/finalization/psq"
	"github.com/luxfi/bakerchain/internal/metrics"
	"github.com/luxfi/bakerchain/internal/tree"
	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/wmvba"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

var (
	ErrNoLastFinalized = errors.New("finalization: tree has no last-finalized block yet")
)

// CommitteeSource derives the finalization committee that votes for the
// index whose record follows the given last-finalized block.
type CommitteeSource interface {
	CommitteeAt(lastFinalized *tree.Pointer) (*committee.Committee, error)
}

// Config wires the orchestrator to the pieces it does not own.
type Config struct {
	Tree       *tree.Tree
	Committees CommitteeSource
	Me         uint32
	Sign       func([]byte) [wire.SignatureSize]byte
	BLS        *xcrypto.BLSKey
	MinSkip    uint64
	Clock      func() time.Time
	Broadcast  func(*wire.FinalizationMessage)
	Log        log.Logger
	Metrics    *metrics.Metrics

	FinalizationReplayBaseDelay time.Duration
	FinalizationReplayPerParty  time.Duration
	CatchUpDedupWindow          time.Duration
}

// Orchestrator drives finalization-index rounds on top of the tree and
// committee: scheduling, ingress, failure/success, the pending
// message buffer, the finalization queue and catch-up.
type Orchestrator struct {
	cfg Config

	sessionID       ids.ID
	state           *State
	queue           *Queue
	dedup           *psq.Queue
	msgDedup        *psq.Queue
	catchUpAttempts int

	// settled retains records for already-settled indices, bounded to
	// directedReplyRetention entries, so a behind peer's catch-up summary
	// can be answered with directed replies after the queue has advanced
	// past them.
	settled map[uint64]*wire.FinalizationRecord
}

// directedReplyRetention bounds how much settled history an orchestrator
// keeps for answering catch-up summaries from behind peers.
const directedReplyRetention = 4096

// New starts an orchestrator at finalization index 1, immediately
// following genesis (index 0).
func New(cfg Config, sessionID ids.ID) (*Orchestrator, error) {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = log.NewNoOpLogger()
	}
	o := &Orchestrator{
		cfg:       cfg,
		sessionID: sessionID,
		queue:     NewQueue(1),
		dedup:     psq.New(cfg.CatchUpDedupWindow),
		msgDedup:  psq.New(cfg.CatchUpDedupWindow),
		settled:   make(map[uint64]*wire.FinalizationRecord),
	}
	if err := o.startRound(1, 0); err != nil {
		return nil, err
	}
	return o, nil
}

// startRound begins finalization index, targeting a fresh height and
// delta derived from the prior record's delay, recomputing the
// committee from the current last-finalized block.
func (o *Orchestrator) startRound(index, previousDelay uint64) error {
	lastFin := o.cfg.Tree.LastFinalized()
	if lastFin == nil {
		return ErrNoLastFinalized
	}
	c, err := o.cfg.Committees.CommitteeAt(lastFin)
	if err != nil {
		return err
	}

	parent := o.cfg.Tree.BestBlock()
	parentHeight := lastFin.Height
	if parent != nil {
		parentHeight = parent.Height
	}

	s := newState()
	s.SessionID = o.sessionID
	s.CurrentIndex = index
	s.TargetHeight = NextFinalizationHeight(lastFin.Height, parentHeight, o.cfg.MinSkip)
	s.InitialDelta = NextDelta(previousDelay)
	s.Committee = c
	s.MinSkip = o.cfg.MinSkip
	if o.state != nil {
		s.pending = o.state.pending
		s.dropBelow(index)
	}
	o.state = s
	o.catchUpAttempts = 0

	o.cfg.Log.Debug("finalization round started", "index", index, "targetHeight", s.TargetHeight, "delta", s.InitialDelta)
	return o.tryNominate(s.InitialDelta)
}

// tryNominate justifies alive blocks at TargetHeight+delta by walking to
// their ancestor at TargetHeight, and starts WMVBA on the best
// candidate once the best block has reached that height, replaying any
// messages buffered for (index, delta).
func (o *Orchestrator) tryNominate(delta uint64) error {
	s := o.state
	if s.Round != nil {
		return nil // already nominated for this index/delta
	}
	best := o.cfg.Tree.BestBlock()
	if best == nil || best.Height < s.TargetHeight+delta {
		return nil // not yet justified; wait for more blocks or a later call
	}

	nominee := ancestorAtHeight(o.cfg.Tree, best.Hash, s.TargetHeight)
	_, inCommittee := s.Committee.ByIndex(o.cfg.Me)
	if inCommittee {
		instance := wmvba.NewInstance(s.Committee, s.SessionID, s.CurrentIndex, delta, o.cfg.Me, o.cfg.Sign, o.cfg.BLS)
		s.Round = &ActiveRound{Delta: delta, Input: nominee, Instance: instance}
		events, err := instance.Propose(nominee)
		if err != nil {
			return err
		}
		if err := o.handleEvents(events); err != nil {
			return err
		}
	}

	for _, msg := range s.drain(s.CurrentIndex) {
		if msg.Delta != delta {
			s.buffer(msg)
			continue
		}
		if _, err := o.applyToRound(msg); err != nil {
			o.cfg.Log.Warn("replay of buffered finalization message failed", "err", err)
		}
	}
	return nil
}

// ancestorAtHeight walks parent links from hash, one tree Status lookup
// per step, until it reaches height.
func ancestorAtHeight(t *tree.Tree, hash ids.ID, height uint64) ids.ID {
	for {
		status, ok := t.Status(hash)
		if !ok || status.Pointer == nil || status.Pointer.Height <= height {
			return hash
		}
		hash = status.Pointer.ParentHash
	}
}

// ReceiveMessage applies the finalization ingress table to an inbound wire
// FinalizationMessage.
func (o *Orchestrator) ReceiveMessage(raw []byte) (wire.UpdateResult, error) {
	msg, err := wire.DecodeFinalizationMessage(raw)
	if err != nil {
		return wire.ResultSerializationFail, nil
	}
	if msg.SessionID != o.sessionID {
		return wire.ResultIncorrectSession, nil
	}

	s := o.state
	switch {
	case msg.Index < s.CurrentIndex:
		if record, ok := o.queue.Record(msg.Index); ok {
			_ = record
			o.queue.AddWitness(msg.Index, msg.Sender)
			return wire.ResultSuccess, nil
		}
		return wire.ResultStale, nil

	case msg.Index > s.CurrentIndex+1:
		return wire.ResultInvalid, nil

	case msg.Index == s.CurrentIndex+1:
		s.buffer(msg)
		return wire.ResultPendingFinalization, nil

	default: // msg.Index == s.CurrentIndex
		if _, ok := s.Committee.ByIndex(msg.Sender); !ok {
			return wire.ResultInvalid, nil
		}
		if !o.msgDedup.Insert(msg.Signature, o.cfg.Clock()) {
			return wire.ResultDuplicate, nil
		}
		res, err := o.applyToRound(msg)
		if err != nil {
			return wire.ResultInvalid, err
		}
		return res, nil
	}
}

// applyToRound feeds an index-current message to the active round's
// WMVBA instance (if this node drives one and the delta matches) or
// buffers it for a future delta, per the ingress table's last row.
func (o *Orchestrator) applyToRound(msg *wire.FinalizationMessage) (wire.UpdateResult, error) {
	s := o.state
	if s.Round == nil {
		// Passive: nothing to feed a WMVBA instance into; the message is
		// retained so a later active attempt (or catch-up) can see it.
		s.buffer(msg)
		return wire.ResultSuccess, nil
	}
	if msg.Delta != s.Round.Delta {
		s.buffer(msg)
		return wire.ResultSuccess, nil
	}

	events, err := s.Round.Instance.HandleMessage(msg)
	if err != nil {
		if errors.Is(err, wmvba.ErrUnknownKind) {
			return wire.ResultInvalid, nil
		}
		return wire.ResultInvalid, err
	}
	if err := o.handleEvents(events); err != nil {
		return wire.ResultInvalid, err
	}
	return wire.ResultSuccess, nil
}

// handleEvents drains a WMVBA instance's events: broadcasting outbound
// messages, and on Complete, driving round success or failure.
func (o *Orchestrator) handleEvents(events []wmvba.Event) error {
	for _, ev := range events {
		switch e := ev.(type) {
		case wmvba.SendMessage:
			if o.cfg.Broadcast != nil {
				o.cfg.Broadcast(e.Msg)
			}
		case wmvba.Complete:
			if !e.HasValue {
				if err := o.onRoundFailure(); err != nil {
					return err
				}
				continue
			}
			if err := o.onRoundSuccess(e.Value, e.Parties, e.Aggregate); err != nil {
				return err
			}
		}
	}
	return nil
}

// onRoundFailure records the exhausted delta as a failed round and
// starts the next delta within the same index.
func (o *Orchestrator) onRoundFailure() error {
	s := o.state
	delta := s.InitialDelta
	if s.Round != nil {
		delta = s.Round.Delta
	}
	s.FailedRounds = append([]FailedRound{{Delta: delta, Signatures: map[uint32][64]byte{}}}, s.FailedRounds...)
	s.Round = nil
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RoundsFailed.Inc()
	}
	o.cfg.Log.Debug("finalization round failed, doubling delta", "index", s.CurrentIndex, "delta", delta)
	return o.tryNominate(DoubleDelta(delta))
}

// onRoundSuccess builds the finalization record WMVBA just agreed on and
// attempts to apply it.
func (o *Orchestrator) onRoundSuccess(value ids.ID, parties []uint32, agg [xcrypto.BLSSigSize]byte) error {
	s := o.state
	delay := s.InitialDelta
	if s.Round != nil {
		delay = s.Round.Delta
	}
	record := &wire.FinalizationRecord{
		Index:        s.CurrentIndex,
		BlockHash:    value,
		Parties:      parties,
		BLSAggregate: agg,
		Delay:        delay,
	}
	_, err := o.trustedFinalize(record)
	return err
}

// trustedFinalize marks record's block finalized if it is already known
// and alive; otherwise it is queued until notifyBlockArrivalForPending
// retries once the block arrives.
func (o *Orchestrator) trustedFinalize(record *wire.FinalizationRecord) (bool, error) {
	status, ok := o.cfg.Tree.Status(record.BlockHash)
	if !ok || status.Kind != tree.StatusAlive {
		o.queue.Enqueue(record)
		return false, nil
	}
	if err := o.cfg.Tree.MarkFinalized(record.BlockHash, record); err != nil {
		return false, err
	}
	return true, o.notifyBlockFinalized(record)
}

// notifyBlockFinalized advances past a settled index: drops its pending
// buffer, resets catch-up state, advances CurrentIndex and starts the
// next round with a freshly derived committee.
func (o *Orchestrator) notifyBlockFinalized(record *wire.FinalizationRecord) error {
	o.queue.Advance(record.Index + 1)
	o.settled[record.Index] = record
	if record.Index > directedReplyRetention {
		delete(o.settled, record.Index-directedReplyRetention)
	}
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RoundsSucceeded.Inc()
	}
	o.cfg.Log.Info("finalization index settled", "index", record.Index, "block", record.BlockHash)
	return o.startRound(record.Index+1, record.Delay)
}

// ReceiveFinalizationRecord accepts an already-agreed finalization record
// delivered out of band — typically via a peer's directed catch-up
// reply rather than produced by this node's own WMVBA round — and
// finalizes its block once known and alive, advancing the current index
// past it the same way a locally-agreed record does.
func (o *Orchestrator) ReceiveFinalizationRecord(record *wire.FinalizationRecord) (wire.UpdateResult, error) {
	if record.Index < o.state.CurrentIndex {
		return wire.ResultStale, nil
	}
	settled, err := o.trustedFinalize(record)
	if err != nil {
		return wire.ResultInvalid, err
	}
	if !settled {
		return wire.ResultPendingBlock, nil
	}
	return wire.ResultSuccess, nil
}

// NotifyBlockArrivalForPending retries trustedFinalize for any queued
// record that names hash, called once hash becomes Alive in the tree.
func (o *Orchestrator) NotifyBlockArrivalForPending(hash ids.ID) error {
	record, ok := o.queue.FindByHash(hash)
	if !ok {
		return nil
	}
	_, err := o.trustedFinalize(record)
	return err
}

// NotifyBestBlockChanged re-attempts nomination for the current round,
// called by skov after every block that changes the best block.
func (o *Orchestrator) NotifyBestBlockChanged() error {
	delta := o.state.InitialDelta
	if o.state.Round != nil {
		delta = o.state.Round.Delta
	}
	return o.tryNominate(delta)
}

// directedReplies builds unicast replies for a peer whose catch-up
// summary announced peerIndex: one FinRecord/Block pair per settled
// index between peerIndex and our current index that we still hold a
// record for. Indices older than directedReplyRetention are silently
// skipped; the peer is expected to reach them through block catch-up.
func (o *Orchestrator) directedReplies(to ids.NodeID, peerIndex uint64) []wire.Directed {
	var out []wire.Directed
	for index := peerIndex + 1; index < o.state.CurrentIndex; index++ {
		record, ok := o.settled[index]
		if !ok {
			continue
		}
		out = append(out, wire.Directed{Kind: wire.DirectedFinRecord, To: to, Payload: record.Bytes()})
		if status, ok := o.cfg.Tree.Status(record.BlockHash); ok && status.Pointer != nil {
			out = append(out, wire.Directed{Kind: wire.DirectedBlock, To: to, Payload: status.Pointer.Block.Bytes()})
		}
	}
	return out
}

// absorbPeerRoundState folds a peer's farther-along failed-delta history
// for our current index into our own: a round still stuck at a delta
// the rest of the committee has already abandoned cannot succeed, so
// this catches FailedRounds up to the peer's and restarts nomination at
// its reported delta.
func (o *Orchestrator) absorbPeerRoundState(sum summary) error {
	s := o.state
	if missing := len(sum.failedDeltas) - len(s.FailedRounds); missing > 0 {
		for i := missing - 1; i >= 0; i-- {
			fr := FailedRound{Delta: sum.failedDeltas[i], Signatures: map[uint32][64]byte{}}
			s.FailedRounds = append([]FailedRound{fr}, s.FailedRounds...)
		}
	}
	if sum.roundDelta > 0 && (s.Round == nil || sum.roundDelta > s.Round.Delta) {
		s.Round = nil
		return o.tryNominate(sum.roundDelta)
	}
	return nil
}

// State returns the current finalization-index state, for status
// reporting and tests.
func (o *Orchestrator) State() *State { return o.state }

// Queue returns the finalization queue.
func (o *Orchestrator) Queue() *Queue { return o.queue }
