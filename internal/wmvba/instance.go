// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wmvba

import (
	"errors"

	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

// ErrUnknownKind is returned for a FinalizationMessage whose kind this
// instance does not recognize.
var ErrUnknownKind = errors.New("wmvba: unknown message kind")

// Instance runs one WMVBA agreement: Freeze, ABBA and witness aggregation,
// for a single (session, index, delta) round. It represents both the
// local party's own contributions and the tally of everyone else's.
type Instance struct {
	committee *committee.Committee
	baid      []byte

	sessionID ids.ID
	index     uint64
	delta     uint64

	me   uint32
	sign func([]byte) [wire.SignatureSize]byte
	bls  *xcrypto.BLSKey

	freeze        *freezeState
	freezeResult  ids.ID
	abbaStarted   bool
	abba          *abbaState
	abbaDecided   bool
	witness       *witnessAggregator

	sentSeen          map[uint32]bool
	sentDoneReporting map[uint32]bool

	complete bool
}

// NewInstance returns a fresh Instance. sessionID/index/delta are packed
// into the baid (Byzantine agreement ID) that binds every signed message
// to this round.
func NewInstance(c *committee.Committee, sessionID ids.ID, index, delta uint64, me uint32, sign func([]byte) [wire.SignatureSize]byte, bls *xcrypto.BLSKey) *Instance {
	p := wire.NewPacker(48)
	p.PackFixed32(sessionID)
	p.PackUint64(index)
	p.PackUint64(delta)

	return &Instance{
		committee:         c,
		baid:              p.Bytes,
		sessionID:         sessionID,
		index:             index,
		delta:             delta,
		me:                me,
		sign:              sign,
		bls:               bls,
		freeze:            newFreezeState(c),
		sentSeen:          make(map[uint32]bool),
		sentDoneReporting: make(map[uint32]bool),
	}
}

// Baid returns this instance's Byzantine agreement identifier.
func (inst *Instance) Baid() []byte { return inst.baid }

// Propose casts the local party's Freeze vote for value, returning the
// outbound message event (and any events cascading from reaching a
// decision through our own vote alone).
func (inst *Instance) Propose(value ids.ID) ([]Event, error) {
	msg := inst.buildSigned(wire.KindFreezeVote, 0, encodeFreezeVote(value))
	sub, err := inst.HandleMessage(msg)
	if err != nil {
		return nil, err
	}
	return append([]Event{SendMessage{Msg: msg}}, sub...), nil
}

func (inst *Instance) buildSigned(kind wire.FinalizationMessageKind, phase uint32, payload []byte) *wire.FinalizationMessage {
	msg := &wire.FinalizationMessage{
		SessionID: inst.sessionID,
		Index:     inst.index,
		Delta:     inst.delta,
		Phase:     phase,
		Kind:      kind,
		Sender:    inst.me,
		Payload:   payload,
	}
	msg.SignWith(inst.sign)
	return msg
}

// HandleMessage feeds one inbound (or self-originated) message through
// the state machine, returning any messages this party must now
// broadcast and, eventually, the round's Complete outcome.
func (inst *Instance) HandleMessage(msg *wire.FinalizationMessage) ([]Event, error) {
	if inst.complete {
		return nil, nil
	}
	var events []Event

	switch msg.Kind {
	case wire.KindFreezeVote:
		value, err := decodeFreezeVote(msg.Payload)
		if err != nil {
			return nil, err
		}
		decided, result := inst.freeze.vote(msg.Sender, value)
		if decided && !inst.abbaStarted {
			inst.abbaStarted = true
			inst.freezeResult = result
			bit := byte(0)
			if result != Bottom {
				bit = 1
			}
			inst.abba = newAbbaState(inst.committee, inst.baid, bit)
			ballotMsg := inst.buildSigned(wire.KindABBABallot, 0, encodeABBABallot(0, bit))
			events = append(events, SendMessage{Msg: ballotMsg})
			sub, err := inst.HandleMessage(ballotMsg)
			if err != nil {
				return nil, err
			}
			events = append(events, sub...)
		}

	case wire.KindABBABallot:
		if inst.abba == nil {
			return events, nil
		}
		phase, bit, err := decodeABBABallot(msg.Payload)
		if err != nil {
			return nil, err
		}
		inst.abba.ballot(phase, msg.Sender, bit)
		if phase == inst.abba.phase && !inst.sentSeen[phase] && inst.abba.ballotWeight(phase) >= inst.committee.ProgressWeight() {
			inst.sentSeen[phase] = true
			seenMsg := inst.buildSigned(wire.KindCSSSeen, phase, encodeCSSSeen(phase, inst.abba.observedBallots(phase)))
			events = append(events, SendMessage{Msg: seenMsg})
			sub, err := inst.HandleMessage(seenMsg)
			if err != nil {
				return nil, err
			}
			events = append(events, sub...)
		}

	case wire.KindCSSSeen:
		if inst.abba == nil {
			return events, nil
		}
		phase, observed, err := decodeCSSSeen(msg.Payload)
		if err != nil {
			return nil, err
		}
		inst.abba.seen(phase, msg.Sender, observed)
		if phase == inst.abba.phase && !inst.sentDoneReporting[phase] && inst.abba.seenWeight(phase) >= inst.committee.ProgressWeight() {
			inst.sentDoneReporting[phase] = true
			doneMsg := inst.buildSigned(wire.KindCSSDoneReporting, phase, encodeCSSDoneReporting(phase))
			events = append(events, SendMessage{Msg: doneMsg})
			sub, err := inst.HandleMessage(doneMsg)
			if err != nil {
				return nil, err
			}
			events = append(events, sub...)
		}

	case wire.KindCSSDoneReporting:
		if inst.abba == nil {
			return events, nil
		}
		phase, err := decodeCSSDoneReporting(msg.Payload)
		if err != nil {
			return nil, err
		}
		advanced, decided, bit := inst.abba.doneReportingFrom(phase, msg.Sender)
		if !advanced {
			break
		}
		if decided {
			inst.abbaDecided = true
			if bit == 0 {
				inst.complete = true
				events = append(events, Complete{HasValue: false})
				break
			}
			inst.witness = newWitnessAggregator(inst.committee, inst.freezeResult)
			sig := inst.bls.Sign(witnessMessage(inst.baid, inst.freezeResult))
			witMsg := inst.buildSigned(wire.KindWitnessSignature, 0, encodeWitnessSignature(sig))
			events = append(events, SendMessage{Msg: witMsg})
			sub, err := inst.HandleMessage(witMsg)
			if err != nil {
				return nil, err
			}
			events = append(events, sub...)
			break
		}
		nextPhase := inst.abba.phase
		ballotMsg := inst.buildSigned(wire.KindABBABallot, nextPhase, encodeABBABallot(nextPhase, bit))
		events = append(events, SendMessage{Msg: ballotMsg})
		sub, err := inst.HandleMessage(ballotMsg)
		if err != nil {
			return nil, err
		}
		events = append(events, sub...)

	case wire.KindWitnessSignature:
		if inst.witness == nil {
			return events, nil
		}
		sig, err := decodeWitnessSignature(msg.Payload)
		if err != nil {
			return nil, err
		}
		ok, parties, agg := inst.witness.add(msg.Sender, sig)
		if ok {
			inst.complete = true
			events = append(events, Complete{HasValue: true, Value: inst.freezeResult, Parties: parties, Aggregate: agg})
		}

	default:
		return nil, ErrUnknownKind
	}

	return events, nil
}
