// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import "github.com/luxfi/ids"

// UpdateResult is the closed set of codes ingress APIs return.
type UpdateResult int

const (
	ResultSuccess UpdateResult = iota
	ResultSerializationFail
	ResultInvalid
	ResultDuplicate
	ResultStale
	ResultPendingBlock
	ResultPendingFinalization
	ResultIncorrectSession
	ResultEarlyBlock
	ResultUnverifiable
	ResultContinueCatchUp
	ResultMissingImportFile
)

func (r UpdateResult) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultSerializationFail:
		return "SerializationFail"
	case ResultInvalid:
		return "Invalid"
	case ResultDuplicate:
		return "Duplicate"
	case ResultStale:
		return "Stale"
	case ResultPendingBlock:
		return "PendingBlock"
	case ResultPendingFinalization:
		return "PendingFinalization"
	case ResultIncorrectSession:
		return "IncorrectSession"
	case ResultEarlyBlock:
		return "EarlyBlock"
	case ResultUnverifiable:
		return "Unverifiable"
	case ResultContinueCatchUp:
		return "ContinueCatchUp"
	case ResultMissingImportFile:
		return "MissingImportFile"
	default:
		return "Unknown"
	}
}

// InboundKind distinguishes the sum type of inbound messages: the P2P
// transport (out of scope) delivers one of these kinds of bytes; a single
// consumer goroutine dequeues and dispatches under the consensus lock.
type InboundKind int

const (
	InboundBlock InboundKind = iota
	InboundTx
	InboundFinMsg
	InboundFinRecord
	InboundCatchUp
	InboundShutdown
)

// Inbound is one entry on the Runner's bounded inbound channel.
type Inbound struct {
	Kind    InboundKind
	Payload []byte
	From    ids.NodeID
}

// FinalizationMessageKind enumerates the WMVBA message family.
type FinalizationMessageKind byte

const (
	KindFreezeVote FinalizationMessageKind = iota
	KindCSSSeen
	KindCSSDoneReporting
	KindABBABallot
	KindWitnessSignature
	KindWeAreDone
)

// FinalizationMessage envelopes a WMVBA-round message.
// The envelope fields (session/index/delta/phase) are common to every
// kind; Payload carries the kind-specific body, decoded by the wmvba
// package that owns the kind's semantics.
type FinalizationMessage struct {
	SessionID ids.ID
	Index     uint64
	Delta     uint64
	Phase     uint32
	Kind      FinalizationMessageKind
	Sender    uint32 // party index within the committee
	Payload   []byte
	Signature [SignatureSize]byte
}

func (m *FinalizationMessage) signedBody() []byte {
	p := NewPacker(64 + len(m.Payload))
	p.PackFixed32(m.SessionID)
	p.PackUint64(m.Index)
	p.PackUint64(m.Delta)
	p.PackUint32(m.Phase)
	p.PackByte(byte(m.Kind))
	p.PackUint32(m.Sender)
	p.PackLenPrefixed(m.Payload)
	return p.Bytes
}

// Bytes is the wire encoding including the trailing signature.
func (m *FinalizationMessage) Bytes() []byte {
	body := m.signedBody()
	out := make([]byte, 0, len(body)+SignatureSize)
	out = append(out, body...)
	out = append(out, m.Signature[:]...)
	return out
}

// SignWith signs the message body and sets Signature.
func (m *FinalizationMessage) SignWith(sign func([]byte) [SignatureSize]byte) {
	m.Signature = sign(m.signedBody())
}

// DecodeFinalizationMessage parses a FinalizationMessage from its wire form.
func DecodeFinalizationMessage(raw []byte) (*FinalizationMessage, error) {
	u := NewUnpacker(raw)
	var m FinalizationMessage
	m.SessionID = u.UnpackFixed32()
	m.Index = u.UnpackUint64()
	m.Delta = u.UnpackUint64()
	m.Phase = u.UnpackUint32()
	m.Kind = FinalizationMessageKind(u.UnpackByte())
	m.Sender = u.UnpackUint32()
	m.Payload = append([]byte(nil), u.UnpackLenPrefixed()...)
	if u.Err != nil {
		return nil, ErrMalformed
	}
	sig := u.UnpackBytes(SignatureSize)
	if u.Err != nil || !u.Done() {
		return nil, ErrMalformed
	}
	copy(m.Signature[:], sig)
	return &m, nil
}

// CatchUpStatus is the periodic replay / lag-discovery message.
type CatchUpStatus struct {
	SessionID     ids.ID
	Index         uint64
	Sender        uint32
	Summary       []byte // encoded FailedRounds + current-round WMVBA summary
	Signature     [SignatureSize]byte
}

func (c *CatchUpStatus) signedBody() []byte {
	p := NewPacker(48 + len(c.Summary))
	p.PackFixed32(c.SessionID)
	p.PackUint64(c.Index)
	p.PackUint32(c.Sender)
	p.PackLenPrefixed(c.Summary)
	return p.Bytes
}

func (c *CatchUpStatus) Bytes() []byte {
	body := c.signedBody()
	out := make([]byte, 0, len(body)+SignatureSize)
	out = append(out, body...)
	out = append(out, c.Signature[:]...)
	return out
}

func (c *CatchUpStatus) SignWith(sign func([]byte) [SignatureSize]byte) {
	c.Signature = sign(c.signedBody())
}

// DecodeCatchUpStatus parses a CatchUpStatus from its wire form.
func DecodeCatchUpStatus(raw []byte) (*CatchUpStatus, error) {
	u := NewUnpacker(raw)
	var c CatchUpStatus
	c.SessionID = u.UnpackFixed32()
	c.Index = u.UnpackUint64()
	c.Sender = u.UnpackUint32()
	c.Summary = append([]byte(nil), u.UnpackLenPrefixed()...)
	if u.Err != nil {
		return nil, ErrMalformed
	}
	sig := u.UnpackBytes(SignatureSize)
	if u.Err != nil || !u.Done() {
		return nil, ErrMalformed
	}
	copy(c.Signature[:], sig)
	return &c, nil
}

// DirectedKind distinguishes the payload carried by a Directed reply.
type DirectedKind int

const (
	DirectedFinRecord DirectedKind = iota
	DirectedBlock
)

// Directed is a unicast reply to a single peer, as opposed to the normal
// gossip broadcast path: one finalization record or block this node has
// already settled that a behind peer's catch-up summary showed it is
// still missing.
type Directed struct {
	Kind    DirectedKind
	To      ids.NodeID
	Payload []byte
}

// CatchUpResult is returned by processing an inbound catch-up summary.
type CatchUpResult struct {
	Behind            bool
	SkovCatchUpNeeded bool
	Directed          []Directed
}
