// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"github.com/luxfi/ids"
)

// Tx is the minimal transaction shape the consensus core needs: enough to
// order by sender/nonce, bound block assembly by size and energy cost, and
// identify itself by hash. The scheduler (C4.7) is the only component that
// interprets Payload.
type Tx struct {
	Sender  ids.ID
	Nonce   uint64
	Energy  uint64
	Payload []byte
}

// ID is the content hash of the transaction's canonical encoding.
func (t *Tx) ID() ids.ID {
	h := sha256Sum(t.encode())
	return ids.ID(h)
}

func (t *Tx) encode() []byte {
	p := NewPacker(48 + len(t.Payload))
	p.PackFixed32(t.Sender)
	p.PackUint64(t.Nonce)
	p.PackUint64(t.Energy)
	p.PackLenPrefixed(t.Payload)
	return p.Bytes
}

// Bytes returns the canonical wire encoding of the transaction.
func (t *Tx) Bytes() []byte { return t.encode() }

// DecodeTx decodes a transaction previously produced by Bytes.
func DecodeTx(b []byte) (*Tx, error) {
	u := NewUnpacker(b)
	var t Tx
	t.Sender = u.UnpackFixed32()
	t.Nonce = u.UnpackUint64()
	t.Energy = u.UnpackUint64()
	t.Payload = append([]byte(nil), u.UnpackLenPrefixed()...)
	if u.Err != nil {
		return nil, u.Err
	}
	return &t, nil
}

// EncodeTxList encodes an ordered transaction list as a length-prefixed
// sequence of length-prefixed transactions, used inside a block body.
func EncodeTxList(txs []*Tx) []byte {
	p := NewPacker(64 * len(txs))
	p.PackUint64(uint64(len(txs)))
	for _, tx := range txs {
		p.PackLenPrefixed(tx.Bytes())
	}
	return p.Bytes
}

// DecodeTxList decodes a list produced by EncodeTxList.
func DecodeTxList(b []byte) ([]*Tx, error) {
	u := NewUnpacker(b)
	n := u.UnpackUint64()
	if u.Err != nil {
		return nil, u.Err
	}
	txs := make([]*Tx, 0, n)
	for i := uint64(0); i < n; i++ {
		raw := u.UnpackLenPrefixed()
		if u.Err != nil {
			return nil, u.Err
		}
		tx, err := DecodeTx(raw)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if !u.Done() {
		return nil, ErrShortBuffer
	}
	return txs, nil
}
