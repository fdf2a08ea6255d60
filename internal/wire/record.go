// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import "github.com/luxfi/ids"

// BLSSigSize mirrors xcrypto.BLSSigSize without importing xcrypto.
const BLSSigSize = 48

// FinalizationRecord is the proof that a block was finalized at a given
// finalization index.
type FinalizationRecord struct {
	Index       uint64
	BlockHash   ids.ID
	Parties     []uint32
	BLSAggregate [BLSSigSize]byte
	Delay       uint64 // BlockHeight
}

// Bytes encodes the record as:
// index:u64_be ‖ blockHash:32 ‖ len(parties):u32_be ‖ parties:u32_be[] ‖
// blsAggregate:48 ‖ delay:u64_be.
func (r *FinalizationRecord) Bytes() []byte {
	p := NewPacker(8 + 32 + 4 + 4*len(r.Parties) + BLSSigSize + 8)
	p.PackUint64(r.Index)
	p.PackFixed32(r.BlockHash)
	p.PackUint32(uint32(len(r.Parties)))
	for _, party := range r.Parties {
		p.PackUint32(party)
	}
	p.PackBytes(r.BLSAggregate[:])
	p.PackUint64(r.Delay)
	return p.Bytes
}

// DecodeFinalizationRecord parses a record from its wire encoding.
func DecodeFinalizationRecord(raw []byte) (*FinalizationRecord, error) {
	u := NewUnpacker(raw)
	var r FinalizationRecord
	r.Index = u.UnpackUint64()
	r.BlockHash = u.UnpackFixed32()
	n := u.UnpackUint32()
	if u.Err != nil {
		return nil, ErrMalformed
	}
	r.Parties = make([]uint32, n)
	for i := range r.Parties {
		r.Parties[i] = u.UnpackUint32()
	}
	copy(r.BLSAggregate[:], u.UnpackBytes(BLSSigSize))
	r.Delay = u.UnpackUint64()
	if u.Err != nil || !u.Done() {
		return nil, ErrMalformed
	}
	return &r, nil
}
