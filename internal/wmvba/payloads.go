// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wmvba

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

func encodeFreezeVote(value ids.ID) []byte {
	p := wire.NewPacker(32)
	p.PackFixed32(value)
	return p.Bytes
}

func decodeFreezeVote(raw []byte) (ids.ID, error) {
	u := wire.NewUnpacker(raw)
	value := u.UnpackFixed32()
	if u.Err != nil || !u.Done() {
		return ids.ID{}, wire.ErrMalformed
	}
	return value, nil
}

func encodeABBABallot(phase uint32, bit byte) []byte {
	p := wire.NewPacker(5)
	p.PackUint32(phase)
	p.PackByte(bit)
	return p.Bytes
}

func decodeABBABallot(raw []byte) (uint32, byte, error) {
	u := wire.NewUnpacker(raw)
	phase := u.UnpackUint32()
	bit := u.UnpackByte()
	if u.Err != nil || !u.Done() {
		return 0, 0, wire.ErrMalformed
	}
	return phase, bit, nil
}

func encodeCSSSeen(phase uint32, observed map[uint32]byte) []byte {
	p := wire.NewPacker(8 + 5*len(observed))
	p.PackUint32(phase)
	p.PackUint32(uint32(len(observed)))
	for party, bit := range observed {
		p.PackUint32(party)
		p.PackByte(bit)
	}
	return p.Bytes
}

func decodeCSSSeen(raw []byte) (uint32, map[uint32]byte, error) {
	u := wire.NewUnpacker(raw)
	phase := u.UnpackUint32()
	n := u.UnpackUint32()
	if u.Err != nil {
		return 0, nil, wire.ErrMalformed
	}
	observed := make(map[uint32]byte, n)
	for i := uint32(0); i < n; i++ {
		party := u.UnpackUint32()
		bit := u.UnpackByte()
		observed[party] = bit
	}
	if u.Err != nil || !u.Done() {
		return 0, nil, wire.ErrMalformed
	}
	return phase, observed, nil
}

func encodeCSSDoneReporting(phase uint32) []byte {
	p := wire.NewPacker(4)
	p.PackUint32(phase)
	return p.Bytes
}

func decodeCSSDoneReporting(raw []byte) (uint32, error) {
	u := wire.NewUnpacker(raw)
	phase := u.UnpackUint32()
	if u.Err != nil || !u.Done() {
		return 0, wire.ErrMalformed
	}
	return phase, nil
}

func encodeWitnessSignature(sig [xcrypto.BLSSigSize]byte) []byte {
	return append([]byte(nil), sig[:]...)
}

func decodeWitnessSignature(raw []byte) ([xcrypto.BLSSigSize]byte, error) {
	var sig [xcrypto.BLSSigSize]byte
	if len(raw) != xcrypto.BLSSigSize {
		return sig, wire.ErrMalformed
	}
	copy(sig[:], raw)
	return sig, nil
}

// witnessMessage is the value parties sign once ABBA decides a value
// exists, binding the agreement instance identifier to the decided value.
func witnessMessage(baid []byte, value ids.ID) []byte {
	out := make([]byte, 0, len(baid)+32)
	out = append(out, baid...)
	out = append(out, value[:]...)
	return out
}
