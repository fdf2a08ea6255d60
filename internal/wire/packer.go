// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire implements the deterministic bit-exact encode/decode of
// blocks, transactions, finalization messages/records and catch-up
// summaries, using a symmetric Packer/Unpacker pair rather than a
// reflection-based codec for this consensus-critical data.
package wire

import "errors"

// ErrShortBuffer is returned when an Unpacker runs out of bytes.
var ErrShortBuffer = errors.New("wire: buffer too short")

// Packer appends a deterministic big-endian byte stream.
type Packer struct {
	Bytes []byte
	Err   error
}

// NewPacker returns a new Packer with size as an initial capacity hint.
func NewPacker(size int) *Packer {
	return &Packer{Bytes: make([]byte, 0, size)}
}

func (p *Packer) PackByte(b byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, b)
}

func (p *Packer) PackBytes(b []byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, b...)
}

// PackFixed32 packs an exact 32-byte value; the array type fixes its size.
func (p *Packer) PackFixed32(b [32]byte) {
	p.PackBytes(b[:])
}

func (p *Packer) PackUint32(v uint32) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (p *Packer) PackUint64(v uint64) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// PackLenPrefixed packs a u64_be length followed by the raw bytes.
func (p *Packer) PackLenPrefixed(b []byte) {
	p.PackUint64(uint64(len(b)))
	p.PackBytes(b)
}

// Unpacker reads a deterministic big-endian byte stream.
type Unpacker struct {
	Bytes  []byte
	Offset int
	Err    error
}

func NewUnpacker(b []byte) *Unpacker {
	return &Unpacker{Bytes: b}
}

func (u *Unpacker) require(n int) bool {
	if u.Err != nil {
		return false
	}
	if u.Offset+n > len(u.Bytes) {
		u.Err = ErrShortBuffer
		return false
	}
	return true
}

func (u *Unpacker) UnpackByte() byte {
	if !u.require(1) {
		return 0
	}
	b := u.Bytes[u.Offset]
	u.Offset++
	return b
}

func (u *Unpacker) UnpackBytes(n int) []byte {
	if !u.require(n) {
		return nil
	}
	b := u.Bytes[u.Offset : u.Offset+n]
	u.Offset += n
	return b
}

func (u *Unpacker) UnpackFixed32() [32]byte {
	var out [32]byte
	copy(out[:], u.UnpackBytes(32))
	return out
}

func (u *Unpacker) UnpackUint32() uint32 {
	b := u.UnpackBytes(4)
	if b == nil {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (u *Unpacker) UnpackUint64() uint64 {
	b := u.UnpackBytes(8)
	if b == nil {
		return 0
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// UnpackLenPrefixed reads a u64_be length followed by that many raw bytes.
func (u *Unpacker) UnpackLenPrefixed() []byte {
	n := u.UnpackUint64()
	if u.Err != nil {
		return nil
	}
	return u.UnpackBytes(int(n))
}

// Remaining returns the bytes not yet consumed.
func (u *Unpacker) Remaining() []byte {
	if u.Offset > len(u.Bytes) {
		return nil
	}
	return u.Bytes[u.Offset:]
}

// Done reports whether every byte has been consumed without error.
func (u *Unpacker) Done() bool {
	return u.Err == nil && u.Offset == len(u.Bytes)
}
