// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"

	"github.com/luxfi/ids"
)

func sha256Sum(b []byte) [32]byte { return sha256.Sum256(b) }

var (
	// ErrMalformed is returned when a block or record fails to deserialize.
	ErrMalformed = errors.New("wire: malformed encoding")
)

// Block is either the Genesis variant (Slot == 0) or a Normal variant
// (Slot > 0).
type Block struct {
	Slot uint64

	// Genesis fields (Slot == 0).
	GenesisData []byte

	// Normal fields (Slot > 0).
	ParentHash    ids.ID
	BakerID       uint64
	BlockProof    [VRFProofSize]byte
	BlockNonce    [VRFProofSize]byte
	LastFinHash   ids.ID
	Transactions  []*Tx
	Signature     [SignatureSize]byte
}

// VRFProofSize and SignatureSize mirror the xcrypto facade's sizes without
// importing it here, to keep wire a leaf package with no crypto semantics
// of its own — only byte layout.
const (
	VRFProofSize  = 80
	SignatureSize = ed25519.SignatureSize
)

// IsGenesis reports whether this is the slot-0 genesis block.
func (b *Block) IsGenesis() bool { return b.Slot == 0 }

// signedBody returns the canonical encoding of every field except the
// signature — what gets hashed and what gets signed.
func (b *Block) signedBody() []byte {
	p := NewPacker(256 + len(b.GenesisData))
	p.PackUint64(b.Slot)
	if b.IsGenesis() {
		p.PackLenPrefixed(b.GenesisData)
		return p.Bytes
	}
	p.PackFixed32(b.ParentHash)
	p.PackUint64(b.BakerID)
	p.PackBytes(b.BlockProof[:])
	p.PackBytes(b.BlockNonce[:])
	p.PackFixed32(b.LastFinHash)
	p.PackLenPrefixed(EncodeTxList(b.Transactions))
	return p.Bytes
}

// Bytes returns the full wire encoding, including the trailing signature
// for Normal blocks.
func (b *Block) Bytes() []byte {
	body := b.signedBody()
	if b.IsGenesis() {
		return body
	}
	out := make([]byte, 0, len(body)+SignatureSize)
	out = append(out, body...)
	out = append(out, b.Signature[:]...)
	return out
}

// Hash is the 32-byte identity of the block: SHA-256 over every field
// except the signature.
func (b *Block) Hash() ids.ID {
	return ids.ID(sha256Sum(b.signedBody()))
}

// SignWith signs the block body and sets Signature.
func (b *Block) SignWith(sign func([]byte) [SignatureSize]byte) {
	b.Signature = sign(b.signedBody())
}

// VerifySignature checks the block signature against a baker public key.
func (b *Block) VerifySignature(pub ed25519.PublicKey) bool {
	if b.IsGenesis() {
		return true
	}
	return ed25519.Verify(pub, b.signedBody(), b.Signature[:])
}

// DecodeBlock parses a block from its wire encoding.
func DecodeBlock(raw []byte) (*Block, error) {
	u := NewUnpacker(raw)
	slot := u.UnpackUint64()
	if u.Err != nil {
		return nil, ErrMalformed
	}
	b := &Block{Slot: slot}
	if slot == 0 {
		b.GenesisData = append([]byte(nil), u.UnpackLenPrefixed()...)
		if u.Err != nil || !u.Done() {
			return nil, ErrMalformed
		}
		return b, nil
	}

	b.ParentHash = u.UnpackFixed32()
	b.BakerID = u.UnpackUint64()
	copy(b.BlockProof[:], u.UnpackBytes(VRFProofSize))
	copy(b.BlockNonce[:], u.UnpackBytes(VRFProofSize))
	b.LastFinHash = u.UnpackFixed32()
	txBytes := u.UnpackLenPrefixed()
	if u.Err != nil {
		return nil, ErrMalformed
	}
	txs, err := DecodeTxList(txBytes)
	if err != nil {
		return nil, ErrMalformed
	}
	b.Transactions = txs
	sigBytes := u.UnpackBytes(SignatureSize)
	if u.Err != nil || !u.Done() {
		return nil, ErrMalformed
	}
	copy(b.Signature[:], sigBytes)
	return b, nil
}
