// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package baker implements the per-slot leader-election lottery and block
// assembly: the baker loop repeatedly tries the current slot, and either
// produces a signed block or learns how long to wait before retrying.
package baker

import (
	"context"
	"crypto/ed25519"
	"errors"
	"math"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/config"
	"github.com/luxfi/bakerchain/internal/tree"
	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

// errBakeRejected means the tree rejected a just-produced block, which
// should not happen under correct operation; the baker loop treats it as
// a bug to surface rather than silently retry.
var errBakeRejected = errors.New("baker: tree rejected freshly produced block")

var (
	ErrInvalidBlockSignature = errors.New("baker: invalid block signature")
	ErrInvalidLeadershipProof = errors.New("baker: invalid VRF leadership proof")
	ErrInvalidNonceProof      = errors.New("baker: invalid VRF nonce proof")
)

// VerifyBlock checks a Normal block's ed25519 signature and its VRF
// leadership/nonce proofs against the baker that produced it, using the
// same per-slot message construction TryBake signs. It does not check the
// lottery threshold itself; callers that know the baker's lottery power
// also call VerifyLottery.
func VerifyBlock(blk *wire.Block, parentNonce [xcrypto.VRFProofSize]byte, signingPub ed25519.PublicKey, vrfCommitment [32]byte) error {
	if !blk.VerifySignature(signingPub) {
		return ErrInvalidBlockSignature
	}

	slotBE := uint64BigEndian(blk.Slot)
	leadershipMsg := append(append([]byte("LE"), parentNonce[:]...), slotBE...)
	if !xcrypto.VerifyVRF(vrfCommitment, leadershipMsg, blk.BlockProof) {
		return ErrInvalidLeadershipProof
	}

	nonceMsg := append(append([]byte("NONCE"), parentNonce[:]...), slotBE...)
	if !xcrypto.VerifyVRF(vrfCommitment, nonceMsg, blk.BlockNonce) {
		return ErrInvalidNonceProof
	}
	return nil
}

// VerifyLottery reports whether proof clears the election threshold for a
// baker holding power out of the lottery's total weight, the same
// computation TryBake uses to decide whether it may propose.
func VerifyLottery(proof [xcrypto.VRFProofSize]byte, power uint64, electionDifficulty float64) bool {
	threshold := 1 - math.Pow(1-electionDifficulty, float64(power))
	return xcrypto.HashToDouble(proof) < threshold
}

// LotteryParty is one entry of the epoch-snapshotted lottery committee: a
// baker eligible to propose, with its VRF public key and lottery power.
type LotteryParty struct {
	BakerID uint64
	VRFPub  [32]byte
	Power   uint64
}

// LotterySource resolves the lottery snapshot effective for a slot, given
// the block the baker intends to extend. Implementations snapshot the
// committee some fixed number of epochs in the past.
type LotterySource interface {
	LotteryBakers(parent *tree.Pointer, slot uint64) (parties []LotteryParty, totalPower uint64, err error)
}

// TxSource selects transactions to include in a new block under the given
// size and energy caps.
type TxSource interface {
	SelectTransactions(maxSize int, maxEnergy uint64) []*wire.Tx
}

// Config wires a Baker to the rest of the node.
type Config struct {
	BakerID    uint64
	Signing    *xcrypto.SigningKey
	VRF        *xcrypto.VRFKey
	Params     config.Parameters
	Tree       *tree.Tree
	Lottery    LotterySource
	Txs        TxSource
	Clock      func() time.Time
}

// Baker runs the per-slot leader-election and block-assembly loop.
type Baker struct {
	cfg Config
}

// New returns a Baker for the given configuration.
func New(cfg Config) *Baker {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Baker{cfg: cfg}
}

// SetParams replaces the chain parameters TryBake uses, for a caller that
// applies config.UpdateQueue entries between bake attempts. Not safe for
// concurrent use with TryBake; callers that invoke both from the same
// loop goroutine, as the baker loop does, need no extra locking.
func (b *Baker) SetParams(p config.Parameters) { b.cfg.Params = p }

// Outcome is the result of one TryBake call.
type Outcome struct {
	Won      bool
	Slot     uint64
	Block    *wire.Block
	Pointer  *tree.Pointer
	WaitUntil time.Time // valid when !Won
	NextSlot uint64
}

// currentSlotFromClock returns the slot number the wall clock is in, given
// genesisTime and slotDuration.
func currentSlotFromClock(now, genesisTime time.Time, slotDuration time.Duration) uint64 {
	if now.Before(genesisTime) {
		return 0
	}
	return uint64(now.Sub(genesisTime) / slotDuration)
}

// TryBake attempts to bake at max(nextSlot, currentSlotFromClock), and
// either returns a signed, tree-inserted block or a wait instruction for
// the caller's baker loop.
func (b *Baker) TryBake(genesisTime time.Time, nextSlot uint64) (Outcome, error) {
	now := b.cfg.Clock()
	slot := nextSlot
	if cur := currentSlotFromClock(now, genesisTime, b.cfg.Params.SlotDuration); cur > slot {
		slot = cur
	}

	parent := b.cfg.Tree.BestBlockBeforeSlot(slot)
	if parent == nil {
		return Outcome{NextSlot: slot + 1, WaitUntil: genesisTime.Add(time.Duration(slot+1) * b.cfg.Params.SlotDuration)}, nil
	}

	parties, totalPower, err := b.cfg.Lottery.LotteryBakers(parent, slot)
	if err != nil {
		return Outcome{}, err
	}
	_ = totalPower

	var myPower uint64
	var found bool
	for _, p := range parties {
		if p.BakerID == b.cfg.BakerID {
			myPower = p.Power
			found = true
			break
		}
	}
	if !found || myPower == 0 {
		return b.waitOutcome(genesisTime, slot), nil
	}

	slotBE := uint64BigEndian(slot)
	leadershipMsg := append(append([]byte("LE"), parent.Block.BlockNonce[:]...), slotBE...)
	proof := b.cfg.VRF.Prove(leadershipMsg)

	threshold := 1 - math.Pow(1-b.cfg.Params.ElectionDifficulty, float64(myPower))
	if xcrypto.HashToDouble(proof) >= threshold {
		return b.waitOutcome(genesisTime, slot), nil
	}

	nonceMsg := append(append([]byte("NONCE"), parent.Block.BlockNonce[:]...), slotBE...)
	nonceProof := b.cfg.VRF.Prove(nonceMsg)

	maxSize := b.cfg.Params.MaxBlockSize
	maxEnergy := b.cfg.Params.MaxBlockEnergy
	txs := b.cfg.Txs.SelectTransactions(maxSize, maxEnergy)

	lastFin := b.cfg.Tree.LastFinalized()
	var lastFinHash ids.ID
	if lastFin != nil {
		lastFinHash = lastFin.Hash
	}

	blk := &wire.Block{
		Slot:        slot,
		ParentHash:  parent.Hash,
		BakerID:     b.cfg.BakerID,
		BlockProof:  proof,
		BlockNonce:  nonceProof,
		LastFinHash: lastFinHash,
		Transactions: txs,
	}
	blk.SignWith(b.cfg.Signing.Sign)

	res, ptr := b.cfg.Tree.ReceiveBlock(context.Background(), blk.Bytes(), now)
	if res != wire.ResultSuccess {
		return Outcome{}, errBakeRejected
	}

	return Outcome{Won: true, Slot: slot, Block: blk, Pointer: ptr, NextSlot: slot + 1}, nil
}

func (b *Baker) waitOutcome(genesisTime time.Time, slot uint64) Outcome {
	next := slot + 1
	return Outcome{
		NextSlot:  next,
		WaitUntil: genesisTime.Add(time.Duration(next) * b.cfg.Params.SlotDuration),
	}
}

func uint64BigEndian(v uint64) []byte {
	out := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}
