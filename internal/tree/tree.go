// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/blobref"
	"github.com/luxfi/bakerchain/internal/scheduler"
	"github.com/luxfi/bakerchain/internal/txtable"
	"github.com/luxfi/bakerchain/internal/wire"
)

// VerifyFunc checks a normal block's proof-of-bake material (VRF proof,
// signature, baker membership) against its resolved parent. The tree calls
// it once the parent is known to be alive, before executing transactions.
type VerifyFunc func(parent *Pointer, blk *wire.Block) error

// Config wires the tree to the pieces it does not own.
type Config struct {
	Executor scheduler.Executor
	Verify   VerifyFunc
	Clock    func() time.Time
	Txs      *txtable.Table

	// Archive, if set, receives a copy of every accepted block's raw bytes
	// as an append-only record; the tree itself only ever keeps the
	// decoded block in memory.
	Archive *blobref.Store

	// GenesisTime and SlotDuration convert a block's slot number to a wall
	// clock bound. Both must be set for EarlyBlockThreshold to have any
	// effect; left zero, early-block rejection is disabled.
	GenesisTime time.Time
	SlotDuration time.Duration

	// EarlyBlockThreshold is how far beyond the current clock a slot may
	// be before ReceiveBlock rejects it as EarlyBlock without storing it.
	EarlyBlockThreshold time.Duration
}

// Tree is the block table together with its Pending/Alive/Dead/Finalized
// lifecycle, the finalized-by-height index, branches-by-height and the
// pending-by-parent queue. Every exported method holds the tree's own
// mutex for its duration, so single calls may run concurrently; a
// sequence of calls is not atomic as a whole.
type Tree struct {
	mu sync.Mutex

	cfg Config

	statuses map[ids.ID]*Status
	pending  *pendingSet

	aliveByHeight     map[uint64]map[ids.ID]struct{}
	finalizedByHeight map[uint64]ids.ID

	genesisHash         ids.ID
	lastFinalizedHash   ids.ID
	lastFinalizedHeight uint64
	lastFinalizedSlot   uint64
}

// New returns an empty tree. Call Init with the genesis block before any
// other method.
func New(cfg Config) *Tree {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Tree{
		cfg:               cfg,
		statuses:          make(map[ids.ID]*Status),
		pending:           newPendingSet(),
		aliveByHeight:     make(map[uint64]map[ids.ID]struct{}),
		finalizedByHeight: make(map[uint64]ids.ID),
	}
}

// Init executes and installs the genesis block as the sole finalized block
// at height 0, its own parent and its own last-finalized block.
func (t *Tree) Init(ctx context.Context, genesis *wire.Block) (*Pointer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hash := genesis.Hash()
	result, err := t.cfg.Executor.Execute(ctx, nil, nil, scheduler.ChainMeta{Slot: 0, Height: 0})
	if err != nil {
		return nil, err
	}
	ptr := &Pointer{
		Hash:          hash,
		Block:         genesis,
		Height:        0,
		State:         result.NewState,
		ReceiveTime:   t.cfg.Clock(),
		ArriveTime:    t.cfg.Clock(),
		ParentHash:    hash,
		LastFinHash:   hash,
		ArchiveOffset: t.archive(genesis.Bytes()),
	}
	t.statuses[hash] = &Status{Kind: StatusFinalized, Pointer: ptr}
	t.genesisHash = hash
	t.finalizedByHeight[0] = hash
	t.lastFinalizedHash = hash
	t.lastFinalizedHeight = 0
	t.lastFinalizedSlot = genesis.Slot
	return ptr, nil
}

// ReceiveBlock decodes and ingests a block, returning the closed set of
// result codes ingress APIs use. A block whose parent is not yet known, or
// is itself still pending, is queued in the pending set rather than
// rejected.
func (t *Tree) ReceiveBlock(ctx context.Context, raw []byte, now time.Time) (wire.UpdateResult, *Pointer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	blk, err := wire.DecodeBlock(raw)
	if err != nil {
		return wire.ResultSerializationFail, nil
	}
	hash := blk.Hash()
	if existing, ok := t.statuses[hash]; ok {
		if existing.Kind == StatusDead {
			return wire.ResultInvalid, nil
		}
		return wire.ResultDuplicate, nil
	}

	res, ptr := t.insert(ctx, hash, blk, raw, now)
	if res != wire.ResultSuccess {
		return res, ptr
	}
	t.drainChildrenOf(ctx, hash, now)
	return res, ptr
}

// insert resolves a single decoded block against its parent, without
// touching any of its pending children. Callers drain children themselves.
func (t *Tree) insert(ctx context.Context, hash ids.ID, blk *wire.Block, raw []byte, now time.Time) (wire.UpdateResult, *Pointer) {
	if blk.Slot <= t.lastFinalizedSlot {
		t.statuses[hash] = &Status{Kind: StatusDead}
		return wire.ResultStale, nil
	}
	if t.isEarlyBlock(blk.Slot, now) {
		return wire.ResultEarlyBlock, nil
	}

	parentStatus, known := t.statuses[blk.ParentHash]
	if !known || parentStatus.Kind == StatusPending {
		t.statuses[hash] = &Status{Kind: StatusPending, Raw: raw, ReceiveTime: now}
		t.pending.add(blk.Slot, hash, blk.ParentHash)
		return wire.ResultPendingBlock, nil
	}
	if parentStatus.Kind == StatusDead {
		t.statuses[hash] = &Status{Kind: StatusDead}
		return wire.ResultInvalid, nil
	}

	parent := parentStatus.Pointer
	if t.cfg.Verify != nil {
		if err := t.cfg.Verify(parent, blk); err != nil {
			t.statuses[hash] = &Status{Kind: StatusDead}
			return wire.ResultInvalid, nil
		}
	}

	height := parent.Height + 1
	meta := scheduler.ChainMeta{Slot: blk.Slot, Height: height, Baker: blk.BakerID}
	result, err := t.cfg.Executor.Execute(ctx, parent.State, blk.Transactions, meta)
	if err != nil {
		t.statuses[hash] = &Status{Kind: StatusDead}
		return wire.ResultInvalid, nil
	}

	ptr := &Pointer{
		Hash:          hash,
		Block:         blk,
		Height:        height,
		State:         result.NewState,
		ReceiveTime:   now,
		ArriveTime:    t.cfg.Clock(),
		TxCount:       len(blk.Transactions),
		ParentHash:    blk.ParentHash,
		LastFinHash:   blk.LastFinHash,
		ArchiveOffset: t.archive(raw),
	}
	t.statuses[hash] = &Status{Kind: StatusAlive, Pointer: ptr}
	if t.aliveByHeight[height] == nil {
		t.aliveByHeight[height] = make(map[ids.ID]struct{})
	}
	t.aliveByHeight[height][hash] = struct{}{}

	if t.cfg.Txs != nil {
		for i, tx := range blk.Transactions {
			t.cfg.Txs.CommitTransaction(hash, blk.Slot, tx, i)
		}
	}
	return wire.ResultSuccess, ptr
}

// isEarlyBlock reports whether slot lies further beyond the current wall
// clock than EarlyBlockThreshold allows. Unlike a stale block, an early
// one is never stored or queued: the same bytes may arrive again later,
// once the clock has caught up, and must then be accepted normally.
func (t *Tree) isEarlyBlock(slot uint64, now time.Time) bool {
	if t.cfg.EarlyBlockThreshold <= 0 || t.cfg.SlotDuration <= 0 {
		return false
	}
	maxSlot := t.currentSlot(now) + uint64(t.cfg.EarlyBlockThreshold/t.cfg.SlotDuration)
	return slot > maxSlot
}

// currentSlot returns the slot number now falls in, given GenesisTime and
// SlotDuration.
func (t *Tree) currentSlot(now time.Time) uint64 {
	if now.Before(t.cfg.GenesisTime) {
		return 0
	}
	return uint64(now.Sub(t.cfg.GenesisTime) / t.cfg.SlotDuration)
}

// drainChildrenOf resolves every block that was queued waiting on parent,
// recursively draining their own children in turn.
func (t *Tree) drainChildrenOf(ctx context.Context, parent ids.ID, now time.Time) {
	queue := []ids.ID{parent}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		children := t.pending.drain(p)
		for _, child := range children {
			status := t.statuses[child]
			if status == nil || status.Kind != StatusPending {
				continue
			}
			blk, err := wire.DecodeBlock(status.Raw)
			if err != nil {
				t.statuses[child] = &Status{Kind: StatusDead}
				continue
			}
			res, _ := t.insert(ctx, child, blk, status.Raw, now)
			if res == wire.ResultSuccess {
				queue = append(queue, child)
			}
		}
	}
}

// MarkFinalized promotes hash from Alive to Finalized, prunes every
// sibling branch at heights up to and including hash's height, reverts
// their committed transactions to Received and removes them from the
// alive-by-height index.
func (t *Tree) MarkFinalized(hash ids.ID, record *wire.FinalizationRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.statuses[hash]
	if !ok {
		return ErrNotAlive
	}
	if status.Kind == StatusFinalized {
		return ErrDuplicateFinalization
	}
	if status.Kind != StatusAlive {
		return ErrNotAlive
	}
	ptr := status.Pointer
	if ptr.Height <= t.lastFinalizedHeight {
		return ErrStaleHeight
	}

	for h := t.lastFinalizedHeight + 1; h <= ptr.Height; h++ {
		survivor := hash
		if h < ptr.Height {
			survivor = t.ancestorAt(hash, ptr.Height-h)
		}
		for candidate := range t.aliveByHeight[h] {
			if candidate == survivor {
				continue
			}
			t.killBranch(candidate)
		}
		delete(t.aliveByHeight, h)
	}

	status.Kind = StatusFinalized
	status.Record = record
	t.finalizedByHeight[ptr.Height] = hash
	t.lastFinalizedHash = hash
	t.lastFinalizedHeight = ptr.Height
	t.lastFinalizedSlot = ptr.Block.Slot
	if t.cfg.Txs != nil {
		t.cfg.Txs.FinalizeTransactions(hash, ptr.Block.Slot, ptr.Block.Transactions)
	}
	return nil
}

// archive appends raw to the configured Archive store, if any, and returns
// the resulting offset or blobref.NullOffset when no Archive is wired.
func (t *Tree) archive(raw []byte) uint64 {
	if t.cfg.Archive == nil {
		return blobref.NullOffset
	}
	offset, err := t.cfg.Archive.Append(raw)
	if err != nil {
		return blobref.NullOffset
	}
	return offset
}

// Archived re-reads a finalized or alive block's raw bytes from the
// configured Archive store. It returns an error if no Archive was wired or
// the block was never written to one (e.g. genesis predates configuration).
func (t *Tree) Archived(hash ids.ID) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.Archive == nil {
		return nil, ErrNoArchive
	}
	status, ok := t.statuses[hash]
	if !ok || status.Pointer == nil {
		return nil, ErrNotAlive
	}
	if status.Pointer.ArchiveOffset == blobref.NullOffset {
		return nil, ErrNoArchive
	}
	return t.cfg.Archive.Read(status.Pointer.ArchiveOffset)
}

// ancestorAt walks parent links from hash up to the given number of steps.
func (t *Tree) ancestorAt(hash ids.ID, steps uint64) ids.ID {
	for ; steps > 0; steps-- {
		status := t.statuses[hash]
		if status == nil || status.Pointer == nil {
			return hash
		}
		hash = status.Pointer.ParentHash
	}
	return hash
}

// killBranch marks a pruned alive block and every block that is still
// pending on it, recursively, as Dead, and reverts its committed
// transactions to Received.
func (t *Tree) killBranch(hash ids.ID) {
	status := t.statuses[hash]
	if status == nil || status.Kind == StatusDead {
		return
	}
	if status.Kind == StatusAlive && t.cfg.Txs != nil && status.Pointer != nil {
		for _, tx := range status.Pointer.Block.Transactions {
			t.cfg.Txs.RevertToReceived(tx)
		}
	}
	status.Kind = StatusDead
	status.Pointer = nil

	for _, child := range t.pending.drain(hash) {
		t.killBranch(child)
	}
}

// BestBlock returns the alive block at the greatest height; ties are
// broken by the smaller hash.
func (t *Tree) BestBlock() *Pointer {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *Pointer
	var bestHeight uint64
	haveBest := false
	for height, hashes := range t.aliveByHeight {
		if len(hashes) == 0 {
			continue
		}
		if haveBest && height < bestHeight {
			continue
		}
		var candidate ids.ID
		first := true
		for h := range hashes {
			if first || lessID(h, candidate) {
				candidate = h
				first = false
			}
		}
		if !haveBest || height > bestHeight || (height == bestHeight && lessID(candidate, best.Hash)) {
			best = t.statuses[candidate].Pointer
			bestHeight = height
			haveBest = true
		}
	}
	if !haveBest {
		return t.statuses[t.lastFinalizedHash].Pointer
	}
	return best
}

func lessID(a, b ids.ID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// BestBlockBeforeSlot returns the best alive (or finalized) block whose own
// slot is strictly less than slot, walking up parent links from the
// ordinary best block when necessary. Used by the baker to avoid building
// on a block produced for the same or a later slot.
func (t *Tree) BestBlockBeforeSlot(slot uint64) *Pointer {
	ptr := t.BestBlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for ptr != nil && ptr.Block != nil && ptr.Block.Slot >= slot {
		status, ok := t.statuses[ptr.ParentHash]
		if !ok || status.Pointer == nil {
			return ptr
		}
		ptr = status.Pointer
	}
	return ptr
}

// Branches returns the current alive block hashes grouped by height.
func (t *Tree) Branches() map[uint64][]ids.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[uint64][]ids.ID, len(t.aliveByHeight))
	for height, hashes := range t.aliveByHeight {
		list := make([]ids.ID, 0, len(hashes))
		for h := range hashes {
			list = append(list, h)
		}
		out[height] = list
	}
	return out
}

// Status returns the tracked status for hash, if any.
func (t *Tree) Status(hash ids.ID) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.statuses[hash]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// LastFinalized returns the most recently finalized block's pointer.
func (t *Tree) LastFinalized() *Pointer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statuses[t.lastFinalizedHash].Pointer
}

// FinalizedAtHeight returns the finalized block hash at height, if any.
func (t *Tree) FinalizedAtHeight(height uint64) (ids.ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.finalizedByHeight[height]
	return h, ok
}
