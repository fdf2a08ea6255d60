// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bakerchain/internal/blobref"
	"github.com/luxfi/bakerchain/internal/scheduler"
	"github.com/luxfi/bakerchain/internal/wire"
)

type testState struct{ id ids.ID }

func (s testState) Hash() ids.ID { return s.id }

func noopExecutor() scheduler.Executor {
	return scheduler.Func(func(_ context.Context, _ scheduler.State, _ []*wire.Tx, _ scheduler.ChainMeta) (scheduler.Result, error) {
		return scheduler.Result{NewState: testState{id: ids.GenerateTestID()}}, nil
	})
}

func newTestTree(t *testing.T) (*Tree, *wire.Block) {
	t.Helper()
	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	tr := New(Config{Executor: noopExecutor()})
	_, err := tr.Init(context.Background(), genesis)
	require.NoError(t, err)
	return tr, genesis
}

func child(parent ids.ID, slot uint64) *wire.Block {
	return &wire.Block{
		Slot:       slot,
		ParentHash: parent,
	}
}

func TestEmptyTreeBestBlockIsGenesis(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	best := tr.BestBlock()
	require.NotNil(best)
	require.Equal(genesis.Hash(), best.Hash)
	require.EqualValues(0, best.Height)
}

func TestReceiveAndFinalizeSingleChain(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	blk := child(genesis.Hash(), 1)
	res, ptr := tr.ReceiveBlock(context.Background(), blk.Bytes(), time.Now())
	require.Equal(wire.ResultSuccess, res)
	require.NotNil(ptr)
	require.EqualValues(1, ptr.Height)

	best := tr.BestBlock()
	require.Equal(blk.Hash(), best.Hash)

	record := &wire.FinalizationRecord{Index: 1, BlockHash: blk.Hash()}
	require.NoError(tr.MarkFinalized(blk.Hash(), record))

	status, ok := tr.Status(blk.Hash())
	require.True(ok)
	require.Equal(StatusFinalized, status.Kind)

	last := tr.LastFinalized()
	require.Equal(blk.Hash(), last.Hash)
}

func TestArchivedRoundTripsRawBlockBytes(t *testing.T) {
	require := require.New(t)

	f, err := os.CreateTemp(t.TempDir(), "archive-*.bin")
	require.NoError(err)
	defer f.Close()

	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	tr := New(Config{Executor: noopExecutor(), Archive: blobref.NewStore(f)})
	_, err = tr.Init(context.Background(), genesis)
	require.NoError(err)

	blk := child(genesis.Hash(), 1)
	res, _ := tr.ReceiveBlock(context.Background(), blk.Bytes(), time.Now())
	require.Equal(wire.ResultSuccess, res)

	raw, err := tr.Archived(blk.Hash())
	require.NoError(err)
	require.Equal(blk.Bytes(), raw)

	rawGenesis, err := tr.Archived(genesis.Hash())
	require.NoError(err)
	require.Equal(genesis.Bytes(), rawGenesis)
}

func TestArchivedWithoutStoreConfiguredErrors(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	_, err := tr.Archived(genesis.Hash())
	require.ErrorIs(err, ErrNoArchive)
}

func TestForkIsPrunedOnFinalization(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	left := child(genesis.Hash(), 1)
	right := &wire.Block{Slot: 2, ParentHash: genesis.Hash()}

	_, _ = tr.ReceiveBlock(context.Background(), left.Bytes(), time.Now())
	_, _ = tr.ReceiveBlock(context.Background(), right.Bytes(), time.Now())

	branches := tr.Branches()
	require.Len(branches[1], 2)

	require.NoError(tr.MarkFinalized(left.Hash(), &wire.FinalizationRecord{Index: 1, BlockHash: left.Hash()}))

	status, ok := tr.Status(right.Hash())
	require.True(ok)
	require.Equal(StatusDead, status.Kind)

	branches = tr.Branches()
	require.Empty(branches[1])
}

func TestBlockPendingUntilParentArrives(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	parent := child(genesis.Hash(), 1)
	grandchild := child(parent.Hash(), 2)

	res, ptr := tr.ReceiveBlock(context.Background(), grandchild.Bytes(), time.Now())
	require.Equal(wire.ResultPendingBlock, res)
	require.Nil(ptr)

	status, ok := tr.Status(grandchild.Hash())
	require.True(ok)
	require.Equal(StatusPending, status.Kind)

	res, ptr = tr.ReceiveBlock(context.Background(), parent.Bytes(), time.Now())
	require.Equal(wire.ResultSuccess, res)
	require.NotNil(ptr)

	status, ok = tr.Status(grandchild.Hash())
	require.True(ok)
	require.Equal(StatusAlive, status.Kind)
	require.EqualValues(2, status.Pointer.Height)
}

func TestDuplicateBlockRejected(t *testing.T) {
	require := require.New(t)
	tr, genesis := newTestTree(t)

	blk := child(genesis.Hash(), 1)
	res, _ := tr.ReceiveBlock(context.Background(), blk.Bytes(), time.Now())
	require.Equal(wire.ResultSuccess, res)

	res, ptr := tr.ReceiveBlock(context.Background(), blk.Bytes(), time.Now())
	require.Equal(wire.ResultDuplicate, res)
	require.Nil(ptr)
}
