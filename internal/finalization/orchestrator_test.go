// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/internal/scheduler"
	"github.com/luxfi/bakerchain/internal/tree"
	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

type fakeState struct{ id ids.ID }

func (s fakeState) Hash() ids.ID { return s.id }

func fakeExecutor() scheduler.Executor {
	return scheduler.Func(func(_ context.Context, _ scheduler.State, _ []*wire.Tx, _ scheduler.ChainMeta) (scheduler.Result, error) {
		return scheduler.Result{NewState: fakeState{id: ids.GenerateTestID()}}, nil
	})
}

func childBlock(parent ids.ID, slot uint64) *wire.Block {
	return &wire.Block{Slot: slot, ParentHash: parent}
}

type fixedCommittee struct{ c *committee.Committee }

func (f fixedCommittee) CommitteeAt(*tree.Pointer) (*committee.Committee, error) { return f.c, nil }

func newSinglePartyOrchestrator(t *testing.T, tr *tree.Tree) (*Orchestrator, *xcrypto.SigningKey) {
	t.Helper()

	signing, err := xcrypto.GenerateSigningKey()
	require.NoError(t, err)
	bls, err := xcrypto.GenerateBLSKey()
	require.NoError(t, err)

	c := committee.New([]committee.Party{{Index: 0, Weight: 1}})
	cfg := Config{
		Tree:                tr,
		Committees:          fixedCommittee{c: c},
		Me:                  0,
		Sign:                signing.Sign,
		BLS:                 bls,
		MinSkip:             0,
		Clock:               time.Now,
		Broadcast:           func(*wire.FinalizationMessage) {},
		CatchUpDedupWindow:  60 * time.Second,
	}
	o, err := New(cfg, ids.GenerateTestID())
	require.NoError(t, err)
	return o, signing
}

func TestOrchestratorJustifiesAndFinalizesOnBlockArrival(t *testing.T) {
	require := require.New(t)

	tr := tree.New(tree.Config{Executor: fakeExecutor()})
	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	_, err := tr.Init(context.Background(), genesis)
	require.NoError(err)

	o, _ := newSinglePartyOrchestrator(t, tr)
	require.EqualValues(1, o.State().CurrentIndex)
	require.Nil(o.State().Round) // not yet justified: only genesis is alive

	first := childBlock(genesis.Hash(), 1)
	res, ptr := tr.ReceiveBlock(context.Background(), first.Bytes(), time.Now())
	require.Equal(wire.ResultSuccess, res)
	require.NotNil(ptr)

	// Still not justified: best height 1 < target(1)+delta(1)=2.
	require.NoError(o.NotifyBestBlockChanged())
	require.Nil(o.State().Round)

	second := childBlock(first.Hash(), 2)
	res, ptr = tr.ReceiveBlock(context.Background(), second.Bytes(), time.Now())
	require.Equal(wire.ResultSuccess, res)
	require.NotNil(ptr)

	require.NoError(o.NotifyBestBlockChanged())

	// Single-party committee: Propose cascades straight through to a
	// finalized index 1 on `first` (the ancestor at target height 1).
	last := tr.LastFinalized()
	require.Equal(first.Hash(), last.Hash)
	require.EqualValues(2, o.State().CurrentIndex)
}

func TestReceiveMessageRejectsExactDuplicate(t *testing.T) {
	require := require.New(t)

	tr := tree.New(tree.Config{Executor: fakeExecutor()})
	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	_, err := tr.Init(context.Background(), genesis)
	require.NoError(err)

	c := committee.New([]committee.Party{
		{Index: 0, Weight: 1},
		{Index: 1, Weight: 1},
		{Index: 2, Weight: 1},
	})
	signing, err := xcrypto.GenerateSigningKey()
	require.NoError(err)
	bls, err := xcrypto.GenerateBLSKey()
	require.NoError(err)
	o, err := New(Config{
		Tree:               tr,
		Committees:         fixedCommittee{c: c},
		Me:                 0,
		Sign:               signing.Sign,
		BLS:                bls,
		Clock:              time.Now,
		Broadcast:          func(*wire.FinalizationMessage) {},
		CatchUpDedupWindow: 60 * time.Second,
	}, ids.GenerateTestID())
	require.NoError(err)

	msg := &wire.FinalizationMessage{
		SessionID: o.sessionID,
		Index:     o.state.CurrentIndex,
		Delta:     o.state.InitialDelta,
		Kind:      wire.KindABBABallot,
		Sender:    1,
		Payload:   []byte{0, 1},
	}
	msg.SignWith(signing.Sign)

	res, err := o.ReceiveMessage(msg.Bytes())
	require.NoError(err)
	require.Equal(wire.ResultSuccess, res)

	res, err = o.ReceiveMessage(msg.Bytes())
	require.NoError(err)
	require.Equal(wire.ResultDuplicate, res)
}

func TestReceiveFinalizationRecordFinalizesKnownAliveBlock(t *testing.T) {
	require := require.New(t)

	tr := tree.New(tree.Config{Executor: fakeExecutor()})
	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	_, err := tr.Init(context.Background(), genesis)
	require.NoError(err)

	o, _ := newSinglePartyOrchestrator(t, tr)

	first := childBlock(genesis.Hash(), 1)
	_, ptr := tr.ReceiveBlock(context.Background(), first.Bytes(), time.Now())
	require.NotNil(ptr)

	record := &wire.FinalizationRecord{Index: o.state.CurrentIndex, BlockHash: first.Hash(), Parties: []uint32{0}, Delay: 1}

	res, err := o.ReceiveFinalizationRecord(record)
	require.NoError(err)
	require.Equal(wire.ResultSuccess, res)

	last := tr.LastFinalized()
	require.Equal(first.Hash(), last.Hash)
	require.EqualValues(2, o.State().CurrentIndex)
}

func TestReceiveFinalizationRecordQueuesUnknownBlock(t *testing.T) {
	require := require.New(t)

	tr := tree.New(tree.Config{Executor: fakeExecutor()})
	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	_, err := tr.Init(context.Background(), genesis)
	require.NoError(err)

	o, _ := newSinglePartyOrchestrator(t, tr)

	unknown := childBlock(genesis.Hash(), 1)
	record := &wire.FinalizationRecord{Index: o.state.CurrentIndex, BlockHash: unknown.Hash(), Parties: []uint32{0}, Delay: 1}

	res, err := o.ReceiveFinalizationRecord(record)
	require.NoError(err)
	require.Equal(wire.ResultPendingBlock, res)
	require.Equal(1, o.Queue().Len())
}
