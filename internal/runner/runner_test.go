// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runner

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bakerchain/internal/baker"
	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/internal/config"
	"github.com/luxfi/bakerchain/internal/finalization"
	"github.com/luxfi/bakerchain/internal/scheduler"
	"github.com/luxfi/bakerchain/internal/skov"
	"github.com/luxfi/bakerchain/internal/txtable"
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

type noLottery struct{}

func (noLottery) LotteryBakers(*tree.Pointer, uint64) ([]baker.LotteryParty, uint64, error) {
	return nil, 0, nil
}

type emptyTxSource struct{}

func (emptyTxSource) SelectTransactions(int, uint64) []*wire.Tx { return nil }

type fixedCommittee struct{ c *committee.Committee }

func (f fixedCommittee) CommitteeAt(*tree.Pointer) (*committee.Committee, error) { return f.c, nil }

func newTestRunner(t *testing.T, inbound <-chan wire.Inbound) *Runner {
	t.Helper()

	tr := tree.New(tree.Config{Executor: fakeExecutor()})
	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	_, err := tr.Init(context.Background(), genesis)
	require.NoError(t, err)

	signing, err := xcrypto.GenerateSigningKey()
	require.NoError(t, err)
	vrf, err := xcrypto.GenerateVRFKey()
	require.NoError(t, err)
	bls, err := xcrypto.GenerateBLSKey()
	require.NoError(t, err)

	params := config.Default()
	params.SlotDuration = 10 * time.Millisecond

	b := baker.New(baker.Config{
		BakerID: 1,
		Signing: signing,
		VRF:     vrf,
		Params:  params,
		Tree:    tr,
		Lottery: noLottery{},
		Txs:     emptyTxSource{},
	})

	c := committee.New([]committee.Party{{Index: 0, Weight: 1}})
	orch, err := finalization.New(finalization.Config{
		Tree:               tr,
		Committees:         fixedCommittee{c: c},
		Me:                 0,
		Sign:               signing.Sign,
		BLS:                bls,
		Clock:              time.Now,
		Broadcast:          func(*wire.FinalizationMessage) {},
		CatchUpDedupWindow: 60 * time.Second,
	}, ids.GenerateTestID())
	require.NoError(t, err)

	driver := skov.New(skov.Config{Tree: tr, Finalization: orch})
	txs := txtable.New(params.KeepAliveTime, params.PurgeCounterThreshold, nil)

	return New(Config{
		Baker:        b,
		Skov:         driver,
		Finalization: orch,
		Txs:          txs,
		Params:       params,
		GenesisTime:  time.Now(),
		Inbound:            inbound,
		IsAliveOrFinalized: func(ids.ID) bool { return true },
	})
}

func TestStartStopTerminatesCleanly(t *testing.T) {
	require := require.New(t)
	r := newTestRunner(t, nil)

	require.NoError(r.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(r.Stop(context.Background()))
}

func TestStartTwiceFails(t *testing.T) {
	require := require.New(t)
	r := newTestRunner(t, nil)

	require.NoError(r.Start(context.Background()))
	require.Error(r.Start(context.Background()))
	require.NoError(r.Stop(context.Background()))
}

func TestInboundDispatchReceivesBlock(t *testing.T) {
	require := require.New(t)
	ch := make(chan wire.Inbound, 1)
	r := newTestRunner(t, ch)

	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	blk := &wire.Block{Slot: 1, ParentHash: genesis.Hash()}

	require.NoError(r.Start(context.Background()))
	ch <- wire.Inbound{Kind: wire.InboundBlock, Payload: blk.Bytes()}
	time.Sleep(30 * time.Millisecond)
	require.NoError(r.Stop(context.Background()))

	best := r.cfg.Skov.BestBlock()
	require.NotNil(best)
	require.EqualValues(1, best.Height)
}
