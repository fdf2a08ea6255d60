// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package baker

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bakerchain/internal/config"
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

type fixedLottery struct {
	parties []LotteryParty
	total   uint64
}

func (f fixedLottery) LotteryBakers(_ *tree.Pointer, _ uint64) ([]LotteryParty, uint64, error) {
	return f.parties, f.total, nil
}

type emptyTxSource struct{}

func (emptyTxSource) SelectTransactions(int, uint64) []*wire.Tx { return nil }

func newTestTreeAndGenesis(t *testing.T) (*tree.Tree, *wire.Block) {
	t.Helper()
	genesis := &wire.Block{Slot: 0, GenesisData: []byte("genesis")}
	tr := tree.New(tree.Config{Executor: fakeExecutor()})
	_, err := tr.Init(context.Background(), genesis)
	require.NoError(t, err)
	return tr, genesis
}

func TestBakerWinsWhenCertain(t *testing.T) {
	require := require.New(t)
	tr, _ := newTestTreeAndGenesis(t)

	signing, err := xcrypto.GenerateSigningKey()
	require.NoError(err)
	vrf, err := xcrypto.GenerateVRFKey()
	require.NoError(err)

	b := New(Config{
		BakerID: 7,
		Signing: signing,
		VRF:     vrf,
		Params:  config.Parameters{SlotDuration: time.Second, ElectionDifficulty: 1.0, MaxBlockSize: 1 << 20, MaxBlockEnergy: 1_000_000},
		Tree:    tr,
		Lottery: fixedLottery{parties: []LotteryParty{{BakerID: 7, Power: 1}}, total: 1},
		Txs:     emptyTxSource{},
		Clock:   func() time.Time { return time.Unix(0, 0).Add(time.Second) },
	})

	out, err := b.TryBake(time.Unix(0, 0), 1)
	require.NoError(err)
	require.True(out.Won)
	require.EqualValues(1, out.Slot)
	require.NotNil(out.Pointer)
	require.EqualValues(1, out.Pointer.Height)
}

func TestBakerWaitsWhenNotInCommittee(t *testing.T) {
	require := require.New(t)
	tr, _ := newTestTreeAndGenesis(t)

	signing, err := xcrypto.GenerateSigningKey()
	require.NoError(err)
	vrf, err := xcrypto.GenerateVRFKey()
	require.NoError(err)

	b := New(Config{
		BakerID: 7,
		Signing: signing,
		VRF:     vrf,
		Params:  config.Parameters{SlotDuration: time.Second, ElectionDifficulty: 1.0},
		Tree:    tr,
		Lottery: fixedLottery{parties: []LotteryParty{{BakerID: 99, Power: 1}}, total: 1},
		Txs:     emptyTxSource{},
		Clock:   func() time.Time { return time.Unix(0, 0).Add(time.Second) },
	})

	out, err := b.TryBake(time.Unix(0, 0), 1)
	require.NoError(err)
	require.False(out.Won)
	require.EqualValues(2, out.NextSlot)
}

func TestBakerLosesLotteryWaits(t *testing.T) {
	require := require.New(t)
	tr, _ := newTestTreeAndGenesis(t)

	signing, err := xcrypto.GenerateSigningKey()
	require.NoError(err)
	vrf, err := xcrypto.GenerateVRFKey()
	require.NoError(err)

	b := New(Config{
		BakerID: 7,
		Signing: signing,
		VRF:     vrf,
		Params:  config.Parameters{SlotDuration: time.Second, ElectionDifficulty: 1e-300},
		Tree:    tr,
		Lottery: fixedLottery{parties: []LotteryParty{{BakerID: 7, Power: 1}}, total: 1},
		Txs:     emptyTxSource{},
		Clock:   func() time.Time { return time.Unix(0, 0).Add(time.Second) },
	})

	out, err := b.TryBake(time.Unix(0, 0), 1)
	require.NoError(err)
	require.False(out.Won)
}
