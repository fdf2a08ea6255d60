// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/bakerchain/internal/baker"
	"github.com/luxfi/bakerchain/internal/blobref"
	"github.com/luxfi/bakerchain/internal/committee"
	"github.com/luxfi/bakerchain/internal/config"
	"github.com/luxfi/bakerchain/internal/finalization"
	"github.com/luxfi/bakerchain/internal/metrics"
	"github.com/luxfi/bakerchain/internal/runner"
	"github.com/luxfi/bakerchain/internal/scheduler"
	"github.com/luxfi/bakerchain/internal/skov"
	"github.com/luxfi/bakerchain/internal/tree"
	"github.com/luxfi/bakerchain/internal/txtable"
	"github.com/luxfi/bakerchain/internal/wire"
	"github.com/luxfi/bakerchain/internal/xcrypto"
)

// node bundles every wired component a running consensusd process holds,
// for the start command, including the /healthz handler it serves.
type node struct {
	tree    *tree.Tree
	skov    *skov.Driver
	runner  *runner.Runner
	metrics *metrics.Metrics
}

// staticCommittee hands out the same genesis-fixed committee for every
// finalization index, since epoch-rotated committee snapshotting (as the
// lottery does for baking) is not modeled by this single-process node.
type staticCommittee struct{ c *committee.Committee }

func (s staticCommittee) CommitteeAt(*tree.Pointer) (*committee.Committee, error) { return s.c, nil }

// staticLottery gives every committee party equal baking power, snapshot
// once at genesis; a production node would re-derive this per-epoch from
// stake bonded on chain.
type staticLottery struct {
	parties []baker.LotteryParty
	total   uint64
}

func (s staticLottery) LotteryBakers(*tree.Pointer, uint64) ([]baker.LotteryParty, uint64, error) {
	return s.parties, s.total, nil
}

func identityExecutor() scheduler.Executor {
	return scheduler.Func(func(_ context.Context, s scheduler.State, _ []*wire.Tx, _ scheduler.ChainMeta) (scheduler.Result, error) {
		return scheduler.Result{NewState: s}, nil
	})
}

// buildNode generates a committee of cfg.CommitteeSize locally-held key
// sets (this process simulates every party; there is no P2P transport
// wired in yet) and wires the full consensus stack around party cfg.BakerID.
func buildNode(cfg nodeConfig, logger log.Logger, registerer prometheus.Registerer) (*node, error) {
	type partyKeys struct {
		signing *xcrypto.SigningKey
		vrf     *xcrypto.VRFKey
		bls     *xcrypto.BLSKey
	}

	keys := make([]partyKeys, cfg.CommitteeSize)
	parties := make([]committee.Party, cfg.CommitteeSize)
	lotteryParties := make([]baker.LotteryParty, cfg.CommitteeSize)
	var totalPower uint64

	for i := range keys {
		signing, err := xcrypto.GenerateSigningKey()
		if err != nil {
			return nil, fmt.Errorf("consensusd: generating signing key: %w", err)
		}
		vrf, err := xcrypto.GenerateVRFKey()
		if err != nil {
			return nil, fmt.Errorf("consensusd: generating VRF key: %w", err)
		}
		bls, err := xcrypto.GenerateBLSKey()
		if err != nil {
			return nil, fmt.Errorf("consensusd: generating BLS key: %w", err)
		}
		keys[i] = partyKeys{signing: signing, vrf: vrf, bls: bls}
		parties[i] = committee.Party{
			Index:  uint32(i),
			BLSPub: bls.PublicKey(),
			Weight: 1,
		}
		lotteryParties[i] = baker.LotteryParty{BakerID: uint64(i), Power: 1}
		totalPower++
	}

	me := cfg.BakerID % uint64(cfg.CommitteeSize)
	c := committee.New(parties)

	table := txtable.New(cfg.Params.KeepAliveTime, cfg.Params.PurgeCounterThreshold, nil)

	var archive *blobref.Store
	if cfg.ArchivePath != "" {
		f, err := os.OpenFile(cfg.ArchivePath, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, fmt.Errorf("consensusd: opening archive file: %w", err)
		}
		archive = blobref.NewStore(f)
	}

	genesisTime := time.Now()
	verify := func(parent *tree.Pointer, blk *wire.Block) error {
		if blk.BakerID >= uint64(len(keys)) {
			return fmt.Errorf("consensusd: unknown baker %d", blk.BakerID)
		}
		k := keys[blk.BakerID]
		if err := baker.VerifyBlock(blk, parent.Block.BlockNonce, k.signing.PublicKey(), k.vrf.Commitment()); err != nil {
			return fmt.Errorf("consensusd: %w", err)
		}
		if !baker.VerifyLottery(blk.BlockProof, lotteryParties[blk.BakerID].Power, cfg.Params.ElectionDifficulty) {
			return fmt.Errorf("consensusd: baker %d did not clear slot %d's lottery threshold", blk.BakerID, blk.Slot)
		}
		return nil
	}

	genesis := &wire.Block{Slot: 0, GenesisData: []byte("consensusd genesis")}
	t := tree.New(tree.Config{
		Executor:            identityExecutor(),
		Verify:              verify,
		Txs:                 table,
		Archive:             archive,
		GenesisTime:         genesisTime,
		SlotDuration:        cfg.Params.SlotDuration,
		EarlyBlockThreshold: cfg.Params.EarlyBlockThreshold,
	})
	if _, err := t.Init(context.Background(), genesis); err != nil {
		return nil, fmt.Errorf("consensusd: initializing genesis: %w", err)
	}

	m, err := metrics.New(registerer)
	if err != nil {
		return nil, fmt.Errorf("consensusd: registering metrics: %w", err)
	}

	orch, err := finalization.New(finalization.Config{
		Tree:                        t,
		Committees:                  staticCommittee{c: c},
		Me:                          uint32(me),
		Sign:                        keys[me].signing.Sign,
		BLS:                         keys[me].bls,
		MinSkip:                     cfg.Params.MinSkip,
		Broadcast:                   func(*wire.FinalizationMessage) {},
		Log:                         logger,
		Metrics:                     m,
		FinalizationReplayBaseDelay: cfg.Params.FinalizationReplayBaseDelay,
		FinalizationReplayPerParty:  cfg.Params.FinalizationReplayPerParty,
		CatchUpDedupWindow:          cfg.Params.CatchUpDedupWindow,
	}, ids.GenerateTestID())
	if err != nil {
		return nil, fmt.Errorf("consensusd: starting finalization orchestrator: %w", err)
	}

	driver := skov.New(skov.Config{
		Tree:         t,
		Finalization: orch,
		Log:          logger,
		Metrics:      m,
	})

	b := baker.New(baker.Config{
		BakerID: me,
		Signing: keys[me].signing,
		VRF:     keys[me].vrf,
		Params:  cfg.Params,
		Tree:    t,
		Lottery: staticLottery{parties: lotteryParties, total: totalPower},
		Txs:     table,
	})

	r := runner.New(runner.Config{
		Baker:        b,
		Skov:         driver,
		Finalization: orch,
		Txs:          table,
		Params:       cfg.Params,
		Log:          logger,
		Metrics:      m,
		GenesisTime:  genesisTime,
		Updates:      config.NewUpdateQueue(),
		BroadcastCatchUp: func(*wire.CatchUpStatus) {
			// No P2P transport is wired yet; a real deployment plugs a
			// network client in here.
		},
		SendDirected: func(wire.Directed) {
			// No P2P transport is wired yet; a real deployment unicasts
			// this to the peer named by Directed.To.
		},
		IsAliveOrFinalized: func(hash ids.ID) bool {
			status, ok := t.Status(hash)
			return ok && (status.Kind == tree.StatusAlive || status.Kind == tree.StatusFinalized)
		},
	})

	return &node{tree: t, skov: driver, runner: r, metrics: m}, nil
}
