// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package runner wires the baker loop, the finalization catch-up replay
// timer, and the transaction-table purge loop into one mutex-guarded
// consensus state, dispatching a bounded inbound channel of wire.Inbound
// messages onto the skov driver and finalization orchestrator.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/bakerchain/internal/baker"
	"github.com/luxfi/bakerchain/internal/config"
	"github.com/luxfi/bakerchain/internal/finalization"
	"github.com/luxfi/bakerchain/internal/metrics"
	"github.com/luxfi/bakerchain/internal/skov"
	"github.com/luxfi/bakerchain/internal/txtable"
	"github.com/luxfi/bakerchain/internal/wire"
)

// Config wires a Runner to the components it schedules.
type Config struct {
	Baker        *baker.Baker
	Skov         *skov.Driver
	Finalization *finalization.Orchestrator
	Txs          *txtable.Table
	Params       config.Parameters
	Log          log.Logger
	Metrics      *metrics.Metrics
	GenesisTime  time.Time

	// Updates holds chain-parameter changes scheduled to take effect at a
	// future slot; the baker loop applies any elapsed entry before each
	// bake attempt. Nil disables scheduled updates entirely.
	Updates *config.UpdateQueue

	// Inbound delivers wire-decoded messages from the (out-of-scope) P2P
	// transport; a single goroutine drains it under the consensus lock.
	Inbound <-chan wire.Inbound

	// BroadcastCatchUp carries an outbound CatchUpStatus to peers; nil disables
	// the replay timer.
	BroadcastCatchUp func(*wire.CatchUpStatus)

	// SendDirected unicasts a catch-up reply to a single behind peer; nil
	// drops directed replies on the floor instead of sending them.
	SendDirected func(wire.Directed)

	// IsAliveOrFinalized reports whether a transaction's containing block
	// is still live, for Table.Purge.
	IsAliveOrFinalized func(id ids.ID) bool
}

// Runner is the single mutex-guarded consensus state: every goroutine
// it owns takes mu before touching the tree, finalization state or
// transaction table, and releases it before any blocking I/O.
type Runner struct {
	cfg Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New returns a Runner over an already-constructed component set.
func New(cfg Config) *Runner {
	if cfg.Log == nil {
		cfg.Log = log.NewNoOpLogger()
	}
	return &Runner{cfg: cfg}
}

// Start launches the baker loop, the purge loop, the catch-up replay
// timer and the inbound dispatch loop, each recovering from panics at its
// goroutine boundary and logging them at Crit before re-raising so the
// process crashes loudly rather than silently losing a subsystem.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("runner: already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.spawn("bake", runCtx, r.bakeLoop)
	r.spawn("purge", runCtx, r.purgeLoop)
	if r.cfg.BroadcastCatchUp != nil {
		r.spawn("catchup", runCtx, r.catchUpLoop)
	}
	if r.cfg.Inbound != nil {
		r.spawn("inbound", runCtx, r.inboundLoop)
	}
	return nil
}

// Stop cancels every goroutine Start launched and waits for them to exit.
func (r *Runner) Stop(context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.cancel()
	r.running = false
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

// spawn runs fn in its own goroutine, recovering a panic into a Crit log
// line before re-panicking so the process still terminates on an invariant
// violation instead of continuing in an unknown state.
func (r *Runner) spawn(name string, ctx context.Context, fn func(context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.cfg.Log.Crit("runner goroutine panicked", "loop", name, "panic", p)
				panic(p)
			}
		}()
		fn(ctx)
	}()
}

// bakeLoop applies any elapsed parameter update, then calls Baker.TryBake,
// which inserts a won block into the tree itself; after a win it notifies
// the finalization orchestrator that the best block changed. It sleeps
// until the next slot boundary either way.
func (r *Runner) bakeLoop(ctx context.Context) {
	var nextSlot uint64
	for {
		if r.cfg.Updates != nil {
			if p, ok := r.cfg.Updates.Apply(nextSlot); ok {
				r.cfg.Log.Info("applying scheduled parameter update", "effectiveSlot", nextSlot)
				r.cfg.Params = p
				r.cfg.Baker.SetParams(p)
			}
		}

		outcome, err := r.cfg.Baker.TryBake(r.cfg.GenesisTime, nextSlot)
		wait := r.cfg.Params.SlotDuration
		if err != nil {
			r.cfg.Log.Error("bake attempt failed", "err", err)
		} else {
			nextSlot = outcome.NextSlot
			if outcome.Won {
				r.cfg.Log.Info("baked block", "slot", outcome.Slot, "hash", outcome.Pointer.Hash)
				if r.cfg.Metrics != nil {
					r.cfg.Metrics.BakesWon.Inc()
				}
				if err := r.cfg.Finalization.NotifyBestBlockChanged(); err != nil {
					r.cfg.Log.Error("finalization nomination after bake failed", "err", err)
				}
			} else if r.cfg.Metrics != nil {
				r.cfg.Metrics.BakesLost.Inc()
			}
			if until := time.Until(outcome.WaitUntil); until > 0 {
				wait = until
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// purgeLoop drops expired pending/received transactions from the table on
// a fixed cadence derived from TransactionPurgingDelay.
func (r *Runner) purgeLoop(ctx context.Context) {
	interval := r.cfg.Params.TransactionPurgingDelay
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := r.cfg.Txs.Len()
			r.cfg.Txs.Purge(r.cfg.IsAliveOrFinalized)
			if purged := before - r.cfg.Txs.Len(); purged > 0 && r.cfg.Metrics != nil {
				r.cfg.Metrics.TxsPurged.Add(float64(purged))
			}
		}
	}
}

// catchUpLoop periodically broadcasts this node's CatchUpStatus so peers
// can detect they are behind, per the finalization replay timer.
func (r *Runner) catchUpLoop(ctx context.Context) {
	base := r.cfg.Params.FinalizationReplayBaseDelay
	if base <= 0 {
		base = 5 * time.Second
	}
	ticker := time.NewTicker(base)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := r.cfg.Finalization.BuildCatchUpStatus()
			r.cfg.BroadcastCatchUp(status)
		}
	}
}

// inboundLoop drains the bounded inbound channel, dispatching each message
// to skov or the finalization orchestrator by kind.
func (r *Runner) inboundLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-r.cfg.Inbound:
			if !ok {
				return
			}
			r.dispatch(ctx, in)
		}
	}
}

func (r *Runner) dispatch(ctx context.Context, in wire.Inbound) {
	switch in.Kind {
	case wire.InboundBlock:
		if _, err := r.cfg.Skov.ReceiveBlock(ctx, in.Payload); err != nil {
			r.cfg.Log.Error("inbound block dispatch failed", "from", in.From, "err", err)
		}
	case wire.InboundTx:
		tx, err := wire.DecodeTx(in.Payload)
		if err != nil {
			r.cfg.Log.Warn("malformed inbound tx", "from", in.From, "err", err)
			return
		}
		if !r.cfg.Txs.AddCommit(tx, r.currentSlot()) {
			r.cfg.Log.Debug("inbound tx rejected", "from", in.From, "tx", tx.ID())
		}
	case wire.InboundFinMsg:
		if _, err := r.cfg.Skov.ReceiveFinalizationMessage(in.Payload); err != nil {
			r.cfg.Log.Error("inbound finalization message dispatch failed", "from", in.From, "err", err)
		}
	case wire.InboundFinRecord:
		record, err := wire.DecodeFinalizationRecord(in.Payload)
		if err != nil {
			r.cfg.Log.Warn("malformed inbound finalization record", "from", in.From, "err", err)
			return
		}
		if _, err := r.cfg.Finalization.ReceiveFinalizationRecord(record); err != nil {
			r.cfg.Log.Error("inbound finalization record dispatch failed", "from", in.From, "err", err)
		}
	case wire.InboundCatchUp:
		status, err := wire.DecodeCatchUpStatus(in.Payload)
		if err != nil {
			r.cfg.Log.Warn("malformed catch-up status", "from", in.From, "err", err)
			return
		}
		result, _, err := r.cfg.Finalization.ProcessFinalizationSummary(in.From, status)
		if err != nil {
			r.cfg.Log.Error("catch-up summary processing failed", "from", in.From, "err", err)
			return
		}
		if r.cfg.SendDirected != nil {
			for _, d := range result.Directed {
				r.cfg.SendDirected(d)
			}
		}
	case wire.InboundShutdown:
		r.cancel()
	default:
		r.cfg.Log.Warn("unhandled inbound kind", "kind", in.Kind, "from", in.From)
	}
}

// currentSlot returns the slot the wall clock is in relative to
// GenesisTime, for stamping inbound transactions with their receipt slot.
func (r *Runner) currentSlot() uint64 {
	now := time.Now()
	if now.Before(r.cfg.GenesisTime) {
		return 0
	}
	return uint64(now.Sub(r.cfg.GenesisTime) / r.cfg.Params.SlotDuration)
}
