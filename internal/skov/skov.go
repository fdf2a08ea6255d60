// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package skov is the consensus driver (C6): it receives blocks into the
// tree, drives the finalization orchestrator's nomination and pending-
// record hooks off tree arrivals, and exposes best-block selection and a
// health-check surface to the runner and outer CLI.
package skov

import (
	"context"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/bakerchain/internal/finalization"
	"github.com/luxfi/bakerchain/internal/metrics"
	"github.com/luxfi/bakerchain/internal/tree"
	"github.com/luxfi/bakerchain/internal/wire"
)

// Config wires skov to the tree and finalization orchestrator it drives.
type Config struct {
	Tree         *tree.Tree
	Finalization *finalization.Orchestrator
	Clock        func() time.Time
	Log          log.Logger
	Metrics      *metrics.Metrics
}

// Driver is the thin layer that keeps the tree and the finalization
// orchestrator in lockstep: the block a successful ReceiveBlock call
// inserts is offered to the orchestrator's pending-record retry, and each
// such arrival re-attempts WMVBA nomination. Blocks that become Alive in
// the same call because they were drained from the tree's pending queue
// are not offered individually.
type Driver struct {
	cfg Config
}

// New returns a Driver over an already-initialized tree and orchestrator.
func New(cfg Config) *Driver {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = log.NewNoOpLogger()
	}
	return &Driver{cfg: cfg}
}

// ReceiveBlock ingests raw block bytes, then (on success) notifies the
// finalization orchestrator that the tree's best block may have changed
// and that a previously unknown block now exists in case a queued
// finalization record was waiting on it.
func (d *Driver) ReceiveBlock(ctx context.Context, raw []byte) (wire.UpdateResult, error) {
	res, ptr := d.cfg.Tree.ReceiveBlock(ctx, raw, d.cfg.Clock())
	if res != wire.ResultSuccess {
		if d.cfg.Metrics != nil {
			if res == wire.ResultPendingBlock {
				d.cfg.Metrics.BlocksPending.Inc()
			} else {
				d.cfg.Metrics.BlocksRejected.Inc()
			}
		}
		return res, nil
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.BlocksReceived.Inc()
	}
	if err := d.cfg.Finalization.NotifyBlockArrivalForPending(ptr.Hash); err != nil {
		d.cfg.Log.Error("finalization pending retry failed", "hash", ptr.Hash, "err", err)
		return res, err
	}
	if err := d.cfg.Finalization.NotifyBestBlockChanged(); err != nil {
		d.cfg.Log.Error("finalization nomination failed", "hash", ptr.Hash, "err", err)
		return res, err
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.ObserveHealth(metrics.HealthSnapshot(d.HealthCheck()))
	}
	return res, nil
}

// ReceiveFinalizationMessage forwards a WMVBA round message to the
// orchestrator's ingress table.
func (d *Driver) ReceiveFinalizationMessage(raw []byte) (wire.UpdateResult, error) {
	return d.cfg.Finalization.ReceiveMessage(raw)
}

// BestBlock returns the tree's current best block.
func (d *Driver) BestBlock() *tree.Pointer { return d.cfg.Tree.BestBlock() }

// Branches returns the tree's alive branches by height.
func (d *Driver) Branches() map[uint64][]ids.ID { return d.cfg.Tree.Branches() }

// Health is the status surface consumed by cmd/consensusd's operator
// tooling: last-finalized height, best-block height, the finalization
// index currently in flight, and how many unsettled records the queue
// still holds (a proxy for catch-up lag).
type Health struct {
	LastFinalizedHeight uint64
	BestBlockHeight     uint64
	CurrentIndex        uint64
	QueuedRecords       int
}

// HealthCheck reports the driver's current status.
func (d *Driver) HealthCheck() Health {
	lastFin := d.cfg.Tree.LastFinalized()
	best := d.cfg.Tree.BestBlock()

	h := Health{}
	if lastFin != nil {
		h.LastFinalizedHeight = lastFin.Height
	}
	if best != nil {
		h.BestBlockHeight = best.Height
	}
	if state := d.cfg.Finalization.State(); state != nil {
		h.CurrentIndex = state.CurrentIndex
	}
	h.QueuedRecords = d.cfg.Finalization.Queue().Len()
	return h
}
