// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes the consensus+finalization engine's Prometheus
// gauges and counters: best-block height, last-finalized height, the
// finalization index in flight, catch-up lag and baking outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every gauge/counter the engine updates.
type Metrics struct {
	BestBlockHeight     prometheus.Gauge
	LastFinalizedHeight prometheus.Gauge
	FinalizationIndex   prometheus.Gauge
	QueuedRecords       prometheus.Gauge

	BlocksReceived  prometheus.Counter
	BlocksRejected  prometheus.Counter
	BlocksPending   prometheus.Counter
	BakesWon        prometheus.Counter
	BakesLost       prometheus.Counter
	RoundsFailed    prometheus.Counter
	RoundsSucceeded prometheus.Counter
	CatchUpBehind   prometheus.Counter
	TxsPurged       prometheus.Counter
}

// New builds and registers every metric against registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		BestBlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bakerchain_best_block_height",
			Help: "Height of the current best alive block",
		}),
		LastFinalizedHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bakerchain_last_finalized_height",
			Help: "Height of the most recently finalized block",
		}),
		FinalizationIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bakerchain_finalization_index",
			Help: "Finalization index currently in flight",
		}),
		QueuedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bakerchain_finalization_queue_len",
			Help: "Unsettled finalization records awaiting block arrival",
		}),
		BlocksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_blocks_received_total",
			Help: "Blocks accepted into the tree",
		}),
		BlocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_blocks_rejected_total",
			Help: "Blocks rejected as invalid, stale or duplicate",
		}),
		BlocksPending: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_blocks_pending_total",
			Help: "Blocks queued on an unknown parent",
		}),
		BakesWon: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_bakes_won_total",
			Help: "Slots this baker won the leader-election lottery",
		}),
		BakesLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_bakes_lost_total",
			Help: "Slots this baker did not win",
		}),
		RoundsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_finalization_rounds_failed_total",
			Help: "WMVBA rounds that decided no value and doubled delta",
		}),
		RoundsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_finalization_rounds_succeeded_total",
			Help: "WMVBA rounds that produced a finalization record",
		}),
		CatchUpBehind: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_catchup_behind_total",
			Help: "Catch-up summaries that found this node behind a peer",
		}),
		TxsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bakerchain_txs_purged_total",
			Help: "Transactions dropped from the transaction table by purging",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.BestBlockHeight, m.LastFinalizedHeight, m.FinalizationIndex, m.QueuedRecords,
		m.BlocksReceived, m.BlocksRejected, m.BlocksPending,
		m.BakesWon, m.BakesLost, m.RoundsFailed, m.RoundsSucceeded,
		m.CatchUpBehind, m.TxsPurged,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveHealth copies a skov health snapshot's gauges. Defined with a
// narrow interface rather than importing skov directly, so metrics has
// no dependency on the consensus driver's package.
type HealthSnapshot struct {
	LastFinalizedHeight uint64
	BestBlockHeight     uint64
	CurrentIndex        uint64
	QueuedRecords       int
}

func (m *Metrics) ObserveHealth(h HealthSnapshot) {
	m.BestBlockHeight.Set(float64(h.BestBlockHeight))
	m.LastFinalizedHeight.Set(float64(h.LastFinalizedHeight))
	m.FinalizationIndex.Set(float64(h.CurrentIndex))
	m.QueuedRecords.Set(float64(h.QueuedRecords))
}
