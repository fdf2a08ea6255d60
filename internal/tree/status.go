// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tree implements the block table with its Pending/Alive/Dead/
// Finalized lifecycle, the finalized-by-height index, branches by height,
// the pending-by-parent queue and best-block selection.
package tree

import (
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/scheduler"
	"github.com/luxfi/bakerchain/internal/wire"
)

// StatusKind is one of {Pending, Alive, Dead, Finalized}.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusPending
	StatusAlive
	StatusDead
	StatusFinalized
)

func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "Pending"
	case StatusAlive:
		return "Alive"
	case StatusDead:
		return "Dead"
	case StatusFinalized:
		return "Finalized"
	default:
		return "Unknown"
	}
}

// Pointer is an alive or finalized block enriched with height,
// post-execution state, timings and tx count.
type Pointer struct {
	Hash        ids.ID
	Block       *wire.Block
	Height      uint64
	State       scheduler.State
	ReceiveTime time.Time
	ArriveTime  time.Time
	TxCount     int
	ParentHash  ids.ID
	LastFinHash ids.ID

	// ArchiveOffset is the blobref.Store offset of this block's raw bytes,
	// or blobref.NullOffset if no Archive was configured.
	ArchiveOffset uint64
}

// Status is the per-hash block status sum type.
type Status struct {
	Kind StatusKind

	// Pending
	Raw         []byte
	ReceiveTime time.Time

	// Alive / Finalized
	Pointer *Pointer

	// Finalized only
	Record *wire.FinalizationRecord
}
