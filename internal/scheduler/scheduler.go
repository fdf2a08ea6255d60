// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scheduler is the external execution interface: the block-state
// execution layer is invoked as an opaque pure function of (parentState,
// txList, chainMeta). This package only fixes the boundary the tree state
// and baker call through.
package scheduler

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/wire"
)

// State is an opaque post-execution state handle; the core never inspects
// its contents, only threads it from parent to child block.
type State interface {
	// Hash identifies this state for equality checks in tests and logs.
	Hash() ids.ID
}

// ChainMeta carries the block-level facts the scheduler needs but that are
// not part of the transaction list itself.
type ChainMeta struct {
	Slot   uint64
	Height uint64
	Baker  uint64
}

// Result is what the scheduler produces for one block's worth of
// transactions.
type Result struct {
	NewState     State
	EnergyUsed   uint64
	Results      map[ids.ID][]byte // per-tx opaque result bytes
	Failed       []ids.ID
	Unprocessed  []ids.ID
}

// Executor is the narrow interface the tree state and baker use. A real
// node wires this to the account/contract execution engine; this core
// treats it as a pure function of its inputs.
type Executor interface {
	Execute(ctx context.Context, parent State, txs []*wire.Tx, meta ChainMeta) (Result, error)
}

// Func adapts a plain function to Executor.
type Func func(ctx context.Context, parent State, txs []*wire.Tx, meta ChainMeta) (Result, error)

func (f Func) Execute(ctx context.Context, parent State, txs []*wire.Tx, meta ChainMeta) (Result, error) {
	return f(ctx, parent, txs, meta)
}
