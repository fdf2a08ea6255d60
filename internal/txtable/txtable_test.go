// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txtable

import (
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bakerchain/internal/wire"
)

func TestAddCommitRejectsBelowNextNonce(t *testing.T) {
	require := require.New(t)
	table := New(time.Minute, 1, nil)

	sender := ids.GenerateTestID()
	block := ids.GenerateTestID()
	tx0 := &wire.Tx{Sender: sender, Nonce: 0}
	require.True(table.AddCommit(tx0, 1))
	table.CommitTransaction(block, 1, tx0, 0)
	table.FinalizeTransactions(block, 1, []*wire.Tx{tx0})
	require.EqualValues(1, table.NextNonce(sender))

	stale := &wire.Tx{Sender: sender, Nonce: 0, Payload: []byte("stale")}
	require.False(table.AddCommit(stale, 2))
}

func TestFinalizeRemovesCompetitorsAndBumpsNonce(t *testing.T) {
	require := require.New(t)
	table := New(time.Minute, 1, nil)

	sender := ids.GenerateTestID()
	block := ids.GenerateTestID()
	winner := &wire.Tx{Sender: sender, Nonce: 5, Payload: []byte("winner")}
	loser := &wire.Tx{Sender: sender, Nonce: 5, Payload: []byte("loser")}
	require.True(table.AddCommit(winner, 1))
	require.True(table.AddCommit(loser, 1))

	table.CommitTransaction(block, 1, winner, 0)
	table.FinalizeTransactions(block, 1, []*wire.Tx{winner})

	_, stillThere := table.Get(loser.ID())
	require.False(stillThere)
	status, ok := table.Status(winner.ID())
	require.True(ok)
	require.Equal(StatusFinalized, status.Kind)
	require.EqualValues(6, table.NextNonce(sender))
}

func TestPurgeDropsOldReceivedAndCascades(t *testing.T) {
	require := require.New(t)
	clock := time.Now()
	table := New(time.Second, 1, func() time.Time { return clock })

	sender := ids.GenerateTestID()
	tx0 := &wire.Tx{Sender: sender, Nonce: 0, Payload: []byte("a")}
	tx1 := &wire.Tx{Sender: sender, Nonce: 1, Payload: []byte("b")}
	require.True(table.AddCommit(tx0, 1))
	require.True(table.AddCommit(tx1, 1))

	clock = clock.Add(2 * time.Second)
	table.Purge(func(ids.ID) bool { return false })

	require.Equal(0, table.Len())
}

func TestSelectTransactionsRespectsCapsAndNonceOrder(t *testing.T) {
	require := require.New(t)
	table := New(time.Minute, 1, nil)

	sender := ids.GenerateTestID()
	tx0 := &wire.Tx{Sender: sender, Nonce: 0, Energy: 10, Payload: []byte("a")}
	tx1 := &wire.Tx{Sender: sender, Nonce: 1, Energy: 10, Payload: []byte("b")}
	require.True(table.AddCommit(tx0, 1))
	require.True(table.AddCommit(tx1, 1))

	// Nonce 1 is not yet selectable: nextNonce for this sender is still 0.
	selected := table.SelectTransactions(1<<20, 1_000)
	require.Len(selected, 1)
	require.Equal(tx0.ID(), selected[0].ID())

	other := ids.GenerateTestID()
	txOther := &wire.Tx{Sender: other, Nonce: 0, Energy: 5, Payload: []byte("c")}
	require.True(table.AddCommit(txOther, 1))

	require.Len(table.SelectTransactions(1<<20, 12), 1) // energy cap excludes one sender
	require.Len(table.SelectTransactions(1<<20, 1_000), 2)
}

func TestRevertToReceivedAfterPruning(t *testing.T) {
	require := require.New(t)
	table := New(time.Minute, 1, nil)

	sender := ids.GenerateTestID()
	block := ids.GenerateTestID()
	tx := &wire.Tx{Sender: sender, Nonce: 0}
	require.True(table.AddCommit(tx, 1))
	table.CommitTransaction(block, 1, tx, 0)

	table.RevertToReceived(tx)
	status, ok := table.Status(tx.ID())
	require.True(ok)
	require.Equal(StatusReceived, status.Kind)
}
