// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bakerchain/internal/wire"
)

func TestQueueEnqueueFindAdvance(t *testing.T) {
	require := require.New(t)
	q := NewQueue(1)

	hash := ids.GenerateTestID()
	record := &wire.FinalizationRecord{Index: 1, BlockHash: hash}
	q.Enqueue(record)

	found, ok := q.FindByHash(hash)
	require.True(ok)
	require.Equal(record, found)

	q.AddWitness(1, 0)
	q.AddWitness(1, 2)
	require.ElementsMatch([]uint32{0, 2}, q.OutputWitnesses(1))

	q.Advance(2)
	require.EqualValues(2, q.FirstIndex())
	_, ok = q.Record(1)
	require.False(ok)
	require.Empty(q.OutputWitnesses(1))
}

func TestStateBufferDrainAndDropBelow(t *testing.T) {
	require := require.New(t)
	s := newState()

	msg1 := &wire.FinalizationMessage{Index: 1, Delta: 1}
	msg2 := &wire.FinalizationMessage{Index: 2, Delta: 1}
	s.buffer(msg1)
	s.buffer(msg2)

	drained := s.drain(1)
	require.Len(drained, 1)
	require.Equal(msg1, drained[0])

	s.dropBelow(2)
	require.Empty(s.drain(1))
	require.Len(s.drain(2), 1)
}
