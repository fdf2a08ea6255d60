// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduleKeepsQueueOrderedByEffectiveSlot(t *testing.T) {
	require := require.New(t)
	q := NewUpdateQueue()

	q.Schedule(Update{EffectiveSlot: 30})
	q.Schedule(Update{EffectiveSlot: 10})
	q.Schedule(Update{EffectiveSlot: 20})

	slots := make([]uint64, 0, 3)
	for _, u := range q.Pending() {
		slots = append(slots, u.EffectiveSlot)
	}
	require.Equal([]uint64{10, 20, 30}, slots)
}

func TestApplyReturnsFirstElapsedAndDropsOthers(t *testing.T) {
	require := require.New(t)
	q := NewUpdateQueue()

	first := Default()
	first.EpochLength = 5
	second := Default()
	second.EpochLength = 7
	future := Default()
	future.EpochLength = 9

	q.Schedule(Update{EffectiveSlot: 10, Params: first})
	q.Schedule(Update{EffectiveSlot: 15, Params: second})
	q.Schedule(Update{EffectiveSlot: 100, Params: future})

	applied, ok := q.Apply(20)
	require.True(ok)
	require.Equal(first, applied)

	remaining := q.Pending()
	require.Len(remaining, 1)
	require.EqualValues(100, remaining[0].EffectiveSlot)
}

func TestApplyWithNothingElapsedReturnsFalse(t *testing.T) {
	require := require.New(t)
	q := NewUpdateQueue()
	q.Schedule(Update{EffectiveSlot: 50})

	_, ok := q.Apply(10)
	require.False(ok)
	require.Len(q.Pending(), 1)
}
