// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package committee

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func fourParties() []Party {
	return []Party{
		{Index: 0, NodeID: ids.GenerateTestNodeID(), Weight: 1},
		{Index: 1, NodeID: ids.GenerateTestNodeID(), Weight: 1},
		{Index: 2, NodeID: ids.GenerateTestNodeID(), Weight: 1},
		{Index: 3, NodeID: ids.GenerateTestNodeID(), Weight: 1},
	}
}

func TestNewDerivesCorruptAndTotalWeight(t *testing.T) {
	require := require.New(t)
	c := New(fourParties())

	require.EqualValues(4, c.TotalWeight)
	require.EqualValues(1, c.CorruptWeight) // floor((4-1)/3)
	require.EqualValues(2, c.QuorumWeight())
	require.EqualValues(3, c.ProgressWeight())
}

func TestByIndexAndByNodeID(t *testing.T) {
	require := require.New(t)
	parties := fourParties()
	c := New(parties)

	p, ok := c.ByIndex(2)
	require.True(ok)
	require.Equal(parties[2].NodeID, p.NodeID)

	_, ok = c.ByIndex(uint32(len(parties)))
	require.False(ok)

	found, ok := c.ByNodeID(parties[1].NodeID)
	require.True(ok)
	require.EqualValues(1, found.Index)

	_, ok = c.ByNodeID(ids.GenerateTestNodeID())
	require.False(ok)
}

func TestWeightOfSumsKnownIndices(t *testing.T) {
	require := require.New(t)
	c := New(fourParties())

	require.EqualValues(2, c.WeightOf([]uint32{0, 1}))
	require.EqualValues(1, c.WeightOf([]uint32{0, 99})) // unknown index contributes nothing
}

func TestEmptyCommitteeHasZeroWeights(t *testing.T) {
	require := require.New(t)
	c := New(nil)

	require.EqualValues(0, c.TotalWeight)
	require.EqualValues(0, c.CorruptWeight)
	require.EqualValues(1, c.QuorumWeight())
}
