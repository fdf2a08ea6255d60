// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalization

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextFinalizationHeightFloorsHalfDistance(t *testing.T) {
	require := require.New(t)

	// parent-lastFin distance small: floor((10-9)/2)=0, so minSkip floor wins.
	require.EqualValues(10, NextFinalizationHeight(9, 10, 0))
	// large distance: floor((20-0)/2)=10 beats the minSkip floor of 1.
	require.EqualValues(10, NextFinalizationHeight(0, 20, 0))
	// minSkip widens the floor.
	require.EqualValues(5, NextFinalizationHeight(0, 2, 4))
}

func TestNextDelta(t *testing.T) {
	require := require.New(t)

	require.EqualValues(1, NextDelta(0))
	require.EqualValues(1, NextDelta(2))
	require.EqualValues(2, NextDelta(4))
	require.EqualValues(5, NextDelta(10))
}

func TestDoubleDelta(t *testing.T) {
	require.Equal(t, uint64(8), DoubleDelta(4))
}
