// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsNonPositiveSlotDuration(t *testing.T) {
	p := Default()
	p.SlotDuration = 0
	require.ErrorIs(t, p.Validate(), ErrInvalidSlotDuration)
}

func TestValidateRejectsZeroEpochLength(t *testing.T) {
	p := Default()
	p.EpochLength = 0
	require.ErrorIs(t, p.Validate(), ErrInvalidEpochLength)
}

func TestValidateRejectsOutOfRangeElectionDifficulty(t *testing.T) {
	p := Default()
	p.ElectionDifficulty = 0
	require.ErrorIs(t, p.Validate(), ErrInvalidElectionDifficulty)

	p.ElectionDifficulty = 1.5
	require.ErrorIs(t, p.Validate(), ErrInvalidElectionDifficulty)

	p.ElectionDifficulty = 1
	require.NoError(t, p.Validate())
}

func TestValidateAllowsZeroMinSkip(t *testing.T) {
	p := Default()
	p.MinSkip = 0
	require.NoError(t, p.Validate())
}

func TestDefaultTimingIsInternallyConsistent(t *testing.T) {
	p := Default()
	require.Greater(t, p.KeepAliveTime, time.Duration(0))
	require.Greater(t, p.SeenMaxDelay, p.SeenDelayStep)
}
