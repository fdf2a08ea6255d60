// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAndObserveHealthSetsGauges(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()

	m, err := New(reg)
	require.NoError(err)

	m.ObserveHealth(HealthSnapshot{
		LastFinalizedHeight: 7,
		BestBlockHeight:     9,
		CurrentIndex:        3,
		QueuedRecords:       2,
	})

	require.Equal(float64(7), testutil.ToFloat64(m.LastFinalizedHeight))
	require.Equal(float64(9), testutil.ToFloat64(m.BestBlockHeight))
	require.Equal(float64(3), testutil.ToFloat64(m.FinalizationIndex))
	require.Equal(float64(2), testutil.ToFloat64(m.QueuedRecords))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	require.NoError(err)

	_, err = New(reg)
	require.Error(err)
}

func TestCountersIncrement(t *testing.T) {
	require := require.New(t)
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(err)

	m.BlocksReceived.Inc()
	m.BlocksReceived.Inc()
	m.RoundsFailed.Inc()
	m.CatchUpBehind.Inc()

	require.Equal(float64(2), testutil.ToFloat64(m.BlocksReceived))
	require.Equal(float64(1), testutil.ToFloat64(m.RoundsFailed))
	require.Equal(float64(1), testutil.ToFloat64(m.CatchUpBehind))
}
