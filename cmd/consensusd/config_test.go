// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	require := require.New(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(err)
	require.EqualValues(1, cfg.CommitteeSize)
	require.Equal(":9650", cfg.Metrics.ListenAddr)
	require.NoError(cfg.Params.Validate())
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "consensusd.yaml")
	contents := "bakerID: 3\ncommitteeSize: 5\nmetrics:\n  listenAddr: \":9999\"\n"
	require.NoError(os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(err)
	require.EqualValues(3, cfg.BakerID)
	require.EqualValues(5, cfg.CommitteeSize)
	require.Equal(":9999", cfg.Metrics.ListenAddr)
}

func TestLoadConfigRejectsInvalidParams(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "consensusd.yaml")
	contents := "params:\n  electionDifficulty: 2.0\n"
	require.NoError(os.WriteFile(path, []byte(contents), 0o644))

	_, err := loadConfig(path)
	require.Error(err)
}
