// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/luxfi/bakerchain/internal/config"
)

// nodeConfig is the subset of a node's identity and committee membership
// that consensusd reads from file/env/flags; timing thresholds live in
// config.Parameters and share the same file.
type nodeConfig struct {
	BakerID       uint64
	CommitteeSize int
	Metrics       struct {
		ListenAddr string
	}
	ArchivePath string
	Params      config.Parameters
}

// loadConfig reads consensusd.yaml (or the path given by --config), falling
// back to defaults for anything unset. Environment variables prefixed
// CONSENSUSD_ override file values (e.g. CONSENSUSD_BAKERID=3).
func loadConfig(path string) (nodeConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("consensusd")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("consensusd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bakerID", 0)
	v.SetDefault("committeeSize", 1)
	v.SetDefault("metrics.listenAddr", ":9650")
	v.SetDefault("archivePath", "")
	v.SetDefault("params.slotDuration", time.Second)
	v.SetDefault("params.epochLength", 10)
	v.SetDefault("params.electionDifficulty", 0.5)
	v.SetDefault("params.minSkip", 1)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nodeConfig{}, fmt.Errorf("consensusd: reading config: %w", err)
		}
	}

	params := config.Default()
	params.SlotDuration = v.GetDuration("params.slotDuration")
	params.EpochLength = v.GetUint64("params.epochLength")
	params.ElectionDifficulty = v.GetFloat64("params.electionDifficulty")
	params.MinSkip = v.GetUint64("params.minSkip")
	if err := params.Validate(); err != nil {
		return nodeConfig{}, fmt.Errorf("consensusd: invalid params: %w", err)
	}

	cfg := nodeConfig{
		BakerID:       v.GetUint64("bakerID"),
		CommitteeSize: v.GetInt("committeeSize"),
		ArchivePath:   v.GetString("archivePath"),
		Params:        params,
	}
	cfg.Metrics.ListenAddr = v.GetString("metrics.listenAddr")
	if cfg.CommitteeSize < 1 {
		cfg.CommitteeSize = 1
	}
	return cfg, nil
}
