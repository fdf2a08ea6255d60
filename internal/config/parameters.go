// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds genesis/runtime parameters for the consensus node,
// plus a queue for scheduled mid-chain parameter changes.
package config

import (
	"errors"
	"time"
)

var (
	ErrInvalidMinSkip           = errors.New("config: minSkip must be >= 0")
	ErrInvalidElectionDifficulty = errors.New("config: electionDifficulty must be in (0, 1]")
	ErrInvalidSlotDuration      = errors.New("config: slotDuration must be > 0")
	ErrInvalidEpochLength       = errors.New("config: epochLength must be >= 1")
)

// Parameters controls the consensus+finalization engine's timing and
// thresholds. Values are genesis-fixed except where the update queue
// (UpdateQueue) schedules a change.
type Parameters struct {
	// Baking / slot timing.
	SlotDuration time.Duration
	EpochLength  uint64 // slots per epoch; lottery bakers snapshot every EpochLength slots

	// Leader election.
	ElectionDifficulty float64

	// Finalization round scheduling.
	MinSkip uint64

	// EarlyBlockThreshold: how far beyond the current clock a slot may be
	// before ReceiveBlock returns EarlyBlock without storing.
	EarlyBlockThreshold time.Duration

	// Block assembly caps.
	MaxBlockSize   int
	MaxBlockEnergy uint64

	// Transaction table purge discipline.
	KeepAliveTime           time.Duration
	TransactionPurgingDelay time.Duration
	PurgeCounterThreshold   int

	// Catch-up / replay timing.
	FinalizationReplayBaseDelay time.Duration
	FinalizationReplayPerParty  time.Duration
	CatchUpDedupWindow         time.Duration

	// Seen/DoneReporting buffering.
	SeenMaxDelay  time.Duration
	SeenDelayStep time.Duration
}

// Validate checks the parameters are self-consistent.
func (p Parameters) Validate() error {
	if p.SlotDuration <= 0 {
		return ErrInvalidSlotDuration
	}
	if p.EpochLength == 0 {
		return ErrInvalidEpochLength
	}
	if p.ElectionDifficulty <= 0 || p.ElectionDifficulty > 1 {
		return ErrInvalidElectionDifficulty
	}
	return nil
}

// Default returns parameters suitable for local development and tests.
func Default() Parameters {
	return Parameters{
		SlotDuration:                time.Second,
		EpochLength:                 10,
		ElectionDifficulty:          0.5,
		MinSkip:                     1,
		EarlyBlockThreshold:         5 * time.Second,
		MaxBlockSize:                1 << 20,
		MaxBlockEnergy:              1_000_000,
		KeepAliveTime:               5 * time.Minute,
		TransactionPurgingDelay:     30 * time.Second,
		PurgeCounterThreshold:       1000,
		FinalizationReplayBaseDelay: 5 * time.Second,
		FinalizationReplayPerParty:  500 * time.Millisecond,
		CatchUpDedupWindow:          60 * time.Second,
		SeenMaxDelay:                10 * time.Second,
		SeenDelayStep:               time.Second,
	}
}
