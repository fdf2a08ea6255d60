// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package committee models the finalization committee: a fixed, ordered
// vector of parties each with a signing key, VRF key, BLS key and voter
// power (weight).
package committee

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/bakerchain/internal/xcrypto"
)

// Party is one committee member.
type Party struct {
	Index     uint32
	NodeID    ids.NodeID
	SigningPK ids.ID // block-signature verification key, hashed to an ID for comparison
	VRFPub    [32]byte
	BLSPub    [xcrypto.BLSSigSize]byte
	Weight    uint64
}

// Committee is the fixed, ordered set of parties authorized to vote for a
// given finalization index.
type Committee struct {
	Parties      []Party
	TotalWeight  uint64
	CorruptWeight uint64
}

// New builds a Committee and derives TotalWeight/CorruptWeight once:
// corruptWeight = floor((totalWeight-1)/3).
func New(parties []Party) *Committee {
	c := &Committee{Parties: append([]Party(nil), parties...)}
	for _, p := range c.Parties {
		c.TotalWeight += p.Weight
	}
	if c.TotalWeight > 0 {
		c.CorruptWeight = (c.TotalWeight - 1) / 3
	}
	return c
}

// Len returns the number of parties.
func (c *Committee) Len() int { return len(c.Parties) }

// ByIndex looks up a party by its committee index.
func (c *Committee) ByIndex(i uint32) (Party, bool) {
	if int(i) >= len(c.Parties) {
		return Party{}, false
	}
	return c.Parties[i], true
}

// ByNodeID looks up a party's committee index by node ID.
func (c *Committee) ByNodeID(id ids.NodeID) (Party, bool) {
	for _, p := range c.Parties {
		if p.NodeID == id {
			return p, true
		}
	}
	return Party{}, false
}

// WeightOf sums the voter power of a set of party indices.
func (c *Committee) WeightOf(indices []uint32) uint64 {
	var w uint64
	for _, i := range indices {
		if p, ok := c.ByIndex(i); ok {
			w += p.Weight
		}
	}
	return w
}

// QuorumWeight is the minimum weight needed for witness aggregation /
// ABBA progress: strictly more than CorruptWeight.
func (c *Committee) QuorumWeight() uint64 {
	return c.CorruptWeight + 1
}

// ProgressWeight is the weight required for ABBA phase progress:
// totalWeight - corruptWeight.
func (c *Committee) ProgressWeight() uint64 {
	return c.TotalWeight - c.CorruptWeight
}
