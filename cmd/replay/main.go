// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command replay reads a block-import file — a sequence of
// version:varint ‖ size:u64_be ‖ block_bytes records — and feeds every
// block through the normal tree receive path, exiting 0 on a clean EOF
// and non-zero on the first fatal error.
package main

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/bakerchain/internal/baker"
	"github.com/luxfi/bakerchain/internal/scheduler"
	"github.com/luxfi/bakerchain/internal/tree"
	"github.com/luxfi/bakerchain/internal/wire"
)

func main() {
	var committeeFile string
	var electionDifficulty float64

	cmd := &cobra.Command{
		Use:   "replay <import-file>",
		Short: "Replay a block-import file through the tree receive path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runReplay(args[0], committeeFile, electionDifficulty)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d blocks\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&committeeFile, "committee", "",
		"path to a JSON roster of baker signing/VRF public material; without it, blocks are replayed without proof-of-bake verification")
	cmd.Flags().Float64Var(&electionDifficulty, "election-difficulty", 0.5,
		"election difficulty used to check the lottery threshold when --committee is set")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rosterEntry is one committee member's public verification material, as
// read from a --committee JSON file: a list of these entries.
type rosterEntry struct {
	BakerID       uint64 `json:"bakerID"`
	SigningPubHex string `json:"signingPub"`
	VRFCommitHex  string `json:"vrfCommitment"`
	Power         uint64 `json:"power"`
}

type rosterParty struct {
	signingPub    ed25519.PublicKey
	vrfCommitment [32]byte
	power         uint64
}

// loadRoster reads a --committee file into a lookup by baker ID.
func loadRoster(path string) (map[uint64]rosterParty, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []rosterEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing committee file: %w", err)
	}

	out := make(map[uint64]rosterParty, len(entries))
	for _, e := range entries {
		pub, err := hex.DecodeString(e.SigningPubHex)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("baker %d: invalid signingPub", e.BakerID)
		}
		commitBytes, err := hex.DecodeString(e.VRFCommitHex)
		if err != nil || len(commitBytes) != 32 {
			return nil, fmt.Errorf("baker %d: invalid vrfCommitment", e.BakerID)
		}
		var commit [32]byte
		copy(commit[:], commitBytes)
		out[e.BakerID] = rosterParty{signingPub: pub, vrfCommitment: commit, power: e.Power}
	}
	return out, nil
}

func identityExecutor() scheduler.Executor {
	return scheduler.Func(func(_ context.Context, s scheduler.State, _ []*wire.Tx, _ scheduler.ChainMeta) (scheduler.Result, error) {
		return scheduler.Result{NewState: s}, nil
	})
}

// runReplay opens path, reads records until EOF, and feeds each block
// through Init (the first, genesis record) or ReceiveBlock (every record
// after). It returns the count of blocks successfully accepted. If
// committeeFile is set, every Normal block's signature, VRF proofs and
// lottery threshold are verified against the roster it names; otherwise
// blocks are accepted on the strength of the import file alone.
func runReplay(path, committeeFile string, electionDifficulty float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("replay: %s: %s: %w", path, wire.ResultMissingImportFile, err)
		}
		return 0, err
	}
	defer f.Close()

	var verify tree.VerifyFunc
	if committeeFile != "" {
		roster, err := loadRoster(committeeFile)
		if err != nil {
			return 0, fmt.Errorf("replay: loading committee: %w", err)
		}
		verify = func(parent *tree.Pointer, blk *wire.Block) error {
			party, ok := roster[blk.BakerID]
			if !ok {
				return fmt.Errorf("replay: unknown baker %d", blk.BakerID)
			}
			if err := baker.VerifyBlock(blk, parent.Block.BlockNonce, party.signingPub, party.vrfCommitment); err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			if !baker.VerifyLottery(blk.BlockProof, party.power, electionDifficulty) {
				return fmt.Errorf("replay: baker %d did not clear slot %d's lottery threshold", blk.BakerID, blk.Slot)
			}
			return nil
		}
	}

	r := bufio.NewReader(f)
	t := tree.New(tree.Config{Executor: identityExecutor(), Verify: verify})

	count := 0
	first := true
	for {
		rec, err := wire.ReadImportRecord(r)
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("replay: record %d: %w", count, err)
		}

		blk, err := wire.DecodeBlock(rec.Block)
		if err != nil {
			return count, fmt.Errorf("replay: record %d: decoding block: %w", count, err)
		}

		if first {
			if blk.Slot != 0 {
				return count, fmt.Errorf("replay: first record must be the genesis block (slot 0)")
			}
			if _, err := t.Init(context.Background(), blk); err != nil {
				return count, fmt.Errorf("replay: initializing genesis: %w", err)
			}
			first = false
			count++
			continue
		}

		res, _ := t.ReceiveBlock(context.Background(), rec.Block, time.Now())
		if res != wire.ResultSuccess && res != wire.ResultPendingBlock {
			return count, fmt.Errorf("replay: record %d rejected: %s", count, res)
		}
		count++
	}
}
