// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command consensusd wires the tree, baker, finalization orchestrator,
// skov driver, metrics and runner into a single consensus node process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "consensusd",
	Short: "Run a baker-chain consensus+finalization node",
	Long: `consensusd runs one node of the WMVBA-finalized, VRF-elected
baker chain: a per-slot leader-election loop, the finalization
orchestrator driving a WMVBA round per finalization index, and the
skov driver gluing both to a block tree.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./consensusd.yaml)")
	rootCmd.AddCommand(startCmd(), healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
