// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const healthShutdownGrace = 5 * time.Second

// serveHealth reports the skov driver's status surface as JSON, for
// liveness/readiness probes against a running consensusd process.
func (n *node) serveHealth(w http.ResponseWriter, _ *http.Request) {
	h := n.skov.HealthCheck()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h)
}

// healthCmd queries a running node's /healthz endpoint, for operators who
// would otherwise need curl and jq memorized.
func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query a running node's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetDefault("metrics.listenAddr", ":9650")
			addr := v.GetString("metrics.listenAddr")

			resp, err := http.Get(fmt.Sprintf("http://localhost%s/healthz", addr))
			if err != nil {
				return fmt.Errorf("consensusd: querying health endpoint: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
}
