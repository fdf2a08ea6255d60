// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a consensus node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd)
		},
	}
}

func runStart(cmd *cobra.Command) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	logger := log.NewNoOpLogger()
	registerer := prometheus.NewRegistry()

	n, err := buildNode(cfg, logger, registerer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.runner.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", n.serveHealth)

	server := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), healthShutdownGrace)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	return n.runner.Stop(context.Background())
}
