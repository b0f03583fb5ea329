// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command explain starts the Aleutian Explain API server.
//
// Aleutian Explain produces anchor explanations for black-box
// classifiers: minimal feature conjunctions that keep the model's
// prediction stable under perturbation, found by beam search with
// KL-Bernoulli confidence bounds.
//
// Usage:
//
//	go run ./cmd/explain
//	go run ./cmd/explain -config explain.yaml
//	go run ./cmd/explain -addr :9090 -debug
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8092/v1/explain/health
//
//	# Explain row 0 of a small dataset
//	curl -X POST http://localhost:8092/v1/explain/tabular \
//	  -H "Content-Type: application/json" \
//	  -d '{"rows": [[1,0],[0,1],[1,1],[0,0]], "row_index": 0,
//	       "classifier_url": "http://localhost:5000/predict"}'
//
//	# Fetch a stored explanation
//	curl http://localhost:8092/v1/explain/results/<id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianExplain/pkg/logging"
	"github.com/AleutianAI/AleutianExplain/services/explain"
	"github.com/AleutianAI/AleutianExplain/services/explain/store"
	"github.com/AleutianAI/AleutianExplain/services/explain/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg, err := explain.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Service: "explain",
		JSON:    cfg.LogJSON,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	ctx := context.Background()
	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.TraceExporter = cfg.TraceExporter
	telemetryCfg.MetricExporter = cfg.MetricExporter
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		logger.Error("Failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(context.Background())

	storeCfg := store.DefaultConfig()
	storeCfg.Path = cfg.StorePath
	storeCfg.InMemory = cfg.StoreInMemory
	storeCfg.TTL = cfg.RecordTTL
	storeCfg.Logger = logger.Slog()
	recordStore, err := store.Open(storeCfg)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		os.Exit(1)
	}
	defer recordStore.Close()

	svc, err := explain.NewService(cfg, recordStore, logger.Slog())
	if err != nil {
		logger.Error("Failed to create service", "error", err)
		os.Exit(1)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	handlers := explain.NewHandlers(svc, limiter)

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	explain.RegisterRoutes(v1, handlers)

	if metricsHandler := telemetry.MetricsHandler(); metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	printBanner(cfg.ListenAddr)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown: closing the store mid-write corrupts nothing
	// thanks to badger's WAL, but in-flight searches still deserve a
	// drain window.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down Aleutian Explain server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Forced shutdown", slog.String("error", err.Error()))
		}
	}()

	slog.Info("Starting Aleutian Explain server", slog.String("address", cfg.ListenAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(addr string) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                     ALEUTIAN EXPLAIN SERVER                       ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Anchor explanations for black-box classifiers.                   ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost%-22s/v1/explain/health │  ║
║  │                                                             │  ║
║  │ # Explain a row (classifier must answer POST /predict)      │  ║
║  │ curl -X POST http://localhost%s/v1/explain/tabular \     │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"rows": [...], "row_index": 0,                       │  ║
║  │        "classifier_url": "http://localhost:5000/predict"}'  │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/explain/tabular - Run an anchor search              ║
║  ├── GET  /v1/explain/results - List stored explanations          ║
║  ├── GET  /v1/explain/results/:id - Fetch one explanation         ║
║  └── GET  /metrics - Prometheus metrics                           ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, addr, addr)
}
