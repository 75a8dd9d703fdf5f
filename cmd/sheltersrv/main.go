// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command sheltersrv runs the bed allocation and call-session HTTP
// server: the reservation service, the expiration scheduler, and the
// dashboard event stream, all behind one listener.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/expiry"
	"github.com/shelterops/bedhold/internal/httpapi"
	"github.com/shelterops/bedhold/internal/notify"
	"github.com/shelterops/bedhold/internal/reservation"
	"github.com/shelterops/bedhold/internal/service"
	"github.com/shelterops/bedhold/pkg/auth"
	"github.com/shelterops/bedhold/pkg/config"
	"github.com/shelterops/bedhold/pkg/logging"
	"github.com/shelterops/bedhold/pkg/metrics"
	"github.com/shelterops/bedhold/pkg/streaming"
)

func main() {
	cfg := config.NewDefault()
	cfg.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.Level = slog.LevelDebug
	}
	logger := logging.NewLogger(logCfg)

	if _, err := cfg.LoadCrisisKeywords(); err != nil {
		log.Fatalf("failed to load crisis keywords: %v", err)
	}

	registry := bed.NewRegistry(cfg.TotalBeds)
	registry.Initialize()
	store := reservation.NewMemStore()
	guard := &sync.Mutex{}
	collector := metrics.NewInMemoryCollector()
	hub := streaming.NewHub()
	notifier := notify.New(hub)

	svc := service.New(registry, store, guard, cfg.AllocationRetryMax, notifier, collector)
	scheduler := expiry.NewScheduler(registry, store, guard, cfg.ExpirationTick, notifier, collector, logger)

	var verifier auth.Verifier
	if token := os.Getenv("SHELTER_STAFF_TOKEN"); token != "" {
		verifier = auth.NewTokenVerifier(map[string]auth.Principal{
			token: {Subject: "staff", Role: auth.RoleStaff},
		})
	} else {
		logger.Warn("SHELTER_STAFF_TOKEN not set, staff routes are unauthenticated")
		verifier = auth.NoAuth{}
	}

	server := httpapi.New(svc, hub, logger, verifier, cfg.HoldDuration).WithSweeper(scheduler)

	addr := os.Getenv("SHELTER_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)

	go func() {
		logger.Info("listening", "addr", addr, "total_beds", cfg.TotalBeds)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
