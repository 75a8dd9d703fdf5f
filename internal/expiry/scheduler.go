// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package expiry runs the periodic sweep that transitions expired
// holds back to available beds (spec §4.4 Expiration Scheduler). Its
// ticker-driven loop follows the same shape this module's old job
// poller used: an immediate run on startup, then one run per tick,
// skipping a tick rather than piling up work if the previous run is
// still in flight.
package expiry

import (
	"context"
	"sync"
	"time"

	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/reservation"
	"github.com/shelterops/bedhold/pkg/logging"
	"github.com/shelterops/bedhold/pkg/metrics"
)

// Notifier is the subset of the change notifier (C8) the scheduler
// needs; internal/notify.Hub satisfies it.
type Notifier interface {
	ReservationExpired(code string, bedID int)
}

// noopNotifier discards events, for callers that don't wire one.
type noopNotifier struct{}

func (noopNotifier) ReservationExpired(code string, bedID int) {}

// Scheduler periodically expires reservations whose hold has run out.
type Scheduler struct {
	registry *bed.Registry
	store    reservation.Store

	// guard is the same mutex internal/allocation.Engine and
	// internal/service.Service share, so an expiring sweep and a
	// concurrent check_in/cancel never interleave mid-transition.
	guard *sync.Mutex

	tick      time.Duration
	notifier  Notifier
	collector metrics.Collector
	logger    logging.Logger

	mu       sync.Mutex
	sweeping bool
}

// NewScheduler builds a Scheduler that ticks every tick (spec default
// 30s, must be ≤ 60s). A nil notifier or collector is replaced with a
// no-op.
func NewScheduler(registry *bed.Registry, store reservation.Store, guard *sync.Mutex, tick time.Duration, notifier Notifier, collector metrics.Collector, logger logging.Logger) *Scheduler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Scheduler{
		registry:  registry,
		store:     store,
		guard:     guard,
		tick:      tick,
		notifier:  notifier,
		collector: collector,
		logger:    logger,
	}
}

// Start runs an immediate crash-safe sweep, then ticks every s.tick
// until ctx is cancelled. It returns once the background goroutine has
// been launched; it does not block.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiration pass, skipping entirely if a previous
// sweep is still in flight (spec §5: "if a tick overruns T, the next
// tick is skipped"). It returns the number of reservations expired.
func (s *Scheduler) Sweep(ctx context.Context) int {
	if !s.beginSweep() {
		s.logger.Warn("expiration sweep skipped: previous sweep still running")
		return 0
	}
	defer s.endSweep()

	start := time.Now()
	expired := s.sweepOnce()
	s.collector.RecordExpirationSweep(time.Since(start), expired)
	if expired > 0 {
		s.logger.Info("expiration sweep completed", "expired_count", expired, "duration_ms", time.Since(start).Milliseconds())
	}
	return expired
}

func (s *Scheduler) beginSweep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweeping {
		return false
	}
	s.sweeping = true
	return true
}

func (s *Scheduler) endSweep() {
	s.mu.Lock()
	s.sweeping = false
	s.mu.Unlock()
}

// sweepOnce expires every reservation whose hold has passed, per spec
// §4.4: idempotent, and a lost race against a check-in or cancel is
// not an error.
func (s *Scheduler) sweepOnce() int {
	expiring, err := s.store.ListExpiringBefore(time.Now())
	if err != nil {
		s.logger.Error("failed to list expiring reservations", "error", err)
		return 0
	}

	count := 0
	for _, r := range expiring {
		if s.expireOne(r) {
			count++
		}
	}
	return count
}

func (s *Scheduler) expireOne(r *reservation.Reservation) bool {
	s.guard.Lock()
	defer s.guard.Unlock()

	now := time.Now()
	if err := s.store.UpdateStatus(r.Code, reservation.Active, reservation.Expired, &now); err != nil {
		// A racing check-in or cancel already won this reservation.
		return false
	}

	if err := s.registry.Transition(r.BedID, bed.Held, bed.Available); err != nil {
		// The bed already moved (e.g. a manual hold was re-issued by
		// staff between CAS calls); the winner's effect stands.
		s.logger.Warn("bed transition after expiry lost a race", "bed_id", r.BedID, "reservation_code", r.Code, "error", err)
	}

	s.notifier.ReservationExpired(r.Code, r.BedID)
	return true
}
