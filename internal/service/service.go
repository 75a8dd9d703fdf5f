// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package service exposes the public reservation lifecycle operations
// (spec §4.5 Reservation Service), composing the bed registry, the
// reservation store, and the allocation engine inside one guarded
// transaction per call so no caller ever observes a bed whose status
// is inconsistent with its reservation.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/shelterops/bedhold/internal/allocation"
	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/reservation"
	shelerrors "github.com/shelterops/bedhold/pkg/errors"
	"github.com/shelterops/bedhold/pkg/metrics"
)

// Notifier is the subset of the change notifier (C8) the service
// needs; internal/notify.Hub satisfies it.
type Notifier interface {
	ReservationCreated(code string, bedID int)
	ReservationCancelled(code string, bedID int)
	ReservationCheckedIn(code string, bedID int)
	BedStatusChanged(bedID int, from, to bed.Status)
}

type noopNotifier struct{}

func (noopNotifier) ReservationCreated(code string, bedID int)    {}
func (noopNotifier) ReservationCancelled(code string, bedID int)  {}
func (noopNotifier) ReservationCheckedIn(code string, bedID int)  {}
func (noopNotifier) BedStatusChanged(bedID int, from, to bed.Status) {}

// Service is the public surface both the HTTP API and the call
// session's check_availability/reserve_bed tools go through.
type Service struct {
	registry *bed.Registry
	store    reservation.Store
	engine   *allocation.Engine
	guard    *sync.Mutex
	notifier Notifier

	// guests attaches an opaque guest reference to a bed (spec §6 POST
	// /api/beds/{id}/assign). The guest subsystem itself is out of
	// scope (spec §3); this is just enough to make assign real.
	guests map[int]string
}

// New builds a Service. guard is shared with internal/allocation.Engine
// and internal/expiry.Scheduler so their compound bed+reservation
// mutations never interleave.
func New(registry *bed.Registry, store reservation.Store, guard *sync.Mutex, maxAllocationRetries int, notifier Notifier, collector metrics.Collector) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		registry: registry,
		store:    store,
		engine:   allocation.NewEngine(registry, store, guard, maxAllocationRetries, collector),
		guard:    guard,
		notifier: notifier,
		guests:   make(map[int]string),
	}
}

// Create allocates a bed and installs a reservation for the caller,
// emitting reservation.created on success (spec §4.5 create).
func (s *Service) Create(ctx context.Context, callerName, situation, needs, language string, holdDuration time.Duration) (*reservation.Reservation, error) {
	r, err := s.engine.Allocate(ctx, callerName, situation, needs, language, holdDuration)
	if err != nil {
		return nil, err
	}
	s.notifier.ReservationCreated(r.Code, r.BedID)
	s.notifier.BedStatusChanged(r.BedID, bed.Available, bed.Held)
	return r, nil
}

// Cancel compare-and-sets an Active reservation to Cancelled and frees
// its bed. It is idempotent if the reservation is already Cancelled;
// any other non-Active status (raced by a check-in or expiry) is
// reported as conflict, matching spec §8 scenario S4.
func (s *Service) Cancel(code string) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	r, err := s.store.GetByCode(code)
	if err != nil {
		return err
	}
	if r.Status == reservation.Cancelled {
		return nil
	}

	now := time.Now()
	if err := s.store.UpdateStatus(code, reservation.Active, reservation.Cancelled, &now); err != nil {
		return err
	}
	if err := s.registry.Transition(r.BedID, bed.Held, bed.Available); err != nil {
		return shelerrors.Wrap(shelerrors.KindInternal, "bed registry out of sync with reservation store on cancel", err)
	}

	s.notifier.ReservationCancelled(code, r.BedID)
	s.notifier.BedStatusChanged(r.BedID, bed.Held, bed.Available)
	return nil
}

// CheckIn compare-and-sets an Active reservation to CheckedIn and
// occupies its bed. It fails with validation if bedID does not match
// the reservation's bed (spec §4.5's "bed_mismatch", mapped onto the
// closed error-kind set — see DESIGN.md).
func (s *Service) CheckIn(code string, bedID int) (*reservation.Reservation, error) {
	s.guard.Lock()
	defer s.guard.Unlock()

	r, err := s.store.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if r.BedID != bedID {
		return nil, shelerrors.Newf(shelerrors.KindValidation, "reservation %s is held on bed %d, not %d", code, r.BedID, bedID)
	}

	if err := s.store.UpdateStatus(code, reservation.Active, reservation.CheckedIn, nil); err != nil {
		return nil, err
	}
	if err := s.registry.Transition(bedID, bed.Held, bed.Occupied); err != nil {
		return nil, shelerrors.Wrap(shelerrors.KindInternal, "bed registry out of sync with reservation store on check-in", err)
	}

	s.notifier.ReservationCheckedIn(code, bedID)
	s.notifier.BedStatusChanged(bedID, bed.Held, bed.Occupied)
	return s.store.GetByCode(code)
}

// CheckOut frees an Occupied bed and stamps the terminal timestamp on
// its occupying reservation, leaving that reservation's CheckedIn
// status as-is: it has already been satisfied (spec §4.5 check_out,
// resolving the open question on check-out's terminal semantics — see
// DESIGN.md).
func (s *Service) CheckOut(bedID int) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	if err := s.registry.Transition(bedID, bed.Occupied, bed.Available); err != nil {
		return err
	}

	if r, err := s.store.GetCurrentByBed(bedID); err == nil {
		now := time.Now()
		_ = s.store.UpdateStatus(r.Code, reservation.CheckedIn, reservation.CheckedIn, &now)
		s.store.ClearCurrentByBed(bedID)
	}

	s.notifier.BedStatusChanged(bedID, bed.Occupied, bed.Available)
	return nil
}

// ListActive returns every Active reservation together with the time
// of the read (spec §4.5 list_active). It computes no remaining-hold
// value; each reservation carries only its ExpiresAt.
func (s *Service) ListActive() ([]*reservation.Reservation, time.Time, error) {
	active, err := s.store.ListActive()
	return active, time.Now(), err
}

// Hold manually holds bedID without an associated reservation record
// (spec §6 POST /api/beds/{id}/hold). This resolves the open question
// on whether manual hold creates a shadow reservation: it does not —
// see DESIGN.md.
func (s *Service) Hold(bedID int) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	if err := s.registry.Transition(bedID, bed.Available, bed.Held); err != nil {
		return err
	}
	s.notifier.BedStatusChanged(bedID, bed.Available, bed.Held)
	return nil
}

// Assign attaches guestID to bedID (spec §6 POST /api/beds/{id}/assign).
// It only validates that the bed exists; it does not require a
// reservation, since a walk-in guest record can be attached to a bed
// that was held manually.
func (s *Service) Assign(bedID int, guestID string) error {
	s.guard.Lock()
	defer s.guard.Unlock()

	if _, err := s.registry.GetStatus(bedID); err != nil {
		return err
	}
	if guestID == "" {
		return shelerrors.Validation("guest_id", "guest_id is required")
	}
	s.guests[bedID] = guestID
	return nil
}

// GuestFor returns the guest reference attached to bedID, if any.
func (s *Service) GuestFor(bedID int) (string, bool) {
	s.guard.Lock()
	defer s.guard.Unlock()
	g, ok := s.guests[bedID]
	return g, ok
}

// BedSummary returns the capacity-invariant-preserving status counts
// for the /api/beds/ summary endpoint.
func (s *Service) BedSummary() map[bed.Status]int {
	return s.registry.CountByStatus()
}

// BedList returns every bed and its status for /api/beds/list.
func (s *Service) BedList() []bed.Bed {
	return s.registry.Snapshot()
}
