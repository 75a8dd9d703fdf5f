// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/reservation"
	shelerrors "github.com/shelterops/bedhold/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, totalBeds int) (*Service, *bed.Registry, reservation.Store) {
	t.Helper()
	registry := bed.NewRegistry(totalBeds)
	registry.Initialize()
	store := reservation.NewMemStore()
	guard := &sync.Mutex{}
	return New(registry, store, guard, 8, nil, nil), registry, store
}

// S1: create a reservation against an empty shelter, assert the bed is
// Held and the reservation is Active.
func TestCreateHoldsLowestBedAndInsertsActiveReservation(t *testing.T) {
	svc, registry, _ := newTestService(t, 5)

	r, err := svc.Create(context.Background(), "Jane Doe", "eviction", "", "en", 3*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, r.BedID)
	assert.Equal(t, reservation.Active, r.Status)

	status, err := registry.GetStatus(1)
	require.NoError(t, err)
	assert.Equal(t, bed.Held, status)
}

// S2: create, then cancel; the bed returns to available and a repeat
// cancel is a no-op success (property 1: idempotent terminal ops).
func TestCancelFreesTheBedAndIsIdempotent(t *testing.T) {
	svc, registry, _ := newTestService(t, 5)
	r, err := svc.Create(context.Background(), "Jane Doe", "eviction", "", "en", 3*time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(r.Code))
	status, err := registry.GetStatus(r.BedID)
	require.NoError(t, err)
	assert.Equal(t, bed.Available, status)

	require.NoError(t, svc.Cancel(r.Code), "cancelling an already-cancelled reservation must succeed")
}

func TestCancelUnknownCodeReturnsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	err := svc.Cancel("BED-MISSING")
	se := shelerrors.As(err)
	assert.Equal(t, shelerrors.KindNotFound, se.Kind)
}

// S3: create, then check in on the matching bed; reservation becomes
// checked_in and the bed becomes occupied.
func TestCheckInOccupiesBedAndTransitionsReservation(t *testing.T) {
	svc, registry, _ := newTestService(t, 5)
	r, err := svc.Create(context.Background(), "Jane Doe", "eviction", "", "en", 3*time.Hour)
	require.NoError(t, err)

	updated, err := svc.CheckIn(r.Code, r.BedID)
	require.NoError(t, err)
	assert.Equal(t, reservation.CheckedIn, updated.Status)

	status, err := registry.GetStatus(r.BedID)
	require.NoError(t, err)
	assert.Equal(t, bed.Occupied, status)
}

func TestCheckInRejectsWrongBedAsValidation(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	r, err := svc.Create(context.Background(), "Jane Doe", "eviction", "", "en", 3*time.Hour)
	require.NoError(t, err)

	otherBed := r.BedID + 1
	_, err = svc.CheckIn(r.Code, otherBed)
	se := shelerrors.As(err)
	assert.Equal(t, shelerrors.KindValidation, se.Kind)
}

// S5: check in, then check out; the bed frees and the reservation keeps
// its checked_in status but gains a terminal timestamp.
func TestCheckOutFreesBedAndStampsTerminalTimeWithoutChangingStatus(t *testing.T) {
	svc, registry, store := newTestService(t, 5)
	r, err := svc.Create(context.Background(), "Jane Doe", "eviction", "", "en", 3*time.Hour)
	require.NoError(t, err)
	_, err = svc.CheckIn(r.Code, r.BedID)
	require.NoError(t, err)

	require.NoError(t, svc.CheckOut(r.BedID))

	status, err := registry.GetStatus(r.BedID)
	require.NoError(t, err)
	assert.Equal(t, bed.Available, status)

	stored, err := store.GetByCode(r.Code)
	require.NoError(t, err)
	assert.Equal(t, reservation.CheckedIn, stored.Status, "check-out must not alter the reservation's status")
	assert.NotNil(t, stored.TerminalAt)
}

func TestCheckOutOnAvailableBedReturnsConflict(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	err := svc.CheckOut(3)
	se := shelerrors.As(err)
	assert.Equal(t, shelerrors.KindConflict, se.Kind)
}

// S4: cancel and check-in racing on the same reservation — exactly one
// wins, the other observes conflict (property 3).
func TestCancelAndCheckInRaceExactlyOneWins(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	r, err := svc.Create(context.Background(), "Jane Doe", "eviction", "", "en", 3*time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var cancelErr, checkInErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		cancelErr = svc.Cancel(r.Code)
	}()
	go func() {
		defer wg.Done()
		_, checkInErr = svc.CheckIn(r.Code, r.BedID)
	}()
	wg.Wait()

	successes := 0
	if cancelErr == nil {
		successes++
	}
	if checkInErr == nil {
		successes++
	}
	assert.Equal(t, 1, successes, "exactly one of cancel/check-in must win the race")

	if cancelErr != nil {
		se := shelerrors.As(cancelErr)
		assert.Equal(t, shelerrors.KindConflict, se.Kind)
	}
	if checkInErr != nil {
		se := shelerrors.As(checkInErr)
		assert.Equal(t, shelerrors.KindConflict, se.Kind)
	}
}

func TestHoldTransitionsAvailableBedToHeldWithoutReservation(t *testing.T) {
	svc, registry, _ := newTestService(t, 5)
	require.NoError(t, svc.Hold(2))

	status, err := registry.GetStatus(2)
	require.NoError(t, err)
	assert.Equal(t, bed.Held, status)
}

func TestListActiveReturnsOnlyActiveReservations(t *testing.T) {
	svc, _, _ := newTestService(t, 5)
	r1, err := svc.Create(context.Background(), "A", "eviction", "", "en", time.Hour)
	require.NoError(t, err)
	r2, err := svc.Create(context.Background(), "B", "domestic_violence", "", "en", time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(r2.Code))

	active, _, err := svc.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, r1.Code, active[0].Code)
}

type recordingServiceNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingServiceNotifier) ReservationCreated(code string, bedID int)   { n.record("created:" + code) }
func (n *recordingServiceNotifier) ReservationCancelled(code string, bedID int) { n.record("cancelled:" + code) }
func (n *recordingServiceNotifier) ReservationCheckedIn(code string, bedID int) { n.record("checked_in:" + code) }
func (n *recordingServiceNotifier) BedStatusChanged(bedID int, from, to bed.Status) {
	n.record("bed_status:" + string(from) + "->" + string(to))
}
func (n *recordingServiceNotifier) record(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, s)
}

func TestCreateNotifiesReservationCreatedAndBedStatusChanged(t *testing.T) {
	registry := bed.NewRegistry(3)
	registry.Initialize()
	store := reservation.NewMemStore()
	guard := &sync.Mutex{}
	notifier := &recordingServiceNotifier{}
	svc := New(registry, store, guard, 8, notifier, nil)

	r, err := svc.Create(context.Background(), "Jane Doe", "eviction", "", "en", time.Hour)
	require.NoError(t, err)

	assert.Contains(t, notifier.events, "created:"+r.Code)
	assert.Contains(t, notifier.events, "bed_status:available->held")
}
