// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package allocation implements the atomic "pick one available bed and
// reserve it" protocol (spec §4.3 Allocation Engine).
package allocation

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/reservation"
	shelerrors "github.com/shelterops/bedhold/pkg/errors"
	"github.com/shelterops/bedhold/pkg/metrics"
	"github.com/shelterops/bedhold/pkg/retry"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I) since
// reservation codes are read aloud over the phone and typed by staff.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeSuffixLen = 6

// Engine atomically allocates the lowest-numbered available bed and
// installs an Active reservation on it (spec §4.3).
type Engine struct {
	registry *bed.Registry
	store    reservation.Store

	// guard serializes the full registry+store transaction, matching
	// the "single process-wide mutex" option spec §5 allows for an
	// in-process backing store. internal/service shares this same
	// mutex for cancel/check_in/check_out so a reader never observes
	// a bed and its reservation mid-transition.
	guard *sync.Mutex

	maxRetries int
	collector  metrics.Collector
}

// NewEngine builds an Engine. guard must be the same mutex the owning
// Service uses for its other compound operations. maxRetries bounds
// the conflict-retry loop (spec suggests 8). A nil collector disables
// metrics.
func NewEngine(registry *bed.Registry, store reservation.Store, guard *sync.Mutex, maxRetries int, collector metrics.Collector) *Engine {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Engine{
		registry:   registry,
		store:      store,
		guard:      guard,
		maxRetries: maxRetries,
		collector:  collector,
	}
}

// Allocate selects the lowest-numbered available bed and installs a new
// Active reservation on it, retrying on conflict up to maxRetries times
// with a small jittered backoff (spec §4.3 failure semantics).
func (e *Engine) Allocate(ctx context.Context, callerName, situation, needs, language string, holdDuration time.Duration) (*reservation.Reservation, error) {
	backoff := retry.NewExponentialBackoff()
	backoff.InitialDelay = 2 * time.Millisecond
	backoff.MaxDelay = 50 * time.Millisecond
	backoff.MaxAttempts = e.maxRetries

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			e.collector.RecordAllocationRetry()
		}

		r, err := e.tryAllocateOnce(callerName, situation, needs, language, holdDuration)
		if err == nil {
			e.collector.RecordAllocationAttempt("success")
			return r, nil
		}

		se := shelerrors.As(err)
		if se.Kind == shelerrors.KindNoCapacity {
			e.collector.RecordAllocationAttempt("no_capacity")
			return nil, err
		}

		lastErr = err
		delay, shouldContinue := backoff.NextDelay(attempt)
		if !shouldContinue {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.collector.RecordAllocationAttempt("conflict")
	return nil, lastErr
}

// tryAllocateOnce runs one full critical section: select the lowest
// available bed, transition it to Held, generate a unique code, and
// insert the reservation. Any failure rolls the bed transition back so
// no partial effect is visible (spec §4.3 step 3).
func (e *Engine) tryAllocateOnce(callerName, situation, needs, language string, holdDuration time.Duration) (*reservation.Reservation, error) {
	e.guard.Lock()
	defer e.guard.Unlock()

	bedID, ok := e.lowestAvailableLocked()
	if !ok {
		return nil, shelerrors.New(shelerrors.KindNoCapacity, "no available beds")
	}

	if err := e.registry.Transition(bedID, bed.Available, bed.Held); err != nil {
		return nil, shelerrors.Wrap(shelerrors.KindConflict, "racing writer won bed "+fmt.Sprint(bedID), err)
	}

	code, err := e.uniqueCodeLocked()
	if err != nil {
		_ = e.registry.Transition(bedID, bed.Held, bed.Available)
		return nil, err
	}

	now := time.Now()
	r := &reservation.Reservation{
		Code:       code,
		BedID:      bedID,
		CallerName: callerName,
		Situation:  situation,
		Needs:      needs,
		Language:   language,
		CreatedAt:  now,
		ExpiresAt:  now.Add(holdDuration),
		Status:     reservation.Active,
	}

	if err := e.store.Insert(r); err != nil {
		_ = e.registry.Transition(bedID, bed.Held, bed.Available)
		return nil, err
	}

	return r, nil
}

// lowestAvailableLocked must be called with e.guard held.
func (e *Engine) lowestAvailableLocked() (int, bool) {
	for _, b := range e.registry.Snapshot() {
		if b.Status == bed.Available {
			return b.ID, true
		}
	}
	return 0, false
}

// uniqueCodeLocked generates a reservation code, retrying on collision
// against the store (spec §4.3 step 2c). Must be called with e.guard
// held so a concurrent Allocate cannot race the collision check.
func (e *Engine) uniqueCodeLocked() (string, error) {
	const maxAttempts = 10
	for i := 0; i < maxAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return "", shelerrors.Wrap(shelerrors.KindInternal, "failed to generate reservation code", err)
		}
		if _, err := e.store.GetByCode(code); err != nil {
			return code, nil
		}
	}
	return "", shelerrors.New(shelerrors.KindInternal, "exhausted attempts generating a unique reservation code")
}

// generateCode returns a code of the form "BED-XXXXXX" using
// crypto/rand so codes are unguessable as well as collision-resistant.
func generateCode() (string, error) {
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	suffix := make([]byte, codeSuffixLen)
	for i, b := range buf {
		suffix[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return "BED-" + string(suffix), nil
}
