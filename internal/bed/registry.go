// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package bed owns the fixed inventory of sleeping slots and the only
// operations that may change a bed's status. No other package writes
// bed status directly; internal/allocation and internal/service compose
// Registry calls inside their own transactions.
package bed

import (
	"fmt"
	"sort"
	"sync"

	shelerrors "github.com/shelterops/bedhold/pkg/errors"
)

// Status is the closed set of states a bed may be in.
type Status string

const (
	Available Status = "available"
	Held      Status = "held"
	Occupied  Status = "occupied"
)

// Bed is one sleeping slot, identified by a number in [1, TotalBeds].
type Bed struct {
	ID     int
	Status Status
}

// Registry holds the fixed bed table and enforces the capacity
// invariant (spec §3 invariant 1): exactly TotalBeds exist, numbered
// 1..TotalBeds, and the set never grows or shrinks after initialize.
type Registry struct {
	mu    sync.RWMutex
	beds  map[int]Status
	total int
}

// NewRegistry builds a Registry sized for totalBeds. Call Initialize
// before using it.
func NewRegistry(totalBeds int) *Registry {
	return &Registry{
		beds:  make(map[int]Status, totalBeds),
		total: totalBeds,
	}
}

// Initialize idempotently ensures beds 1..total exist with status
// Available if absent. It never overwrites an existing bed's status,
// so restarting the process does not clobber in-flight holds recovered
// from the reservation store.
func (r *Registry) Initialize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := 1; id <= r.total; id++ {
		if _, exists := r.beds[id]; !exists {
			r.beds[id] = Available
		}
	}
}

// Snapshot returns a consistent, bed-id-ordered list of every bed and
// its current status.
func (r *Registry) Snapshot() []Bed {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Bed, 0, len(r.beds))
	for id, status := range r.beds {
		out = append(out, Bed{ID: id, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetStatus returns the current status of bedID, or not_found if no
// such bed exists.
func (r *Registry) GetStatus(bedID int) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.beds[bedID]
	if !ok {
		return "", shelerrors.Newf(shelerrors.KindNotFound, "bed %d not found", bedID)
	}
	return status, nil
}

// Transition compares bedID's current status to from and, if it
// matches, sets it to to. It fails with conflict if the current status
// differs, and not_found if bedID does not exist. This is the only way
// bed status ever changes.
func (r *Registry) Transition(bedID int, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.beds[bedID]
	if !ok {
		return shelerrors.Newf(shelerrors.KindNotFound, "bed %d not found", bedID)
	}
	if current != from {
		return shelerrors.Newf(shelerrors.KindConflict,
			"bed %d: expected status %s, found %s", bedID, from, current)
	}
	r.beds[bedID] = to
	return nil
}

// CountByStatus returns how many beds currently hold each status, for
// the /api/beds/ summary and the metrics gauge.
func (r *Registry) CountByStatus() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[Status]int{Available: 0, Held: 0, Occupied: 0}
	for _, status := range r.beds {
		counts[status]++
	}
	return counts
}

// Total returns the fixed number of beds the registry was sized for.
func (r *Registry) Total() int {
	return r.total
}

// ValidateCapacity checks spec §3 invariant 1: exactly Total beds
// exist, forming {1..Total}. A mismatch is an internal invariant
// violation, fatal at startup per spec §7.
func (r *Registry) ValidateCapacity() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.beds) != r.total {
		return shelerrors.Newf(shelerrors.KindInternal,
			"bed registry invariant violated: have %d beds, want %d", len(r.beds), r.total)
	}
	for id := 1; id <= r.total; id++ {
		if _, ok := r.beds[id]; !ok {
			return shelerrors.New(shelerrors.KindInternal,
				fmt.Sprintf("bed registry invariant violated: bed %d missing", id))
		}
	}
	return nil
}
