// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"sync"
	"time"

	shelerrors "github.com/shelterops/bedhold/pkg/errors"
)

// VolunteerRecord is one registration taken by the register_volunteer
// tool (spec §4.6 VOLUNTEER_FLOW).
type VolunteerRecord struct {
	Name         string
	Phone        string
	Email        string
	Availability string
	Interests    string
	RegisteredAt time.Time
}

// VolunteerBook records volunteer registrations in memory, just enough
// to give the call session's VOLUNTEER_FLOW a real confirmation instead
// of a stub.
type VolunteerBook struct {
	mu      sync.Mutex
	records []*VolunteerRecord
}

// NewVolunteerBook builds an empty VolunteerBook.
func NewVolunteerBook() *VolunteerBook {
	return &VolunteerBook{}
}

// Register records a volunteer. Name is required, and so is at least
// one contact method: phone, email, or both.
func (v *VolunteerBook) Register(name, phone, email, availability, interests string) (*VolunteerRecord, error) {
	if name == "" {
		return nil, shelerrors.Validation("name", "volunteer name is required")
	}
	if phone == "" && email == "" {
		return nil, shelerrors.New(shelerrors.KindValidation, "at least one of phone or email is required to contact a volunteer")
	}

	r := &VolunteerRecord{
		Name:         name,
		Phone:        phone,
		Email:        email,
		Availability: availability,
		Interests:    interests,
		RegisteredAt: time.Now(),
	}

	v.mu.Lock()
	v.records = append(v.records, r)
	v.mu.Unlock()

	return r, nil
}

// List returns every registered volunteer in registration order.
func (v *VolunteerBook) List() []*VolunteerRecord {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]*VolunteerRecord, len(v.records))
	copy(out, v.records)
	return out
}
