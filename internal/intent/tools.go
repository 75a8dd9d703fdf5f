// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"context"
	"time"

	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/reservation"
	"github.com/shelterops/bedhold/internal/service"
)

// Tool is the closed set of tools a call session may invoke (spec §4.7
// tool table). Every tool validates its own inputs; the session never
// pre-validates on its behalf.
type Tool string

const (
	ToolCheckAvailability     Tool = "check_availability"
	ToolReserveBed            Tool = "reserve_bed"
	ToolScheduleChapelService Tool = "schedule_chapel_service"
	ToolRegisterVolunteer     Tool = "register_volunteer"
	ToolEndCall               Tool = "end_call"
)

// Tools binds the tool table to the reservation service and the
// supplemented chapel/volunteer books, so internal/session never talks
// to internal/service directly.
type Tools struct {
	Reservations *service.Service
	Chapel       *service.ChapelBook
	Volunteers   *service.VolunteerBook
	HoldDuration time.Duration
}

// NewTools builds a Tools table bound to the given engine components.
func NewTools(reservations *service.Service, chapel *service.ChapelBook, volunteers *service.VolunteerBook, holdDuration time.Duration) *Tools {
	return &Tools{
		Reservations: reservations,
		Chapel:       chapel,
		Volunteers:   volunteers,
		HoldDuration: holdDuration,
	}
}

// CheckAvailability returns the count of beds currently available.
func (t *Tools) CheckAvailability() int {
	return t.Reservations.BedSummary()[bed.Available]
}

// ReserveBed allocates a bed for the caller (spec §4.7 reserve_bed).
func (t *Tools) ReserveBed(ctx context.Context, callerName, situation, needs, language string) (*reservation.Reservation, error) {
	return t.Reservations.Create(ctx, callerName, situation, needs, language, t.HoldDuration)
}

// ScheduleChapelService books a chapel slot (spec §4.7
// schedule_chapel_service).
func (t *Tools) ScheduleChapelService(date, timeSlot, group, contact string) (*service.ChapelBooking, error) {
	return t.Chapel.Schedule(date, timeSlot, group, contact)
}

// RegisterVolunteer records a volunteer registration (spec §4.7
// register_volunteer).
func (t *Tools) RegisterVolunteer(name, phone, email, availability, interests string) (*service.VolunteerRecord, error) {
	return t.Volunteers.Register(name, phone, email, availability, interests)
}

// EndCall terminates the session (spec §4.7 end_call). It takes no
// arguments and has no engine-level side effect of its own — ending
// the underlying telephony leg is internal/telephony.Drive's job once
// the session reports itself ended — but it exists so end_call is an
// invocable tool rather than a dead enum value.
func (t *Tools) EndCall() {}
