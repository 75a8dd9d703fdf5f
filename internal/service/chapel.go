// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"sort"
	"sync"
	"time"

	shelerrors "github.com/shelterops/bedhold/pkg/errors"
)

// ChapelBooking is one scheduled chapel service slot.
type ChapelBooking struct {
	Date     string // YYYY-MM-DD
	TimeSlot string // one of ChapelBook's allowed slots
	Group    string
	Contact  string
	BookedAt time.Time
}

// ChapelBook is a small closed-capacity table keyed by (date, time_slot),
// backing the schedule_chapel_service tool (spec §4.7, §8 S7). It is
// deliberately minimal: no persistence beyond the process, no waitlist.
type ChapelBook struct {
	mu       sync.Mutex
	slots    []string
	bookings map[string]*ChapelBooking // key: date+"|"+timeSlot
}

// NewChapelBook builds a ChapelBook restricted to allowedSlots (spec
// default {10:00, 13:00, 19:00}).
func NewChapelBook(allowedSlots []string) *ChapelBook {
	slots := make([]string, len(allowedSlots))
	copy(slots, allowedSlots)
	return &ChapelBook{
		slots:    slots,
		bookings: make(map[string]*ChapelBooking),
	}
}

func (c *ChapelBook) isAllowedSlot(timeSlot string) bool {
	for _, s := range c.slots {
		if s == timeSlot {
			return true
		}
	}
	return false
}

// Schedule books date/timeSlot for group, rejecting weekends
// (weekend_disallowed), slots outside the fixed set (invalid_time), and
// a slot that is already booked (slot_taken) — spec §8 S7.
func (c *ChapelBook) Schedule(date, timeSlot, group, contact string) (*ChapelBooking, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, shelerrors.Newf(shelerrors.KindValidation, "invalid_time: unparseable date %q", date)
	}
	if !c.isAllowedSlot(timeSlot) {
		return nil, shelerrors.Newf(shelerrors.KindValidation, "invalid_time: time slot %q is not one of %v", timeSlot, c.slots)
	}
	if wd := parsed.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return nil, shelerrors.New(shelerrors.KindValidation, "weekend_disallowed: chapel services are not scheduled on weekends")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := date + "|" + timeSlot
	if _, taken := c.bookings[key]; taken {
		return nil, shelerrors.Newf(shelerrors.KindConflict, "slot_taken: %s at %s is already booked", date, timeSlot)
	}

	booking := &ChapelBooking{
		Date:     date,
		TimeSlot: timeSlot,
		Group:    group,
		Contact:  contact,
		BookedAt: time.Now(),
	}
	c.bookings[key] = booking
	return booking, nil
}

// List returns every booking, ordered by date then time slot.
func (c *ChapelBook) List() []*ChapelBooking {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*ChapelBooking, 0, len(c.bookings))
	for _, b := range c.bookings {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out
}
