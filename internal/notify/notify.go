// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package notify adapts internal/service's and internal/expiry's
// Notifier interfaces onto pkg/streaming's Hub, so bed and reservation
// changes reach the dashboard's WebSocket/SSE subscribers after their
// triggering transaction has committed (spec §4.8 Change Notifier).
package notify

import (
	"time"

	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/pkg/streaming"
)

// Hub publishes committed bed and reservation changes to a
// streaming.Hub. It satisfies internal/service.Notifier and
// internal/expiry.Notifier.
type Hub struct {
	hub *streaming.Hub
}

// New wraps an existing streaming.Hub.
func New(hub *streaming.Hub) *Hub {
	return &Hub{hub: hub}
}

func (h *Hub) ReservationCreated(code string, bedID int) {
	h.hub.Publish(streaming.Event{
		Type:      streaming.EventReservationCreated,
		BedID:     bedID,
		Code:      code,
		Timestamp: time.Now(),
	})
}

func (h *Hub) ReservationCancelled(code string, bedID int) {
	h.hub.Publish(streaming.Event{
		Type:      streaming.EventReservationCancelled,
		BedID:     bedID,
		Code:      code,
		Timestamp: time.Now(),
	})
}

func (h *Hub) ReservationCheckedIn(code string, bedID int) {
	h.hub.Publish(streaming.Event{
		Type:      streaming.EventReservationCheckedIn,
		BedID:     bedID,
		Code:      code,
		Timestamp: time.Now(),
	})
}

func (h *Hub) ReservationExpired(code string, bedID int) {
	h.hub.Publish(streaming.Event{
		Type:      streaming.EventReservationExpired,
		BedID:     bedID,
		Code:      code,
		Timestamp: time.Now(),
	})
}

func (h *Hub) BedStatusChanged(bedID int, from, to bed.Status) {
	h.hub.Publish(streaming.Event{
		Type:      streaming.EventBedStatusChanged,
		BedID:     bedID,
		Timestamp: time.Now(),
		Data:      map[string]string{"from": string(from), "to": string(to)},
	})
}
