// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	ErrInvalidTotalBeds      = errors.New("config: total_beds must be 108")
	ErrInvalidHoldDuration   = errors.New("config: hold_duration must be positive")
	ErrInvalidExpirationTick = errors.New("config: expiration_tick must be in (0, 60s]")
	ErrInvalidRetryMax       = errors.New("config: allocation_retry_max must be at least 1")
	ErrInvalidChapelSlots    = errors.New("config: chapel_time_slots must not be empty")
)
