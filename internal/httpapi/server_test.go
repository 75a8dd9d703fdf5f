// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	wire "github.com/shelterops/bedhold/api"
	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/reservation"
	"github.com/shelterops/bedhold/internal/service"
	"github.com/shelterops/bedhold/pkg/auth"
	"github.com/shelterops/bedhold/pkg/logging"
	"github.com/shelterops/bedhold/pkg/metrics"
	"github.com/shelterops/bedhold/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, totalBeds int, verifier auth.Verifier) *Server {
	t.Helper()
	registry := bed.NewRegistry(totalBeds)
	registry.Initialize()
	store := reservation.NewMemStore()
	guard := &sync.Mutex{}
	svc := service.New(registry, store, guard, 3, nil, metrics.NoOpCollector{})
	hub := streaming.NewHub()
	logger := logging.NewLogger(logging.DefaultConfig())
	return New(svc, hub, logger, verifier, 2*time.Minute)
}

func doJSON(t *testing.T, r *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadyReturnOK(t *testing.T) {
	s := newTestServer(t, 5, nil)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBedSummaryReflectsTotalCapacity(t *testing.T) {
	s := newTestServer(t, 5, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/beds/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary wire.BedSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 5, summary.Available)
	assert.Equal(t, 5, summary.Total)
}

func TestCreateReservationReturns201WithCode(t *testing.T) {
	s := newTestServer(t, 5, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/reservations/", wire.ReserveBedRequest{
		CallerName: "Alex",
		Situation:  "lost housing",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created wire.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Code)
	assert.Equal(t, "active", created.Status)
}

func TestCreateReservationMissingCallerNameReturns400(t *testing.T) {
	s := newTestServer(t, 5, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/reservations/", wire.ReserveBedRequest{Situation: "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp wire.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "validation", errResp.Kind)
	assert.Equal(t, "caller_name", errResp.Field)
}

func TestCreateReservationOnFullShelterReturns503(t *testing.T) {
	s := newTestServer(t, 1, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/reservations/", wire.ReserveBedRequest{CallerName: "A"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/reservations/", wire.ReserveBedRequest{CallerName: "B"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCancelUnknownCodeReturns404(t *testing.T) {
	s := newTestServer(t, 5, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/reservations/BED-ZZZZZZ/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckInWrongBedReturns400Validation(t *testing.T) {
	s := newTestServer(t, 5, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/reservations/", wire.ReserveBedRequest{CallerName: "A"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created wire.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	wrongBed := created.BedID + 1
	if wrongBed > 5 {
		wrongBed = 1
	}
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/beds/%d/checkin?reservation_id=%s", wrongBed, created.Code), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckInMissingReservationIDReturns400(t *testing.T) {
	s := newTestServer(t, 5, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/beds/1/checkin", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp wire.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "reservation_id", errResp.Field)
}

func TestRequestIDIsAttachedToEveryResponse(t *testing.T) {
	s := newTestServer(t, 5, nil)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthRequiredWhenVerifierConfigured(t *testing.T) {
	verifier := auth.NewTokenVerifier(map[string]auth.Principal{
		"good-token": {Subject: "staff-1", Role: auth.RoleStaff},
	})
	s := newTestServer(t, 5, verifier)

	req := httptest.NewRequest(http.MethodGet, "/api/beds/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/beds/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubSweeper struct{ expired int }

func (s stubSweeper) Sweep(ctx context.Context) int { return s.expired }

func TestExpireSweepWithoutSweeperReturns503(t *testing.T) {
	s := newTestServer(t, 5, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/expire/sweep", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExpireSweepReturnsExpiredCount(t *testing.T) {
	s := newTestServer(t, 5, nil).WithSweeper(stubSweeper{expired: 3})
	rec := doJSON(t, s, http.MethodPost, "/api/expire/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body["expired"])
}

func TestHoldThenCheckInThenCheckOutFullLifecycle(t *testing.T) {
	s := newTestServer(t, 3, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/reservations/", wire.ReserveBedRequest{CallerName: "A"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created wire.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/beds/%d/checkin?reservation_id=%s", created.BedID, created.Code), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/beds/%d/checkout", created.BedID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/beds/", nil)
	var summary wire.BedSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Available)
}

func TestAssignAttachesGuestRef(t *testing.T) {
	s := newTestServer(t, 3, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/beds/1/assign", wire.AssignRequest{GuestID: "guest-42"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAssignMissingGuestIDReturns400(t *testing.T) {
	s := newTestServer(t, 3, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/beds/1/assign", wire.AssignRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignUnknownBedReturns404(t *testing.T) {
	s := newTestServer(t, 3, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/beds/99/assign", wire.AssignRequest{GuestID: "guest-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
