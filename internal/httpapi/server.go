// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package httpapi wires the bed and reservation HTTP surface (spec §6)
// onto internal/service, behind pkg/middleware's request-id/recovery/
// logging chain, plus an auth stage when a Verifier is supplied.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	wire "github.com/shelterops/bedhold/api"
	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/reservation"
	"github.com/shelterops/bedhold/internal/service"
	"github.com/shelterops/bedhold/pkg/auth"
	shelerrors "github.com/shelterops/bedhold/pkg/errors"
	"github.com/shelterops/bedhold/pkg/logging"
	"github.com/shelterops/bedhold/pkg/middleware"
	"github.com/shelterops/bedhold/pkg/streaming"
)

// Sweeper is the subset of internal/expiry.Scheduler the HTTP surface
// needs to offer an on-demand sweep for staff/operator tooling; a nil
// Sweeper disables the route.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Server bundles the handlers and the dependencies they call into.
type Server struct {
	svc          *service.Service
	hub          *streaming.Hub
	logger       logging.Logger
	auth         auth.Verifier
	holdDuration time.Duration
	chain        middleware.Middleware
	wsServer     *streaming.WebSocketServer
	sseServer    *streaming.SSEServer
	sweeper      Sweeper
}

// New builds a Server. verifier may be nil to disable the WithAuth
// stage (e.g. local development).
func New(svc *service.Service, hub *streaming.Hub, logger logging.Logger, verifier auth.Verifier, holdDuration time.Duration) *Server {
	stages := []middleware.Middleware{
		middleware.WithRequestID(),
		middleware.WithRecovery(logger),
		middleware.WithLogging(logger),
	}
	if verifier != nil {
		stages = append(stages, middleware.WithAuth(verifier))
	}
	return &Server{
		svc:          svc,
		hub:          hub,
		logger:       logger,
		auth:         verifier,
		holdDuration: holdDuration,
		chain:        middleware.Chain(stages...),
		wsServer:     streaming.NewWebSocketServer(hub, logger),
		sseServer:    streaming.NewSSEServer(hub, logger),
	}
}

// WithSweeper attaches an on-demand expiration sweep to the server,
// exposed at POST /api/expire/sweep for operator tooling (shelterctl
// expire sweep). Returns s for chaining.
func (s *Server) WithSweeper(sweeper Sweeper) *Server {
	s.sweeper = sweeper
	return s
}

// Router builds the mux.Router for the full route table (spec §6),
// every route wrapped in the same middleware chain.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter().StrictSlash(false)
	r.Handle("/health", s.wrap(s.handleHealth)).Methods(http.MethodGet)
	r.Handle("/ready", s.wrap(s.handleReady)).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Handle("/beds/", s.wrap(s.handleBedSummary)).Methods(http.MethodGet)
	apiRouter.Handle("/beds/list", s.wrap(s.handleBedList)).Methods(http.MethodGet)
	apiRouter.Handle("/beds/{id}/hold", s.wrap(s.handleHold)).Methods(http.MethodPost)
	apiRouter.Handle("/beds/{id}/checkin", s.wrap(s.handleCheckIn)).Methods(http.MethodPost)
	apiRouter.Handle("/beds/{id}/checkout", s.wrap(s.handleCheckOut)).Methods(http.MethodPost)
	apiRouter.Handle("/beds/{id}/assign", s.wrap(s.handleAssign)).Methods(http.MethodPost)
	apiRouter.Handle("/reservations/", s.wrap(s.handleListActive)).Methods(http.MethodGet)
	apiRouter.Handle("/reservations/", s.wrap(s.handleCreate)).Methods(http.MethodPost)
	apiRouter.Handle("/reservations/{code}/cancel", s.wrap(s.handleCancel)).Methods(http.MethodPost)
	apiRouter.Handle("/expire/sweep", s.wrap(s.handleExpireSweep)).Methods(http.MethodPost)

	r.Handle("/ws/dashboard", s.wrap(s.handleDashboardWS))
	r.Handle("/sse/dashboard", s.wrap(s.handleDashboardSSE)).Methods(http.MethodGet)

	return r
}

func (s *Server) wrap(f http.HandlerFunc) http.Handler {
	return s.chain(f)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleBedSummary(w http.ResponseWriter, r *http.Request) {
	counts := s.svc.BedSummary()
	writeJSON(w, http.StatusOK, wire.BedSummary{
		Available: counts[bed.Available],
		Held:      counts[bed.Held],
		Occupied:  counts[bed.Occupied],
		Total:     counts[bed.Available] + counts[bed.Held] + counts[bed.Occupied],
	})
}

func (s *Server) handleBedList(w http.ResponseWriter, r *http.Request) {
	beds := s.svc.BedList()
	out := make([]wire.Bed, len(beds))
	for i, b := range beds {
		out[i] = wire.Bed{ID: b.ID, Status: string(b.Status)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	bedID, err := bedIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Hold(bedID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "held"})
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	bedID, err := bedIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	reservationID := r.URL.Query().Get("reservation_id")
	if reservationID == "" {
		writeError(w, shelerrors.Validation("reservation_id", "reservation_id query parameter is required"))
		return
	}

	updated, err := s.svc.CheckIn(reservationID, bedID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWireReservation(updated))
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	bedID, err := bedIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req wire.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, shelerrors.Validation("body", "invalid JSON body"))
		return
	}
	if err := s.svc.Assign(bedID, req.GuestID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	bedID, err := bedIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.CheckOut(bedID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "available"})
}

func (s *Server) handleListActive(w http.ResponseWriter, r *http.Request) {
	active, asOf, err := s.svc.ListActive()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]wire.Reservation, len(active))
	for i, res := range active {
		out[i] = toWireReservation(res)
	}
	writeJSON(w, http.StatusOK, wire.ActiveReservationsResponse{Reservations: out, AsOf: asOf})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req wire.ReserveBedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, shelerrors.Validation("body", "invalid JSON body"))
		return
	}
	if req.CallerName == "" {
		writeError(w, shelerrors.Validation("caller_name", "caller_name is required"))
		return
	}

	created, err := s.svc.Create(r.Context(), req.CallerName, req.Situation, req.Needs, req.Language, s.holdDuration)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWireReservation(created))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := s.svc.Cancel(code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleExpireSweep(w http.ResponseWriter, r *http.Request) {
	if s.sweeper == nil {
		writeError(w, shelerrors.New(shelerrors.KindUnavailable, "on-demand expiration sweep is not configured on this server"))
		return
	}
	expired := s.sweeper.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

func bedIDFromPath(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shelerrors.Validation("id", "bed id must be an integer")
	}
	return id, nil
}

func toWireReservation(r *reservation.Reservation) wire.Reservation {
	return wire.Reservation{
		Code:       r.Code,
		BedID:      r.BedID,
		CallerName: r.CallerName,
		Situation:  r.Situation,
		Needs:      r.Needs,
		Language:   r.Language,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
		TerminalAt: r.TerminalAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	se := shelerrors.As(err)
	writeJSON(w, shelerrors.HTTPStatus(se.Kind), wire.ErrorResponse{
		Kind:    string(se.Kind),
		Message: se.Message,
		Field:   se.Field,
	})
}
