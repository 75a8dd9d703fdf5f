// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package httpapi

import "net/http"

// handleDashboardWS streams bed/reservation events to a live dashboard
// over a websocket connection (spec §6 Change Notifier consumers).
func (s *Server) handleDashboardWS(w http.ResponseWriter, r *http.Request) {
	s.wsServer.HandleWebSocket(w, r)
}

// handleDashboardSSE offers the same feed over Server-Sent Events for
// clients behind proxies that block websocket upgrades.
func (s *Server) handleDashboardSSE(w http.ResponseWriter, r *http.Request) {
	s.sseServer.HandleSSE(w, r)
}
