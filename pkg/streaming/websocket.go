// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shelterops/bedhold/pkg/logging"
)

// WebSocketServer upgrades /ws/dashboard connections and relays Hub
// events to each one as JSON frames.
type WebSocketServer struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewWebSocketServer builds a WebSocketServer fed by hub.
func NewWebSocketServer(hub *Hub, logger logging.Logger) *WebSocketServer {
	return &WebSocketServer{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The dashboard is served from the same origin as the API
				// in every deployment this engine targets.
				return true
			},
		},
		logger: logger,
	}
}

// HandleWebSocket upgrades the connection and streams Hub events to it
// until the client disconnects or the request context is cancelled.
func (ws *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := ws.hub.Subscribe()
	defer unsubscribe()

	go ws.drainClient(conn, cancel)

	ws.relay(ctx, conn, events)
}

// drainClient reads (and discards) client frames so gorilla/websocket's
// control-frame handling (ping/pong/close) keeps working, and cancels
// the relay loop once the client goes away.
func (ws *WebSocketServer) drainClient(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// relay writes Hub events to conn until ctx is done, interleaving a
// keepalive ping so idle dashboard tabs don't get reaped by a proxy.
func (ws *WebSocketServer) relay(ctx context.Context, conn *websocket.Conn, events <-chan Event) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				ws.logger.Warn("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
