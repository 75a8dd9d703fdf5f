// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shelterops/bedhold/pkg/logging"
)

// SSEServer offers the same dashboard feed as WebSocketServer over
// Server-Sent Events, for clients behind proxies that block websocket
// upgrades.
type SSEServer struct {
	hub    *Hub
	logger logging.Logger
}

// NewSSEServer builds an SSEServer fed by hub.
func NewSSEServer(hub *Hub, logger logging.Logger) *SSEServer {
	return &SSEServer{hub: hub, logger: logger}
}

// HandleSSE streams Hub events as text/event-stream until the client
// disconnects.
func (sse *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := sse.hub.Subscribe()
	defer unsubscribe()

	sse.writeEvent(w, flusher, "connected", map[string]string{"status": "connected"})

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			sse.writeEvent(w, flusher, string(ev.Type), ev)
		}
	}
}

func (sse *SSEServer) writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		sse.logger.Warn("failed to marshal SSE payload", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", name)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
