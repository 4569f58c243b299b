package handler

import (
	"net/http"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/notifier"
)

// EventsHandler streams move notifications to observers
type EventsHandler struct {
	hub *notifier.Hub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *notifier.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /api/v1/events (Server-Sent Events)
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	notifier.ServeSSE(w, r, h.hub)
}

// WebSocket handles GET /api/v1/ws
func (h *EventsHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	notifier.ServeWS(w, r, h.hub)
}
