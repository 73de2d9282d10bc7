package handlers

import (
	"net/http"

	"ticket-seating/internal/services"
	"ticket-seating/models"

	"github.com/pocketbase/pocketbase/core"
)

type EventHandler struct {
	events EventService
}

func NewEventHandler(events EventService) *EventHandler {
	return &EventHandler{events: events}
}

// ListEvents - Published events ordered by start date
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	events, err := h.events.ListPublished(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return e.JSON(http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}

// GetEvent - Event details plus the booking flow the client should open
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	event, err := h.events.GetEvent(e.Request.Context(), e.Request.PathValue("eventId"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"event": event,
		"flow":  services.BookingFlowFor(event),
	})
}
