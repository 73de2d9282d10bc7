package handlers

import (
	"log/slog"
	"net/http"

	"ticket-seating/internal/services"
	"ticket-seating/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	events    EventService
	publisher services.Publisher
	logger    *slog.Logger
}

func NewAdminHandler(events EventService, publisher services.Publisher, logger *slog.Logger) *AdminHandler {
	if publisher == nil {
		publisher = services.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{events: events, publisher: publisher, logger: logger}
}

// UpdateSeatingMap - Replace the seating map of an event (superusers only)
func (h *AdminHandler) UpdateSeatingMap(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	var m models.SeatingMap
	if err := e.BindBody(&m); err != nil {
		return apis.NewBadRequestError("Invalid seating map", err)
	}

	ctx := e.Request.Context()
	if err := h.events.UpdateSeatingMap(ctx, eventID, &m); err != nil {
		return apiError(err)
	}

	seats := len(m.Index())
	if err := h.publisher.Publish(ctx, services.RoutingSeatingMapUpdated, map[string]any{
		"event_id": eventID,
		"sections": len(m.Sections),
		"seats":    seats,
	}); err != nil {
		h.logger.Warn("Failed to publish seating map update", "event_id", eventID, "error", err)
	}

	h.logger.Info("Seating map updated", "event_id", eventID, "sections", len(m.Sections), "seats", seats)
	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"sections": len(m.Sections),
		"seats":    seats,
	})
}
