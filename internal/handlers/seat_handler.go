package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"ticket-seating/internal/seating"
	"ticket-seating/internal/services"
	"ticket-seating/internal/status"
	"ticket-seating/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type SeatHandler struct {
	events     EventService
	selections SelectionService
}

func NewSeatHandler(events EventService, selections SelectionService) *SeatHandler {
	return &SeatHandler{
		events:     events,
		selections: selections,
	}
}

// GetSeating - Seating chart scene with live statuses and the session selection.
// A request without a session id starts a new session. The optional width and
// height query parameters size the initial view; zoom, pan_x and pan_y adjust
// it from there.
func (h *SeatHandler) GetSeating(e *core.RequestEvent) error {
	sessionID := e.Request.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = utils.NewSessionID()
	} else if !utils.IsValidSessionID(sessionID) {
		return apiError(status.ErrInvalidSession)
	}

	ctx := e.Request.Context()
	event, err := h.events.GetEvent(ctx, e.Request.PathValue("eventId"))
	if err != nil {
		return apiError(err)
	}

	scene, sel, err := h.selections.Scene(ctx, event, sessionID)
	if errors.Is(err, status.ErrNoSeatingMap) {
		return e.JSON(http.StatusOK, map[string]any{
			"event_id":   event.ID,
			"session_id": sessionID,
			"flow":       services.FlowSimple,
		})
	}
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":   event.ID,
		"session_id": sessionID,
		"flow":       services.FlowSeating,
		"scene":      scene,
		"view":       requestedView(e, scene),
		"selection":  sel,
		"total":      sel.Total(),
	})
}

func requestedView(e *core.RequestEvent, scene *seating.Scene) seating.ViewTransform {
	q := e.Request.URL.Query()
	view := seating.IdentityView()
	width, errW := strconv.ParseFloat(q.Get("width"), 64)
	height, errH := strconv.ParseFloat(q.Get("height"), 64)
	if errW == nil && errH == nil {
		view = seating.Fit(scene.ViewBox, width, height)
	}

	// zoom keeps the middle of the chart in place
	if factor, err := strconv.ParseFloat(q.Get("zoom"), 64); err == nil {
		box := scene.ViewBox
		center := view.Apply(seating.Point{X: box.X + box.Width/2, Y: box.Y + box.Height/2})
		view = view.Zoom(factor, center.X, center.Y)
	}
	dx, _ := strconv.ParseFloat(q.Get("pan_x"), 64)
	dy, _ := strconv.ParseFloat(q.Get("pan_y"), 64)
	return view.Pan(dx, dy)
}

// ToggleSeat - Select or deselect one seat, by key or by a click point. A
// point is in screen coordinates of the given view.
func (h *SeatHandler) ToggleSeat(e *core.RequestEvent) error {
	var req struct {
		SessionID string                 `json:"session_id"`
		SeatKey   string                 `json:"seat_key"`
		Point     *seating.Point         `json:"point"`
		View      *seating.ViewTransform `json:"view"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if !utils.IsValidSessionID(req.SessionID) {
		return apiError(status.ErrInvalidSession)
	}
	if req.SeatKey == "" && req.Point == nil {
		return apis.NewBadRequestError("seat_key or point is required", nil)
	}

	ctx := e.Request.Context()
	event, err := h.events.GetEvent(ctx, e.Request.PathValue("eventId"))
	if err != nil {
		return apiError(err)
	}

	var result *services.ToggleResult
	if req.SeatKey != "" {
		result, err = h.selections.Toggle(ctx, event, req.SessionID, req.SeatKey)
	} else {
		view := seating.IdentityView()
		if req.View != nil {
			view = *req.View
		}
		result, err = h.selections.ToggleAt(ctx, event, req.SessionID, view.Invert(*req.Point))
	}
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, result)
}

// GetSelection - Seats currently selected by a session
func (h *SeatHandler) GetSelection(e *core.RequestEvent) error {
	sessionID := e.Request.URL.Query().Get("session_id")
	if !utils.IsValidSessionID(sessionID) {
		return apiError(status.ErrInvalidSession)
	}

	sel, err := h.selections.Load(e.Request.Context(), e.Request.PathValue("eventId"), sessionID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"seats": sel.Items(),
		"count": sel.Len(),
		"total": sel.Total(),
	})
}

// SetTickets - Ticket quantity of one type, for events without a seating map
func (h *SeatHandler) SetTickets(e *core.RequestEvent) error {
	var req struct {
		SessionID    string `json:"session_id"`
		TicketTypeID string `json:"ticket_type_id"`
		Quantity     int    `json:"quantity"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if !utils.IsValidSessionID(req.SessionID) {
		return apiError(status.ErrInvalidSession)
	}

	ctx := e.Request.Context()
	event, err := h.events.GetEvent(ctx, e.Request.PathValue("eventId"))
	if err != nil {
		return apiError(err)
	}

	q, err := h.selections.SetQuantity(ctx, event, req.SessionID, req.TicketTypeID, req.Quantity)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"tickets": q.Items(),
		"total":   q.Total(),
	})
}
