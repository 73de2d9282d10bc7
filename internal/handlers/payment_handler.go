package handlers

import (
	"net/http"

	"ticket-seating/internal/status"
	"ticket-seating/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	checkout CheckoutService
}

func NewPaymentHandler(checkout CheckoutService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout}
}

func sessionFromPath(e *core.RequestEvent) (string, error) {
	sessionID := e.Request.PathValue("sessionId")
	if !utils.IsValidSessionID(sessionID) {
		return "", apiError(status.ErrInvalidSession)
	}
	return sessionID, nil
}

// CreateHandoff - Hand the session selection over to checkout
func (h *PaymentHandler) CreateHandoff(e *core.RequestEvent) error {
	var req struct {
		EventID   string `json:"event_id"`
		SessionID string `json:"session_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	record, err := h.checkout.Handoff(e.Request.Context(), req.EventID, req.SessionID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, record)
}

// GetHandoff - Recover the handoff record on the checkout page
func (h *PaymentHandler) GetHandoff(e *core.RequestEvent) error {
	sessionID, err := sessionFromPath(e)
	if err != nil {
		return err
	}

	record, err := h.checkout.GetHandoff(e.Request.Context(), sessionID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, record)
}

// GetCheckout - Checkout state of a session
func (h *PaymentHandler) GetCheckout(e *core.RequestEvent) error {
	sessionID, err := sessionFromPath(e)
	if err != nil {
		return err
	}

	f, err := h.checkout.Flow(e.Request.Context(), sessionID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, f)
}

// RequestPaymentOptions - Payment options for the handed off amount
func (h *PaymentHandler) RequestPaymentOptions(e *core.RequestEvent) error {
	sessionID, err := sessionFromPath(e)
	if err != nil {
		return err
	}

	opts, err := h.checkout.PaymentOptions(e.Request.Context(), sessionID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"session_id": sessionID,
		"options":    opts,
	})
}

// ConfirmPayment - Complete the payment with one of the generated options
func (h *PaymentHandler) ConfirmPayment(e *core.RequestEvent) error {
	sessionID, err := sessionFromPath(e)
	if err != nil {
		return err
	}

	var req struct {
		Method string `json:"method"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Method == "" {
		return apis.NewBadRequestError("method is required", nil)
	}

	payment, err := h.checkout.Confirm(e.Request.Context(), sessionID, req.Method)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, payment)
}

// CancelPayment - Cancel checkout and release the held seats
func (h *PaymentHandler) CancelPayment(e *core.RequestEvent) error {
	sessionID, err := sessionFromPath(e)
	if err != nil {
		return err
	}

	f, err := h.checkout.Cancel(e.Request.Context(), sessionID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"message": "Checkout cancelled",
		"state":   f.State,
	})
}
