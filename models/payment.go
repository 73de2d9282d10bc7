package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods offered at checkout.
const (
	PaymentMethodQRCode       = "qr_code"
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodBankTransfer = "bank_transfer"
)

var PaymentMethods = []string{PaymentMethodQRCode, PaymentMethodCreditCard, PaymentMethodBankTransfer}

type PaymentOption struct {
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type Payment struct {
	ID            string          `json:"payment_id"`
	SessionID     string          `json:"session_id"`
	EventID       string          `json:"event_id"`
	Seats         []string        `json:"seats,omitempty"`
	Tickets       map[string]int  `json:"tickets,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`         // pending, completed, cancelled
	PaymentMethod string          `json:"payment_method"` // qr_code, credit_card, bank_transfer
	Reference     string          `json:"reference,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
