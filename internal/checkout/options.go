package checkout

import (
	"fmt"
	"time"

	"ticket-seating/models"

	"github.com/shopspring/decimal"
)

// CodeFunc returns a random code of n bytes, hex encoded.
type CodeFunc func(n int) (string, error)

// BuildOptions creates one payment option per method for amount. Every option
// carries its own reference and expires ttl after now.
func BuildOptions(amount decimal.Decimal, methods []string, now time.Time, ttl time.Duration, code CodeFunc) ([]models.PaymentOption, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("checkout: amount must be positive, got %s", amount)
	}

	opts := make([]models.PaymentOption, 0, len(methods))
	for _, method := range methods {
		ref, err := code(4)
		if err != nil {
			return nil, fmt.Errorf("generate reference: %w", err)
		}
		opts = append(opts, models.PaymentOption{
			Method:    method,
			Reference: fmt.Sprintf("%s-%s", referencePrefix(method), ref),
			Amount:    amount,
			ExpiresAt: now.Add(ttl),
		})
	}
	return opts, nil
}

func referencePrefix(method string) string {
	switch method {
	case models.PaymentMethodQRCode:
		return "QR"
	case models.PaymentMethodCreditCard:
		return "CC"
	case models.PaymentMethodBankTransfer:
		return "BT"
	default:
		return "PAY"
	}
}
