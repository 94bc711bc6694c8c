// Package payment is the boundary to the payment rails. The escrow ledger
// captures the sender's funds on hold, pays the traveler out on release and
// voids the capture on refund.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDeclined is returned by providers when the rails refuse an operation.
var ErrDeclined = errors.New("payment declined")

// Charge asks the provider to take Amount from Payer.
type Charge struct {
	Payer     string
	Amount    decimal.Decimal
	Reference string // match id
	Token     string // client-supplied payment reference
}

// Receipt identifies a successful capture.
type Receipt struct {
	ID     string
	Amount decimal.Decimal
}

// Payout sends captured funds to Payee.
type Payout struct {
	Payee     string
	Amount    decimal.Decimal
	Reference string
	CaptureID string
}

// Provider is the payment-provider collaborator.
type Provider interface {
	Capture(ctx context.Context, c Charge) (Receipt, error)
	Payout(ctx context.Context, p Payout) error
	// Void returns a capture to its payer.
	Void(ctx context.Context, captureID string) error
}
