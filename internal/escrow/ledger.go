package escrow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/payment"
)

// Ledger applies escrow operations to records and drives the payment
// provider. It mutates the record it is given; callers persist it.
type Ledger struct {
	provider payment.Provider
	now      func() time.Time
}

func NewLedger(provider payment.Provider) *Ledger {
	return &Ledger{provider: provider, now: time.Now}
}

// WithClock overrides the ledger's time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func terminalErr(rec *Record) error {
	return apperr.New(apperr.KindEscrowTerminal, "escrow for match %s is already %s", rec.MatchID, rec.State)
}

func conflictErr(rec *Record, op string) error {
	return apperr.New(apperr.KindEscrowConflict, "cannot %s escrow in state %s", op, rec.State)
}

// Hold captures amount from payer. Holding again with the same amount is a
// no-op; a different amount is a conflict.
func (l *Ledger) Hold(ctx context.Context, rec *Record, payer string, amount decimal.Decimal, token string) error {
	if rec.State.Terminal() {
		return terminalErr(rec)
	}
	if !amount.IsPositive() {
		return apperr.Validation("escrow amount must be positive")
	}
	if rec.State != StateNone {
		if rec.Amount.Equal(amount) {
			return nil
		}
		return apperr.New(apperr.KindEscrowConflict,
			"escrow already holds %s, refusing to hold %s", rec.Amount.StringFixed(2), amount.StringFixed(2))
	}

	receipt, err := l.provider.Capture(ctx, payment.Charge{
		Payer:     payer,
		Amount:    amount,
		Reference: rec.MatchID,
		Token:     token,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindPayment, err, "payment capture failed")
	}
	rec.Amount = amount
	rec.CaptureID = receipt.ID
	rec.State = StateHeld
	rec.UpdatedAt = l.now()
	return nil
}

// MarkPendingRelease flags held funds as awaiting the sender's confirmation.
func (l *Ledger) MarkPendingRelease(rec *Record) error {
	if rec.State.Terminal() {
		return terminalErr(rec)
	}
	if rec.State != StateHeld {
		return conflictErr(rec, "mark pending release")
	}
	rec.State = StatePendingRelease
	rec.UpdatedAt = l.now()
	return nil
}

// Release pays the held amount out to payee. Irreversible.
func (l *Ledger) Release(ctx context.Context, rec *Record, payee string) error {
	if rec.State.Terminal() {
		return terminalErr(rec)
	}
	if !rec.State.Funded() {
		return conflictErr(rec, "release")
	}
	if err := l.provider.Payout(ctx, payment.Payout{
		Payee:     payee,
		Amount:    rec.Amount,
		Reference: rec.MatchID,
		CaptureID: rec.CaptureID,
	}); err != nil {
		return apperr.Wrap(apperr.KindPayment, err, "payout failed")
	}
	rec.State = StateReleased
	rec.UpdatedAt = l.now()
	return nil
}

// Refund returns the held amount to the payer. Irreversible.
func (l *Ledger) Refund(ctx context.Context, rec *Record) error {
	if rec.State.Terminal() {
		return terminalErr(rec)
	}
	if rec.State != StateHeld && rec.State != StateDisputedHold {
		return conflictErr(rec, "refund")
	}
	if err := l.provider.Void(ctx, rec.CaptureID); err != nil {
		return apperr.Wrap(apperr.KindPayment, err, "refund failed")
	}
	rec.State = StateRefunded
	rec.UpdatedAt = l.now()
	return nil
}

// Freeze locks held funds while a dispute is open.
func (l *Ledger) Freeze(rec *Record) error {
	if rec.State.Terminal() {
		return terminalErr(rec)
	}
	if rec.State != StateHeld && rec.State != StatePendingRelease {
		return conflictErr(rec, "freeze")
	}
	rec.State = StateDisputedHold
	rec.UpdatedAt = l.now()
	return nil
}
