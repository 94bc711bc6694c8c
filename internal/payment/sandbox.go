package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sandbox is an in-memory provider that accepts everything unless told
// otherwise. Used by the memory storage mode and by tests.
type Sandbox struct {
	mu       sync.Mutex
	captures map[string]Charge
	voided   map[string]bool
	paid     map[string]bool
	payouts  []Payout

	failNext map[string]bool
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		captures: make(map[string]Charge),
		voided:   make(map[string]bool),
		paid:     make(map[string]bool),
		failNext: make(map[string]bool),
	}
}

// FailNext arranges for the next call of op to return ErrDeclined.
func (s *Sandbox) FailNext(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = true
}

func (s *Sandbox) shouldFail(op string) bool {
	if s.failNext[op] {
		delete(s.failNext, op)
		return true
	}
	return false
}

func (s *Sandbox) Capture(ctx context.Context, c Charge) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail("capture") {
		return Receipt{}, ErrDeclined
	}
	if !c.Amount.IsPositive() {
		return Receipt{}, fmt.Errorf("capture amount must be positive")
	}
	id := "cap_" + uuid.NewString()
	s.captures[id] = c
	return Receipt{ID: id, Amount: c.Amount}, nil
}

// Payout is idempotent per capture.
func (s *Sandbox) Payout(ctx context.Context, p Payout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail("payout") {
		return ErrDeclined
	}
	if _, ok := s.captures[p.CaptureID]; !ok || s.voided[p.CaptureID] {
		return fmt.Errorf("unknown capture %q", p.CaptureID)
	}
	if s.paid[p.CaptureID] {
		return nil
	}
	s.paid[p.CaptureID] = true
	s.payouts = append(s.payouts, p)
	return nil
}

func (s *Sandbox) Void(ctx context.Context, captureID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail("void") {
		return ErrDeclined
	}
	if _, ok := s.captures[captureID]; !ok || s.paid[captureID] {
		return fmt.Errorf("unknown capture %q", captureID)
	}
	s.voided[captureID] = true
	return nil
}

// Captured returns the total captured and not voided.
func (s *Sandbox) Captured() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for id, c := range s.captures {
		if !s.voided[id] {
			total = total.Add(c.Amount)
		}
	}
	return total
}

// Payouts returns a copy of the payouts made so far.
func (s *Sandbox) Payouts() []Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payout(nil), s.payouts...)
}
