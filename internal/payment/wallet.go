package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Wallet settles escrow against the platform's own wallets table: capture
// moves the payer's balance into their escrow column, payout moves it to the
// payee's balance and void hands it back.
type Wallet struct {
	pool *pgxpool.Pool
}

func NewWallet(pool *pgxpool.Pool) *Wallet {
	return &Wallet{pool: pool}
}

// Transaction is one wallet ledger line.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Balance is a user's spendable and escrowed funds.
type Balance struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
	Escrow  decimal.Decimal `json:"escrow"`
}

func (w *Wallet) Capture(ctx context.Context, c Charge) (Receipt, error) {
	if !c.Amount.IsPositive() {
		return Receipt{}, fmt.Errorf("capture amount must be positive")
	}
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("begin capture: %w", err)
	}
	defer tx.Rollback(ctx)

	var balanceText string
	err = tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE user_id = $1 FOR UPDATE`, c.Payer).Scan(&balanceText)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, fmt.Errorf("%w: payer has no wallet", ErrDeclined)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("load payer wallet: %w", err)
	}
	balance, err := decimal.NewFromString(balanceText)
	if err != nil {
		return Receipt{}, fmt.Errorf("parse balance: %w", err)
	}
	if balance.LessThan(c.Amount) {
		return Receipt{}, fmt.Errorf("%w: insufficient balance", ErrDeclined)
	}

	amount := c.Amount.String()
	if _, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1::numeric, escrow = escrow + $1::numeric WHERE user_id = $2`,
		amount, c.Payer,
	); err != nil {
		return Receipt{}, fmt.Errorf("move funds to escrow: %w", err)
	}

	captureID := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO payment_captures (id, payer_id, amount, reference, token, status, created_at)
		 VALUES ($1, $2, $3::numeric, $4, $5, 'held', $6)`,
		captureID, c.Payer, amount, c.Reference, c.Token, time.Now(),
	); err != nil {
		return Receipt{}, fmt.Errorf("record capture: %w", err)
	}
	if err := logTransaction(ctx, tx, c.Payer, amount, "debit", "escrow_hold", c.Reference); err != nil {
		return Receipt{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, fmt.Errorf("commit capture: %w", err)
	}
	return Receipt{ID: captureID, Amount: c.Amount}, nil
}

// Payout moves a held capture to the payee. Paying out an already paid-out
// capture is a no-op, so a retried release settles once.
func (w *Wallet) Payout(ctx context.Context, p Payout) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin payout: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := lockCapture(ctx, tx, p.CaptureID)
	if err != nil {
		return err
	}
	if c.status == capturePaidOut {
		return nil
	}
	if c.status != captureHeld {
		return fmt.Errorf("capture %s already %s", p.CaptureID, c.status)
	}
	ct, err := tx.Exec(ctx,
		`UPDATE wallets SET escrow = escrow - $1::numeric WHERE user_id = $2 AND escrow >= $1::numeric`,
		c.amount, c.payer,
	)
	if err != nil {
		return fmt.Errorf("deduct payer escrow: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: payer escrow does not cover %s", ErrDeclined, c.amount)
	}
	ct, err = tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1::numeric WHERE user_id = $2`, c.amount, p.Payee)
	if err != nil {
		return fmt.Errorf("credit payee: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: payee has no wallet", ErrDeclined)
	}
	if _, err := tx.Exec(ctx, `UPDATE payment_captures SET status = $2 WHERE id = $1`, p.CaptureID, capturePaidOut); err != nil {
		return fmt.Errorf("update capture: %w", err)
	}
	if err := logTransaction(ctx, tx, c.payer, c.amount, "debit", "escrow_release", p.Reference); err != nil {
		return err
	}
	if err := logTransaction(ctx, tx, p.Payee, c.amount, "credit", "success", p.Reference); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit payout: %w", err)
	}
	return nil
}

// Void returns a held capture to its payer. Voiding twice is a no-op.
func (w *Wallet) Void(ctx context.Context, captureID string) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin void: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := lockCapture(ctx, tx, captureID)
	if err != nil {
		return err
	}
	if c.status == captureVoided {
		return nil
	}
	if c.status != captureHeld {
		return fmt.Errorf("capture %s already %s", captureID, c.status)
	}
	ct, err := tx.Exec(ctx,
		`UPDATE wallets SET escrow = escrow - $1::numeric, balance = balance + $1::numeric
		 WHERE user_id = $2 AND escrow >= $1::numeric`,
		c.amount, c.payer,
	)
	if err != nil {
		return fmt.Errorf("refund escrow: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: payer escrow does not cover %s", ErrDeclined, c.amount)
	}
	if _, err := tx.Exec(ctx, `UPDATE payment_captures SET status = $2 WHERE id = $1`, captureID, captureVoided); err != nil {
		return fmt.Errorf("update capture: %w", err)
	}
	if err := logTransaction(ctx, tx, c.payer, c.amount, "credit", "refund", c.reference); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit void: %w", err)
	}
	return nil
}

const (
	captureHeld     = "held"
	capturePaidOut = "paid_out"
	captureVoided   = "voided"
)

type capture struct {
	payer, amount, reference, status string
}

// lockCapture loads a capture under a row lock.
func lockCapture(ctx context.Context, tx pgx.Tx, captureID string) (capture, error) {
	var c capture
	err := tx.QueryRow(ctx,
		`SELECT payer_id, amount::text, reference, status FROM payment_captures WHERE id = $1 FOR UPDATE`, captureID,
	).Scan(&c.payer, &c.amount, &c.reference, &c.status)
	if errors.Is(err, pgx.ErrNoRows) {
		return capture{}, fmt.Errorf("capture %s not found", captureID)
	}
	if err != nil {
		return capture{}, fmt.Errorf("load capture: %w", err)
	}
	return c, nil
}

func logTransaction(ctx context.Context, tx pgx.Tx, userID, amount, kind, status, reference string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, user_id, amount, type, status, reference, created_at)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`,
		uuid.NewString(), userID, amount, kind, status, reference, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("record %s transaction: %w", status, err)
	}
	return nil
}

// GetBalance returns the wallet for userID, creating an empty one if needed.
func (w *Wallet) GetBalance(ctx context.Context, userID string) (Balance, error) {
	if _, err := w.pool.Exec(ctx,
		`INSERT INTO wallets (user_id, balance, escrow, created_at) VALUES ($1, 0, 0, NOW())
		 ON CONFLICT (user_id) DO NOTHING`, userID,
	); err != nil {
		return Balance{}, fmt.Errorf("ensure wallet: %w", err)
	}
	var bal, esc string
	if err := w.pool.QueryRow(ctx,
		`SELECT balance::text, escrow::text FROM wallets WHERE user_id = $1`, userID,
	).Scan(&bal, &esc); err != nil {
		return Balance{}, fmt.Errorf("load wallet: %w", err)
	}
	out := Balance{UserID: userID}
	out.Balance, _ = decimal.NewFromString(bal)
	out.Escrow, _ = decimal.NewFromString(esc)
	return out, nil
}

// TopUp credits a wallet directly. Stands in for a card top-up flow.
func (w *Wallet) TopUp(ctx context.Context, userID string, amount decimal.Decimal) (Balance, error) {
	if !amount.IsPositive() {
		return Balance{}, fmt.Errorf("top-up amount must be positive")
	}
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return Balance{}, fmt.Errorf("begin top-up: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO wallets (user_id, balance, escrow, created_at) VALUES ($1, $2::numeric, 0, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance`,
		userID, amount.String(),
	); err != nil {
		return Balance{}, fmt.Errorf("credit wallet: %w", err)
	}
	if err := logTransaction(ctx, tx, userID, amount.String(), "credit", "topup", ""); err != nil {
		return Balance{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Balance{}, fmt.Errorf("commit top-up: %w", err)
	}
	return w.GetBalance(ctx, userID)
}

// Transactions lists a user's wallet history, newest first.
func (w *Wallet) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := w.pool.Query(ctx,
		`SELECT id, user_id, amount::text, type, status, COALESCE(reference, ''), created_at
		 FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.UserID, &amount, &t.Type, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount, _ = decimal.NewFromString(amount)
		out = append(out, t)
	}
	return out, rows.Err()
}
