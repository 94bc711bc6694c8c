package payment

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/carrypal/internal/db"
)

// newTestWallet connects to CARRYPAL_TEST_DSN; without it the wallet tests
// are skipped.
func newTestWallet(t *testing.T) (*Wallet, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("CARRYPAL_TEST_DSN")
	if dsn == "" {
		t.Skip("CARRYPAL_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.EnsureSchema(ctx, pool))
	return NewWallet(pool), pool
}

func fundedCapture(t *testing.T, w *Wallet) (payer, payee string, r Receipt) {
	t.Helper()
	ctx := context.Background()
	payer, payee = "s-"+uuid.NewString(), "t-"+uuid.NewString()
	_, err := w.TopUp(ctx, payer, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = w.GetBalance(ctx, payee)
	require.NoError(t, err)

	r, err = w.Capture(ctx, Charge{Payer: payer, Amount: decimal.NewFromInt(40), Reference: "m-" + uuid.NewString()})
	require.NoError(t, err)
	return payer, payee, r
}

func TestWallet_PayoutMovesEscrowOnce(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWallet(t)
	payer, payee, r := fundedCapture(t, w)

	p := Payout{Payee: payee, Amount: r.Amount, Reference: "m1", CaptureID: r.ID}
	require.NoError(t, w.Payout(ctx, p))
	require.NoError(t, w.Payout(ctx, p))

	got, err := w.GetBalance(ctx, payee)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(got.Balance), got.Balance.String())

	got, err = w.GetBalance(ctx, payer)
	require.NoError(t, err)
	assert.True(t, got.Escrow.IsZero())
	assert.True(t, decimal.NewFromInt(60).Equal(got.Balance))
}

func TestWallet_PayoutRefusesShortEscrow(t *testing.T) {
	ctx := context.Background()
	w, pool := newTestWallet(t)
	payer, payee, r := fundedCapture(t, w)

	_, err := pool.Exec(ctx, `UPDATE wallets SET escrow = 10 WHERE user_id = $1`, payer)
	require.NoError(t, err)

	err = w.Payout(ctx, Payout{Payee: payee, Amount: r.Amount, Reference: "m1", CaptureID: r.ID})
	assert.ErrorIs(t, err, ErrDeclined)

	got, err := w.GetBalance(ctx, payee)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero(), "payee must not be credited")

	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM payment_captures WHERE id = $1`, r.ID).Scan(&status))
	assert.Equal(t, captureHeld, status)
}

func TestWallet_VoidRefusesShortEscrow(t *testing.T) {
	ctx := context.Background()
	w, pool := newTestWallet(t)
	payer, _, r := fundedCapture(t, w)

	_, err := pool.Exec(ctx, `UPDATE wallets SET escrow = 0 WHERE user_id = $1`, payer)
	require.NoError(t, err)

	assert.ErrorIs(t, w.Void(ctx, r.ID), ErrDeclined)
	got, err := w.GetBalance(ctx, payer)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(got.Balance), "balance unchanged")
}
