package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	mware "github.com/sudo-init-do/carrypal/internal/middleware"
)

func (h *handlers) walletBalance(c echo.Context) error {
	bal, err := h.Wallet.GetBalance(c.Request().Context(), mware.UserID(c))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to fetch balance")
	}
	return c.JSON(http.StatusOK, bal)
}

func (h *handlers) walletTransactions(c echo.Context) error {
	txs, err := h.Wallet.Transactions(c.Request().Context(), mware.UserID(c))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to fetch transactions")
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": nonNil(txs)})
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// walletTopUp credits the caller directly; there is no card flow behind it.
func (h *handlers) walletTopUp(c echo.Context) error {
	var req topUpRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if !req.Amount.IsPositive() {
		return apperr.Validation("amount must be greater than zero")
	}
	bal, err := h.Wallet.TopUp(c.Request().Context(), mware.UserID(c), req.Amount)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "top-up failed")
	}
	return c.JSON(http.StatusOK, bal)
}
