// Package httpapi exposes the marketplace over HTTP with echo.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/sudo-init-do/carrypal/internal/auth"
	"github.com/sudo-init-do/carrypal/internal/discovery"
	"github.com/sudo-init-do/carrypal/internal/listing"
	"github.com/sudo-init-do/carrypal/internal/match"
	mware "github.com/sudo-init-do/carrypal/internal/middleware"
	"github.com/sudo-init-do/carrypal/internal/notify"
	"github.com/sudo-init-do/carrypal/internal/payment"
	"github.com/sudo-init-do/carrypal/internal/realtime"
	"github.com/sudo-init-do/carrypal/internal/review"
	"github.com/sudo-init-do/carrypal/internal/user"
)

// Wallet is the optional wallet surface, present with Postgres storage.
type Wallet interface {
	GetBalance(ctx context.Context, userID string) (payment.Balance, error)
	Transactions(ctx context.Context, userID string) ([]payment.Transaction, error)
	TopUp(ctx context.Context, userID string, amount decimal.Decimal) (payment.Balance, error)
}

// Deps are the collaborators the routes call into. Hub, Wallet and Ready are
// optional.
type Deps struct {
	Matches   *match.Service
	Listings  *listing.Service
	Discovery *discovery.Engine
	Reviews   *review.Service
	Users     *user.Directory
	Notifier  *notify.Notifier
	Tokens    *auth.Tokens

	Hub    *realtime.Hub
	Wallet Wallet
	Ready  func(ctx context.Context) error

	// RateLimit is requests per second per IP on mutating match routes.
	// Zero disables limiting.
	RateLimit float64
}

type handlers struct {
	Deps
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	h := &handlers{Deps: d}

	e.GET("/health", h.health)
	e.GET("/ready", h.ready)

	e.GET("/users/:id/profile", h.publicProfile)
	e.GET("/users/:id/reviews", h.userReviews)

	api := e.Group("")
	api.Use(mware.JWT(d.Tokens))

	api.GET("/users/me", h.me)
	api.PATCH("/users/me", h.updateProfile)

	api.POST("/trips", h.createTrip)
	api.GET("/trips/me", h.myTrips)
	api.GET("/trips/:id", h.getTrip)
	api.POST("/trips/:id/close", h.closeTrip)
	api.POST("/packages", h.createPackage)
	api.GET("/packages/me", h.myPackages)
	api.GET("/packages/:id", h.getPackage)
	api.POST("/packages/:id/close", h.closePackage)

	api.GET("/discovery", h.discover)

	matches := api.Group("/matches", requireVocabulary)
	if d.RateLimit > 0 {
		limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(d.RateLimit)))
		matches.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			limited := limiter(next)
			return func(c echo.Context) error {
				if c.Request().Method == http.MethodGet {
					return next(c)
				}
				return limited(c)
			}
		})
	}
	matches.POST("", h.propose)
	matches.GET("", h.listMatches)
	matches.GET("/:id", h.getMatch)
	matches.GET("/:id/history", h.history)
	matches.POST("/:id/accept", h.accept)
	matches.POST("/:id/decline", h.decline)
	matches.POST("/:id/pay", h.pay)
	matches.POST("/:id/confirm-pickup", h.confirmPickup)
	matches.POST("/:id/in-transit", h.markInTransit)
	matches.POST("/:id/confirm-delivery", h.confirmDelivery)
	matches.POST("/:id/confirm-receipt", h.confirmReceipt)
	matches.POST("/:id/cancel", h.cancel)
	matches.POST("/:id/dispute", h.dispute)
	matches.POST("/:id/resolve", h.resolve, mware.RequireRoles(string(user.RoleArbiter)))
	matches.POST("/:id/review", h.createReview)

	api.GET("/disputes", h.listDisputes, mware.RequireRoles(string(user.RoleArbiter)))

	api.GET("/notifications", h.listNotifications)
	api.GET("/notifications/unread-count", h.unreadCount)
	api.POST("/notifications/:id/read", h.markRead)

	if d.Wallet != nil {
		api.GET("/wallet/balance", h.walletBalance)
		api.GET("/wallet/transactions", h.walletTransactions)
		api.POST("/wallet/topup", h.walletTopUp)
	}
	if d.Hub != nil {
		api.GET("/ws", h.websocket)
	}
	return e
}

func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *handlers) ready(c echo.Context) error {
	if h.Ready != nil {
		if err := h.Ready(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "storage unreachable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

func (h *handlers) websocket(c echo.Context) error {
	return h.Hub.Serve(c.Response(), c.Request(), mware.UserID(c))
}
