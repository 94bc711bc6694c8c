package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/match"
	mware "github.com/sudo-init-do/carrypal/internal/middleware"
	"github.com/sudo-init-do/carrypal/internal/review"
)

// vocabulary picks how statuses are rendered: canonical (default) or the
// simplified lowercase names.
type vocabulary bool

const simpleVocabulary vocabulary = true

func vocabularyOf(c echo.Context) (vocabulary, error) {
	switch c.QueryParam("vocabulary") {
	case "", "canonical":
		return false, nil
	case "simple":
		return simpleVocabulary, nil
	default:
		return false, apperr.Validation("vocabulary must be canonical or simple")
	}
}

// requireVocabulary rejects an unknown vocabulary before the handler runs,
// so a bad query parameter never follows a committed transition.
func requireVocabulary(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := vocabularyOf(c); err != nil {
			return err
		}
		return next(c)
	}
}

func (v vocabulary) status(s match.Status) string {
	if s == "" {
		return ""
	}
	if v == simpleVocabulary {
		return s.Simple()
	}
	return string(s)
}

type matchResponse struct {
	match.Match
	Status       string `json:"status"`
	DisputedFrom string `json:"disputed_from,omitempty"`
}

func (v vocabulary) match(m match.Match) matchResponse {
	return matchResponse{Match: m, Status: v.status(m.Status), DisputedFrom: v.status(m.DisputedFrom)}
}

type transitionResponse struct {
	match.Transition
	From string `json:"from"`
	To   string `json:"to"`
}

// respondMatch renders m in the caller's vocabulary.
func respondMatch(c echo.Context, status int, m match.Match) error {
	v, err := vocabularyOf(c)
	if err != nil {
		return err
	}
	return c.JSON(status, v.match(m))
}

type proposeRequest struct {
	PackageID string `json:"package_id"`
	TripID    string `json:"trip_id"`
	// Reward defaults to the package's offered reward.
	Reward *decimal.Decimal `json:"reward"`
}

func (h *handlers) propose(c echo.Context) error {
	var req proposeRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if req.PackageID == "" || req.TripID == "" {
		return apperr.Validation("package_id and trip_id are required")
	}
	ctx := c.Request().Context()
	pkg, err := h.Listings.GetPackage(ctx, req.PackageID)
	if err != nil {
		return err
	}
	trip, err := h.Listings.GetTrip(ctx, req.TripID)
	if err != nil {
		return err
	}
	reward := pkg.Reward
	if req.Reward != nil {
		reward = *req.Reward
	}

	m, err := h.Matches.Propose(ctx, match.ProposeInput{
		ActorID:    mware.UserID(c),
		SenderID:   pkg.SenderID,
		TravelerID: trip.TravelerID,
		PackageID:  pkg.ID,
		TripID:     trip.ID,
		Reward:     reward,
	})
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusCreated, m)
}

func (h *handlers) listMatches(c echo.Context) error {
	v, err := vocabularyOf(c)
	if err != nil {
		return err
	}
	var status match.Status
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := match.ParseStatus(raw)
		if !ok {
			return apperr.Validation("unknown status %q", raw)
		}
		status = st
	}
	ms, err := h.Matches.ListForUser(c.Request().Context(), mware.UserID(c), status)
	if err != nil {
		return err
	}
	out := make([]matchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, v.match(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"matches": out})
}

func (h *handlers) getMatch(c echo.Context) error {
	m, err := h.Matches.Get(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) history(c echo.Context) error {
	v, err := vocabularyOf(c)
	if err != nil {
		return err
	}
	ts, err := h.Matches.History(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	out := make([]transitionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, transitionResponse{Transition: t, From: v.status(t.From), To: v.status(t.To)})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out})
}

func (h *handlers) accept(c echo.Context) error {
	m, err := h.Matches.Accept(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) decline(c echo.Context) error {
	m, err := h.Matches.Decline(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

type payRequest struct {
	PaymentRef string `json:"payment_ref"`
}

func (h *handlers) pay(c echo.Context) error {
	var req payRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	m, err := h.Matches.Pay(c.Request().Context(), c.Param("id"), mware.UserID(c), req.PaymentRef)
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) confirmPickup(c echo.Context) error {
	m, err := h.Matches.ConfirmPickup(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) markInTransit(c echo.Context) error {
	m, err := h.Matches.MarkInTransit(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) confirmDelivery(c echo.Context) error {
	m, err := h.Matches.ConfirmDelivery(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) confirmReceipt(c echo.Context) error {
	m, err := h.Matches.ConfirmReceipt(c.Request().Context(), c.Param("id"), mware.UserID(c))
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) cancel(c echo.Context) error {
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	m, err := h.Matches.Cancel(c.Request().Context(), c.Param("id"), mware.UserID(c), req.Reason)
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) dispute(c echo.Context) error {
	var req reasonRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	m, err := h.Matches.RaiseDispute(c.Request().Context(), c.Param("id"), mware.UserID(c), req.Reason)
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

type resolveRequest struct {
	Outcome string `json:"outcome"`
}

func (h *handlers) resolve(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	m, err := h.Matches.ResolveDispute(c.Request().Context(), c.Param("id"), mware.UserID(c), req.Outcome)
	if err != nil {
		return err
	}
	return respondMatch(c, http.StatusOK, m)
}

func (h *handlers) createReview(c echo.Context) error {
	var req review.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	r, err := h.Reviews.Create(c.Request().Context(), c.Param("id"), mware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}
