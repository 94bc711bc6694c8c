package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/carrypal/internal/apperr"
)

// kindRateLimited is transport-only; the core never produces it.
const kindRateLimited apperr.Kind = "RateLimited"

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotAuthorized:     http.StatusForbidden,
	apperr.KindInvalidTransition: http.StatusConflict,
	apperr.KindEscrowConflict:    http.StatusConflict,
	apperr.KindEscrowTerminal:    http.StatusConflict,
	apperr.KindPayment:           http.StatusPaymentRequired,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindUnauthenticated:   http.StatusUnauthorized,
	apperr.KindInternal:          http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// errorHandler renders every error as {"error": {"kind", "message"}}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[http][ERROR] %s %s: %v", c.Request().Method, c.Path(), err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"error": body})
	}
	if err != nil {
		log.Printf("[http][ERROR] write error response: %v", err)
	}
}

func classify(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		var ae *apperr.Error
		if errors.As(he.Internal, &ae) {
			return classify(ae)
		}
		kind := kindForStatus(he.Code)
		msg, ok := he.Message.(string)
		if !ok || kind == apperr.KindInternal {
			msg = http.StatusText(he.Code)
		}
		return he.Code, errorBody{Kind: kind, Message: msg}
	}

	kind := apperr.KindOf(err)
	return StatusFor(kind), errorBody{Kind: kind, Message: apperr.PublicMessage(err)}
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.KindNotFound
	case http.StatusUnauthorized:
		return apperr.KindUnauthenticated
	case http.StatusForbidden:
		return apperr.KindNotAuthorized
	case http.StatusTooManyRequests:
		return kindRateLimited
	}
	if status < http.StatusInternalServerError {
		return apperr.KindValidation
	}
	return apperr.KindInternal
}

func invalidBody() error {
	return apperr.Validation("invalid request body")
}
