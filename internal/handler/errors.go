package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iliyamo/deal-redemption/internal/pin"
	"github.com/iliyamo/deal-redemption/internal/repository"
	"github.com/iliyamo/deal-redemption/internal/service"
)

// writeError maps a service error to a status and a caller-safe message.
// Anything unrecognised is logged with its stack and reported as 500.
func writeError(c echo.Context, err error) error {
	var rl *service.RateLimitError
	if errors.As(err, &rl) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":         rl.Message,
			"nextAttemptAt": rl.NextAttemptAt.UTC().Format(time.RFC3339),
		})
	}
	var du *service.DealUnavailableError
	if errors.As(err, &du) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": du.Reason})
	}

	switch {
	case errors.Is(err, service.ErrInvalidFormat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "PIN must be exactly 4 digits"})
	case errors.Is(err, service.ErrInvalidPin):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid PIN"})
	case errors.Is(err, service.ErrInvalidBill):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Bill amount and savings must be positive numbers"})
	case errors.Is(err, service.ErrClaimNotVerified):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Claim has not been verified with a PIN"})
	case errors.Is(err, service.ErrInvalidLocation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid latitude or longitude"})
	case errors.Is(err, pin.ErrHashing):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to set PIN"})
	case errors.Is(err, service.ErrMembershipInsufficient):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Your membership level does not include this deal"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrDealNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Deal not found"})
	case errors.Is(err, service.ErrClaimNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "No claim found for this deal"})
	case errors.Is(err, service.ErrAttemptLogUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "PIN verification is temporarily unavailable"})
	}

	zerolog.Ctx(c.Request().Context()).Error().Stack().Err(err).
		Str("path", c.Path()).
		Msg("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
