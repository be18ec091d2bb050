package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/deal-redemption/internal/service"
)

// VendorHandler serves the vendor's PIN display and PIN issuance.
type VendorHandler struct {
	Pins *service.PinService
}

func NewVendorHandler(pins *service.PinService) *VendorHandler {
	if pins == nil {
		panic("nil pin service passed to NewVendorHandler")
	}
	return &VendorHandler{Pins: pins}
}

// CurrentPin handles GET /v1/vendors/deals/:id/current-pin.  The route is
// wrapped in middleware.NoStore.
func (h *VendorHandler) CurrentPin(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal id"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	cur, err := h.Pins.CurrentPin(ctx, userID, dealID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"dealId":                  cur.DealID,
		"dealTitle":               cur.DealTitle,
		"currentPin":              cur.CurrentPin,
		"nextRotationAt":          cur.NextRotationAt.UTC().Format(time.RFC3339),
		"rotationIntervalSeconds": cur.RotationIntervalSeconds,
		"isActive":                cur.IsActive,
	})
}

type issuePinReq struct {
	Pin string `json:"pin"`
}

// IssuePin handles POST /v1/vendors/deals/:id/pin.  An empty body or pin
// generates a random PIN.  The plaintext is returned only in this
// response.
func (h *VendorHandler) IssuePin(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal id"})
	}
	var req issuePinReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	issued, err := h.Pins.IssuePin(ctx, userID, dealID, req.Pin)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusCreated, echo.Map{
		"dealId":    issued.DealID,
		"pin":       issued.Pin,
		"createdAt": issued.CreatedAt.UTC().Format(time.RFC3339),
		"expiresAt": issued.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
