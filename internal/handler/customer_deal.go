package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/deal-redemption/internal/service"
)

// CustomerHandler serves the claim, verify-pin and update-bill flow.  All
// routes sit behind JWTAuth and RequireRole(CUSTOMER).
type CustomerHandler struct {
	Claims *service.ClaimService
}

func NewCustomerHandler(claims *service.ClaimService) *CustomerHandler {
	if claims == nil {
		panic("nil claim service passed to NewCustomerHandler")
	}
	return &CustomerHandler{Claims: claims}
}

// Claim handles POST /v1/deals/:id/claim and creates a pending claim.
func (h *CustomerHandler) Claim(c echo.Context) error {
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

	claim, err := h.Claims.ClaimDeal(ctx, userID, dealID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Deal claimed successfully",
		"claim":   claim,
	})
}

type verifyPinReq struct {
	Pin string `json:"pin"`
}

// VerifyPin handles POST /v1/deals/:id/verify-pin.  Rejections carry an
// error message and, when rate limited, nextAttemptAt.
func (h *CustomerHandler) VerifyPin(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal id"})
	}
	var req verifyPinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Claims.VerifyPin(ctx, service.VerifyPinInput{
		DealID:    dealID,
		UserID:    userID,
		PIN:       req.Pin,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":            true,
		"message":            res.Message,
		"savingsAmount":      res.SavingsAmount,
		"claimId":            res.ClaimID,
		"status":             res.Status,
		"dealTitle":          res.DealTitle,
		"discountPercentage": res.DiscountPercentage,
	})
}

// updateBillReq accepts the realised savings as either actualSavings or
// savings.
type updateBillReq struct {
	BillAmount    *float64 `json:"billAmount"`
	ActualSavings *float64 `json:"actualSavings"`
	Savings       *float64 `json:"savings"`
}

// UpdateBill handles POST /v1/deals/:id/update-bill and completes the
// caller's verified claim.
func (h *CustomerHandler) UpdateBill(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal id"})
	}
	var req updateBillReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	savings := req.ActualSavings
	if savings == nil {
		savings = req.Savings
	}
	if req.BillAmount == nil || savings == nil {
		return writeError(c, service.ErrInvalidBill)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Claims.UpdateBill(ctx, service.UpdateBillInput{
		DealID:     dealID,
		UserID:     userID,
		BillAmount: *req.BillAmount,
		Savings:    *savings,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"message":         "Bill updated successfully",
		"billAmount":      res.BillAmount,
		"actualSavings":   res.ActualSavings,
		"newTotalSavings": res.NewTotalSavings,
	})
}

// MyClaims handles GET /v1/my-claims.
func (h *CustomerHandler) MyClaims(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	claims, err := h.Claims.ListClaims(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"claims": claims, "total": len(claims)})
}
