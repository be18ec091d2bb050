package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/deal-redemption/internal/geo"
	"github.com/iliyamo/deal-redemption/internal/service"
)

// PublicHandler serves the unauthenticated deal browsing endpoints.
type PublicHandler struct {
	Deals *service.DealService
}

func NewPublicHandler(deals *service.DealService) *PublicHandler {
	if deals == nil {
		panic("nil deal service passed to NewPublicHandler")
	}
	return &PublicHandler{Deals: deals}
}

// ListDeals handles GET /v1/deals.
func (h *PublicHandler) ListDeals(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	deals, err := h.Deals.ListActive(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "deals": deals, "total": len(deals)})
}

// GetDeal handles GET /v1/deals/:id.
func (h *PublicHandler) GetDeal(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deal id"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	d, err := h.Deals.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "deal": d})
}

type nearbyReq struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	MaxDistance float64  `json:"maxDistance"`
	Categories  []string `json:"categories"`
	Limit       int      `json:"limit"`
}

// Nearby handles POST /v1/deals/nearby.  Results are ranked by relevance;
// total counts the matches before the limit was applied.
func (h *PublicHandler) Nearby(c echo.Context) error {
	var req nearbyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Latitude == nil || req.Longitude == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "latitude and longitude are required"})
	}
	cats := make([]string, 0, len(req.Categories))
	for _, cat := range req.Categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			cats = append(cats, cat)
		}
	}
	q := geo.Query{
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
		MaxDistanceKm: req.MaxDistance,
		Categories:    cats,
		Limit:         req.Limit,
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	deals, total, err := h.Deals.Nearby(ctx, q)
	if err != nil {
		return writeError(c, err)
	}
	radius := q.MaxDistanceKm
	if radius <= 0 {
		radius = service.DefaultSearchRadiusKm
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"deals":        deals,
		"total":        total,
		"userLocation": echo.Map{"latitude": q.Latitude, "longitude": q.Longitude},
		"searchRadius": radius,
	})
}
