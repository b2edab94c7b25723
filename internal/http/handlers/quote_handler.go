// README: Delivery quote preview handler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ravito/internal/modules/location"
	"ravito/internal/modules/matching"
	"ravito/internal/types"
)

type Previewer interface {
	Preview(ctx context.Context, req matching.SelectRequest) (*matching.Selection, error)
}

type QuoteHandler struct {
	matching Previewer
}

func NewQuoteHandler(p Previewer) *QuoteHandler {
	return &QuoteHandler{matching: p}
}

type quoteReq struct {
	ZoneID   string       `json:"zone_id" binding:"required"`
	Delivery *types.Point `json:"delivery" binding:"required"`
}

type quoteResp struct {
	SupplierID   types.ID `json:"supplier_id"`
	DistanceKm   float64  `json:"distance_km"`
	DeliveryCost int64    `json:"delivery_cost"`
	Base         int64    `json:"base"`
	Margin       int64    `json:"platform_margin"`
	Currency     string   `json:"currency"`
}

func (h *QuoteHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.ZoneID) || !location.ValidPoint(*req.Delivery) {
		writeError(c, http.StatusBadRequest, "invalid zone or delivery point")
		return
	}
	sel, err := h.matching.Preview(c.Request.Context(), matching.SelectRequest{
		ZoneID: types.ID(req.ZoneID),
		Client: *req.Delivery,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quoteResp{
		SupplierID:   sel.SupplierID,
		DistanceKm:   sel.Quote.DistanceKm,
		DeliveryCost: sel.Quote.Total,
		Base:         sel.Quote.Base,
		Margin:       sel.Quote.Margin,
		Currency:     sel.Quote.Currency,
	})
}
