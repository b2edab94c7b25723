// README: Supplier self-service handlers (device token and depot location).
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ravito/internal/http/middleware"
	"ravito/internal/types"
)

type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, supplierID types.ID, token string) error
}

type DepotUpdater interface {
	UpdateDepot(ctx context.Context, supplierID types.ID, p types.Point) error
}

type SupplierHandler struct {
	devices DeviceRegistrar
	depots  DepotUpdater
}

func NewSupplierHandler(devices DeviceRegistrar, depots DepotUpdater) *SupplierHandler {
	return &SupplierHandler{devices: devices, depots: depots}
}

type deviceReq struct {
	Token string `json:"token" binding:"required"`
}

func (h *SupplierHandler) RegisterDevice(c *gin.Context) {
	var req deviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.devices.RegisterDevice(c.Request.Context(), types.ID(middleware.CallerUID(c)), req.Token); err != nil {
		writeOrderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SupplierHandler) UpdateDepot(c *gin.Context) {
	var p types.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.depots.UpdateDepot(c.Request.Context(), types.ID(middleware.CallerUID(c)), p); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}
