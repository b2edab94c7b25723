// README: Order handlers for checkout, lookup and the delivery lifecycle.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ravito/internal/http/middleware"
	"ravito/internal/modules/order"
	"ravito/internal/types"
)

type OrderService interface {
	Create(ctx context.Context, cmd order.CreateCommand) (*order.Order, error)
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	Cancel(ctx context.Context, cmd order.CancelCommand) (*order.Order, error)
	Accept(ctx context.Context, orderID, supplierID types.ID) (*order.Order, error)
	StartDelivery(ctx context.Context, orderID, supplierID types.ID) (*order.Order, error)
	Deliver(ctx context.Context, orderID, supplierID types.ID) (*order.Order, error)
	ListPending(ctx context.Context, supplierID types.ID) ([]order.Order, error)
}

type OrderHandler struct {
	order OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	ZoneID   string       `json:"zone_id" binding:"required"`
	Delivery *types.Point `json:"delivery" binding:"required"`
	Items    []order.Item `json:"items"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.ZoneID) {
		writeError(c, http.StatusBadRequest, "invalid zone id")
		return
	}
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		ClientID: types.ID(middleware.CallerUID(c)),
		ZoneID:   types.ID(req.ZoneID),
		Delivery: *req.Delivery,
		Items:    req.Items,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	uid := types.ID(middleware.CallerUID(c))
	switch middleware.CallerRole(c) {
	case middleware.RoleAdmin:
	case middleware.RoleSupplier:
		if o.SupplierID != uid {
			writeOrderError(c, order.ErrForbidden)
			return
		}
	default:
		if o.ClientID != uid {
			writeOrderError(c, order.ErrForbidden)
			return
		}
	}
	writeJSON(c, http.StatusOK, o)
}

type cancelOrderReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req cancelOrderReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	actorType := order.ActorClient
	if middleware.CallerRole(c) == middleware.RoleAdmin {
		actorType = order.ActorAdmin
	}
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID: types.ID(id),
		Actor:   order.Actor{ID: types.ID(middleware.CallerUID(c)), Type: actorType},
		Reason:  req.Reason,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Accept(c *gin.Context) {
	h.supplierAction(c, h.order.Accept)
}

func (h *OrderHandler) Start(c *gin.Context) {
	h.supplierAction(c, h.order.StartDelivery)
}

func (h *OrderHandler) Deliver(c *gin.Context) {
	h.supplierAction(c, h.order.Deliver)
}

func (h *OrderHandler) supplierAction(c *gin.Context, action func(context.Context, types.ID, types.ID) (*order.Order, error)) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := action(c.Request.Context(), types.ID(id), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order_id": o.ID, "status": o.Status})
}

func (h *OrderHandler) ListPending(c *gin.Context) {
	orders, err := h.order.ListPending(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}
