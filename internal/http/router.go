// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ravito/internal/http/handlers"
	"ravito/internal/http/middleware"
	"ravito/internal/infra"
)

type RouterDeps struct {
	Verifier infra.TokenVerifier
	Orders   handlers.OrderService
	Quotes   handlers.Previewer
	Devices  handlers.DeviceRegistrar
	Depots   handlers.DepotUpdater
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	quoteHandler := handlers.NewQuoteHandler(deps.Quotes)
	supplierHandler := handlers.NewSupplierHandler(deps.Devices, deps.Depots)

	clients := middleware.RequireRole(middleware.RoleClient)
	suppliers := middleware.RequireRole(middleware.RoleSupplier)

	api.POST("/delivery/quote", clients, quoteHandler.Quote)

	api.POST("/orders", clients, orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/cancel", middleware.RequireRole(middleware.RoleClient, middleware.RoleAdmin), orderHandler.Cancel)
	api.POST("/orders/:id/accept", suppliers, orderHandler.Accept)
	api.POST("/orders/:id/start", suppliers, orderHandler.Start)
	api.POST("/orders/:id/deliver", suppliers, orderHandler.Deliver)

	me := api.Group("/suppliers/me", suppliers)
	me.GET("/orders/pending", orderHandler.ListPending)
	me.PUT("/device", supplierHandler.RegisterDevice)
	me.PUT("/depot", supplierHandler.UpdateDepot)

	return r
}
