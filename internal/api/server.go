// Package api exposes the REST surface over the vendor service.
//
// The handlers are a thin translation layer: they bind payloads, call the
// service, and map engine error codes to HTTP statuses. All invariants live
// in the engine; nothing here touches metric values directly.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendorpulse/vendorpulse/internal/service"
	"github.com/vendorpulse/vendorpulse/internal/telemetry"
)

// Server wires the gin router to the service layer.
type Server struct {
	router *gin.Engine
	svc    *service.Service
	tel    *telemetry.Registry
}

// NewServer creates the HTTP server. tel may be nil to disable the
// /metrics endpoint.
func NewServer(svc *service.Service, tel *telemetry.Registry, releaseMode bool) *Server {
	if releaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router: gin.New(),
		svc:    svc,
		tel:    tel,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// Router returns the underlying handler for mounting in an http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.tel != nil {
		s.router.GET("/metrics", gin.WrapH(s.tel.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.POST("/vendors", s.createVendor)
		api.GET("/vendors", s.listVendors)
		api.GET("/vendors/:id", s.getVendor)
		api.PUT("/vendors/:id", s.updateVendor)
		api.DELETE("/vendors/:id", s.deleteVendor)
		api.GET("/vendors/:id/performance", s.getPerformance)
		api.GET("/vendors/:id/history", s.listHistory)
		api.POST("/vendors/:id/history", s.recordPerformance)

		api.POST("/purchase_orders", s.createOrder)
		api.GET("/purchase_orders", s.listOrders)
		api.GET("/purchase_orders/:id", s.getOrder)
		api.PUT("/purchase_orders/:id", s.updateOrder)
		api.DELETE("/purchase_orders/:id", s.deleteOrder)
		api.POST("/purchase_orders/:id/acknowledge", s.acknowledgeOrder)
	}
}
