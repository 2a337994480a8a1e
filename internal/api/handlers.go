package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vendorpulse/vendorpulse/internal/engine"
	"github.com/vendorpulse/vendorpulse/internal/model"
	"github.com/vendorpulse/vendorpulse/internal/service"
)

type createVendorRequest struct {
	Name           string `json:"name" binding:"required"`
	ContactDetails string `json:"contact_details"`
	Address        string `json:"address"`
	VendorCode     string `json:"vendor_code"`
}

type updateVendorRequest struct {
	Name           string `json:"name"`
	ContactDetails string `json:"contact_details"`
	Address        string `json:"address"`
	VendorCode     string `json:"vendor_code"`
}

type createOrderRequest struct {
	VendorID     string          `json:"vendor_id" binding:"required"`
	PONumber     string          `json:"po_number"`
	DeliveryDate time.Time       `json:"delivery_date" binding:"required"`
	Items        json.RawMessage `json:"items"`
	Quantity     int             `json:"quantity"`
	IssueDate    time.Time       `json:"issue_date"`
}

type updateOrderRequest struct {
	DeliveryDate  *time.Time      `json:"delivery_date"`
	Items         json.RawMessage `json:"items"`
	Quantity      *int            `json:"quantity"`
	Status        *string         `json:"status"`
	QualityRating *float64        `json:"quality_rating"`
}

// performanceResponse is the flat metric view the original API exposed.
type performanceResponse struct {
	VendorID            string  `json:"vendor_id"`
	OnTimeDeliveryRate  float64 `json:"on_time_delivery_rate"`
	QualityRatingAvg    float64 `json:"quality_rating_avg"`
	AverageResponseTime float64 `json:"average_response_time"`
	FulfillmentRate     float64 `json:"fulfillment_rate"`
}

func (s *Server) createVendor(c *gin.Context) {
	var req createVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := s.svc.CreateVendor(c.Request.Context(), service.VendorInput{
		Name:           req.Name,
		ContactDetails: req.ContactDetails,
		Address:        req.Address,
		VendorCode:     req.VendorCode,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (s *Server) listVendors(c *gin.Context) {
	vendors, err := s.svc.ListVendors(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if vendors == nil {
		vendors = []model.Vendor{}
	}
	c.JSON(http.StatusOK, vendors)
}

func (s *Server) getVendor(c *gin.Context) {
	v, err := s.svc.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) updateVendor(c *gin.Context) {
	var req updateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := s.svc.UpdateVendor(c.Request.Context(), c.Param("id"), service.VendorInput{
		Name:           req.Name,
		ContactDetails: req.ContactDetails,
		Address:        req.Address,
		VendorCode:     req.VendorCode,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) deleteVendor(c *gin.Context) {
	if err := s.svc.DeleteVendor(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getPerformance(c *gin.Context) {
	v, err := s.svc.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, performanceResponse{
		VendorID:            v.ID,
		OnTimeDeliveryRate:  v.Metrics.OnTimeDeliveryRate,
		QualityRatingAvg:    v.Metrics.QualityRatingAvg,
		AverageResponseTime: v.Metrics.AverageResponseTime,
		FulfillmentRate:     v.Metrics.FulfillmentRate,
	})
}

func (s *Server) listHistory(c *gin.Context) {
	records, err := s.svc.ListPerformanceHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []model.PerformanceRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) recordPerformance(c *gin.Context) {
	rec, err := s.svc.RecordPerformance(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := s.svc.CreatePurchaseOrder(c.Request.Context(), service.OrderInput{
		VendorID:     req.VendorID,
		PONumber:     req.PONumber,
		DeliveryDate: req.DeliveryDate,
		Items:        req.Items,
		Quantity:     req.Quantity,
		IssueDate:    req.IssueDate,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, po)
}

func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.svc.ListPurchaseOrders(c.Request.Context(), c.Query("vendor_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []model.PurchaseOrder{}
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) getOrder(c *gin.Context) {
	po, err := s.svc.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (s *Server) updateOrder(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := service.OrderPatch{
		DeliveryDate:  req.DeliveryDate,
		Items:         req.Items,
		Quantity:      req.Quantity,
		QualityRating: req.QualityRating,
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		patch.Status = &status
	}

	po, err := s.svc.UpdatePurchaseOrder(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.svc.DeletePurchaseOrder(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) acknowledgeOrder(c *gin.Context) {
	res, err := s.svc.AcknowledgePurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeError maps engine error codes to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case engine.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case engine.IsAlreadyAcknowledged(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case engine.IsInvalidState(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
