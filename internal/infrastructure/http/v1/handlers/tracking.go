package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// TrackingHandler handles per-product tracking configuration and batch
// registry maintenance.
type TrackingHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewTrackingHandler creates a new tracking handler.
func NewTrackingHandler(base *BaseHandler, service *ledger.Service) *TrackingHandler {
	return &TrackingHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Get handles GET /products/:productId/tracking. Unconfigured products
// report the untracked default.
func (h *TrackingHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	tracking, err := h.service.GetTracking(ctx, companyID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTracking(tracking))
}

// Set handles PUT /products/:productId/tracking.
func (h *TrackingHandler) Set(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	var req dto.SetTrackingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tracking := entity.ProductTracking{
		CompanyID:  companyID,
		ProductID:  productID,
		Mode:       entity.TrackingMode(req.Mode),
		Allocation: entity.AllocationPolicy(req.Allocation),
	}
	if err := h.service.SetTracking(ctx, tracking); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTracking(tracking))
}

// SetBatchExpiry handles PUT /products/:productId/batches/:batchNumber/expiry.
// The expiry date drives FEFO ordering on the next allocation.
func (h *TrackingHandler) SetBatchExpiry(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	batchNumber := c.Param("batchNumber")
	if batchNumber == "" {
		h.Error(c, apperror.NewValidation("batch number is required"))
		return
	}

	var req dto.SetBatchExpiryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId format"))
		return
	}

	if err := h.service.SetBatchExpiry(ctx, companyID, productID, locationID, batchNumber, req.ExpiresAt.UTC()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "expiry updated")
}
