package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock-on-hand, turnover and movement history.
// Every answer is a ledger replay; no stored balance exists to serve.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetStock handles GET /stock. Replays the ledger for the requested
// scope, optionally as of a past timestamp.
func (h *StockHandler) GetStock(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	productID, ok := h.ParseIDQuery(c, "productId")
	if !ok {
		return
	}
	if productID == nil {
		h.Error(c, apperror.NewValidation("productId is required"))
		return
	}

	locationID, ok := h.ParseIDQuery(c, "locationId")
	if !ok {
		return
	}

	scope := ledger.Scope{
		CompanyID:  companyID,
		ProductID:  *productID,
		LocationID: locationID,
	}
	if batch := c.Query("batchNumber"); batch != "" {
		scope.BatchNumber = &batch
	}
	if serial := c.Query("serialNumber"); serial != "" {
		scope.SerialNumber = &serial
	}

	asOfPtr, ok := h.ParseTimeQuery(c, "asOf")
	if !ok {
		return
	}
	asOf := time.Now().UTC()
	if asOfPtr != nil {
		asOf = asOfPtr.UTC()
	}

	quantity, err := h.service.ComputeSOH(ctx, scope, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.StockResponse{
		ProductID: productID.String(),
		AsOf:      asOf,
		Quantity:  quantity,
	}
	if locationID != nil {
		s := locationID.String()
		resp.LocationID = &s
	}
	resp.BatchNumber = scope.BatchNumber
	resp.SerialNumber = scope.SerialNumber

	c.JSON(http.StatusOK, resp)
}

// GetTurnover handles GET /stock/turnover.
func (h *StockHandler) GetTurnover(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	fromDate, ok := h.ParseTimeQuery(c, "fromDate")
	if !ok {
		return
	}
	toDate, ok := h.ParseTimeQuery(c, "toDate")
	if !ok {
		return
	}
	if fromDate == nil || toDate == nil {
		h.Error(c, apperror.NewValidation("fromDate and toDate are required"))
		return
	}

	productID, ok := h.ParseIDQuery(c, "productId")
	if !ok {
		return
	}
	locationID, ok := h.ParseIDQuery(c, "locationId")
	if !ok {
		return
	}

	turnover, err := h.service.Turnover(ctx, ledger.TurnoverFilter{
		CompanyID:  companyID,
		ProductID:  productID,
		LocationID: locationID,
		FromDate:   fromDate.UTC(),
		ToDate:     toDate.UTC(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTurnover(turnover, fromDate.UTC(), toDate.UTC()))
}

// GetMovements handles GET /movements. Movement history for a product,
// newest first.
func (h *StockHandler) GetMovements(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	productID, ok := h.ParseIDQuery(c, "productId")
	if !ok {
		return
	}
	if productID == nil {
		h.Error(c, apperror.NewValidation("productId is required"))
		return
	}

	locationID, ok := h.ParseIDQuery(c, "locationId")
	if !ok {
		return
	}
	fromDate, ok := h.ParseTimeQuery(c, "fromDate")
	if !ok {
		return
	}
	toDate, ok := h.ParseTimeQuery(c, "toDate")
	if !ok {
		return
	}

	filter := ledger.MovementFilter{
		LocationID: locationID,
		FromDate:   fromDate,
		ToDate:     toDate,
		Limit:      h.ParseIntQuery(c, "limit", 100),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}
	if batch := c.Query("batchNumber"); batch != "" {
		filter.BatchNumber = &batch
	}
	if dir := c.Query("direction"); dir != "" {
		direction := entity.Direction(dir)
		if direction != entity.DirectionIn && direction != entity.DirectionOut {
			h.Error(c, apperror.NewValidation("direction must be IN or OUT"))
			return
		}
		filter.Direction = &direction
	}

	movements, err := h.service.History(ctx, companyID, *productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MovementListResponse{Items: dto.FromMovements(movements)})
}

// Trace handles GET /trace/:identifier. Full movement lineage for a
// batch or serial number, chronologically.
func (h *StockHandler) Trace(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	identifier := c.Param("identifier")
	movements, err := h.service.TraceLineage(ctx, companyID, identifier)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MovementListResponse{Items: dto.FromMovements(movements)})
}
