package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
	"stockledger/internal/infrastructure/storage/postgres"
)

// DetailHandler handles transaction detail registration, movement
// generation and reversal.
type DetailHandler struct {
	*BaseHandler
	service   *ledger.Service
	movements ledger.MovementRepository
	audit     *postgres.AuditService
}

// NewDetailHandler creates a new detail handler.
func NewDetailHandler(base *BaseHandler, service *ledger.Service, movements ledger.MovementRepository, audit *postgres.AuditService) *DetailHandler {
	return &DetailHandler{
		BaseHandler: base,
		service:     service,
		movements:   movements,
		audit:       audit,
	}
}

// Register handles POST /details. Creates the detail line and generates
// its ledger movements in one transaction. Redelivery of the same detail
// replays the original movement set.
func (h *DetailHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.RegisterDetailRequest
	if !h.BindJSON(c, &req) {
		return
	}

	policy, err := resolvePolicy(req.NegativeStockPolicy)
	if err != nil {
		h.Error(c, err)
		return
	}

	detail, err := req.ToDetail(companyID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product or location ID").WithCause(err))
		return
	}

	movements, err := h.service.RegisterDetail(ctx, detail, policy)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.DetailResponse{
		Detail:    detail,
		Movements: dto.FromMovements(movements),
	})
}

// List handles GET /details. Lists the detail lines referencing one
// transaction header.
func (h *DetailHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	headerID := c.Query("headerId")
	txType := entity.TransactionType(c.Query("transactionType"))

	details, err := h.service.ListDetailsByHeader(ctx, companyID, headerID, txType)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: details, TotalCount: len(details)})
}

// Get handles GET /details/:id. Returns the detail with every movement
// it produced, compensations included.
func (h *DetailHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	detailID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetDetail(ctx, detailID)
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.movements.GetByDetailID(ctx, detailID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DetailResponse{
		Detail:    detail,
		Movements: dto.FromMovements(movements),
	})
}

// Generate handles POST /details/:id/generate. Regenerates movements for
// an already registered detail; idempotent per detail.
func (h *DetailHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	detailID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetDetail(ctx, detailID)
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.service.Generate(ctx, detail)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MovementListResponse{Items: dto.FromMovements(movements)})
}

// Reverse handles POST /details/:id/reverse. Writes compensating
// movements; replay returns the existing compensation set.
func (h *DetailHandler) Reverse(c *gin.Context) {
	ctx := c.Request.Context()

	detailID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReverseRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	compensations, err := h.service.Reverse(ctx, detailID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MovementListResponse{Items: dto.FromMovements(compensations)})
}

// AuditHistory handles GET /details/:id/audit.
func (h *DetailHandler) AuditHistory(c *gin.Context) {
	ctx := c.Request.Context()

	detailID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.GetDetailHistory(ctx, detailID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{Items: entries, TotalCount: len(entries)})
}

// resolvePolicy maps the request policy name to a StockPolicy override.
// Empty means the configured rules apply.
func resolvePolicy(name string) (ledger.StockPolicy, error) {
	switch name {
	case "":
		return nil, nil
	case "strict":
		return ledger.StrictStockPolicy{}, nil
	case "permissive":
		return ledger.PermissiveStockPolicy{}, nil
	default:
		return nil, apperror.NewValidation("unknown negative stock policy").
			WithDetail("negativeStockPolicy", name)
	}
}
