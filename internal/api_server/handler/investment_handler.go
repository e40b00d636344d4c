package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/api_server/middleware"
	"github.com/investment-ledger-core/internal/domain/investment"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/investment-ledger-core/internal/ledger/service"
	"github.com/shopspring/decimal"
)

// InvestmentHandler handles investment creation and queries
type InvestmentHandler struct {
	logger  *slog.Logger
	service service.InvestmentService
}

// NewInvestmentHandler creates a new investment handler
func NewInvestmentHandler(logger *slog.Logger, svc service.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{
		logger:  logger,
		service: svc,
	}
}

// Create handles POST /api/v1/investments
func (h *InvestmentHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		RespondBadRequest(c, "invalid project ID")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "invalid amount")
		return
	}
	apy, err := decimal.NewFromString(req.APY)
	if err != nil {
		RespondBadRequest(c, "invalid apy")
		return
	}

	inv, err := h.service.CreateInvestment(c.Request.Context(), userID, projectID, amount, apy, req.TermMonths)
	if err != nil {
		h.respondInvestmentError(c, err)
		return
	}

	RespondCreated(c, inv)
}

// GetByID handles GET /api/v1/investments/:id. Users see only their own
// investments; admins see any.
func (h *InvestmentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid investment ID")
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondInvestmentError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	if inv.UserID != userID && middleware.GetRole(c) != middleware.RoleAdmin {
		RespondNotFound(c, "")
		return
	}

	RespondOK(c, inv)
}

// List handles GET /api/v1/investments, returning the caller's investments
func (h *InvestmentHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	investments, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list investments", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"investments": investments})
}

func (h *InvestmentHandler) respondInvestmentError(c *gin.Context, err error) {
	var notFound investment.ErrInvestmentNotFound

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, investment.ErrInvalidPrincipal), errors.Is(err, investment.ErrInvalidPlan):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Investment operation failed", "error", err)
		RespondInternalError(c)
	}
}
