package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/api_server/middleware"
	"github.com/investment-ledger-core/internal/domain/transaction"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/investment-ledger-core/internal/ledger/service"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles deposit/withdrawal requests and the admin
// review endpoints
type TransactionHandler struct {
	logger  *slog.Logger
	service service.TransactionService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, svc service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		logger:  logger,
		service: svc,
	}
}

// Deposit handles POST /api/v1/transactions/deposit
func (h *TransactionHandler) Deposit(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "invalid amount")
		return
	}

	txn, err := h.service.RequestDeposit(c.Request.Context(), userID, amount, req.Method)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	RespondCreated(c, txn)
}

// Withdraw handles POST /api/v1/transactions/withdraw
func (h *TransactionHandler) Withdraw(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "invalid amount")
		return
	}

	txn, err := h.service.RequestWithdrawal(c.Request.Context(), userID, amount, req.Method, req.ToAddress)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	RespondCreated(c, txn)
}

// GetByID handles GET /api/v1/transactions/:id. Users see only their own
// transactions; admins see any.
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid transaction ID")
		return
	}

	txn, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	if txn.UserID != userID && middleware.GetRole(c) != middleware.RoleAdmin {
		RespondNotFound(c, "")
		return
	}

	RespondOK(c, txn)
}

// List handles GET /api/v1/transactions. Regular users are pinned to their
// own history; admins may filter by any user, status and type.
func (h *TransactionHandler) List(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	filter := transaction.ListFilter{Limit: params.Limit, Offset: params.Offset}

	callerID, _ := middleware.GetUserID(c)
	if middleware.GetRole(c) == middleware.RoleAdmin {
		if raw := c.Query("user_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				RespondBadRequest(c, "invalid user_id filter")
				return
			}
			filter.UserID = &id
		}
	} else {
		filter.UserID = &callerID
	}

	if raw := c.Query("status"); raw != "" {
		status, err := transaction.ParseStatus(raw)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("type"); raw != "" {
		txType, err := transaction.ParseType(raw)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		filter.Type = &txType
	}

	txns, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list transactions", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"transactions": txns})
}

// Approve handles POST /api/v1/transactions/:id/approve
func (h *TransactionHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

// Reject handles POST /api/v1/transactions/:id/reject
func (h *TransactionHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

func (h *TransactionHandler) review(c *gin.Context, decide func(ctx context.Context, adminID, transactionID uuid.UUID, note string) (*transaction.Transaction, error)) {
	adminID, _ := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid transaction ID")
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondBadRequest(c, err.Error())
		return
	}

	txn, err := decide(c.Request.Context(), adminID, id, req.Note)
	if err != nil {
		h.respondTransactionError(c, err)
		return
	}

	RespondOK(c, txn)
}

func (h *TransactionHandler) respondTransactionError(c *gin.Context, err error) {
	var notFound transaction.ErrTransactionNotFound
	var processed transaction.ErrAlreadyProcessed

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, err.Error())
	case errors.As(err, &processed):
		RespondConflict(c, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, transaction.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidAmount):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Transaction operation failed", "error", err)
		RespondInternalError(c)
	}
}
