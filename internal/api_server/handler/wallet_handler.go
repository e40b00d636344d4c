package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/investment-ledger-core/internal/api_server/middleware"
	"github.com/investment-ledger-core/internal/domain/wallet"
)

// WalletHandler exposes the wallet balance read surface
type WalletHandler struct {
	logger *slog.Logger
	repo   wallet.Repository
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, repo wallet.Repository) *WalletHandler {
	return &WalletHandler{
		logger: logger,
		repo:   repo,
	}
}

// Get handles GET /api/v1/wallet. A user who has never received a credit
// has no wallet row yet; they see a zero balance, not an error.
func (h *WalletHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	w, err := h.repo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		var notFound wallet.ErrWalletNotFound
		if errors.As(err, &notFound) {
			RespondOK(c, wallet.New(userID))
			return
		}
		h.logger.Error("Failed to load wallet", "user_id", userID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, w)
}
