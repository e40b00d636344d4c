package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/investment-ledger-core/internal/domain/schedtask"
	"github.com/investment-ledger-core/internal/domain/settings"
)

// AdminHandler exposes the platform settings store and the scheduler run log
type AdminHandler struct {
	logger       *slog.Logger
	settingsRepo settings.Repository
	taskRepo     schedtask.Repository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, settingsRepo settings.Repository, taskRepo schedtask.Repository) *AdminHandler {
	return &AdminHandler{
		logger:       logger,
		settingsRepo: settingsRepo,
		taskRepo:     taskRepo,
	}
}

// GetSettings handles GET /api/v1/admin/settings, returning the effective
// settings with defaults applied
func (h *AdminHandler) GetSettings(c *gin.Context) {
	cfg, err := h.settingsRepo.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load settings", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, cfg)
}

// UpdateSetting handles PUT /api/v1/admin/settings. The new value takes
// effect on the next evaluation; nothing caches settings.
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	if !validSettingKey(req.Key) {
		RespondBadRequest(c, "unknown setting key: "+req.Key)
		return
	}

	if err := h.settingsRepo.Set(c.Request.Context(), req.Key, req.Value); err != nil {
		h.logger.Error("Failed to update setting", "key", req.Key, "error", err)
		RespondInternalError(c)
		return
	}

	cfg, err := h.settingsRepo.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to reload settings", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, cfg)
}

// ListTasks handles GET /api/v1/admin/tasks, the scheduler run log
func (h *AdminHandler) ListTasks(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	tasks, err := h.taskRepo.ListRecent(c.Request.Context(), params.Limit)
	if err != nil {
		h.logger.Error("Failed to list scheduled tasks", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"tasks": tasks})
}

func validSettingKey(key string) bool {
	switch key {
	case settings.KeyLargeDepositThreshold,
		settings.KeyLargeWithdrawalThreshold,
		settings.KeyRapidTxCount,
		settings.KeyRapidWindowMinutes,
		settings.KeyDepositApprovalThreshold,
		settings.KeyAutoApproveWithdrawals,
		settings.KeyWithdrawalFeePercent,
		settings.KeyYieldPayoutsEnabled:
		return true
	}
	return false
}
