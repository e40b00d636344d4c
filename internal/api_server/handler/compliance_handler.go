package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/investment-ledger-core/internal/api_server/middleware"
	"github.com/investment-ledger-core/internal/domain/compliance"
	"github.com/investment-ledger-core/internal/domain/user"
	"github.com/investment-ledger-core/internal/ledger/service"
)

// ComplianceHandler exposes the flag investigation surface to operators
type ComplianceHandler struct {
	logger  *slog.Logger
	service service.AMLService
}

// NewComplianceHandler creates a new compliance handler
func NewComplianceHandler(logger *slog.Logger, svc service.AMLService) *ComplianceHandler {
	return &ComplianceHandler{
		logger:  logger,
		service: svc,
	}
}

// ListFlags handles GET /api/v1/compliance/flags
func (h *ComplianceHandler) ListFlags(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	filter := compliance.ListFilter{Limit: params.Limit, Offset: params.Offset}

	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "invalid user_id filter")
			return
		}
		filter.UserID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status, err := compliance.ParseStatus(raw)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("severity"); raw != "" {
		severity, err := compliance.ParseSeverity(raw)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		filter.Severity = &severity
	}

	flags, err := h.service.ListFlags(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list compliance flags", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"flags": flags})
}

// CreateFlag handles POST /api/v1/compliance/flags, opening a manual flag
func (h *ComplianceHandler) CreateFlag(c *gin.Context) {
	operatorID, _ := middleware.GetUserID(c)

	var req ManualFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "invalid user ID")
		return
	}
	severity, err := compliance.ParseSeverity(req.Severity)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	flag, err := h.service.ManualFlag(c.Request.Context(), operatorID, userID, severity, req.Description)
	if err != nil {
		h.respondComplianceError(c, err)
		return
	}

	RespondCreated(c, flag)
}

// UpdateFlag handles PATCH /api/v1/compliance/flags/:id
func (h *ComplianceHandler) UpdateFlag(c *gin.Context) {
	operatorID, _ := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid flag ID")
		return
	}

	var req UpdateFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	status, err := compliance.ParseStatus(req.Status)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	flag, err := h.service.UpdateFlagStatus(c.Request.Context(), operatorID, id, status, req.Note)
	if err != nil {
		h.respondComplianceError(c, err)
		return
	}

	RespondOK(c, flag)
}

// RiskProfile handles GET /api/v1/compliance/users/:id/risk
func (h *ComplianceHandler) RiskProfile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid user ID")
		return
	}

	profile, err := h.service.GetRiskProfile(c.Request.Context(), userID)
	if err != nil {
		h.respondComplianceError(c, err)
		return
	}

	RespondOK(c, profile)
}

func (h *ComplianceHandler) respondComplianceError(c *gin.Context, err error) {
	var notFound compliance.ErrFlagNotFound
	var closed compliance.ErrFlagClosed
	var userNotFound user.ErrUserNotFound

	switch {
	case errors.As(err, &notFound), errors.As(err, &userNotFound):
		RespondNotFound(c, err.Error())
	case errors.As(err, &closed):
		RespondConflict(c, err.Error())
	default:
		h.logger.Error("Compliance operation failed", "error", err)
		RespondInternalError(c)
	}
}
