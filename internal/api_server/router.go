package api_server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/investment-ledger-core/internal/api_server/handler"
	"github.com/investment-ledger-core/internal/api_server/middleware"
)

// setupRouter configures API routes and middleware
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	transactionHandler *handler.TransactionHandler,
	investmentHandler *handler.InvestmentHandler,
	complianceHandler *handler.ComplianceHandler,
	adminHandler *handler.AdminHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Identity())

	v1 := r.Group("/api/v1")

	// User surface
	user := v1.Group("", middleware.RequireUser())
	{
		user.GET("/wallet", walletHandler.Get)

		transactions := user.Group("/transactions")
		{
			transactions.POST("/deposit", transactionHandler.Deposit)
			transactions.POST("/withdraw", transactionHandler.Withdraw)
			transactions.GET("", transactionHandler.List)
			transactions.GET("/:id", transactionHandler.GetByID)
		}

		investments := user.Group("/investments")
		{
			investments.POST("", investmentHandler.Create)
			investments.GET("", investmentHandler.List)
			investments.GET("/:id", investmentHandler.GetByID)
		}
	}

	// Admin surface
	admin := v1.Group("", middleware.RequireAdmin())
	{
		admin.POST("/transactions/:id/approve", transactionHandler.Approve)
		admin.POST("/transactions/:id/reject", transactionHandler.Reject)

		compliance := admin.Group("/compliance")
		{
			compliance.GET("/flags", complianceHandler.ListFlags)
			compliance.POST("/flags", complianceHandler.CreateFlag)
			compliance.PATCH("/flags/:id", complianceHandler.UpdateFlag)
			compliance.GET("/users/:id/risk", complianceHandler.RiskProfile)
		}

		admin.GET("/admin/settings", adminHandler.GetSettings)
		admin.PUT("/admin/settings", adminHandler.UpdateSetting)
		admin.GET("/admin/tasks", adminHandler.ListTasks)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
