// Package api_server hosts the HTTP surface of the ledger: wallet reads,
// money-movement requests, the admin review endpoints and the compliance
// console.
package api_server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/investment-ledger-core/internal/api_server/handler"
	"github.com/investment-ledger-core/internal/config"
	"github.com/investment-ledger-core/internal/domain/schedtask"
	"github.com/investment-ledger-core/internal/domain/settings"
	"github.com/investment-ledger-core/internal/domain/wallet"
	"github.com/investment-ledger-core/internal/ledger/service"
)

// Server handles HTTP requests and manages the listener lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server over the given services
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	walletRepo wallet.Repository,
	transactionService service.TransactionService,
	investmentService service.InvestmentService,
	amlService service.AMLService,
	settingsRepo settings.Repository,
	taskRepo schedtask.Repository,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	walletHandler := handler.NewWalletHandler(log, walletRepo)
	transactionHandler := handler.NewTransactionHandler(log, transactionService)
	investmentHandler := handler.NewInvestmentHandler(log, investmentService)
	complianceHandler := handler.NewComplianceHandler(log, amlService)
	adminHandler := handler.NewAdminHandler(log, settingsRepo, taskRepo)

	setupRouter(log, httpRouter, walletHandler, transactionHandler, investmentHandler, complianceHandler, adminHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
