package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/signal_level_engine/internal/domain"
	"github.com/vitos/signal_level_engine/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	service *usecase.TradingService
	audit   domain.AuditRepository
	logger  *zap.Logger
}

func NewServer(
	port int,
	service *usecase.TradingService,
	audit domain.AuditRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		service: service,
		audit:   audit,
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Engine status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Levels
	s.router.HandleFunc("GET /levels", s.handleLevels)
	s.router.HandleFunc("GET /levels/completed", s.handleCompletedLevels)

	// Orders
	s.router.HandleFunc("GET /orders", s.handleOrders)

	// Cycles
	s.router.HandleFunc("GET /cycles", s.handleCycles)

	// Audit trail
	s.router.HandleFunc("GET /events", s.handleEvents)

	// Controls
	s.router.HandleFunc("POST /close-all", s.handleCloseAll)
	s.router.HandleFunc("POST /reconcile", s.handleReconcile)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
