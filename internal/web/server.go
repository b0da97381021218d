package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/okx_spot_terminal/internal/usecase"
)

// Server is the consumer-facing HTTP surface: JSON snapshots of the terminal
// state, order entry, and a websocket pushing live gateway events.
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	service *usecase.TerminalService
	logger  *zap.Logger
}

func NewServer(port int, service *usecase.TerminalService, logger *zap.Logger) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		service: service,
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
	// Market data
	s.router.HandleFunc("GET /api/markets", s.handleMarkets)
	s.router.HandleFunc("GET /api/tickers", s.handleTickers)
	s.router.HandleFunc("GET /api/candles", s.handleCandles)
	s.router.HandleFunc("POST /api/watch", s.handleWatch)

	// Trading
	s.router.HandleFunc("GET /api/orders", s.handleOpenOrders)
	s.router.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	s.router.HandleFunc("DELETE /api/orders/{id}", s.handleCancelOrder)
	s.router.HandleFunc("GET /api/orders/history", s.handleOrderHistory)
	s.router.HandleFunc("GET /api/balance", s.handleBalance)

	// Live events
	s.router.HandleFunc("GET /ws", s.handleStream)
}

// Handler exposes the routing table for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("web server listening", zap.String("addr", s.server.Addr))
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
