package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vitos/okx_spot_terminal/internal/domain"
	"github.com/vitos/okx_spot_terminal/internal/infrastructure/exchange"
)

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.service.Markets(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, markets)
}

type tickerRow struct {
	domain.Ticker
	ChangePct float64 `json:"change_pct"`
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	tickers := s.service.Tickers()
	rows := make([]tickerRow, 0, len(tickers))
	for _, t := range tickers {
		rows = append(rows, tickerRow{
			Ticker:    t,
			ChangePct: exchange.PercentChange(t.LastPrice, t.Open24h),
		})
	}
	s.writeJSON(w, rows)
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	instID := r.URL.Query().Get("inst_id")
	bar := domain.Bar(r.URL.Query().Get("bar"))
	if bar == "" {
		bar = domain.Bar1m
	}
	if instID == "" {
		s.writeError(w, &domain.ValidationError{Field: "inst_id", Reason: "required"})
		return
	}
	if !bar.Valid() {
		s.writeError(w, &domain.ValidationError{Field: "bar", Reason: "unknown interval"})
		return
	}
	s.writeJSON(w, s.service.Candles(instID, bar))
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InstID string     `json:"inst_id"`
		Bar    domain.Bar `json:"bar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &domain.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	if req.Bar == "" {
		req.Bar = domain.Bar1m
	}
	if err := s.service.Watch(r.Context(), req.InstID, req.Bar); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]string{"inst_id": req.InstID, "bar": string(req.Bar)})
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.OpenOrders())
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &domain.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	ack, err := s.service.PlaceOrder(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, ack)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	instID := r.URL.Query().Get("inst_id")
	ack, err := s.service.CancelOrder(r.Context(), instID, orderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, ack)
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := s.service.OrderHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	s.writeJSON(w, orders)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.service.Balance(r.Context(), r.URL.Query().Get("ccy"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, balance)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validation *domain.ValidationError
		auth       *domain.AuthError
		exch       *domain.ExchangeError
		transport  *domain.TransportError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &auth):
		status = http.StatusUnauthorized
	case errors.As(err, &exch):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &transport):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.logger.Error("request failed", zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
