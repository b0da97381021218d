package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/okx_spot_terminal/internal/domain"
	"github.com/vitos/okx_spot_terminal/internal/usecase"
	"github.com/vitos/okx_spot_terminal/internal/web"
)

type stubStream struct {
	events chan domain.Event
}

func (s *stubStream) Start() error                              { return nil }
func (s *stubStream) Stop()                                     {}
func (s *stubStream) Status() domain.ConnStatus                 { return domain.StatusActive }
func (s *stubStream) Subscribe(sub domain.Subscription) error   { return nil }
func (s *stubStream) Unsubscribe(sub domain.Subscription) error { return nil }
func (s *stubStream) Events() <-chan domain.Event               { return s.events }

type stubExchange struct {
	instruments []domain.Instrument
	placeErr    error
}

func (s *stubExchange) GetInstruments(ctx context.Context, instType string) ([]domain.Instrument, error) {
	return s.instruments, nil
}

func (s *stubExchange) GetTickers(ctx context.Context, instType string) ([]domain.Ticker, error) {
	return nil, nil
}

func (s *stubExchange) GetCandles(ctx context.Context, instID string, bar domain.Bar, limit int, after, before string) ([]domain.Candle, error) {
	return nil, nil
}

func (s *stubExchange) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderAck, error) {
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	return &domain.OrderAck{OrderID: "1", SCode: "0"}, nil
}

func (s *stubExchange) CancelOrder(ctx context.Context, instID, orderID string) (*domain.CancelAck, error) {
	return &domain.CancelAck{OrderID: orderID, SCode: "0"}, nil
}

func (s *stubExchange) GetOpenOrders(ctx context.Context, instType, instID string) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubExchange) GetBalance(ctx context.Context, ccy string) (*domain.Balance, error) {
	return &domain.Balance{TotalEquity: 100}, nil
}

func newTestServer(t *testing.T, ex *stubExchange) *httptest.Server {
	t.Helper()
	pub := &stubStream{events: make(chan domain.Event, 8)}
	svc := usecase.NewTerminalService(ex, pub, nil, nil, zap.NewNop())
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	server := web.NewServer(0, svc, zap.NewNop())
	// exercise the real routing table
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestMarketsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubExchange{instruments: []domain.Instrument{
		{InstID: "BTC-USDT", State: "live"},
		{InstID: "BTC-EUR", State: "live"},
	}})

	resp, err := http.Get(srv.URL + "/api/markets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var markets []domain.Instrument
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&markets))
	require.Len(t, markets, 1)
	require.Equal(t, "BTC-USDT", markets[0].InstID)
}

func TestCandlesEndpointValidation(t *testing.T) {
	srv := newTestServer(t, &stubExchange{})

	resp, err := http.Get(srv.URL + "/api/candles")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing inst_id")

	resp, err = http.Get(srv.URL + "/api/candles?inst_id=BTC-USDT&bar=7m")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown bar")

	resp, err = http.Get(srv.URL + "/api/candles?inst_id=BTC-USDT&bar=1m")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlaceOrderErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", &domain.ValidationError{Field: "price", Reason: "required"}, http.StatusBadRequest},
		{"auth", &domain.AuthError{Reason: "no credentials"}, http.StatusUnauthorized},
		{"exchange", &domain.ExchangeError{Code: "51008", Msg: "insufficient balance"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubExchange{placeErr: tt.err})
			body := strings.NewReader(`{"inst_id":"BTC-USDT","side":"buy","type":"limit","size":"1"}`)
			resp, err := http.Post(srv.URL+"/api/orders", "application/json", body)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.wantStatus, resp.StatusCode)

			var payload map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			require.NotEmpty(t, payload["error"])
		})
	}
}

func TestPlaceAndCancelOrder(t *testing.T) {
	srv := newTestServer(t, &stubExchange{})

	body := strings.NewReader(`{"inst_id":"BTC-USDT","side":"buy","type":"market","size":"0.01"}`)
	resp, err := http.Post(srv.URL+"/api/orders", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack domain.OrderAck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	require.Equal(t, "1", ack.OrderID)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/orders/1?inst_id=BTC-USDT", nil)
	require.NoError(t, err)
	cancelResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer cancelResp.Body.Close()
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)
}

func TestBalanceEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubExchange{})

	resp, err := http.Get(srv.URL + "/api/balance")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance domain.Balance
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&balance))
	require.Equal(t, 100.0, balance.TotalEquity)
}
