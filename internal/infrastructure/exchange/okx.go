package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/okx_spot_terminal/internal/domain"
)

const (
	RESTBase      = "https://www.okx.com"
	WSPublicURL   = "wss://ws.okx.com:8443/ws/v5/public"
	WSPrivateURL  = "wss://ws.okx.com:8443/ws/v5/private"
	WSPublicDemo  = "wss://wspap.okx.com:8443/ws/v5/public"
	WSPrivateDemo = "wss://wspap.okx.com:8443/ws/v5/private"

	requestTimeout = 15 * time.Second

	candleLimitDefault = 100
	candleLimitMax     = 300
)

// Config is the full gateway configuration. Empty URLs fall back to the
// production endpoints; Demo switches the websocket hosts and adds the
// x-simulated-trading header on REST calls.
type Config struct {
	RESTBase     string
	WSPublicURL  string
	WSPrivateURL string
	APIKey       string
	SecretKey    string
	Passphrase   string
	Demo         bool
}

func (c Config) restBase() string {
	if c.RESTBase != "" {
		return strings.TrimRight(c.RESTBase, "/")
	}
	return RESTBase
}

func (c Config) wsPublicURL() string {
	if c.WSPublicURL != "" {
		return c.WSPublicURL
	}
	if c.Demo {
		return WSPublicDemo
	}
	return WSPublicURL
}

func (c Config) wsPrivateURL() string {
	if c.WSPrivateURL != "" {
		return c.WSPrivateURL
	}
	if c.Demo {
		return WSPrivateDemo
	}
	return WSPrivateURL
}

// OKXAdapter is the OKX v5 REST gateway. Stateless: one attempt per call,
// 15 second timeout, no retries. Demo routing is decided at construction.
type OKXAdapter struct {
	baseURL string
	demo    bool
	signer  *Signer
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

func NewOKXAdapter(cfg Config, logger *zap.Logger) *OKXAdapter {
	return &OKXAdapter{
		baseURL: cfg.restBase(),
		demo:    cfg.Demo,
		signer:  NewSigner(cfg.APIKey, cfg.SecretKey, cfg.Passphrase),
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
		now:     time.Now,
	}
}

// Signer exposes the credentials holder so the stream gateway can share it.
func (o *OKXAdapter) Signer() *Signer { return o.signer }

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// encodeQuery builds the query string with sorted keys and empty values
// dropped. The signed path must match the sent path byte for byte.
func encodeQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if params.Get(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+url.QueryEscape(params.Get(k)))
	}
	return strings.Join(parts, "&")
}

// do performs one HTTP round trip and decodes the envelope. Only transport
// failures error here; envelope codes are the caller's to interpret.
func (o *OKXAdapter) do(ctx context.Context, method, path string, params url.Values, payload any, private bool) (*envelope, error) {
	if private && !o.signer.Ready() {
		return nil, &domain.AuthError{Reason: "API credentials not configured"}
	}

	fullPath := path
	if qs := encodeQuery(params); qs != "" {
		fullPath = path + "?" + qs
	}

	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &domain.TransportError{Op: method + " " + path, Err: err}
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+fullPath, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.TransportError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if private {
		ts := ISOTimestamp(o.now())
		req.Header.Set("OK-ACCESS-KEY", o.signer.APIKey())
		req.Header.Set("OK-ACCESS-SIGN", o.signer.SignREST(ts, method, fullPath, string(body)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", o.signer.Passphrase())
	}
	if o.demo {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: method + " " + path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &domain.TransportError{Op: method + " " + path, Err: err}
	}
	return &env, nil
}

// call is do plus the envelope code check most endpoints want.
func (o *OKXAdapter) call(ctx context.Context, method, path string, params url.Values, payload any, private bool) (json.RawMessage, error) {
	env, err := o.do(ctx, method, path, params, payload, private)
	if err != nil {
		return nil, err
	}
	if env.Code != "0" {
		o.logger.Warn("okx rejected request",
			zap.String("path", path), zap.String("code", env.Code), zap.String("msg", env.Msg))
		return nil, &domain.ExchangeError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

func (o *OKXAdapter) GetInstruments(ctx context.Context, instType string) ([]domain.Instrument, error) {
	params := url.Values{}
	params.Set("instType", instType)
	data, err := o.call(ctx, http.MethodGet, "/api/v5/public/instruments", params, nil, false)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		InstID   string `json:"instId"`
		BaseCcy  string `json:"baseCcy"`
		QuoteCcy string `json:"quoteCcy"`
		State    string `json:"state"`
		TickSz   string `json:"tickSz"`
		LotSz    string `json:"lotSz"`
		MinSz    string `json:"minSz"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &domain.TransportError{Op: "decode instruments", Err: err}
	}

	instruments := make([]domain.Instrument, 0, len(rows))
	for _, r := range rows {
		instruments = append(instruments, domain.Instrument{
			InstID:   r.InstID,
			BaseCcy:  r.BaseCcy,
			QuoteCcy: r.QuoteCcy,
			State:    r.State,
			TickSize: r.TickSz,
			LotSize:  r.LotSz,
			MinSize:  r.MinSz,
		})
	}
	return instruments, nil
}

func (o *OKXAdapter) GetTickers(ctx context.Context, instType string) ([]domain.Ticker, error) {
	params := url.Values{}
	params.Set("instType", instType)
	data, err := o.call(ctx, http.MethodGet, "/api/v5/market/tickers", params, nil, false)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &domain.TransportError{Op: "decode tickers", Err: err}
	}

	tickers := make([]domain.Ticker, 0, len(rows))
	for _, raw := range rows {
		tickers = append(tickers, ParseTicker(raw))
	}
	return tickers, nil
}

// GetCandles fetches historical bars. The exchange replies newest-first; the
// result is reversed to oldest-first, which is what every consumer charts.
func (o *OKXAdapter) GetCandles(ctx context.Context, instID string, bar domain.Bar, limit int, after, before string) ([]domain.Candle, error) {
	if limit <= 0 {
		limit = candleLimitDefault
	}
	if limit > candleLimitMax {
		limit = candleLimitMax
	}
	params := url.Values{}
	params.Set("instId", instID)
	params.Set("bar", string(bar))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("after", after)
	params.Set("before", before)

	data, err := o.call(ctx, http.MethodGet, "/api/v5/market/candles", params, nil, false)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &domain.TransportError{Op: "decode candles", Err: err}
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, fields := range rows {
		candles = append(candles, ParseCandle(instID, bar, fields))
	}
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

type orderAckRow struct {
	OrdID string `json:"ordId"`
	SCode string `json:"sCode"`
	SMsg  string `json:"sMsg"`
}

// PlaceOrder submits a spot order (tdMode cash). Validation happens before
// any network call: a limit order with no positive price never leaves the
// process.
func (o *OKXAdapter) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderAck, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	payload := map[string]string{
		"instId":  req.InstID,
		"tdMode":  "cash",
		"side":    string(req.Side),
		"ordType": string(req.Type),
		"sz":      req.Size,
	}
	if req.Type == domain.OrderLimit {
		payload["px"] = req.Price
	}

	env, err := o.do(ctx, http.MethodPost, "/api/v5/trade/order", nil, payload, true)
	if err != nil {
		return nil, err
	}

	var rows []orderAckRow
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return nil, &domain.TransportError{Op: "decode order ack", Err: err}
		}
	}
	// The envelope code can be non-zero while the per-order sCode carries
	// the real verdict; either one being "0" means accepted.
	if len(rows) > 0 {
		row := rows[0]
		if env.Code == "0" || row.SCode == "0" {
			return &domain.OrderAck{OrderID: row.OrdID, SCode: row.SCode, SMsg: row.SMsg}, nil
		}
		code, msg := row.SCode, row.SMsg
		if code == "" {
			code, msg = env.Code, env.Msg
		}
		return nil, &domain.ExchangeError{Code: code, Msg: msg}
	}
	if env.Code != "0" {
		return nil, &domain.ExchangeError{Code: env.Code, Msg: env.Msg}
	}
	return &domain.OrderAck{}, nil
}

func (o *OKXAdapter) CancelOrder(ctx context.Context, instID, orderID string) (*domain.CancelAck, error) {
	if instID == "" {
		return nil, &domain.ValidationError{Field: "inst_id", Reason: "required"}
	}
	if orderID == "" {
		return nil, &domain.ValidationError{Field: "order_id", Reason: "required"}
	}

	payload := map[string]string{"instId": instID, "ordId": orderID}
	env, err := o.do(ctx, http.MethodPost, "/api/v5/trade/cancel-order", nil, payload, true)
	if err != nil {
		return nil, err
	}

	var rows []orderAckRow
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return nil, &domain.TransportError{Op: "decode cancel ack", Err: err}
		}
	}
	if len(rows) > 0 {
		row := rows[0]
		if env.Code == "0" || row.SCode == "0" {
			return &domain.CancelAck{OrderID: row.OrdID, SCode: row.SCode, SMsg: row.SMsg}, nil
		}
		code, msg := row.SCode, row.SMsg
		if code == "" {
			code, msg = env.Code, env.Msg
		}
		return nil, &domain.ExchangeError{Code: code, Msg: msg}
	}
	if env.Code != "0" {
		return nil, &domain.ExchangeError{Code: env.Code, Msg: env.Msg}
	}
	return &domain.CancelAck{OrderID: orderID}, nil
}

func (o *OKXAdapter) GetOpenOrders(ctx context.Context, instType, instID string) ([]domain.Order, error) {
	params := url.Values{}
	params.Set("instType", instType)
	params.Set("instId", instID)
	data, err := o.call(ctx, http.MethodGet, "/api/v5/trade/orders-pending", params, nil, true)
	if err != nil {
		return nil, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &domain.TransportError{Op: "decode open orders", Err: err}
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, raw := range rows {
		orders = append(orders, ParseOrder(raw))
	}
	return orders, nil
}

func (o *OKXAdapter) GetBalance(ctx context.Context, ccy string) (*domain.Balance, error) {
	params := url.Values{}
	params.Set("ccy", ccy)
	data, err := o.call(ctx, http.MethodGet, "/api/v5/account/balance", params, nil, true)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		TotalEq string `json:"totalEq"`
		UTime   string `json:"uTime"`
		Details []struct {
			Ccy       string `json:"ccy"`
			AvailBal  string `json:"availBal"`
			FrozenBal string `json:"frozenBal"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &domain.TransportError{Op: "decode balance", Err: err}
	}
	if len(rows) == 0 {
		return &domain.Balance{}, nil
	}

	row := rows[0]
	balance := &domain.Balance{
		TotalEquity: num(row.TotalEq),
		UpdatedAt:   msInt(row.UTime),
		Details:     make([]domain.BalanceDetail, 0, len(row.Details)),
	}
	for _, d := range row.Details {
		balance.Details = append(balance.Details, domain.BalanceDetail{
			Currency:  d.Ccy,
			Available: num(d.AvailBal),
			Frozen:    num(d.FrozenBal),
		})
	}
	return balance, nil
}

func validateOrder(req domain.OrderRequest) error {
	if req.InstID == "" {
		return &domain.ValidationError{Field: "inst_id", Reason: "required"}
	}
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return &domain.ValidationError{Field: "side", Reason: "must be buy or sell"}
	}
	if req.Type != domain.OrderLimit && req.Type != domain.OrderMarket {
		return &domain.ValidationError{Field: "type", Reason: "must be limit or market"}
	}
	if sz := num(req.Size); sz <= 0 {
		return &domain.ValidationError{Field: "size", Reason: "must be a positive number"}
	}
	if req.Type == domain.OrderLimit {
		if px := num(req.Price); px <= 0 {
			return &domain.ValidationError{Field: "price", Reason: "required for limit orders"}
		}
	}
	return nil
}
