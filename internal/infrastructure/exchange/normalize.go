package exchange

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vitos/okx_spot_terminal/internal/domain"
)

// Normalization of OKX payload shapes into the domain model. These are pure
// transforms: partial or malformed payloads degrade to zero values so a
// consumer rendering the data never has to handle a parse failure.

type wireTicker struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	LastPx    string `json:"lastPx"`
	Open24h   string `json:"open24h"`
	SodUtc0   string `json:"sodUtc0"`
	High24h   string `json:"high24h"`
	HighPx    string `json:"highPx"`
	Low24h    string `json:"low24h"`
	LowPx     string `json:"lowPx"`
	Vol24h    string `json:"vol24h"`
	VolCcy24h string `json:"volCcy24h"`
	Ts        string `json:"ts"`
}

type wireOrder struct {
	OrdID     string `json:"ordId"`
	InstID    string `json:"instId"`
	Side      string `json:"side"`
	OrdType   string `json:"ordType"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	AccFillSz string `json:"accFillSz"`
	State     string `json:"state"`
	CTime     string `json:"cTime"`
	UTime     string `json:"uTime"`
}

// ParseTicker normalizes a ticker object. The exchange uses last/open24h on
// the market channel and lastPx/sodUtc0 on some snapshots; both map to the
// same fields.
func ParseTicker(raw []byte) domain.Ticker {
	var w wireTicker
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Ticker{}
	}
	return domain.Ticker{
		InstID:    w.InstID,
		LastPrice: num(pick(w.Last, w.LastPx)),
		Open24h:   num(pick(w.Open24h, w.SodUtc0)),
		High24h:   num(pick(w.High24h, w.HighPx)),
		Low24h:    num(pick(w.Low24h, w.LowPx)),
		Volume24h: num(pick(w.Vol24h, w.VolCcy24h)),
		Timestamp: msInt(w.Ts),
	}
}

// ParseCandle maps the positional OKX candle array
// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]. Arrays shorter than
// six elements still produce a record with the missing fields zeroed.
func ParseCandle(instID string, bar domain.Bar, fields []string) domain.Candle {
	c := domain.Candle{InstID: instID, Bar: bar}
	if len(fields) > 0 {
		c.Time = msInt(fields[0])
	}
	if len(fields) > 1 {
		c.Open = num(fields[1])
	}
	if len(fields) > 2 {
		c.High = num(fields[2])
	}
	if len(fields) > 3 {
		c.Low = num(fields[3])
	}
	if len(fields) > 4 {
		c.Close = num(fields[4])
	}
	if len(fields) > 5 {
		c.Volume = num(fields[5])
	}
	if len(fields) > 8 {
		c.Confirmed = fields[8] == "1"
	}
	return c
}

// ParseOrder normalizes an order object from the private orders channel or
// from orders-pending rows.
func ParseOrder(raw []byte) domain.Order {
	var w wireOrder
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Order{}
	}
	return domain.Order{
		OrderID:    w.OrdID,
		InstID:     w.InstID,
		Side:       domain.Side(w.Side),
		Type:       domain.OrderType(w.OrdType),
		Price:      num(w.Px),
		Size:       num(w.Sz),
		FilledSize: num(w.AccFillSz),
		State:      domain.OrderState(w.State),
		CreatedAt:  msTime(w.CTime),
		UpdatedAt:  msTime(w.UTime),
	}
}

// PercentChange is the 24h change figure shown everywhere a ticker is
// displayed. Zero open yields zero, not a division error.
func PercentChange(last, open float64) float64 {
	if open == 0 {
		return 0
	}
	return (last - open) / open * 100
}

func pick(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func num(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func msInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func msTime(s string) time.Time {
	n := msInt(s)
	if n == 0 {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}
