package exchange

import (
	"testing"

	"github.com/vitos/okx_spot_terminal/internal/domain"
)

func TestParseTicker(t *testing.T) {
	raw := []byte(`{"instId":"BTC-USDT","last":"43250.5","open24h":"42000","high24h":"43500","low24h":"41800","vol24h":"1234.5","ts":"1700000000000"}`)
	got := ParseTicker(raw)

	want := domain.Ticker{
		InstID:    "BTC-USDT",
		LastPrice: 43250.5,
		Open24h:   42000,
		High24h:   43500,
		Low24h:    41800,
		Volume24h: 1234.5,
		Timestamp: 1700000000000,
	}
	if got != want {
		t.Errorf("ParseTicker = %+v, want %+v", got, want)
	}
}

func TestParseTickerFieldFallbacks(t *testing.T) {
	// some snapshots carry lastPx/sodUtc0/highPx/lowPx/volCcy24h instead
	raw := []byte(`{"instId":"ETH-USDT","lastPx":"2300","sodUtc0":"2250","highPx":"2350","lowPx":"2200","volCcy24h":"999"}`)
	got := ParseTicker(raw)

	if got.LastPrice != 2300 {
		t.Errorf("LastPrice = %v, want 2300 (lastPx fallback)", got.LastPrice)
	}
	if got.Open24h != 2250 {
		t.Errorf("Open24h = %v, want 2250 (sodUtc0 fallback)", got.Open24h)
	}
	if got.High24h != 2350 || got.Low24h != 2200 || got.Volume24h != 999 {
		t.Errorf("fallback fields wrong: %+v", got)
	}
}

func TestParseTickerPartialPayload(t *testing.T) {
	// missing numerics degrade to zero, never an error
	got := ParseTicker([]byte(`{"instId":"BTC-USDT","last":"not-a-number"}`))
	if got.InstID != "BTC-USDT" {
		t.Errorf("InstID = %q", got.InstID)
	}
	if got.LastPrice != 0 || got.Open24h != 0 || got.Timestamp != 0 {
		t.Errorf("unparsable fields should zero: %+v", got)
	}

	if got := ParseTicker([]byte(`not json`)); got != (domain.Ticker{}) {
		t.Errorf("malformed payload should yield a zero ticker: %+v", got)
	}
}

func TestParseCandle(t *testing.T) {
	fields := []string{"1700000000000", "42000", "42100", "41900", "42050", "12.5", "525000", "525000", "1"}
	got := ParseCandle("BTC-USDT", domain.Bar1m, fields)

	want := domain.Candle{
		InstID:    "BTC-USDT",
		Bar:       domain.Bar1m,
		Time:      1700000000000,
		Open:      42000,
		High:      42100,
		Low:       41900,
		Close:     42050,
		Volume:    12.5,
		Confirmed: true,
	}
	if got != want {
		t.Errorf("ParseCandle = %+v, want %+v", got, want)
	}
}

func TestParseCandleUnconfirmed(t *testing.T) {
	fields := []string{"1700000000000", "42000", "42100", "41900", "42050", "12.5", "0", "0", "0"}
	if ParseCandle("BTC-USDT", domain.Bar1m, fields).Confirmed {
		t.Error("confirm flag 0 should parse as unconfirmed")
	}
}

func TestParseCandleShortArray(t *testing.T) {
	got := ParseCandle("BTC-USDT", domain.Bar5m, []string{"1700000000000", "42000"})
	if got.Time != 1700000000000 || got.Open != 42000 {
		t.Errorf("present fields should parse: %+v", got)
	}
	if got.High != 0 || got.Close != 0 || got.Volume != 0 || got.Confirmed {
		t.Errorf("missing fields should zero: %+v", got)
	}
}

func TestParseCandleDeterministic(t *testing.T) {
	fields := []string{"1700000000000", "1", "2", "0.5", "1.5", "9", "x", "y", "1"}
	a := ParseCandle("A-B", domain.Bar1H, fields)
	b := ParseCandle("A-B", domain.Bar1H, fields)
	if a != b {
		t.Errorf("normalization is not stable: %+v vs %+v", a, b)
	}
}

func TestParseOrder(t *testing.T) {
	raw := []byte(`{"ordId":"123","instId":"BTC-USDT","side":"buy","ordType":"limit","px":"42000","sz":"0.01","accFillSz":"0.005","state":"partially_filled","cTime":"1700000000000","uTime":"1700000060000"}`)
	got := ParseOrder(raw)

	if got.OrderID != "123" || got.InstID != "BTC-USDT" {
		t.Errorf("identity fields wrong: %+v", got)
	}
	if got.Side != domain.SideBuy || got.Type != domain.OrderLimit {
		t.Errorf("side/type wrong: %+v", got)
	}
	if got.Price != 42000 || got.Size != 0.01 || got.FilledSize != 0.005 {
		t.Errorf("numeric fields wrong: %+v", got)
	}
	if got.State != domain.StatePartiallyFilled {
		t.Errorf("State = %q", got.State)
	}
	if got.CreatedAt.UnixMilli() != 1700000000000 || got.UpdatedAt.UnixMilli() != 1700000060000 {
		t.Errorf("timestamps wrong: %v %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name       string
		last, open float64
		want       float64
	}{
		{"up ten percent", 110, 100, 10},
		{"down", 90, 100, -10},
		{"flat", 100, 100, 0},
		{"zero open no division error", 110, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentChange(tt.last, tt.open); got != tt.want {
				t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.last, tt.open, got, tt.want)
			}
		})
	}
}
