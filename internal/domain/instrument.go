package domain

// Bar is a candle aggregation interval in OKX notation.
type Bar string

const (
	Bar1m  Bar = "1m"
	Bar3m  Bar = "3m"
	Bar5m  Bar = "5m"
	Bar15m Bar = "15m"
	Bar30m Bar = "30m"
	Bar1H  Bar = "1H"
	Bar2H  Bar = "2H"
	Bar4H  Bar = "4H"
	Bar1D  Bar = "1D"
)

var Bars = []Bar{Bar1m, Bar3m, Bar5m, Bar15m, Bar30m, Bar1H, Bar2H, Bar4H, Bar1D}

// Channel returns the stream channel name for this bar, e.g. "candle1m".
func (b Bar) Channel() string {
	return "candle" + string(b)
}

func (b Bar) Valid() bool {
	for _, v := range Bars {
		if v == b {
			return true
		}
	}
	return false
}

type Instrument struct {
	InstID   string `json:"inst_id"`
	BaseCcy  string `json:"base_ccy"`
	QuoteCcy string `json:"quote_ccy"`
	State    string `json:"state"` // live | suspend
	TickSize string `json:"tick_size"`
	LotSize  string `json:"lot_size"`
	MinSize  string `json:"min_size"`
}

func (i Instrument) Live() bool {
	return i.State == "live"
}

type Ticker struct {
	InstID    string  `json:"inst_id"`
	LastPrice float64 `json:"last_price"`
	Open24h   float64 `json:"open_24h"`
	High24h   float64 `json:"high_24h"`
	Low24h    float64 `json:"low_24h"`
	Volume24h float64 `json:"volume_24h"`
	Timestamp int64   `json:"ts"` // epoch ms
}

// Candle is one OHLCV bar. A candle at a given open time is mutable until
// Confirmed is set, then immutable.
type Candle struct {
	InstID    string  `json:"inst_id"`
	Bar       Bar     `json:"bar"`
	Time      int64   `json:"time"` // open time, epoch ms UTC
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Confirmed bool    `json:"confirmed"`
}
