package domain

// Stream channel names.
const (
	ChannelTickers = "tickers"
	ChannelOrders  = "orders"
)

// Scope distinguishes the two stream connections.
type Scope string

const (
	ScopePublic  Scope = "public"
	ScopePrivate Scope = "private"
)

// ConnStatus is the streaming connection lifecycle state.
type ConnStatus string

const (
	StatusDisconnected   ConnStatus = "disconnected"
	StatusConnecting     ConnStatus = "connecting"
	StatusAuthenticating ConnStatus = "authenticating"
	StatusActive         ConnStatus = "active"
	StatusError          ConnStatus = "error"
)

// Subscription identifies one stream: (channel, instrument). Candle bars are
// folded into the channel name ("candle1m"); the orders channel subscribes by
// instrument type instead of instrument id.
type Subscription struct {
	Channel  string `json:"channel"`
	InstID   string `json:"inst_id,omitempty"`
	InstType string `json:"inst_type,omitempty"`
}

func (s Subscription) Key() string {
	return s.Channel + "/" + s.InstID + "/" + s.InstType
}

// Event is one normalized streaming record handed off to the consumer.
// Per-connection ordering is preserved; cross-connection interleaving is not.
type Event interface {
	event()
}

type TickerEvent struct {
	Ticker Ticker
}

type CandleEvent struct {
	Candle Candle
}

type OrderEvent struct {
	Order Order
}

// ErrorEvent reports a stream failure (login rejection, subscribe error,
// transport drop). It is informational: the connection owner decides whether
// to restart.
type ErrorEvent struct {
	Scope Scope
	Err   error
}

// StatusEvent reports a connection state transition.
type StatusEvent struct {
	Scope  Scope
	Status ConnStatus
}

func (TickerEvent) event() {}
func (CandleEvent) event() {}
func (OrderEvent) event()  {}
func (ErrorEvent) event()  {}
func (StatusEvent) event() {}
