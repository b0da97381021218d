package domain

import "context"

// Exchange defines the REST surface of the market-data/order gateway.
// One attempt per call; retry policy belongs to the caller.
type Exchange interface {
	GetInstruments(ctx context.Context, instType string) ([]Instrument, error)
	GetTickers(ctx context.Context, instType string) ([]Ticker, error)
	// GetCandles returns bars oldest-first. after/before are exchange
	// pagination cursors (epoch ms strings), empty to omit.
	GetCandles(ctx context.Context, instID string, bar Bar, limit int, after, before string) ([]Candle, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error)
	CancelOrder(ctx context.Context, instID, orderID string) (*CancelAck, error)
	GetOpenOrders(ctx context.Context, instType, instID string) ([]Order, error)
	GetBalance(ctx context.Context, ccy string) (*Balance, error)
}

// Stream defines one streaming connection (public or private scope).
type Stream interface {
	Start() error
	Stop()
	Status() ConnStatus
	Subscribe(sub Subscription) error
	Unsubscribe(sub Subscription) error
	Events() <-chan Event
}

// OrderRepository persists the account order log.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *Order) error
	UpdateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context, limit int) ([]*Order, error)
}
