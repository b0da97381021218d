package domain

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderType string

const (
	OrderLimit  OrderType = "limit"
	OrderMarket OrderType = "market"
)

type OrderState string

const (
	StateLive            OrderState = "live"
	StatePartiallyFilled OrderState = "partially_filled"
	StateFilled          OrderState = "filled"
	StateCanceled        OrderState = "canceled"
	StateFailed          OrderState = "failed"
)

// Terminal reports whether the state ends the order lifecycle.
func (s OrderState) Terminal() bool {
	return s == StateFilled || s == StateCanceled || s == StateFailed
}

// OrderRequest is a caller-supplied order. Size and price are kept as
// strings: the exchange wants exact decimal text, not a float round-trip.
type OrderRequest struct {
	InstID string    `json:"inst_id"`
	Side   Side      `json:"side"`
	Type   OrderType `json:"type"`
	Size   string    `json:"size"`
	Price  string    `json:"price,omitempty"` // required for limit orders
}

type Order struct {
	OrderID    string     `json:"order_id"`
	InstID     string     `json:"inst_id"`
	Side       Side       `json:"side"`
	Type       OrderType  `json:"type"`
	Price      float64    `json:"price"`
	Size       float64    `json:"size"`
	FilledSize float64    `json:"filled_size"`
	State      OrderState `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// OrderAck is the exchange's acceptance of a place-order call.
type OrderAck struct {
	OrderID string `json:"order_id"`
	SCode   string `json:"s_code"`
	SMsg    string `json:"s_msg,omitempty"`
}

type CancelAck struct {
	OrderID string `json:"order_id"`
	SCode   string `json:"s_code"`
	SMsg    string `json:"s_msg,omitempty"`
}

type BalanceDetail struct {
	Currency  string  `json:"currency"`
	Available float64 `json:"available"`
	Frozen    float64 `json:"frozen"`
}

type Balance struct {
	TotalEquity float64         `json:"total_equity"` // USD equity across currencies
	Details     []BalanceDetail `json:"details"`
	UpdatedAt   int64           `json:"updated_at"` // epoch ms
}
