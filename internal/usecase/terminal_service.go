package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/okx_spot_terminal/internal/domain"
)

const (
	instTypeSpot   = "SPOT"
	quoteFilter    = "-USDT"
	historyBars    = 100
	maxBookCandles = 500
)

// TerminalService is the gateway's consumer: it drains both stream event
// channels on its own goroutines, maintains the latest-ticker map and the
// per-(instrument, bar) candle book, tracks open orders and fans events out
// to attached listeners (the web layer). It is the only place stream writers
// and readers meet, so every map is guarded by the mutex.
type TerminalService struct {
	exchange domain.Exchange
	public   domain.Stream
	private  domain.Stream
	orders   domain.OrderRepository
	logger   *zap.Logger

	mu        sync.Mutex
	tickers   map[string]domain.Ticker
	books     map[string][]domain.Candle
	open      map[string]domain.Order
	watchInst string
	watchBar  domain.Bar

	listenMu  sync.Mutex
	listeners map[int]chan domain.Event
	nextID    int

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewTerminalService(
	exchange domain.Exchange,
	public, private domain.Stream,
	orders domain.OrderRepository,
	logger *zap.Logger,
) *TerminalService {
	return &TerminalService{
		exchange:  exchange,
		public:    public,
		private:   private,
		orders:    orders,
		logger:    logger,
		tickers:   make(map[string]domain.Ticker),
		books:     make(map[string][]domain.Candle),
		open:      make(map[string]domain.Order),
		listeners: make(map[int]chan domain.Event),
		stopCh:    make(chan struct{}),
	}
}

// Start brings both streams up and begins draining their events. The private
// stream additionally subscribes to the account orders channel.
func (s *TerminalService) Start() error {
	if err := s.public.Start(); err != nil {
		return err
	}
	go s.drain(s.public.Events())

	if s.private != nil {
		if err := s.private.Start(); err != nil {
			return err
		}
		go s.drain(s.private.Events())
		if err := s.private.Subscribe(domain.Subscription{
			Channel:  domain.ChannelOrders,
			InstType: instTypeSpot,
		}); err != nil {
			s.logger.Warn("orders subscription failed", zap.Error(err))
		}
	}
	return nil
}

func (s *TerminalService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.public.Stop()
	if s.private != nil {
		s.private.Stop()
	}
}

func (s *TerminalService) drain(events <-chan domain.Event) {
	for {
		select {
		case <-s.stopCh:
			return
		case ev := <-events:
			s.handleEvent(ev)
			s.broadcast(ev)
		}
	}
}

func (s *TerminalService) handleEvent(ev domain.Event) {
	switch e := ev.(type) {
	case domain.TickerEvent:
		s.mu.Lock()
		s.tickers[e.Ticker.InstID] = e.Ticker
		s.mu.Unlock()
	case domain.CandleEvent:
		s.applyCandle(e.Candle)
	case domain.OrderEvent:
		s.applyOrder(e.Order)
	case domain.ErrorEvent:
		s.logger.Error("stream error", zap.String("scope", string(e.Scope)), zap.Error(e.Err))
	case domain.StatusEvent:
		s.logger.Info("stream status",
			zap.String("scope", string(e.Scope)), zap.String("status", string(e.Status)))
	}
}

// applyCandle merges a streamed bar into the book. An update whose open time
// equals the last bar's replaces it while that bar is unconfirmed; a newer
// open time appends; anything older is discarded.
func (s *TerminalService) applyCandle(c domain.Candle) {
	key := bookKey(c.InstID, c.Bar)

	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.books[key]
	n := len(book)
	switch {
	case n == 0 || c.Time > book[n-1].Time:
		book = append(book, c)
		if len(book) > maxBookCandles {
			book = book[len(book)-maxBookCandles:]
		}
	case c.Time == book[n-1].Time:
		if book[n-1].Confirmed {
			return // confirmed bars are immutable
		}
		book[n-1] = c
	default:
		s.logger.Debug("stale candle dropped",
			zap.String("inst", c.InstID), zap.Int64("time", c.Time))
		return
	}
	s.books[key] = book
}

func (s *TerminalService) applyOrder(o domain.Order) {
	if o.OrderID == "" {
		return
	}
	s.mu.Lock()
	if o.State.Terminal() {
		delete(s.open, o.OrderID)
	} else {
		s.open[o.OrderID] = o
	}
	s.mu.Unlock()

	if s.orders != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.orders.UpdateOrder(ctx, &o); err != nil {
			s.logger.Error("order log update failed",
				zap.String("order_id", o.OrderID), zap.Error(err))
		}
	}
}

// Watch switches the live market subscriptions to one instrument and bar,
// dropping the previous pair's streams and seeding the candle book over REST.
func (s *TerminalService) Watch(ctx context.Context, instID string, bar domain.Bar) error {
	if instID == "" {
		return &domain.ValidationError{Field: "inst_id", Reason: "required"}
	}
	if !bar.Valid() {
		return &domain.ValidationError{Field: "bar", Reason: "unknown interval " + string(bar)}
	}

	s.mu.Lock()
	prevInst, prevBar := s.watchInst, s.watchBar
	s.watchInst, s.watchBar = instID, bar
	s.mu.Unlock()

	if prevInst != "" && (prevInst != instID || prevBar != bar) {
		s.public.Unsubscribe(domain.Subscription{Channel: domain.ChannelTickers, InstID: prevInst})
		s.public.Unsubscribe(domain.Subscription{Channel: prevBar.Channel(), InstID: prevInst})
	}

	if err := s.public.Subscribe(domain.Subscription{Channel: domain.ChannelTickers, InstID: instID}); err != nil {
		return err
	}
	if err := s.public.Subscribe(domain.Subscription{Channel: bar.Channel(), InstID: instID}); err != nil {
		return err
	}

	return s.loadHistory(ctx, instID, bar)
}

// loadHistory seeds the candle book from REST so a fresh watch has a full
// chart before the first stream update lands.
func (s *TerminalService) loadHistory(ctx context.Context, instID string, bar domain.Bar) error {
	candles, err := s.exchange.GetCandles(ctx, instID, bar, historyBars, "", "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.books[bookKey(instID, bar)] = candles
	s.mu.Unlock()
	return nil
}

// Markets returns live USDT-quoted spot instruments, sorted by instrument ID.
func (s *TerminalService) Markets(ctx context.Context) ([]domain.Instrument, error) {
	instruments, err := s.exchange.GetInstruments(ctx, instTypeSpot)
	if err != nil {
		return nil, err
	}
	markets := make([]domain.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		if inst.Live() && strings.HasSuffix(inst.InstID, quoteFilter) {
			markets = append(markets, inst)
		}
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].InstID < markets[j].InstID })
	return markets, nil
}

// Tickers snapshots the live ticker map, sorted by instrument.
func (s *TerminalService) Tickers() []domain.Ticker {
	s.mu.Lock()
	out := make([]domain.Ticker, 0, len(s.tickers))
	for _, t := range s.tickers {
		out = append(out, t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].InstID < out[j].InstID })
	return out
}

func (s *TerminalService) Ticker(instID string) (domain.Ticker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickers[instID]
	return t, ok
}

// Candles snapshots the book for one instrument and bar, oldest first.
func (s *TerminalService) Candles(instID string, bar domain.Bar) []domain.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()
	book := s.books[bookKey(instID, bar)]
	out := make([]domain.Candle, len(book))
	copy(out, book)
	return out
}

func (s *TerminalService) OpenOrders() []domain.Order {
	s.mu.Lock()
	out := make([]domain.Order, 0, len(s.open))
	for _, o := range s.open {
		out = append(out, o)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// RefreshOrders replaces the open-order set from REST. Used at startup and
// as a fallback when the private stream is unavailable.
func (s *TerminalService) RefreshOrders(ctx context.Context) error {
	orders, err := s.exchange.GetOpenOrders(ctx, instTypeSpot, "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.open = make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		s.open[o.OrderID] = o
	}
	s.mu.Unlock()
	return nil
}

// PlaceOrder submits the order and records it in the order log.
func (s *TerminalService) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderAck, error) {
	ack, err := s.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		OrderID:   ack.OrderID,
		InstID:    req.InstID,
		Side:      req.Side,
		Type:      req.Type,
		Price:     parseNum(req.Price),
		Size:      parseNum(req.Size),
		State:     domain.StateLive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.open[order.OrderID] = order
	s.mu.Unlock()

	if s.orders != nil {
		if err := s.orders.SaveOrder(ctx, &order); err != nil {
			s.logger.Error("order log save failed", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}
	return ack, nil
}

func (s *TerminalService) CancelOrder(ctx context.Context, instID, orderID string) (*domain.CancelAck, error) {
	ack, err := s.exchange.CancelOrder(ctx, instID, orderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.open, orderID)
	s.mu.Unlock()
	return ack, nil
}

func (s *TerminalService) Balance(ctx context.Context, ccy string) (*domain.Balance, error) {
	return s.exchange.GetBalance(ctx, ccy)
}

func (s *TerminalService) OrderHistory(ctx context.Context, limit int) ([]*domain.Order, error) {
	if s.orders == nil {
		return nil, nil
	}
	return s.orders.ListOrders(ctx, limit)
}

// Listen attaches a listener to the event fan-out. The returned cancel
// detaches it. Slow listeners lose events rather than stalling the drain
// goroutines.
func (s *TerminalService) Listen(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan domain.Event, buffer)

	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	s.listenMu.Unlock()

	cancel := func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
	return ch, cancel
}

func (s *TerminalService) broadcast(ev domain.Event) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

func bookKey(instID string, bar domain.Bar) string {
	return instID + "/" + string(bar)
}

func parseNum(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
