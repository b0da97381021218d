package exchange

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/vitos/okx_spot_terminal/internal/domain"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second

	eventBuffer = 512
)

// OKXStream is one websocket connection to OKX, public or private scope.
// The read loop runs on its own goroutine and hands normalized events to the
// consumer through a buffered channel; it never calls into consumer code.
//
// On abnormal closure an ErrorEvent is always emitted. With Reconnect enabled
// the stream then re-dials with exponential backoff and re-issues the whole
// subscription set; otherwise it stays down until Start is called again.
type OKXStream struct {
	url       string
	scope     domain.Scope
	signer    *Signer
	reconnect bool
	logger    *zap.Logger
	dialer    *websocket.Dialer
	now       func() time.Time

	events  chan domain.Event
	dropped atomic.Int64

	mu      sync.Mutex
	conn    *websocket.Conn
	status  domain.ConnStatus
	subs    map[string]domain.Subscription
	running bool
	stopCh  chan struct{}

	writeMu sync.Mutex
}

// NewOKXStream builds a stream for the given scope. The private scope shares
// the REST gateway's signer; a public stream may pass nil.
func NewOKXStream(scope domain.Scope, cfg Config, reconnect bool, signer *Signer, logger *zap.Logger) *OKXStream {
	url := cfg.wsPublicURL()
	if scope == domain.ScopePrivate {
		url = cfg.wsPrivateURL()
	}
	if signer == nil {
		signer = NewSigner(cfg.APIKey, cfg.SecretKey, cfg.Passphrase)
	}
	return &OKXStream{
		url:       url,
		scope:     scope,
		signer:    signer,
		reconnect: reconnect,
		logger:    logger,
		dialer:    websocket.DefaultDialer,
		now:       time.Now,
		events:    make(chan domain.Event, eventBuffer),
		status:    domain.StatusDisconnected,
		subs:      make(map[string]domain.Subscription),
	}
}

// Events is the consumer-facing stream. Per-connection ordering matches the
// order frames arrived from the exchange.
func (s *OKXStream) Events() <-chan domain.Event { return s.events }

func (s *OKXStream) Status() domain.ConnStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Dropped reports how many events were discarded because the consumer lagged
// behind the buffer.
func (s *OKXStream) Dropped() int64 { return s.dropped.Load() }

// Start brings the connection up on its own goroutine. Starting a running
// stream is a no-op.
func (s *OKXStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.run(s.stopCh)
	return nil
}

// Stop closes the socket and transitions to Disconnected from any state.
// Safe to call repeatedly and from any goroutine, including on a stream that
// was never started.
func (s *OKXStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.status = domain.StatusDisconnected
		return
	}
	s.running = false
	close(s.stopCh)
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.status = domain.StatusDisconnected
}

// Subscribe records the subscription and, when connected, sends the frame.
// Subscribing twice to the same tuple sends nothing the second time.
func (s *OKXStream) Subscribe(sub domain.Subscription) error {
	s.mu.Lock()
	if _, ok := s.subs[sub.Key()]; ok {
		s.mu.Unlock()
		return nil
	}
	s.subs[sub.Key()] = sub
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil // issued on connect
	}
	return s.sendOp("subscribe", sub)
}

func (s *OKXStream) Unsubscribe(sub domain.Subscription) error {
	s.mu.Lock()
	if _, ok := s.subs[sub.Key()]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.subs, sub.Key())
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.sendOp("unsubscribe", sub)
}

type wsRequest struct {
	Op   string `json:"op"`
	Args []any  `json:"args"`
}

func subArg(sub domain.Subscription) map[string]string {
	arg := map[string]string{"channel": sub.Channel}
	if sub.InstID != "" {
		arg["instId"] = sub.InstID
	}
	if sub.InstType != "" {
		arg["instType"] = sub.InstType
	}
	return arg
}

func (s *OKXStream) sendOp(op string, sub domain.Subscription) error {
	return s.writeJSON(wsRequest{Op: op, Args: []any{subArg(sub)}})
}

func (s *OKXStream) writeJSON(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return &domain.TransportError{Op: "ws write", Err: errNotConnected}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(s.now().Add(writeTimeout))
	if err := conn.WriteJSON(v); err != nil {
		return &domain.TransportError{Op: "ws write", Err: err}
	}
	return nil
}

func (s *OKXStream) writeText(text string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return &domain.TransportError{Op: "ws write", Err: errNotConnected}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(s.now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return &domain.TransportError{Op: "ws write", Err: err}
	}
	return nil
}

func (s *OKXStream) run(stopCh chan struct{}) {
	retry := &backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Jitter: true}

	for {
		started := s.now()
		err := s.connectAndRead(stopCh)
		if stopped(stopCh) {
			return
		}
		if err != nil {
			s.setStatus(domain.StatusError)
			s.emit(domain.ErrorEvent{Scope: s.scope, Err: err})
		}
		if !s.reconnect {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
		if s.now().Sub(started) > time.Minute {
			retry.Reset()
		}

		d := retry.Duration()
		s.logger.Warn("stream reconnecting",
			zap.String("scope", string(s.scope)), zap.Duration("backoff", d), zap.Error(err))
		select {
		case <-stopCh:
			return
		case <-time.After(d):
		}
	}
}

// connectAndRead dials, logs in on the private scope, replays the
// subscription set and reads frames until the socket dies or Stop fires.
func (s *OKXStream) connectAndRead(stopCh chan struct{}) error {
	s.setStatus(domain.StatusConnecting)
	s.emit(domain.StatusEvent{Scope: s.scope, Status: domain.StatusConnecting})

	conn, _, err := s.dialer.Dial(s.url, nil)
	if err != nil {
		return &domain.TransportError{Op: "ws dial " + s.url, Err: err}
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	if s.scope == domain.ScopePrivate && s.signer.Ready() {
		s.setStatus(domain.StatusAuthenticating)
		ts := WSTimestamp(s.now())
		login := wsRequest{Op: "login", Args: []any{map[string]string{
			"apiKey":     s.signer.APIKey(),
			"passphrase": s.signer.Passphrase(),
			"timestamp":  ts,
			"sign":       s.signer.SignWSLogin(ts),
		}}}
		if err := s.writeJSON(login); err != nil {
			s.closeConn()
			return err
		}
	}

	s.setStatus(domain.StatusActive)
	s.emit(domain.StatusEvent{Scope: s.scope, Status: domain.StatusActive})

	// replay the known subscription set
	for _, sub := range s.snapshotSubs() {
		if err := s.sendOp("subscribe", sub); err != nil {
			s.closeConn()
			return err
		}
	}

	pingDone := make(chan struct{})
	go s.pingLoop(pingDone, stopCh)
	defer close(pingDone)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.closeConn()
			if stopped(stopCh) {
				return nil
			}
			return &domain.TransportError{Op: "ws read", Err: err}
		}
		s.handleFrame(raw)
	}
}

func (s *OKXStream) pingLoop(done, stopCh chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := s.writeText("ping"); err != nil {
				return
			}
		}
	}
}

type wsFrame struct {
	Event string `json:"event"`
	Code  string `json:"code"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel  string `json:"channel"`
		InstID   string `json:"instId"`
		InstType string `json:"instType"`
	} `json:"arg"`
	Data []json.RawMessage `json:"data"`
}

// handleFrame demultiplexes one incoming text frame. Control acknowledgments
// are inspected for errors only; data arrays fan out element-wise in order.
func (s *OKXStream) handleFrame(raw []byte) {
	if string(raw) == "pong" {
		return // keepalive, never forwarded
	}

	var frame wsFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.logger.Debug("unparsable frame dropped", zap.String("scope", string(s.scope)), zap.Error(err))
		return
	}

	if frame.Event != "" {
		switch {
		case frame.Event == "login" && frame.Code != "0":
			// connection stays open per exchange semantics; private
			// subscriptions will just receive nothing
			s.emit(domain.ErrorEvent{Scope: s.scope, Err: &domain.AuthError{Reason: "login rejected: " + frame.Msg}})
		case frame.Event == "error":
			s.emit(domain.ErrorEvent{Scope: s.scope, Err: &domain.ExchangeError{Code: frame.Code, Msg: frame.Msg}})
		}
		return
	}

	for _, item := range frame.Data {
		switch {
		case frame.Arg.Channel == domain.ChannelTickers:
			s.emit(domain.TickerEvent{Ticker: ParseTicker(item)})
		case strings.HasPrefix(frame.Arg.Channel, "candle"):
			var fields []string
			if err := json.Unmarshal(item, &fields); err != nil {
				continue
			}
			bar := domain.Bar(strings.TrimPrefix(frame.Arg.Channel, "candle"))
			s.emit(domain.CandleEvent{Candle: ParseCandle(frame.Arg.InstID, bar, fields)})
		case frame.Arg.Channel == domain.ChannelOrders:
			s.emit(domain.OrderEvent{Order: ParseOrder(item)})
		}
	}
}

// emit hands an event to the consumer without ever blocking the read loop.
// A full buffer drops the event and counts it.
func (s *OKXStream) emit(ev domain.Event) {
	select {
	case s.events <- ev:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("event buffer full, dropping",
			zap.String("scope", string(s.scope)), zap.Int64("dropped", n))
	}
}

func (s *OKXStream) snapshotSubs() []domain.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := make([]domain.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return subs
}

func (s *OKXStream) setStatus(status domain.ConnStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *OKXStream) closeConn() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()
}

func stopped(stopCh chan struct{}) bool {
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

var errNotConnected = errors.New("not connected")
