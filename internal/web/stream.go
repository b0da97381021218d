package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vitos/okx_spot_terminal/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type streamMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func toStreamMessage(ev domain.Event) (streamMessage, bool) {
	switch e := ev.(type) {
	case domain.TickerEvent:
		return streamMessage{Type: "ticker", Payload: e.Ticker}, true
	case domain.CandleEvent:
		return streamMessage{Type: "candle", Payload: e.Candle}, true
	case domain.OrderEvent:
		return streamMessage{Type: "order", Payload: e.Order}, true
	case domain.ErrorEvent:
		return streamMessage{Type: "error", Payload: map[string]string{
			"scope": string(e.Scope),
			"error": e.Err.Error(),
		}}, true
	case domain.StatusEvent:
		return streamMessage{Type: "status", Payload: map[string]string{
			"scope":  string(e.Scope),
			"status": string(e.Status),
		}}, true
	}
	return streamMessage{}, false
}

// handleStream upgrades the connection and relays gateway events until the
// client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := s.service.Listen(256)
	defer cancel()

	// reader goroutine only to detect the client closing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			msg, ok := toStreamMessage(ev)
			if !ok {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
