// Package ws broadcasts trade/cancel events over WebSocket to any
// connected market-data subscriber. It subscribes to the same
// watermill topics internal/events publishes to, rather than reaching
// into the processor directly, so the matching loop never blocks on a
// slow client.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out subscriber messages to every connected WebSocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	logger  *zap.Logger
}

// NewHub builds an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte), logger: logger}
}

// HandleConnection upgrades an HTTP request to a WebSocket and
// registers it as a broadcast target until it disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	outbox := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = outbox
	h.mu.Unlock()

	go h.writePump(conn, outbox)
	go h.readPump(conn)
}

func (h *Hub) readPump(conn *websocket.Conn) {
	defer h.remove(conn)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, outbox <-chan []byte) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case msg, ok := <-outbox:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if outbox, ok := h.clients[conn]; ok {
		close(outbox)
		delete(h.clients, conn)
	}
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, outbox := range h.clients {
		select {
		case outbox <- payload:
		default:
			h.logger.Warn("dropping message for slow websocket client")
		}
	}
}

// Params contains the fx-injected dependencies for Run.
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Subscriber message.Subscriber
	Logger     *zap.Logger
}

// Run subscribes the hub to the trade/cancel topics for the lifetime
// of the application.
func Run(p Params) *Hub {
	hub := NewHub(p.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			for _, topic := range []string{events.TopicTrades, events.TopicCancels} {
				messages, err := p.Subscriber.Subscribe(ctx, topic)
				if err != nil {
					return err
				}
				go hub.consume(messages)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})

	return hub
}

func (h *Hub) consume(messages <-chan *message.Message) {
	for msg := range messages {
		h.broadcast(msg.Payload)
		msg.Ack()
	}
}
