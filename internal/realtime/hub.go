package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const (
	sendBuffer      = 64
	broadcastBuffer = 256
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxReadBytes    = 512
)

// Message is the frame written to every connected listener.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans order events out to connected admin consoles. A single goroutine
// started by Run owns the client set.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	done       chan struct{}
	upgrader   websocket.Upgrader
	logg       *logger.Logger
	now        func() time.Time

	mu    sync.RWMutex
	count int
}

// NewHub builds a hub that accepts websocket upgrades from allowedOrigins.
// An empty list or "*" accepts any origin.
func NewHub(logg *logger.Logger, allowedOrigins []string) *Hub {
	if logg == nil {
		logg = logger.Nop()
	}
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, broadcastBuffer),
		done:       make(chan struct{}),
		logg:       logg,
		now:        time.Now,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

// Run processes registrations and broadcasts until ctx is cancelled. It must
// be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	clients := map[*client]struct{}{}
	drop := func(c *client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			h.setCount(len(clients))
		}
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			h.setCount(len(clients))
			h.logg.Info(h.logg.WithField(ctx, "client_count", len(clients)), "realtime.client_connected")
		case c := <-h.unregister:
			drop(c)
			h.logg.Info(h.logg.WithField(ctx, "client_count", len(clients)), "realtime.client_disconnected")
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					drop(c)
				}
			}
		}
	}
}

// Publish queues an event for every listener. Events are dropped when the
// queue is full.
func (h *Hub) Publish(ctx context.Context, eventType string, payload any) {
	msg := Message{Type: eventType, Data: payload, Timestamp: h.now().UTC().Format(time.RFC3339)}
	select {
	case h.broadcast <- msg:
	default:
		h.logg.Warn(h.logg.WithField(ctx, "event_type", eventType), "realtime.broadcast_full")
	}
}

// ClientCount returns the number of connected listeners.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logg.Error(r.Context(), "realtime.upgrade_failed", err)
		return
	}
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logg.Warn(h.logg.WithField(context.Background(), "error", err.Error()), "realtime.read_failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.logg.Error(context.Background(), "realtime.marshal_failed", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := map[string]struct{}{}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}
