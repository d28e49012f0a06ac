package view

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"rss_aggregator/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 4096
	wsWriteTimeout    = 10 * time.Second
	wsPongTimeout     = 60 * time.Second
	wsPingInterval    = 30 * time.Second
	clientBuffer      = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub рассылает события всем подключённым websocket-клиентам.
// Клиент, не успевающий читать, отключается.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Entry

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsReadBufferSize,
			WriteBufferSize: wsWriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     logger.Component("hub"),
		clients: make(map[*client]struct{}),
	}
}

// Clients возвращает число подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Send кодирует событие в JSON и ставит его в очередь каждому клиенту.
func (h *Hub) Send(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Errorf("Failed to encode event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("Dropping slow websocket client")
			h.drop(c)
		}
	}
}

// drop вызывается под h.mu.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.WithField("remote_addr", r.RemoteAddr).Debug("Websocket client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop читает до закрытия соединения; входящие сообщения игнорируются.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		h.drop(c)
		h.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close отключает всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
	}
}
