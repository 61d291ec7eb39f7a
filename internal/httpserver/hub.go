// internal/httpserver/hub.go
//
// Websocket feed of the store view.
// Responsibilities:
//   - Track connected clients (gorilla/websocket).
//   - Coalesce change events from the bus and push one fresh view per burst.
//   - Answer "ping" and "sync" requests from clients.
//
// Notes:
//   - Notify never blocks: it is called synchronously on the publisher's
//     goroutine, sometimes while the store lock is held.
//   - Every send and close of a client channel happens under h.mu, so a
//     slow client can be dropped without racing its reader.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessboard/internal/events"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Message is the envelope for every websocket frame.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Hub fans store views out to websocket clients.
type Hub struct {
	view     func() any
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	changed chan struct{}
	done    chan struct{}
	stop    sync.Once
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a Hub that pushes view() to clients. Browser connections
// are accepted from allowedOrigin or from the serving host itself.
func NewHub(view func() any, allowedOrigin string) *Hub {
	h := &Hub{
		view:    view,
		clients: make(map[*client]struct{}),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" ||
				(allowedOrigin != "" && origin == allowedOrigin) ||
				strings.HasSuffix(origin, "://"+r.Host)
		},
	}
	return h
}

// Notify is an events.Handler.
func (h *Hub) Notify(events.Event) {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// Run pushes a view after every burst of changes until Close.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				h.dropLocked(c)
			}
			h.mu.Unlock()
			return
		case <-h.changed:
			data, err := h.stateMessage()
			if err != nil {
				log.Error().Err(err).Msg("encode state")
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				h.sendLocked(c, data)
			}
			h.mu.Unlock()
		}
	}
}

// Close stops Run and disconnects every client.
func (h *Hub) Close() {
	h.stop.Do(func() { close(h.done) })
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams state until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Debug().Int("clients", n).Msg("websocket client connected")

	h.sendState(c)
	go c.writePump()
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
		log.Debug().Msg("websocket client disconnected")
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "ping":
			data, _ := json.Marshal(Message{Type: "pong"})
			h.mu.Lock()
			h.sendLocked(c, data)
			h.mu.Unlock()
		case "sync":
			h.sendState(c)
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (h *Hub) sendState(c *client) {
	data, err := h.stateMessage()
	if err != nil {
		log.Error().Err(err).Msg("encode state")
		return
	}
	h.mu.Lock()
	h.sendLocked(c, data)
	h.mu.Unlock()
}

func (h *Hub) stateMessage() ([]byte, error) {
	return json.Marshal(Message{Type: "state", Payload: h.view()})
}

// sendLocked queues data for c, dropping c if its buffer is full.
func (h *Hub) sendLocked(c *client, data []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Msg("websocket client too slow, dropping")
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}
