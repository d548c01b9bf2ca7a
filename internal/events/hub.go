// Package events streams state changes to websocket clients.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pingInterval = 20 * time.Second
	pongWait     = 2 * pingInterval
)

// Message is the JSON frame sent to clients. Audio buffers are never sent;
// clients fetch them from the audio endpoint when Present is true.
type Message struct {
	Type       string                  `json:"type"`
	DocumentID string                  `json:"documentId"`
	Topic      catalog.Topic           `json:"topic"`
	Text       string                  `json:"text,omitempty"`
	Present    bool                    `json:"present"`
	Loading    bool                    `json:"loading"`
	Revision   uint64                  `json:"revision,omitempty"`
	Status     audit.SessionStatus     `json:"status,omitempty"`
	Transcript []audit.TranscriptEntry `json:"transcript,omitempty"`
	At         time.Time               `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out messages to every connected client. A client whose buffer
// is full is disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	log      logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub accepts connections from origin, or from any origin when origin
// is "*" or empty.
func NewHub(origin string, log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if origin == "" || origin == "*" {
					return true
				}
				got := r.Header.Get("Origin")
				return got == "" || got == origin
			},
		},
		log:     log,
		clients: map[*client]struct{}{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("events", "websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("events", "client connected", map[string]any{"clients": count})

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop only services control frames; it returns when the peer goes away.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeTimeout))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends msg to every connected client without blocking.
func (h *Hub) Publish(msg Message) {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("events", "marshal message", map[string]any{"error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
			h.log.Warn("events", "slow client dropped", nil)
		}
	}
}

// StateObserver converts State changes into messages.
func (h *Hub) StateObserver() audit.Observer {
	return func(ev audit.Event) {
		h.Publish(Message{
			Type:       string(ev.Kind),
			DocumentID: ev.Key.DocumentID,
			Topic:      ev.Key.Topic,
			Text:       ev.Text,
			Present:    ev.Present,
			Loading:    ev.Loading,
			Revision:   ev.Revision,
		})
	}
}

// SessionObserver converts panel transcript changes into messages.
func (h *Hub) SessionObserver() audit.SessionNotifier {
	return func(ev audit.SessionEvent) {
		h.Publish(Message{
			Type:       "session",
			DocumentID: ev.Key.DocumentID,
			Topic:      ev.Key.Topic,
			Present:    ev.Status != audit.StatusClosed,
			Status:     ev.Status,
			Transcript: ev.Transcript,
		})
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
