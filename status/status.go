// Package status pushes browser events (decoded files, diagnostics, errors) to websocket clients
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
)

type Kind int

const (
	INFO Kind = iota
	ERROR
	DIAGNOSTIC
)

type Event struct {
	Message    string               `json:"message"`
	Time       time.Time            `json:"time"`
	Kind       Kind                 `json:"kind"`
	File       string               `json:"file,omitempty"`
	Diagnostic *envelope.Diagnostic `json:"diagnostic,omitempty"`
}

// size of history sent to new clients
const historySize = 32

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts events to connected clients. Nil hub drops events.
type Hub struct {
	lock    sync.Mutex
	clients map[*client]bool
	history [][]byte

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drains control frames until peer goes away
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) register(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for _, msg := range h.history {
		c.send <- msg
	}
	h.clients[c] = true
}

func (h *Hub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[status] ws upgrade error: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, historySize+16)}
	h.register(c)
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	data, err := json.Marshal(&e)
	if err != nil {
		log.Printf("[status] marshal error: %v", err)
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.history = append(h.history, data)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow client
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) Info(file string, format string, a ...interface{}) {
	h.Publish(Event{Message: fmt.Sprintf(format, a...), Kind: INFO, File: file})
}

func (h *Hub) Error(file string, err error) {
	h.Publish(Event{Message: err.Error(), Kind: ERROR, File: file})
}

func (h *Hub) Diagnostics(file string, diag *envelope.Diagnostics) {
	if diag == nil {
		return
	}
	for i := range diag.List {
		d := diag.List[i]
		h.Publish(Event{Message: d.String(), Kind: DIAGNOSTIC, File: file, Diagnostic: &d})
	}
}
