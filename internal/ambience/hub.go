package ambience

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soltrees/api/internal/config"
	"github.com/soltrees/api/internal/logging"
)

const writeTimeout = 5 * time.Second

// flockMessage is the state frame broadcast to every connected client.
type flockMessage struct {
	Type  string `json:"type"`
	Birds []Bird `json:"birds"`
}

// clientMessage is what clients may send back. Only jump is understood;
// anything else is ignored.
type clientMessage struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
}

// Hub owns the flock, ticks it forward, and fans the state out over
// websockets.
type Hub struct {
	flock    *Flock
	tick     time.Duration
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a hub with a fresh flock.
func NewHub(cfg *config.AmbienceConfig, logger *logging.Logger) *Hub {
	birds := cfg.Birds
	if birds <= 0 {
		birds = 5
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}

	return &Hub{
		flock: NewFlock(birds, time.Now().UnixNano()),
		tick:  tick,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Run ticks the simulation until the context is cancelled. Broadcasting is
// skipped while nobody is connected.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			birds := h.flock.Step(h.tick.Seconds())
			h.broadcast(flockMessage{Type: "birds", Birds: birds})
		}
	}
}

// HandleWS upgrades the request and registers the client. The read loop only
// exists to consume jump messages and detect disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// New clients see the current flock right away instead of waiting for
	// the next tick.
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(flockMessage{Type: "birds", Birds: h.flock.Snapshot()}); err != nil {
		h.drop(conn)
		return
	}

	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "jump" {
			h.flock.Jump(msg.ID)
		}
	}
}

func (h *Hub) broadcast(msg flockMessage) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if present {
		conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
