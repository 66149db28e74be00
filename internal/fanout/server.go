package fanout

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/telemetry"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type panelClient struct {
	addr string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Server is the host side of the push socket. It fans frames out to every
// connected panel. cmd/host_mock runs one.
type Server struct {
	mu      sync.Mutex
	clients map[*panelClient]struct{}

	// Welcome, when set, produces the frames a panel receives right after
	// it connects (typically an open push).
	Welcome func() []events.Event
}

func NewServer() *Server {
	return &Server{
		clients: make(map[*panelClient]struct{}),
	}
}

// Broadcast serializes evt and enqueues it to every client (non-blocking).
// Returns how many clients it was queued for.
func (s *Server) Broadcast(evt events.Event) int {
	data, err := MarshalEvent(evt)
	if err != nil {
		telemetry.Warnf("fanout: marshal error: %v", err)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for c := range s.clients {
		if c.enqueue(data) {
			n++
		}
	}
	return n
}

// Clients returns the number of connected panels.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (c *panelClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		telemetry.Warnf("fanout: dropping frame for slow panel %s", c.addr)
		return false
	}
}

// HandleWS is the HTTP handler for WebSocket upgrade requests.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("fanout: upgrade failed: %v", err)
		return
	}

	c := &panelClient{
		addr: r.RemoteAddr,
		conn: conn,
		send: make(chan []byte, clientSendBuf),
		done: make(chan struct{}),
	}

	if s.Welcome != nil {
		for _, evt := range s.Welcome() {
			data, err := MarshalEvent(evt)
			if err != nil {
				telemetry.Warnf("fanout: marshal welcome %s: %v", evt.Type, err)
				continue
			}
			c.enqueue(data)
		}
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	telemetry.Plainf("Fanout: Panel Connected [%s]", c.addr)

	go s.writePump(c)
	go s.readPump(c)
}

// writePump drains the client's send channel and writes to the WS connection.
// It owns the client lifecycle: on exit it removes the client from the map
// (so Broadcast never sends to a stale channel) and closes the connection.
func (s *Server) writePump(c *panelClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				telemetry.Warnf("fanout: write error panel=%s: %v", c.addr, err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs / close frames.
// Panels never send on this socket; commands go over HTTP.
// On exit it signals writePump via c.done (never closes c.send).
func (s *Server) readPump(c *panelClient) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *panelClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	telemetry.Plainf("Fanout: Panel Disconnected [%s]", c.addr)
}

// Handler returns a mux serving the socket at /ws.
func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	return mux
}

// ListenAndServe starts the push WebSocket server.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	telemetry.Plainf("fanout: server listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}
