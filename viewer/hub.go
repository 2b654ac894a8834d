package viewer

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// hub owns every websocket connection. All writes happen on its goroutine,
// so a connection never sees two concurrent writers.
type hub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	register  chan *websocket.Conn
	remove    chan *websocket.Conn
	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// current renders the payload sent to a client as it joins.
	current func() ([]byte, error)
}

func newHub(current func() ([]byte, error)) *hub {
	h := &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		register:  make(chan *websocket.Conn),
		remove:    make(chan *websocket.Conn),
		broadcast: make(chan []byte, 16),
		done:      make(chan struct{}),
		current:   current,
	}
	go h.run()
	return h
}

func (h *hub) run() {
	for {
		select {
		case <-h.done:
			for conn := range h.clients {
				conn.Close()
			}
			return
		case conn := <-h.register:
			h.clients[conn] = true
			if data, err := h.current(); err == nil {
				h.write(conn, data)
			}
		case conn := <-h.remove:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case msg := <-h.broadcast:
			for conn := range h.clients {
				h.write(conn, msg)
			}
		}
	}
}

func (h *hub) write(conn *websocket.Conn, msg []byte) {
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		slog.Warn("viewer: websocket send failed, dropping client", "error", err)
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *hub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("viewer: websocket upgrade failed", "error", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Read only to notice the client going away.
	go func() {
		defer func() {
			select {
			case h.remove <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Warn("viewer: websocket error", "error", err)
				}
				return
			}
		}
	}()
}

// push queues msg for every client; drops when the queue is full.
func (h *hub) push(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		slog.Debug("viewer: broadcast queue full, skipping frame")
	}
}

func (h *hub) close() {
	h.closeOnce.Do(func() { close(h.done) })
}
