// Package viewer serves a live view of a simulated cluster over HTTP.
//
// Endpoints:
//
//	GET /api/displays   JSON snapshot of every node
//	GET /ws             websocket pushing the same JSON every interval
//	GET /health         "ok"
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/e7canasta/tilesync/sim"
)

// Source supplies the node snapshots to show. *sim.Cluster implements it.
type Source interface {
	Snapshots() []sim.Snapshot
}

// View is the JSON document served by /api/displays and /ws.
type View struct {
	Time  time.Time      `json:"time"`
	Nodes []sim.Snapshot `json:"nodes"`
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address (default ":8080").
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithInterval sets the websocket push period (default 200ms).
func WithInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Server is the viewer HTTP server.
type Server struct {
	src      Source
	addr     string
	interval time.Duration
	hub      *hub

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a viewer for src. Nothing listens until Start.
func New(src Source, opts ...Option) *Server {
	s := &Server{
		src:      src,
		addr:     ":8080",
		interval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.render)
	return s
}

func (s *Server) render() ([]byte, error) {
	return json.Marshal(View{Time: time.Now(), Nodes: s.src.Snapshots()})
}

// Handler returns the HTTP handler for embedding in existing servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/displays", s.handleDisplays)
	mux.HandleFunc("/ws", s.hub.handle)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

func (s *Server) handleDisplays(w http.ResponseWriter, r *http.Request) {
	data, err := s.render()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

// Broadcast pushes the current view to every websocket client once.
func (s *Server) Broadcast() {
	data, err := s.render()
	if err != nil {
		slog.Error("viewer: failed to marshal view", "error", err)
		return
	}
	s.hub.push(data)
}

// Start listens on the configured address and pushes the view every
// interval until ctx is done or Close is called. Returns once listening.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("viewer: already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("viewer: listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.Handler()}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("viewer: server stopped", "error", err)
		}
	}()
	go s.pushLoop(ctx)

	slog.Info("viewer: serving", "addr", ln.Addr().String(), "interval", s.interval)
	return nil
}

func (s *Server) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.hub.done:
			return
		case <-ticker.C:
			s.Broadcast()
		}
	}
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Close stops the push loop, drops websocket clients and shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	s.hub.close()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
