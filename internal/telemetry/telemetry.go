// Package telemetry pushes per-frame debug snapshots of the core's
// register state over a websocket, for external inspection tooling.
// It deliberately carries no framebuffer pixels; presenting the image
// is the windowing collaborator's job, not the core's.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/kestrelcore/goba/pkg/log"
)

// Snapshot is one frame's worth of debug state.
type Snapshot struct {
	PC     uint32 `json:"pc"`
	CPSR   uint32 `json:"cpsr"`
	VCount uint16 `json:"vcount"`
	IE     uint16 `json:"ie"`
	IF     uint16 `json:"if"`
	IME    bool   `json:"ime"`
	Cycles uint64 `json:"cycles"`
	Frames uint64 `json:"frames"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server accepts websocket clients and broadcasts snapshots to every
// connected one. Clients are read-only consumers; anything they send
// is discarded.
type Server struct {
	Log log.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewServer returns a Server with no clients.
func NewServer() *Server {
	return &Server{
		Log:     log.NewNullLogger(),
		clients: make(map[*websocket.Conn]bool),
	}
}

// Handler upgrades an incoming HTTP request to a websocket and
// registers the connection for broadcasts.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.Log.Errorf("telemetry: upgrade failed: %v", err)
			return
		}

		s.mu.Lock()
		s.clients[conn] = true
		s.mu.Unlock()

		// drain (and ignore) client messages until the connection dies,
		// so the websocket control frames keep being processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					s.remove(conn)
					return
				}
			}
		}()
	})
}

// ListenAndServe starts an HTTP server for Handler on addr in a
// background goroutine.
func (s *Server) ListenAndServe(addr string) {
	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			s.Log.Errorf("telemetry: listen on %s failed: %v", addr, err)
		}
	}()
}

// Broadcast sends the snapshot to every connected client, dropping
// clients whose connection has failed.
func (s *Server) Broadcast(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(snap); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) remove(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn.Close()
	delete(s.clients, conn)
}
