// Package kernel hosts the runtime's long-lived process: a message router
// multiplexing script-client connections onto bridge sessions, a health
// monitor, and a diagnostics bridge, fronted by an HTTP surface.
package kernel

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/lucidkernel/runtime/bridge"
)

// ClientID identifies one connected script client.
type ClientID string

// Client is one active websocket connection routed to a bridge session.
type Client struct {
	ID      ClientID
	Session *bridge.Session
	conn    *websocket.Conn
}

// Router tracks registered client connections, each bound to a bridge
// session, for lookup, counting and broadcast. It does not read or
// dispatch inbound messages itself.
type Router struct {
	mu      sync.RWMutex
	clients map[ClientID]*Client
	logger  *zap.Logger
}

// NewRouter builds an empty message router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{clients: make(map[ClientID]*Client), logger: logger}
}

// Register adds a connected client under id, replacing any prior
// registration for that id.
func (r *Router) Register(id ClientID, session *bridge.Session, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = &Client{ID: id, Session: session, conn: conn}
	r.logger.Info("client registered", zap.String("client_id", string(id)))
}

// Unregister removes a client and closes its session.
func (r *Router) Unregister(id ClientID) {
	r.mu.Lock()
	client, ok := r.clients[id]
	delete(r.clients, id)
	r.mu.Unlock()

	if !ok {
		return
	}
	if client.Session != nil {
		client.Session.Close()
	}
	if client.conn != nil {
		client.conn.Close(websocket.StatusNormalClosure, "session closed")
	}
	r.logger.Info("client unregistered", zap.String("client_id", string(id)))
}

// Get retrieves a registered client by id.
func (r *Router) Get(id ClientID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// ActiveCount returns the number of currently registered clients, read by
// the health monitor's connection-metrics pass.
func (r *Router) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast writes payload to every registered client, collecting (but not
// stopping on) per-client write failures.
func (r *Router) Broadcast(ctx context.Context, payload []byte) []error {
	r.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(r.clients))
	for _, c := range r.clients {
		if c.conn != nil {
			conns = append(conns, c.conn)
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
