package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// connState tracks the lifecycle of a Conn.
type connState int

const (
	stateOpen connState = iota
	stateClosing
	stateClosed
)

// Conn wraps a live websocket connection for one player. Writes are
// serialized by the connection's own mutex so concurrent broadcasts never
// interleave frames.
type Conn struct {
	playerID string
	ws       *websocket.Conn

	mu    sync.Mutex
	state connState
}

// PlayerID reports the identity this connection was registered under.
func (c *Conn) PlayerID() string {
	return c.playerID
}

// Send writes a text frame with a write deadline. Sending on a closed
// connection returns the underlying error; callers treat it as best-effort.
func (c *Conn) Send(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateOpen {
		return websocket.ErrCloseSent
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(frame))
}

// Close sends a close frame carrying reason and tears the socket down.
// Safe to call more than once.
func (c *Conn) Close(reason string) {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosing
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, message)
	c.state = stateClosed
	c.mu.Unlock()
	c.ws.Close()
}

// Registry owns all live connections, exactly one per player identity.
type Registry struct {
	mu     sync.Mutex
	conns  map[string]*Conn
	logger *slog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[string]*Conn),
		logger: logger,
	}
}

// Register admits a connection for playerID. A previous entry for the same
// identity is closed with a "superseded" reason before being replaced.
func (r *Registry) Register(playerID string, ws *websocket.Conn) *Conn {
	conn := &Conn{playerID: playerID, ws: ws}

	r.mu.Lock()
	existing := r.conns[playerID]
	r.conns[playerID] = conn
	r.mu.Unlock()

	if existing != nil {
		r.logger.Info("superseding duplicate connection", "player", playerID)
		existing.Close("superseded")
	}
	return conn
}

// Unregister removes conn if it is still the registered entry for its player.
// A connection that has already been superseded leaves the newer entry
// untouched. Idempotent.
func (r *Registry) Unregister(conn *Conn) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	if r.conns[conn.playerID] == conn {
		delete(r.conns, conn.playerID)
	}
	r.mu.Unlock()
	conn.Close("")
}

// Get returns the live connection for playerID, if any.
func (r *Registry) Get(playerID string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[playerID]
	return conn, ok
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// SendTo delivers a frame to one player, best-effort. A missing or failing
// connection is logged and swallowed, never raised to the caller.
func (r *Registry) SendTo(playerID, frame string) {
	conn, ok := r.Get(playerID)
	if !ok {
		r.logger.Debug("dropping frame for offline player", "player", playerID)
		return
	}
	if err := conn.Send(frame); err != nil {
		r.logger.Warn("failed to send frame", "player", playerID, "error", err)
	}
}

// SendEach fans a frame out to the given players, best-effort.
func (r *Registry) SendEach(playerIDs []string, frame string) {
	for _, id := range playerIDs {
		r.SendTo(id, frame)
	}
}

// SendAll fans a frame out to every live connection. The recipient set is
// snapshotted under the lock, then written outside it.
func (r *Registry) SendAll(frame string) {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Send(frame); err != nil {
			r.logger.Warn("failed to broadcast frame", "player", conn.playerID, "error", err)
		}
	}
}
