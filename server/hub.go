package main

import (
	"errors"
	"sort"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

var errNotOperator = errors.New("not authenticated")

// Hub owns the live connections. It detaches departing clients from the
// session they watch and decides which clients may steer a session.
type Hub struct {
	sessions *SessionManager
	db       *DB   // optional
	auth     *Auth // optional
	// requireAuth gates control commands behind an operator token
	requireAuth bool

	register   chan *Client
	unregister chan *Client

	mu        sync.RWMutex
	clients   map[*Client]bool
	operators map[string]int // signed-in operator -> live connections

	conns connLimiter
}

// connLimiter caps connections per address and overall. HTTP handlers use it
// before the upgrade, outside the hub loop.
type connLimiter struct {
	mu    sync.Mutex
	perIP map[string]int
	total int
}

// NewHub creates a Hub. Without auth, requireAuth has no effect.
func NewHub(sessions *SessionManager, db *DB, auth *Auth, requireAuth bool) *Hub {
	return &Hub{
		sessions:    sessions,
		db:          db,
		auth:        auth,
		requireAuth: requireAuth && auth != nil,
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		clients:     make(map[*Client]bool),
		operators:   make(map[string]int),
		conns:       connLimiter{perIP: make(map[string]int)},
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.conns.mu.Lock()
	defer h.conns.mu.Unlock()
	return h.conns.total < maxTotalConns && h.conns.perIP[ip] < maxConnsPerIP
}

func (h *Hub) TrackConnect(ip string) {
	h.conns.mu.Lock()
	h.conns.perIP[ip]++
	h.conns.total++
	h.conns.mu.Unlock()
}

func (h *Hub) TrackDisconnect(ip string) {
	h.conns.mu.Lock()
	defer h.conns.mu.Unlock()
	if h.conns.perIP[ip]--; h.conns.perIP[ip] <= 0 {
		delete(h.conns.perIP, ip)
	}
	h.conns.total--
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.conns.mu.Lock()
	defer h.conns.mu.Unlock()
	return h.conns.total
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.drop(c)
		}
	}
}

// drop forgets a departed client, its operator sign-in and its spectator slot.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.signOutLocked(c)
	h.mu.Unlock()

	if c.sessionID != "" {
		h.sessions.RemoveSpectator(c.sessionID, c.clientID)
	}
}

// SignIn marks c as driven by an operator. Presenting a second token switches
// the connection to that operator.
func (h *Hub) SignIn(c *Client, id int64, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signOutLocked(c)
	c.operatorID, c.operatorName = id, name
	h.operators[name]++
}

func (h *Hub) signOutLocked(c *Client) {
	if c.operatorName == "" {
		return
	}
	if h.operators[c.operatorName]--; h.operators[c.operatorName] <= 0 {
		delete(h.operators, c.operatorName)
	}
	c.operatorID, c.operatorName = 0, ""
}

// CanControl reports whether c may send control commands.
func (h *Hub) CanControl(c *Client) error {
	if !h.requireAuth {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.operatorID == 0 {
		return errNotOperator
	}
	return nil
}

// Operators returns the signed-in operator names, sorted.
func (h *Hub) Operators() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.operators))
	for name := range h.operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
