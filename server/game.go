package main

import (
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 30 // state broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
)

const maxSpectatorsPerSession = 50

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Game runs one simulation on a fixed tick and fans its state and events out
// to spectators and event sinks
type Game struct {
	mu         sync.RWMutex
	sessionID  string
	sim        Simulation
	spectators map[string]Broadcaster
	sinks      []EventSink
	tick       uint64
	running    bool
	closed     bool
	stop       chan struct{}
}

// NewGame builds the simulation for mode. sinks receive every event the
// simulation emits, tagged with the session ID.
func NewGame(sessionID string, mode Mode, cfg Config, oracle Oracle, sinks ...EventSink) (*Game, error) {
	g := &Game{
		sessionID:  sessionID,
		spectators: make(map[string]Broadcaster),
		stop:       make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			g.sinks = append(g.sinks, s)
		}
	}
	sim, err := NewSimulation(mode, cfg, oracle, g)
	if err != nil {
		return nil, err
	}
	g.sim = sim
	return g, nil
}

// Run starts the game loop
func (g *Game) Run() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop and cancels outstanding oracle requests.
// No events are emitted after Stop returns.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.running = false
	close(g.stop)
	g.sim.Close()
}

// Mode is the simulation variant
func (g *Game) Mode() Mode { return g.sim.Mode() }

// AddSpectator attaches a client. Returns false when the session is full.
func (g *Game) AddSpectator(id string, b Broadcaster) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.spectators) >= maxSpectatorsPerSession {
		return false
	}
	g.spectators[id] = b
	return true
}

// RemoveSpectator detaches a client
func (g *Game) RemoveSpectator(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.spectators, id)
}

// SpectatorCount returns the number of attached clients
func (g *Game) SpectatorCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.spectators)
}

// Control applies an operator command inside the game lock
func (g *Game) Control(cmd ControlCmd) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrSessionClosed
	}
	return g.sim.Control(cmd)
}

// Stats returns the learning stats of every agent
func (g *Game) Stats() []AgentStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sim.LearningStats()
}

// Snapshot returns the current state
func (g *Game) Snapshot() ArenaState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	st := g.sim.State()
	st.Tick = g.tick
	return st
}

// Step runs n ticks synchronously. The game loop must not be running.
func (g *Game) Step(n int) {
	for i := 0; i < n; i++ {
		g.update()
	}
}

// update runs one game tick
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}

	dt := 1.0 / float64(TickRate)
	g.tick++
	g.sim.Step(dt)

	if g.tick%BroadcastEvery == 0 {
		g.broadcastState()
	}
}

// Emit implements EventSink for the simulation. It runs with the game lock held.
func (g *Game) Emit(ev Event) {
	if g.closed {
		return
	}
	ev.SessionID = g.sessionID
	ev.Mode = g.sim.Mode()
	switch ev.Kind {
	case EventOutcome:
		if o, ok := ev.Data.(Outcome); ok {
			o.SessionID = g.sessionID
			ev.Data = o
		}
		g.broadcastMsg(Envelope{T: MsgOutcome, Data: ev.Data})
	case EventMatchEnd:
		g.broadcastMsg(Envelope{T: MsgMatchEnd, Data: ev.Data})
	case EventGoal, EventStrike, EventTarget:
		g.broadcastMsg(Envelope{T: MsgEvent, Data: ev})
	}
	for _, s := range g.sinks {
		s.Emit(ev)
	}
}

// broadcastState sends the current state to all spectators as one msgpack frame
func (g *Game) broadcastState() {
	if len(g.spectators) == 0 {
		return
	}
	state := g.sim.State()
	state.Tick = g.tick
	data, err := msgpack.Marshal(&state)
	if err != nil {
		log.Printf("[game] %s: marshal state: %v", g.sessionID, err)
		return
	}
	for _, s := range g.spectators {
		s.SendBinary(data)
	}
}

// broadcastMsg sends a message to all spectators in the session
func (g *Game) broadcastMsg(msg Envelope) {
	for _, s := range g.spectators {
		s.SendJSON(msg)
	}
}
