package main

import (
	"errors"
	"fmt"
	"time"
)

// Mode names a simulation variant
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeBoxing  Mode = "boxing"
	ModeSoccer  Mode = "soccer"
)

// ParseMode validates a mode name. Empty means sandbox.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeSandbox:
		return ModeSandbox, true
	case ModeBoxing, ModeSoccer:
		return Mode(s), true
	}
	return "", false
}

var (
	ErrUnknownMode        = errors.New("unknown mode")
	ErrUnsupportedControl = errors.New("control not supported in this mode")
)

// EventKind tags simulation events
type EventKind string

const (
	EventDecision EventKind = "decision"
	EventOutcome  EventKind = "outcome"
	EventStrike   EventKind = "strike"
	EventTarget   EventKind = "target"
	EventGoal     EventKind = "goal"
	EventMatchEnd EventKind = "match_end"
)

// Event is something that happened inside a simulation tick
type Event struct {
	SessionID string    `json:"sid,omitempty"`
	Mode      Mode      `json:"mode,omitempty"`
	Kind      EventKind `json:"kind"`
	Time      float64   `json:"time"`
	AgentID   string    `json:"agent,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// EventSink receives simulation events. Emit is called from the tick with the
// game lock held and must not block.
type EventSink interface {
	Emit(ev Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(ev Event) { f(ev) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

// AgentStats pairs an agent with its learning stats
type AgentStats struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Stats LearningStats `json:"stats"`
}

// Simulation is one variant running inside a game session. All methods are
// called with the game lock held.
type Simulation interface {
	Mode() Mode
	Step(dt float64)
	State() ArenaState
	Control(cmd ControlCmd) error
	LearningStats() []AgentStats
	Over() bool
	Close()
}

// NewSimulation builds the variant for mode
func NewSimulation(mode Mode, cfg Config, oracle Oracle, sink EventSink) (Simulation, error) {
	if sink == nil {
		sink = discardSink{}
	}
	rng := NewRNG(cfg.Seed)
	switch mode {
	case ModeSandbox:
		return NewSandbox(cfg, oracle, rng, sink), nil
	case ModeBoxing:
		return NewBoxing(cfg, oracle, rng, sink), nil
	case ModeSoccer:
		return NewSoccer(cfg, rng, sink), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func oracleTimeout(cfg OracleConfig) time.Duration {
	return time.Duration(cfg.Timeout * float64(time.Second))
}

func collectStats(agents ...*Agent) []AgentStats {
	out := make([]AgentStats, 0, len(agents))
	for _, a := range agents {
		out = append(out, AgentStats{ID: a.ID, Name: a.Name, Stats: a.Learner.Stats()})
	}
	return out
}
