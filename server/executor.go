package main

import (
	"errors"
	"fmt"
	"log"
)

var (
	ErrComboActive = errors.New("combo already running")
	ErrComboLength = errors.New("combo must have 2 to 4 actions")
)

const (
	MinComboLen = 2
	MaxComboLen = 4
)

// Motion is how an action moves its agent
type Motion struct {
	Duration float64 // seconds until the agent is idle again
	Offset   Vec3    // committed to the position when the action completes
	Impulse  Vec3    // added to the velocity when the action starts
}

// ActionPlanner turns an action into a motion for one simulation variant.
// Actions the variant does not support return *UnknownActionError.
type ActionPlanner interface {
	Plan(a *Agent, act Action) (Motion, error)
}

// Executor runs timed actions and drains combo queues. An agent has a single
// acting slot so two actions never overlap.
type Executor struct {
	sched   *Scheduler
	bounds  Bounds
	planner ActionPlanner
}

func NewExecutor(sched *Scheduler, bounds Bounds, planner ActionPlanner) *Executor {
	return &Executor{sched: sched, bounds: bounds, planner: planner}
}

// Start begins act on an idle agent. It does nothing and returns false when the
// agent is busy or knocked out. Unknown actions run as a wait. The returned
// action is the one actually started.
func (e *Executor) Start(a *Agent, act Action) (Action, bool) {
	if a.Busy() || !a.Alive {
		return ActionNone, false
	}
	m, err := e.planner.Plan(a, act)
	if err != nil {
		var unknown *UnknownActionError
		if !errors.As(err, &unknown) {
			log.Printf("[exec] %s: plan %s: %v", a.Name, act, err)
		} else {
			log.Printf("[exec] %s: %v, waiting instead", a.Name, err)
		}
		act = ActionWait
		m, err = e.planner.Plan(a, ActionWait)
		if err != nil {
			m = Motion{}
		}
	}

	now := e.sched.Now()
	a.current = &Acting{Action: act, Start: now, Duration: m.Duration, Offset: m.Offset}
	a.Vel = a.Vel.Add(m.Impulse)
	a.LastAction = act
	a.History.Add(act)

	e.sched.After(m.Duration, a.Gen.Token(), func() { e.complete(a) })
	return act, true
}

// complete commits the action's endpoint, clamped to the bounds
func (e *Executor) complete(a *Agent) {
	if a.current == nil {
		return
	}
	a.Pos = e.bounds.Clamp(a.Pos.Add(a.current.Offset))
	a.Display = a.Pos
	a.current = nil
	if len(a.Queue) == 0 {
		a.ComboActive = false
	}
}

// Advance updates the rendered position of an acting agent. The transition may
// overshoot the bounds; only the committed endpoint is clamped.
func (e *Executor) Advance(a *Agent) {
	if a.current == nil {
		a.Display = a.Pos
		return
	}
	p := a.current.Progress(e.sched.Now())
	a.Display = a.Pos.Add(a.current.Offset.Scale(p))
}

// StartCombo queues seq on the agent. A combo cannot be started while another
// is still draining.
func (e *Executor) StartCombo(a *Agent, seq []Action) error {
	if len(seq) < MinComboLen || len(seq) > MaxComboLen {
		return fmt.Errorf("%w: got %d", ErrComboLength, len(seq))
	}
	if a.ComboActive || len(a.Queue) > 0 {
		return ErrComboActive
	}
	a.Queue = append(a.Queue[:0], seq...)
	a.ComboActive = true
	return nil
}

// Drain starts the next queued action if the agent is idle. One element per call.
func (e *Executor) Drain(a *Agent) (Action, bool) {
	if a.Busy() || !a.Alive || len(a.Queue) == 0 {
		return ActionNone, false
	}
	next := a.Queue[0]
	a.Queue = a.Queue[1:]
	return e.Start(a, next)
}
