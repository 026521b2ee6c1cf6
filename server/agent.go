package main

// Agent is a character, fighter or robot driven by a controller. All fields are
// owned by the simulation tick.
type Agent struct {
	ID     string
	Name   string
	Index  int // fixed update order inside a simulation
	Radius float64

	Pos     Vec3 // committed position
	Display Vec3 // rendered position, ahead of Pos while an action animates
	Vel     Vec3
	Facing  Vec3

	OnGround  bool
	Crouching bool

	Health     int
	MaxHealth  int
	Stamina    float64
	MaxStamina float64
	Score      int
	Alive      bool // false once knocked out

	Active        bool // controller enabled
	Thinking      bool // oracle request outstanding
	ThinkingSince float64
	DecisionDue   bool // a decision has been scheduled but not taken yet

	current     *Acting
	Queue       []Action
	ComboActive bool
	LastAction  Action
	History     *Ring[Action] // own recent actions, read by the opponent

	Learner *Learner
	Gen     Generation
}

// Acting is the action currently animating
type Acting struct {
	Action   Action
	Start    float64
	Duration float64
	Offset   Vec3
}

// Progress returns how far through the action we are at time now, in [0, 1]
func (ac *Acting) Progress(now float64) float64 {
	if ac.Duration <= 0 {
		return 1
	}
	return Clamp((now-ac.Start)/ac.Duration, 0, 1)
}

// NewAgent creates an idle, alive agent at pos
func NewAgent(id, name string, index int, pos Vec3, learning LearningConfig, historySize int) *Agent {
	if historySize < 1 {
		historySize = 10
	}
	return &Agent{
		ID:       id,
		Name:     name,
		Index:    index,
		Pos:      pos,
		Display:  pos,
		Facing:   Vec3{0, 0, -1},
		OnGround: true,
		Alive:    true,
		History:  NewRing[Action](historySize),
		Learner:  NewLearner(learning),
	}
}

// Busy reports whether an action is in flight
func (a *Agent) Busy() bool { return a.current != nil }

// Current returns the in-flight action, nil when idle
func (a *Agent) Current() *Acting { return a.current }

func (a *Agent) doing(act Action) bool {
	return a.current != nil && a.current.Action == act
}

// Attacking reports a strike in flight
func (a *Agent) Attacking() bool { return a.current != nil && a.current.Action.IsStrike() }

func (a *Agent) Defending() bool { return a.doing(ActionDefend) }
func (a *Agent) Dodging() bool   { return a.doing(ActionDodge) }

// Idle reports an agent that can take a new decision right now
func (a *Agent) Idle() bool {
	return a.Alive && !a.Busy() && len(a.Queue) == 0
}

// Invalidate drops every in-flight action, queued action and pending decision.
// Stale oracle replies and scheduled callbacks are discarded by the bumped
// generation.
func (a *Agent) Invalidate() {
	a.Gen.Bump()
	a.current = nil
	a.Queue = nil
	a.ComboActive = false
	a.Thinking = false
	a.DecisionDue = false
	a.Display = a.Pos
}

// TakeDamage reduces health and returns true if the agent was knocked out
func (a *Agent) TakeDamage(dmg int) bool {
	if !a.Alive {
		return false
	}
	a.Health -= dmg
	if a.Health <= 0 {
		a.Health = 0
		a.Alive = false
		a.Invalidate()
		return true
	}
	return false
}

// ToState converts to protocol state
func (a *Agent) ToState(now float64) AgentState {
	st := AgentState{
		ID:        a.ID,
		Name:      a.Name,
		Pos:       a.Display.Rounded(),
		Vel:       a.Vel.Rounded(),
		Health:    a.Health,
		Stamina:   round2(a.Stamina),
		Score:     a.Score,
		Alive:     a.Alive,
		Active:    a.Active,
		Thinking:  a.Thinking,
		OnGround:  a.OnGround,
		Crouching: a.Crouching,
		Queue:     len(a.Queue),
		Rate:      round2(a.Learner.ExplorationRate()),
	}
	if a.current != nil {
		st.Action = a.current.Action.String()
		st.Progress = round2(a.current.Progress(now))
	}
	return st
}
