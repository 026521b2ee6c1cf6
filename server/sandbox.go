package main

import (
	"log"
	"math"
)

// SandboxRandomSet is what the character tries when exploring or when the
// oracle fails
var SandboxRandomSet = Vocabulary{ActionMoveForward, ActionMoveLeft, ActionMoveRight, ActionJump, ActionWait}

const (
	stepProbe    = 0.7 // how far ahead to look for a step
	stepMinRise  = 0.2
	stepMaxRise  = 1.2
	groundSnap   = 0.1
	avoidRadius  = 3.0
	crouchFactor = 0.5
)

// Sandbox is a single character learning to move around a generated world,
// chasing targets while its controller explores or asks the oracle.
type Sandbox struct {
	cfg   Config
	sc    SandboxConfig
	sched *Scheduler
	rng   RNG
	sink  EventSink

	world  *World
	agent  *Agent
	exec   *Executor
	policy *Policy
	target *Target

	interval     float64
	nextDecision float64
	seeking      bool
	queuedFrom   []DecisionSource // source of each entry of agent.Queue, front first
	gen          Generation       // bumped on deactivate, cancels target respawns
}

// NewSandbox creates an inactive sandbox. Call Control with "activate" to start
// the controller.
func NewSandbox(cfg Config, oracle Oracle, rng RNG, sink EventSink) *Sandbox {
	s := &Sandbox{
		cfg:      cfg,
		sc:       cfg.Sandbox,
		sched:    NewScheduler(),
		rng:      rng,
		sink:     sink,
		interval: cfg.Sandbox.DecisionInterval,
	}
	s.world = NewWorld(cfg.Sandbox, rng)
	s.agent = NewAgent(GenerateID(4), "Trainee", 0, Vec3{}, cfg.Learning, 10)
	s.agent.Radius = cfg.Sandbox.AgentRadius
	s.exec = NewExecutor(s.sched, s.world.Bounds, s)
	s.policy = NewPolicy(SandboxVocabulary, SandboxRandomSet, oracle, rng, oracleTimeout(cfg.Oracle))
	s.settle()
	return s
}

func (s *Sandbox) Mode() Mode { return ModeSandbox }

// Over is always false: the sandbox runs until its session ends
func (s *Sandbox) Over() bool { return false }

func (s *Sandbox) Close() { s.policy.Close() }

// Agent exposes the trainee for tests and stats
func (s *Sandbox) Agent() *Agent { return s.agent }

// Activate turns the controller on and puts out the first target
func (s *Sandbox) Activate() {
	if s.agent.Active {
		return
	}
	s.agent.Active = true
	s.nextDecision = s.sched.Now()
	s.spawnTarget()
	log.Printf("[sandbox] controller activated")
}

// Deactivate stops the controller. Pending oracle replies, evaluations and
// target respawns are discarded.
func (s *Sandbox) Deactivate() {
	if !s.agent.Active {
		return
	}
	s.agent.Active = false
	s.agent.Invalidate()
	s.gen.Bump()
	s.target = nil
	log.Printf("[sandbox] controller deactivated")
}

// SetDecisionInterval changes the decision period, clamped to the configured range
func (s *Sandbox) SetDecisionInterval(seconds float64) {
	s.interval = Clamp(seconds, s.sc.MinInterval, s.sc.MaxInterval)
}

// DecisionInterval is the current decision period in seconds
func (s *Sandbox) DecisionInterval() float64 { return s.interval }

// Control applies an operator command
func (s *Sandbox) Control(cmd ControlCmd) error {
	switch cmd.Cmd {
	case CmdActivate:
		s.Activate()
	case CmdDeactivate:
		s.Deactivate()
	case CmdResetLearning:
		s.agent.Learner.Reset()
	case CmdSetParams:
		if cmd.ExplorationRate != nil {
			s.agent.Learner.SetExplorationRate(*cmd.ExplorationRate)
		}
		if cmd.DecisionIntervalMs != nil {
			s.SetDecisionInterval(*cmd.DecisionIntervalMs / 1000)
		}
	case CmdSurface:
		surface, ok := ParseSurface(cmd.Surface)
		if !ok {
			return ErrUnknownSurface
		}
		s.world.SetSurface(surface)
		s.resetCharacter()
	case CmdDifficulty:
		s.world.SetDifficulty(cmd.Level)
		s.resetCharacter()
	case CmdTarget:
		s.spawnTarget()
	case CmdRestart:
		s.resetCharacter()
	default:
		return ErrUnsupportedControl
	}
	return nil
}

// resetCharacter puts the trainee back at the origin. Anything in flight for
// it is dropped; the learner keeps its memory.
func (s *Sandbox) resetCharacter() {
	a := s.agent
	a.Pos = Vec3{}
	a.Vel = Vec3{}
	a.Crouching = false
	a.Invalidate()
	s.settle()
	if a.Active {
		s.gen.Bump()
		s.target = nil
		s.spawnTarget()
		s.nextDecision = s.sched.Now()
	}
}

// settle snaps the character onto the ground under it
func (s *Sandbox) settle() {
	a := s.agent
	a.Pos.Y = s.world.HeightAt(a.Pos.X, a.Pos.Z)
	a.OnGround = true
	a.Display = a.Pos
}

func (s *Sandbox) spawnTarget() {
	s.target = NewTarget(s.world.RandomTargetPosition())
	s.sink.Emit(Event{Kind: EventTarget, Time: s.sched.Now(), Data: s.target.ToState()})
}

// Step advances the sandbox by dt seconds
func (s *Sandbox) Step(dt float64) {
	s.sched.Advance(dt)
	s.world.Update(dt)

	for _, d := range s.policy.Collect() {
		s.apply(d)
	}

	a := s.agent
	if a.Active {
		if act, ok := s.exec.Drain(a); ok {
			s.onStart(act, s.popQueuedSource())
		}

		now := s.sched.Now()
		if now >= s.nextDecision {
			a.DecisionDue = true
			s.nextDecision = now + s.interval
		}
		if a.DecisionDue && !a.Busy() && len(a.Queue) == 0 && !a.Thinking {
			a.DecisionDue = false
			if d, ok := s.policy.Decide(a, s.Capture()); ok {
				s.apply(d)
			}
		}

		s.updateTarget()
	}

	s.physics(dt)
	s.exec.Advance(a)
}

// apply starts a decided action, or queues it behind the one in flight
func (s *Sandbox) apply(d Decision) {
	a := s.agent
	if !a.Active {
		return
	}
	s.sink.Emit(Event{Kind: EventDecision, Time: s.sched.Now(), AgentID: a.ID, Data: decisionData(d)})
	if a.Busy() || len(a.Queue) > 0 {
		if len(a.Queue) == 0 {
			// anything left over was dropped with the queue on invalidation
			s.queuedFrom = s.queuedFrom[:0]
		}
		a.Queue = append(a.Queue, d.Action)
		s.queuedFrom = append(s.queuedFrom, d.Source)
		return
	}
	if act, ok := s.exec.Start(a, d.Action); ok {
		s.onStart(act, d.Source)
	}
}

func (s *Sandbox) popQueuedSource() DecisionSource {
	if len(s.queuedFrom) == 0 {
		return ""
	}
	src := s.queuedFrom[0]
	s.queuedFrom = s.queuedFrom[1:]
	return src
}

// onStart updates posture and schedules the delayed evaluation
func (s *Sandbox) onStart(act Action, src DecisionSource) {
	a := s.agent
	switch {
	case act == ActionCrouch:
		a.Crouching = true
	case act == ActionJump:
		a.Crouching = false
		if a.Vel.Y > 0 {
			a.OnGround = false
		}
	case act == ActionWait:
		a.Crouching = false
	case act.IsMovement():
		a.Facing = a.Vel.Flat().Normalize()
	}

	before := s.Capture()
	s.sched.After(s.cfg.Learning.EvaluationDelay, a.Gen.Token(), func() {
		s.evaluate(act, src, before)
	})
}

func (s *Sandbox) evaluate(act Action, src DecisionSource, before Situation) {
	a := s.agent
	after := s.Capture()
	var success bool
	if s.target != nil && s.target.Alive {
		success = EvaluateTarget(after, s.sc.TargetReach)
	} else {
		success = EvaluateAction(act, before, after)
	}
	a.Learner.Record(MemoryRecord{Action: act, Success: success, Situation: before, Time: after.Time})
	s.sink.Emit(Event{Kind: EventOutcome, Time: after.Time, AgentID: a.ID, Data: Outcome{
		AgentID:   a.ID,
		AgentName: a.Name,
		Action:    act,
		Success:   success,
		Source:    string(src),
		Situation: before,
		Time:      after.Time,
	}})
}

// updateTarget consumes a reached target, or takes one short step toward it
func (s *Sandbox) updateTarget() {
	a := s.agent
	t := s.target
	if t == nil || !t.Alive {
		return
	}
	if t.Reached(a.Pos, s.sc.TargetReach) {
		t.Alive = false
		a.Score++
		s.sink.Emit(Event{Kind: EventTarget, Time: s.sched.Now(), AgentID: a.ID, Data: map[string]any{"reached": t.ID}})
		s.sched.After(s.sc.TargetRespawn, s.gen.Token(), func() {
			if s.agent.Active && (s.target == nil || !s.target.Alive) {
				s.spawnTarget()
			}
		})
		return
	}
	if a.Busy() || len(a.Queue) > 0 || a.DecisionDue {
		return
	}
	s.seeking = true
	s.exec.Start(a, s.seekAction())
	s.seeking = false
}

// seekAction heads straight for the target along its dominant axis, or away
// from close obstacles when the way is blocked
func (s *Sandbox) seekAction() Action {
	a := s.agent
	dir := s.target.Pos.Sub(a.Pos).Flat().Normalize()
	var avoid Vec3
	for _, o := range s.world.NearbyObstacles(a.Pos, s.sc.NearbyRadius) {
		if o.Distance < avoidRadius {
			for _, obs := range s.world.Obstacles {
				if obs.ID == o.ID {
					avoid = avoid.Add(a.Pos.Sub(obs.Pos).Flat().Normalize())
				}
			}
		}
	}
	if avoid.Len() > 0 {
		dir = avoid.Normalize()
	}
	return axisMove(dir)
}

// axisMove maps a ground direction to the closest of the four moves.
// Forward is -Z.
func axisMove(dir Vec3) Action {
	if math.Abs(dir.X) > math.Abs(dir.Z) {
		if dir.X > 0 {
			return ActionMoveRight
		}
		return ActionMoveLeft
	}
	if dir.Z > 0 {
		return ActionMoveBackward
	}
	return ActionMoveForward
}

// Plan implements ActionPlanner for the character. Moves push the character
// with a velocity impulse; the world physics does the rest.
func (s *Sandbox) Plan(a *Agent, act Action) (Motion, error) {
	m := Motion{Duration: s.sc.ActionDuration}
	if s.seeking {
		m.Duration = s.sc.SeekDuration
	}
	speed := s.sc.Speed
	if a.Crouching {
		speed *= crouchFactor
	}
	switch act {
	case ActionMoveForward:
		m.Impulse = Vec3{0, 0, -speed}
	case ActionMoveBackward:
		m.Impulse = Vec3{0, 0, speed}
	case ActionMoveLeft:
		m.Impulse = Vec3{-speed, 0, 0}
	case ActionMoveRight:
		m.Impulse = Vec3{speed, 0, 0}
	case ActionJump:
		if a.OnGround {
			m.Impulse = Vec3{0, s.sc.JumpForce - a.Vel.Y, 0}
		}
	case ActionCrouch, ActionWait:
	default:
		return m, &UnknownActionError{Label: act.String()}
	}
	return m, nil
}

// physics integrates gravity, friction and ground contact for the character
func (s *Sandbox) physics(dt float64) {
	a := s.agent
	a.Vel.Y += s.sc.Gravity * dt
	a.Vel.X *= s.sc.Friction
	a.Vel.Z *= s.sc.Friction
	a.Pos = s.world.Bounds.Clamp(a.Pos.Add(a.Vel.Scale(dt)))

	if a.OnGround && s.stepAhead() {
		a.Vel.Y = s.sc.JumpForce
		a.OnGround = false
	}

	ground := s.world.HeightAt(a.Pos.X, a.Pos.Z)
	if a.Pos.Y <= ground+groundSnap && a.Vel.Y <= 0 {
		a.Pos.Y = ground
		a.Vel.Y = 0
		a.OnGround = true
	} else {
		a.OnGround = false
	}
}

// stepAhead reports a climbable rise just in front of the character
func (s *Sandbox) stepAhead() bool {
	a := s.agent
	probe := a.Pos.Add(a.Facing.Scale(stepProbe))
	rise := s.world.HeightAt(probe.X, probe.Z) - a.Pos.Y
	return rise > stepMinRise && rise < stepMaxRise
}

// Capture snapshots the character and its surroundings
func (s *Sandbox) Capture() Situation {
	a := s.agent
	successes, failures := a.Learner.Counts()
	sit := Situation{
		Time:      s.sched.Now(),
		Position:  a.Pos,
		Velocity:  a.Vel,
		OnGround:  a.OnGround,
		Crouching: a.Crouching,
		Colliding: s.world.CheckCollision(a.Pos, s.sc.AgentRadius),
		Surface:   s.world.SurfaceAt(a.Pos),
		Obstacles: s.world.NearbyObstacles(a.Pos, s.sc.NearbyRadius),
		Attempts:  successes + failures,
		Successes: successes,
		Failures:  failures,
	}
	if s.target != nil && s.target.Alive {
		sit.HasTarget = true
		sit.TargetDist = a.Pos.FlatDistance(s.target.Pos)
	}
	return sit
}

func (s *Sandbox) LearningStats() []AgentStats { return collectStats(s.agent) }

// State converts to protocol state
func (s *Sandbox) State() ArenaState {
	st := ArenaState{
		Mode:      string(ModeSandbox),
		Time:      round2(s.sched.Now()),
		Agents:    []AgentState{s.agent.ToState(s.sched.Now())},
		Obstacles: s.world.ObstacleStates(),
		Surface:   string(s.world.Surface),
	}
	if s.target != nil && s.target.Alive {
		st.Targets = []TargetState{s.target.ToState()}
	}
	return st
}

func decisionData(d Decision) map[string]any {
	m := map[string]any{"action": d.Action.String(), "source": string(d.Source)}
	if len(d.Combo) > 0 {
		labels := make([]string, len(d.Combo))
		for i, a := range d.Combo {
			labels[i] = a.String()
		}
		m["combo"] = labels
	}
	return m
}
