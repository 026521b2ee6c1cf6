package main

import (
	"log"
	"math"
)

// Robot dynamics, per tick
const (
	RobotMaxSpeed  = 0.2
	RobotAccel     = 0.1
	RobotFriction  = 0.92
	KickReach      = 0.2 // extra gap at which a robot can still kick
	KickForceMin   = 0.12
	KickForceRange = 0.04
	KickJitter     = 0.08
	KickCooldown   = 0.5 // seconds between kicks by one robot
	RobotStartX    = 3.0
	goalLineInset  = 0.5
)

// Robot is a scripted soccer player. It attacks the goal at GoalX.
type Robot struct {
	*Agent
	GoalX    float64
	start    Vec3
	nextKick float64 // sim time of the next allowed kick
}

// SimulationState is everything that changes on the pitch. It is owned by
// the Soccer simulation and passed explicitly to each update.
type SimulationState struct {
	Ball         *Ball
	Robots       [2]*Robot
	Score        [2]int
	Match        MatchState
	ResetPending bool
}

// Soccer is two robots chasing a ball on a walled pitch until the clock
// runs out
type Soccer struct {
	cfg      SoccerConfig
	contact  ContactConfig
	learning LearningConfig
	sched    *Scheduler
	rng      RNG
	sink     EventSink
	field    Bounds
	gen      Generation // bumped on restart, cancels scheduled kick-off resets
	active   bool
	state    *SimulationState
}

// NewSoccer creates a match ready to kick off
func NewSoccer(cfg Config, rng RNG, sink EventSink) *Soccer {
	s := &Soccer{
		cfg:      cfg.Soccer,
		contact:  cfg.Contact,
		learning: cfg.Learning,
		sched:    NewScheduler(),
		rng:      rng,
		sink:     sink,
		field:    Bounds{HalfX: cfg.Soccer.FieldWidth / 2, HalfZ: cfg.Soccer.FieldHeight / 2},
		active:   true,
	}
	s.state = s.newState()
	return s
}

func (s *Soccer) newState() *SimulationState {
	y := s.cfg.RobotSize / 2
	goal := s.field.HalfX - goalLineInset
	mk := func(name string, index int, x, goalX float64) *Robot {
		start := Vec3{x, y, 0}
		a := NewAgent(GenerateID(4), name, index, start, s.learning, 10)
		a.Radius = s.cfg.RobotSize / 2
		return &Robot{Agent: a, GoalX: goalX, start: start}
	}
	return &SimulationState{
		Ball: NewBall(s.cfg.BallRadius),
		Robots: [2]*Robot{
			mk("Blue", 0, -RobotStartX, goal),
			mk("Orange", 1, RobotStartX, -goal),
		},
		Match: NewMatchState(s.cfg.GameTime),
	}
}

func (s *Soccer) Mode() Mode { return ModeSoccer }
func (s *Soccer) Over() bool { return s.state.Match.Over() }
func (s *Soccer) Close()     {}

// Pitch exposes the pitch state
func (s *Soccer) Pitch() *SimulationState { return s.state }

// Control applies an operator command
func (s *Soccer) Control(cmd ControlCmd) error {
	switch cmd.Cmd {
	case CmdActivate:
		s.active = true
	case CmdDeactivate:
		s.active = false
	case CmdResetLearning:
		for _, r := range s.state.Robots {
			r.Learner.Reset()
		}
	case CmdRestart:
		s.gen.Bump()
		s.state = s.newState()
		s.active = true
		log.Printf("[soccer] match restarted")
	default:
		return ErrUnsupportedControl
	}
	return nil
}

// Step advances the match by one frame. Ball and robot dynamics are tuned per
// frame; dt only drives the clock and scheduled resets.
func (s *Soccer) Step(dt float64) {
	st := s.state
	if !s.active || st.Match.Over() {
		return
	}
	s.sched.Advance(dt)
	if st.Match.Tick(dt) {
		s.finish(st)
		return
	}

	for _, r := range st.Robots {
		s.steer(st, r)
	}

	st.Ball.Update(s.field)
	for _, r := range st.Robots {
		st.Ball.Bump(r.Agent, s.cfg.RobotSize, s.contact)
	}
	s.checkGoal(st)
}

// steer moves a robot toward the ball and kicks it when the ball lies between
// the robot and the goal it attacks
func (s *Soccer) steer(st *SimulationState, r *Robot) {
	ball := st.Ball
	toBall := ball.Pos.Sub(r.Pos).Flat()
	dist := toBall.Len()
	toBall = toBall.Normalize()
	if dist > 0.1 {
		r.Facing = toBall
	}

	var desired Vec3
	switch {
	case dist > ball.Radius+s.cfg.RobotSize/2+KickReach:
		desired = toBall.Scale(RobotMaxSpeed)
	case behindBall(r.Pos.X, ball.Pos.X, r.GoalX) && s.sched.Now() < r.nextKick:
		// still recovering from the last kick
		desired = Vec3{}
	case behindBall(r.Pos.X, ball.Pos.X, r.GoalX):
		dir := toBall
		dir.X += (s.rng.Float64() - 0.5) * KickJitter
		dir.Z += (s.rng.Float64() - 0.5) * KickJitter
		dir = dir.Normalize()
		force := KickForceMin + s.rng.Float64()*KickForceRange
		ball.Vel = ball.Vel.Add(dir.Scale(force))
		desired = dir.Scale(-RobotMaxSpeed * 0.3)
		s.recordKick(st, r, dir)
	default:
		desired = toBall.Scale(-RobotMaxSpeed * 0.5)
	}

	r.Vel = r.Vel.Add(desired.Sub(r.Vel).Scale(RobotAccel))
	r.Vel = r.Vel.Scale(RobotFriction)
	if r.Vel.Len() > RobotMaxSpeed {
		r.Vel = r.Vel.Normalize().Scale(RobotMaxSpeed)
	}

	margin := s.cfg.RobotSize / 2
	next := r.Pos.Add(r.Vel)
	if math.Abs(next.X) > s.field.HalfX-margin {
		r.Vel.X *= 0.5
		if math.Abs(next.X) > s.field.HalfX-margin*0.5 {
			r.Vel.X = 0
		}
	}
	if math.Abs(next.Z) > s.field.HalfZ-margin {
		r.Vel.Z *= 0.5
		if math.Abs(next.Z) > s.field.HalfZ-margin*0.5 {
			r.Vel.Z = 0
		}
	}
	r.Pos = r.Pos.Add(r.Vel)
	r.Display = r.Pos
}

// behindBall reports a robot further from the goal at goalX than the ball,
// on the same side of it
func behindBall(robotX, ballX, goalX float64) bool {
	if math.Signbit(goalX-robotX) != math.Signbit(goalX-ballX) {
		return false
	}
	return math.Abs(goalX-robotX) > math.Abs(goalX-ballX)
}

// recordKick counts a kick as a success when it sends the ball toward the
// attacked goal and reports it as an outcome
func (s *Soccer) recordKick(st *SimulationState, r *Robot, dir Vec3) {
	now := s.sched.Now()
	r.nextKick = now + KickCooldown
	success := math.Signbit(dir.X) == math.Signbit(r.GoalX)
	sit := Situation{
		Time:       now,
		Position:   r.Pos,
		Velocity:   r.Vel,
		OnGround:   true,
		Surface:    SurfaceClassFlat,
		HasTarget:  true,
		TargetDist: math.Abs(r.GoalX - st.Ball.Pos.X),
	}
	r.LastAction = ActionAttack
	r.History.Add(ActionAttack)
	r.Learner.Record(MemoryRecord{Action: ActionAttack, Success: success, Situation: sit, Time: now})
	s.sink.Emit(Event{Kind: EventOutcome, Time: now, AgentID: r.ID, Data: Outcome{
		AgentID:   r.ID,
		AgentName: r.Name,
		Action:    ActionAttack,
		Success:   success,
		Source:    string(SourceScripted),
		Situation: sit,
		Time:      now,
	}})
}

// checkGoal scores a ball over either goal line inside the goal mouth. No goal
// can be scored again until the kick-off reset has run.
func (s *Soccer) checkGoal(st *SimulationState) {
	if st.ResetPending {
		return
	}
	b := st.Ball.Pos
	goalLine := s.field.HalfX - goalLineInset
	if math.Abs(b.Z) >= s.cfg.GoalWidth/2 || math.Abs(b.X) <= goalLine {
		return
	}
	scorer := 0
	if b.X < 0 {
		scorer = 1
	}
	st.Score[scorer]++
	st.Robots[scorer].Score = st.Score[scorer]
	st.ResetPending = true

	r := st.Robots[scorer]
	s.sink.Emit(Event{Kind: EventGoal, Time: s.sched.Now(), AgentID: r.ID, Data: map[string]any{
		"scorer": r.Name,
		"score":  []int{st.Score[0], st.Score[1]},
	}})
	log.Printf("[soccer] goal for %s, %d:%d", r.Name, st.Score[0], st.Score[1])

	s.sched.After(s.cfg.GoalResetDelay, s.gen.Token(), func() {
		s.kickOff(st)
	})
}

// kickOff puts the ball and both robots back on their spots
func (s *Soccer) kickOff(st *SimulationState) {
	if st != s.state {
		return
	}
	st.Ball.Reset()
	for _, r := range st.Robots {
		r.Pos = r.start
		r.Display = r.start
		r.Vel = Vec3{}
		r.nextKick = 0
	}
	st.ResetPending = false
}

func (s *Soccer) finish(st *SimulationState) {
	a, b := st.Robots[0], st.Robots[1]
	res := DecideByScore(a.Agent, b.Agent, st.Score[0], st.Score[1], EndTimeUp)
	if !st.Match.Finish(res) {
		return
	}
	s.sink.Emit(Event{Kind: EventMatchEnd, Time: s.sched.Now(), Data: *st.Match.Result})
	log.Printf("[soccer] full time %d:%d", st.Score[0], st.Score[1])
}

func (s *Soccer) LearningStats() []AgentStats {
	return collectStats(s.state.Robots[0].Agent, s.state.Robots[1].Agent)
}

// State converts to protocol state
func (s *Soccer) State() ArenaState {
	st := s.state
	now := s.sched.Now()
	ball := st.Ball.ToState()
	return ArenaState{
		Mode:     string(ModeSoccer),
		Time:     round2(now),
		Agents:   []AgentState{st.Robots[0].ToState(now), st.Robots[1].ToState(now)},
		Ball:     &ball,
		Scores:   []int{st.Score[0], st.Score[1]},
		Phase:    st.Match.Phase.String(),
		TimeLeft: round2(st.Match.TimeLeft),
		Result:   st.Match.Result,
	}
}
