package main

import (
	"log"
	"math"
)

// contactDamping slows the push fighters get from bumping into each other
const contactDamping = 0.8

// Fighter is a boxing agent with its specials and a link to the other corner
type Fighter struct {
	*Agent
	Side     float64 // +1 or -1, the direction this fighter dodges along z
	Specials []*Special
	Opponent *Fighter
	start    Vec3
}

// Boxing is two learning fighters in a square ring. Decisions are taken as
// soon as a fighter is idle, strikes resolve the moment they are thrown and
// the match ends on a knockout.
type Boxing struct {
	cfg     BoxingConfig
	contact ContactConfig
	sched   *Scheduler
	rng     RNG
	sink    EventSink

	ring     Bounds
	fighters [2]*Fighter
	exec     *Executor
	policy   *Policy
	tactics  *Tactics
	basic    StrikeSpec
	match    MatchState
}

// NewBoxing sets up Orange and Blue facing each other. Fighters start with
// their controllers off.
func NewBoxing(cfg Config, oracle Oracle, rng RNG, sink EventSink) *Boxing {
	bc := cfg.Boxing
	b := &Boxing{
		cfg:     bc,
		contact: cfg.Contact,
		sched:   NewScheduler(),
		rng:     rng,
		sink:    sink,
		ring:    Bounds{HalfX: bc.RingHalf, HalfZ: bc.RingHalf},
		tactics: NewTactics(bc, rng),
		basic:   BasicStrike(bc),
		match:   NewMatchState(0),
	}
	half := bc.StartGap / 2
	b.fighters[0] = b.newFighter("Orange", 0, Vec3{-half, 0, 0}, 1, cfg.Learning)
	b.fighters[1] = b.newFighter("Blue", 1, Vec3{half, 0, 0}, -1, cfg.Learning)
	b.fighters[0].Opponent = b.fighters[1]
	b.fighters[1].Opponent = b.fighters[0]

	b.exec = NewExecutor(b.sched, b.ring, b)
	b.policy = NewPolicy(CombatVocabulary, CombatVocabulary, oracle, rng, oracleTimeout(cfg.Oracle))
	return b
}

func (b *Boxing) newFighter(name string, index int, pos Vec3, side float64, learning LearningConfig) *Fighter {
	a := NewAgent(GenerateID(4), name, index, pos, learning, b.cfg.HistorySize)
	a.Radius = b.cfg.FighterRadius
	a.Health = b.cfg.MaxHealth
	a.MaxHealth = b.cfg.MaxHealth
	a.Stamina = b.cfg.MaxStamina
	a.MaxStamina = b.cfg.MaxStamina
	return &Fighter{Agent: a, Side: side, Specials: NewSpecials(), start: pos}
}

func (b *Boxing) Mode() Mode { return ModeBoxing }
func (b *Boxing) Over() bool { return b.match.Over() }
func (b *Boxing) Close()     { b.policy.Close() }

// Fighters returns Orange and Blue
func (b *Boxing) Fighters() [2]*Fighter { return b.fighters }

// Result is the match result, nil while the fight is on
func (b *Boxing) Result() *MatchResult { return b.match.Result }

func (b *Boxing) fighterFor(a *Agent) *Fighter {
	for _, f := range b.fighters {
		if f.Agent == a {
			return f
		}
	}
	return nil
}

// Control applies an operator command
func (b *Boxing) Control(cmd ControlCmd) error {
	switch cmd.Cmd {
	case CmdActivate:
		for _, f := range b.fighters {
			f.Active = true
		}
	case CmdDeactivate:
		for _, f := range b.fighters {
			f.Active = false
			f.Invalidate()
		}
	case CmdResetLearning:
		for _, f := range b.fighters {
			f.Learner.Reset()
		}
	case CmdSetParams:
		if cmd.ExplorationRate != nil {
			for _, f := range b.fighters {
				f.Learner.SetExplorationRate(*cmd.ExplorationRate)
			}
		}
	case CmdRestart:
		b.Restart()
	default:
		return ErrUnsupportedControl
	}
	return nil
}

// Restart puts both fighters back in their corners at full health. What they
// have learned is kept.
func (b *Boxing) Restart() {
	for _, f := range b.fighters {
		f.Invalidate()
		f.Pos = f.start
		f.Display = f.start
		f.Vel = Vec3{}
		f.Health = f.MaxHealth
		f.Stamina = f.MaxStamina
		f.Score = 0
		f.Alive = true
		f.LastAction = ActionNone
		f.History.Clear()
		f.Specials = NewSpecials()
	}
	b.match = NewMatchState(0)
	log.Printf("[boxing] match restarted")
}

// Step advances the fight by dt seconds. Fighters are always updated Orange
// first, then Blue.
func (b *Boxing) Step(dt float64) {
	if b.match.Over() {
		return
	}
	b.sched.Advance(dt)
	b.match.Tick(dt)

	for _, d := range b.policy.Collect() {
		b.apply(b.fighterFor(d.Agent), d)
	}

	now := b.sched.Now()
	for _, f := range b.fighters {
		if !f.Alive || b.match.Over() {
			continue
		}
		for _, s := range f.Specials {
			s.Update(dt)
		}
		f.Stamina = math.Min(f.MaxStamina, f.Stamina+b.cfg.StaminaRegen*dt)

		if f.Active {
			if act, ok := b.exec.Drain(f.Agent); ok {
				b.onStart(f, act, SourcePattern)
			}
			if f.Idle() && !f.Thinking && !f.DecisionDue {
				f.DecisionDue = true
				fighter := f
				delay := RandRange(b.rng, b.cfg.ThinkDelayMin, b.cfg.ThinkDelayMax)
				b.sched.After(delay, f.Gen.Token(), func() { b.decide(fighter) })
			}
			if f.Thinking && f.Idle() && now-f.ThinkingSince > b.cfg.ForceActivityAfter {
				// the request stays outstanding; its reply is dropped unless
				// the fighter is idle again when it lands
				f.ThinkingSince = now
				b.apply(f, b.tactics.Forced(f, b.capture(f)))
			}
		}
		b.exec.Advance(f.Agent)
	}

	b.separate(dt)
	b.checkKnockout()
}

// decide runs when a fighter's think delay has elapsed
func (b *Boxing) decide(f *Fighter) {
	f.DecisionDue = false
	if !f.Active || !f.Idle() || f.Thinking || b.match.Over() {
		return
	}
	if d, ok := b.policy.Decide(f.Agent, b.capture(f)); ok {
		b.apply(f, d)
	}
}

// apply layers tactics over a decision and starts it. Decisions for a fighter
// that is no longer idle are dropped.
func (b *Boxing) apply(f *Fighter, d Decision) {
	if f == nil || !f.Active || b.match.Over() {
		return
	}
	if !f.Idle() {
		log.Printf("[boxing] %s: busy, dropping %s decision %s", f.Name, d.Source, d.Action)
		return
	}
	d = b.tactics.Layer(f, f.Opponent, d)
	b.sink.Emit(Event{Kind: EventDecision, Time: b.sched.Now(), AgentID: f.ID, Data: decisionData(d)})

	if len(d.Combo) > 0 {
		err := b.exec.StartCombo(f.Agent, d.Combo)
		if err == nil {
			if act, ok := b.exec.Drain(f.Agent); ok {
				b.onStart(f, act, d.Source)
			}
			return
		}
		log.Printf("[boxing] %s: combo refused: %v", f.Name, err)
	}
	if act, ok := b.exec.Start(f.Agent, d.Action); ok {
		b.onStart(f, act, d.Source)
	}
}

// onStart resolves a strike the moment it is thrown and feeds the outcome to
// the thrower's learner
func (b *Boxing) onStart(f *Fighter, act Action, src DecisionSource) {
	if !act.IsStrike() {
		return
	}
	spec := b.basic
	if act.IsSpecial() {
		if sp := SpecialFor(f.Specials, act); sp != nil {
			if left, ok := sp.Activate(f.Stamina); ok {
				f.Stamina = left
				spec = sp.Spec
			}
		}
	}

	opp := f.Opponent
	sit := b.capture(f)
	res := ResolveStrike(spec, sit.Opponent.Distance, opp.Defending(), opp.Dodging(),
		b.cfg.BlockChance, b.cfg.DodgeChance, b.rng)
	now := b.sched.Now()
	if res.Hit {
		f.Score++
		opp.TakeDamage(res.Damage)
	}
	b.sink.Emit(Event{Kind: EventStrike, Time: now, AgentID: f.ID, Data: map[string]any{
		"action": act.String(),
		"target": opp.ID,
		"result": res,
	}})

	f.Learner.Record(MemoryRecord{Action: act, Success: res.Hit, Situation: sit, Time: now})
	b.sink.Emit(Event{Kind: EventOutcome, Time: now, AgentID: f.ID, Data: Outcome{
		AgentID:   f.ID,
		AgentName: f.Name,
		Action:    act,
		Success:   res.Hit,
		Source:    string(src),
		Situation: sit,
		Time:      now,
	}})
}

// separate keeps the fighters from standing inside each other and lets the
// contact push fade out
func (b *Boxing) separate(dt float64) {
	a, c := b.fighters[0], b.fighters[1]
	ResolveContact(Body{Pos: &a.Pos, Vel: &a.Vel, Radius: a.Radius}, Body{Pos: &c.Pos, Vel: &c.Vel, Radius: c.Radius}, b.contact)
	for _, f := range b.fighters {
		f.Vel.Y = 0
		f.Pos = b.ring.Clamp(f.Pos.Add(f.Vel.Scale(dt)))
		f.Vel = f.Vel.Scale(contactDamping)
		if !f.Busy() {
			f.Display = f.Pos
		}
	}
}

// checkKnockout ends the match once a fighter is down. If both went down the
// higher health wins and equal health is a draw.
func (b *Boxing) checkKnockout() {
	a, c := b.fighters[0], b.fighters[1]
	if a.Alive && c.Alive {
		return
	}
	res := DecideByScore(a.Agent, c.Agent, a.Health, c.Health, EndKnockout)
	res.Scores = []int{a.Score, c.Score}
	if !b.match.Finish(res) {
		return
	}
	for _, f := range b.fighters {
		f.Invalidate()
	}
	b.sink.Emit(Event{Kind: EventMatchEnd, Time: b.sched.Now(), Data: *b.match.Result})
	if res.Draw {
		log.Printf("[boxing] double knockout, draw")
	} else {
		log.Printf("[boxing] %s wins by knockout", res.WinnerNm)
	}
}

// Plan implements ActionPlanner for the ring
func (b *Boxing) Plan(a *Agent, act Action) (Motion, error) {
	f := b.fighterFor(a)
	if f == nil {
		return Motion{}, &UnknownActionError{Label: act.String()}
	}
	toward := f.Opponent.Pos.Sub(f.Pos).Flat().Normalize()
	if toward.Len() == 0 {
		toward = Vec3{X: f.Side}
	}
	side := Vec3{Z: f.Side}

	m := Motion{Duration: b.cfg.ActionDuration}
	switch act {
	case ActionAttack, ActionUppercut, ActionHook, ActionBodyShot:
		m.Offset = toward.Scale(b.cfg.AttackStep)
	case ActionDefend:
		out := f.Pos.Flat().Normalize()
		if out.Len() == 0 {
			out = toward.Scale(-1)
		}
		m.Offset = out.Scale(b.cfg.DefendStep)
	case ActionDodge:
		m.Offset = side.Scale(b.cfg.DodgeStep)
	case ActionApproach:
		m.Duration = b.cfg.MoveDuration
		m.Offset = toward.Scale(b.cfg.TacticalStep)
	case ActionBackstep:
		m.Duration = b.cfg.MoveDuration
		m.Offset = toward.Scale(-b.cfg.TacticalStep)
	case ActionSidestep:
		m.Duration = b.cfg.MoveDuration
		m.Offset = side.Scale(b.cfg.TacticalStep)
		if !b.ring.Contains(f.Pos.Add(m.Offset)) {
			m.Offset = m.Offset.Scale(-1)
		}
	case ActionWait:
		m.Duration = b.cfg.MoveDuration
	default:
		return m, &UnknownActionError{Label: act.String()}
	}
	return m, nil
}

// capture snapshots a fighter's view of the fight
func (b *Boxing) capture(f *Fighter) Situation {
	opp := f.Opponent
	successes, failures := f.Learner.Counts()
	return Situation{
		Time:      b.sched.Now(),
		Position:  f.Pos,
		Velocity:  f.Vel,
		OnGround:  true,
		Surface:   SurfaceClassFlat,
		Attempts:  successes + failures,
		Successes: successes,
		Failures:  failures,
		Health:    f.Health,
		Stamina:   f.Stamina,
		Opponent: &OpponentView{
			Distance:   f.Pos.FlatDistance(opp.Pos),
			Health:     opp.Health,
			Score:      opp.Score,
			LastAction: opp.LastAction,
			Busy:       opp.Busy(),
		},
		LastActions: opp.History.Recent(),
	}
}

func (b *Boxing) LearningStats() []AgentStats {
	return collectStats(b.fighters[0].Agent, b.fighters[1].Agent)
}

// State converts to protocol state
func (b *Boxing) State() ArenaState {
	now := b.sched.Now()
	st := ArenaState{
		Mode:   string(ModeBoxing),
		Time:   round2(now),
		Phase:  b.match.Phase.String(),
		Result: b.match.Result,
	}
	for _, f := range b.fighters {
		as := f.ToState(now)
		as.Cooldowns = make([]float64, len(f.Specials))
		for i, s := range f.Specials {
			as.Cooldowns[i] = round2(s.Cooldown)
		}
		st.Agents = append(st.Agents, as)
	}
	st.Scores = []int{b.fighters[0].Score, b.fighters[1].Score}
	return st
}
