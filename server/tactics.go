package main

// DistanceBand classifies the gap between two fighters
type DistanceBand int

const (
	BandOptimal DistanceBand = iota
	BandTooFar
	BandTooClose
)

func (b DistanceBand) String() string {
	switch b {
	case BandTooFar:
		return "too_far"
	case BandTooClose:
		return "too_close"
	}
	return "optimal"
}

// AnalyzeDistance places dist against the comfortable band [min, max]
func AnalyzeDistance(dist, min, max float64) DistanceBand {
	switch {
	case dist > max:
		return BandTooFar
	case dist < min:
		return BandTooClose
	}
	return BandOptimal
}

// Pattern thresholds on the opponent's recent actions
const (
	PatternRepeat      = 2   // more than this many of a kind counts as a habit
	PunishDefendChance = 0.1 // roll must exceed this to combo a turtle
	PunishAttackChance = 0.3 // roll must exceed this to dodge a brawler
	IdlePunishChance   = 0.1 // roll must exceed this to go after an idle opponent
	IdleComboChance    = 0.3 // second roll must exceed this to combo rather than jab
)

// OpponentPattern summarises an opponent's recent actions
type OpponentPattern struct {
	Attacks int
	Defends int
	Dodges  int
	Idle    bool
}

// AnalyzePattern counts what the opponent has been doing
func AnalyzePattern(history []Action, idle bool) OpponentPattern {
	p := OpponentPattern{Idle: idle}
	for _, a := range history {
		switch {
		case a.IsStrike():
			p.Attacks++
		case a == ActionDefend:
			p.Defends++
		case a == ActionDodge:
			p.Dodges++
		}
	}
	return p
}

// ComboLibrary lists the combos a fighter knows
var ComboLibrary = [][]Action{
	{ActionAttack, ActionAttack, ActionAttack},
	{ActionAttack, ActionAttack, ActionDefend},
	{ActionAttack, ActionDodge, ActionAttack},
	{ActionAttack, ActionAttack, ActionAttack, ActionDefend},
	{ActionAttack, ActionDefend, ActionAttack},
}

// fallbackWeights are attack, defend, dodge
var fallbackWeights = []int{5, 1, 1}

// Tactics layers ring craft over a base decision: distance first, then
// specials, then punishing the opponent's habits. Whatever is left goes
// through unchanged.
type Tactics struct {
	cfg  BoxingConfig
	ring Bounds
	rng  RNG
}

func NewTactics(cfg BoxingConfig, rng RNG) *Tactics {
	return &Tactics{cfg: cfg, ring: Bounds{HalfX: cfg.RingHalf, HalfZ: cfg.RingHalf}, rng: rng}
}

// Layer returns the decision f should actually take
func (t *Tactics) Layer(f, opp *Fighter, base Decision) Decision {
	dist := f.Pos.FlatDistance(opp.Pos)

	switch AnalyzeDistance(dist, t.cfg.MinComfort, t.cfg.MaxComfort) {
	case BandTooFar:
		return t.override(base, ActionApproach, SourceTactical)
	case BandTooClose:
		away := f.Pos.Sub(opp.Pos).Flat().Normalize().Scale(t.cfg.TacticalStep)
		if !t.ring.Contains(f.Pos.Add(away)) {
			return t.override(base, ActionSidestep, SourceTactical)
		}
		return t.override(base, ActionBackstep, SourceTactical)
	}

	for _, s := range f.Specials {
		if s.CanActivate(f.Stamina) && t.rng.Float64() > s.Spec.Trigger {
			return t.override(base, s.Spec.Action, SourceSpecial)
		}
	}

	p := AnalyzePattern(opp.History.Recent(), opp.Idle())
	switch {
	case p.Defends > PatternRepeat && t.rng.Float64() > PunishDefendChance:
		return t.combo(base)
	case p.Attacks > PatternRepeat && t.rng.Float64() > PunishAttackChance:
		return t.override(base, ActionDodge, SourcePattern)
	case p.Idle && t.rng.Float64() > IdlePunishChance:
		if t.rng.Float64() > IdleComboChance {
			return t.combo(base)
		}
		return t.override(base, ActionAttack, SourcePattern)
	}
	return base
}

// Forced picks a local action for a fighter that has waited too long on the
// oracle
func (t *Tactics) Forced(f *Fighter, sit Situation) Decision {
	act := CombatVocabulary[WeightedPick(t.rng, fallbackWeights)]
	return Decision{Agent: f.Agent, Action: act, Source: SourceForced, Situation: sit}
}

func (t *Tactics) override(base Decision, act Action, src DecisionSource) Decision {
	base.Action = act
	base.Combo = nil
	base.Source = src
	return base
}

func (t *Tactics) combo(base Decision) Decision {
	seq := ComboLibrary[t.rng.Intn(len(ComboLibrary))]
	base.Combo = append([]Action(nil), seq...)
	base.Action = seq[0]
	base.Source = SourcePattern
	return base
}
