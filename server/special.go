package main

// StrikeSpec describes a blow
type StrikeSpec struct {
	Action      Action
	Damage      int
	Range       float64
	HitChance   float64
	StaminaCost float64
	Cooldown    float64 // seconds
	Trigger     float64 // a ready special is thrown when a roll exceeds this
}

// Special strikes, in the order they are considered
var SpecialStrikes = []StrikeSpec{
	{Action: ActionUppercut, Damage: 20, Range: 1.6, HitChance: 0.6, StaminaCost: 30, Cooldown: 5, Trigger: 0.7},
	{Action: ActionHook, Damage: 15, Range: 2.0, HitChance: 0.55, StaminaCost: 25, Cooldown: 4, Trigger: 0.6},
	{Action: ActionBodyShot, Damage: 12, Range: 1.8, HitChance: 0.65, StaminaCost: 20, Cooldown: 3, Trigger: 0.5},
}

// BasicStrike is the plain attack, built from the ring settings
func BasicStrike(cfg BoxingConfig) StrikeSpec {
	return StrikeSpec{
		Action:    ActionAttack,
		Damage:    cfg.AttackDamage,
		Range:     cfg.AttackRange,
		HitChance: cfg.HitChance,
	}
}

// Special tracks one fighter's cooldown for a special strike
type Special struct {
	Spec     StrikeSpec
	Cooldown float64 // remaining cooldown
}

// NewSpecials returns a ready set of specials
func NewSpecials() []*Special {
	out := make([]*Special, len(SpecialStrikes))
	for i, s := range SpecialStrikes {
		out[i] = &Special{Spec: s}
	}
	return out
}

// CanActivate returns true if the special is off cooldown and affordable
func (s *Special) CanActivate(stamina float64) bool {
	return s.Cooldown <= 0 && stamina >= s.Spec.StaminaCost
}

// Activate starts the cooldown and returns the stamina left, or false if the
// special was not ready
func (s *Special) Activate(stamina float64) (float64, bool) {
	if !s.CanActivate(stamina) {
		return stamina, false
	}
	s.Cooldown = s.Spec.Cooldown
	return stamina - s.Spec.StaminaCost, true
}

// Update ticks the cooldown
func (s *Special) Update(dt float64) {
	if s.Cooldown > 0 {
		s.Cooldown -= dt
		if s.Cooldown < 0 {
			s.Cooldown = 0
		}
	}
}

// SpecialFor finds the tracker for act
func SpecialFor(specials []*Special, act Action) *Special {
	for _, s := range specials {
		if s.Spec.Action == act {
			return s
		}
	}
	return nil
}
