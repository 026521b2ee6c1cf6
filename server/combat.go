package main

// StrikeResult is what happened to a blow
type StrikeResult struct {
	InRange bool `json:"inRange"`
	Blocked bool `json:"blocked,omitempty"`
	Dodged  bool `json:"dodged,omitempty"`
	Hit     bool `json:"hit"`
	Damage  int  `json:"damage,omitempty"`
}

// ResolveStrike rolls a strike against a receiver at distance dist. A
// defending receiver blocks with blockChance, a dodging one evades with
// dodgeChance, otherwise the strike's own hit chance decides.
func ResolveStrike(spec StrikeSpec, dist float64, defending, dodging bool, blockChance, dodgeChance float64, rng RNG) StrikeResult {
	if dist > spec.Range {
		return StrikeResult{}
	}
	res := StrikeResult{InRange: true}
	switch {
	case defending && rng.Float64() < blockChance:
		res.Blocked = true
		return res
	case dodging && rng.Float64() < dodgeChance:
		res.Dodged = true
		return res
	}
	if rng.Float64() < spec.HitChance {
		res.Hit = true
		res.Damage = spec.Damage
	}
	return res
}

// ApplyDamage applies damage to an agent and returns true if it was knocked out
func ApplyDamage(a *Agent, damage int) bool {
	return a.TakeDamage(damage)
}
