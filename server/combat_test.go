package main

import "testing"

func newTestFighterAgent() *Agent {
	a := NewAgent("test", "Test", 0, Vec3{}, DefaultConfig().Learning, 10)
	a.Health = 100
	a.MaxHealth = 100
	return a
}

func TestApplyDamage(t *testing.T) {
	a := newTestFighterAgent()

	if ApplyDamage(a, 50) {
		t.Error("should not be knocked out by 50 damage")
	}
	if a.Health != 50 {
		t.Errorf("expected health 50, got %d", a.Health)
	}

	if !ApplyDamage(a, 60) {
		t.Error("should be knocked out by 60 more damage")
	}
	if a.Health != 0 {
		t.Errorf("health should floor at 0, got %d", a.Health)
	}
	if a.Alive {
		t.Error("knocked out agent should not be alive")
	}
}

func TestApplyDamageToKnockedOutAgent(t *testing.T) {
	a := newTestFighterAgent()
	a.Alive = false
	a.Health = 0
	if ApplyDamage(a, 50) {
		t.Error("knocked out agent should not be knocked out again")
	}
}

func TestKnockoutInvalidatesPendingWork(t *testing.T) {
	a := newTestFighterAgent()
	a.Queue = []Action{ActionAttack, ActionAttack}
	a.ComboActive = true
	a.Thinking = true
	tok := a.Gen.Token()

	a.TakeDamage(200)
	if tok.Valid() {
		t.Error("token taken before the knockout should be stale")
	}
	if len(a.Queue) != 0 || a.ComboActive || a.Thinking {
		t.Error("knockout should clear queue, combo and thinking")
	}
}

func TestResolveStrikeOutOfRange(t *testing.T) {
	spec := StrikeSpec{Action: ActionAttack, Damage: 10, Range: 2, HitChance: 1}
	res := ResolveStrike(spec, 2.5, false, false, 0.8, 0.7, &scriptedRNG{floats: []float64{0}})
	if res.InRange || res.Hit {
		t.Errorf("strike at 2.5 with range 2 should miss entirely, got %+v", res)
	}
}

func TestResolveStrikeBlockAndDodge(t *testing.T) {
	spec := StrikeSpec{Action: ActionAttack, Damage: 10, Range: 2, HitChance: 1}

	res := ResolveStrike(spec, 1, true, false, 0.8, 0.7, &scriptedRNG{floats: []float64{0.5}})
	if !res.Blocked || res.Hit {
		t.Errorf("defending receiver should block on 0.5 < 0.8, got %+v", res)
	}

	res = ResolveStrike(spec, 1, false, true, 0.8, 0.7, &scriptedRNG{floats: []float64{0.5}})
	if !res.Dodged || res.Hit {
		t.Errorf("dodging receiver should evade on 0.5 < 0.7, got %+v", res)
	}

	// Failed block roll falls through to the hit roll
	res = ResolveStrike(spec, 1, true, false, 0.8, 0.7, &scriptedRNG{floats: []float64{0.9, 0.1}})
	if !res.Hit || res.Damage != 10 {
		t.Errorf("failed block should let the strike land, got %+v", res)
	}
}

func TestResolveStrikeHitChance(t *testing.T) {
	spec := StrikeSpec{Action: ActionHook, Damage: 15, Range: 2, HitChance: 0.55}
	if res := ResolveStrike(spec, 1, false, false, 0, 0, &scriptedRNG{floats: []float64{0.5}}); !res.Hit {
		t.Error("0.5 < 0.55 should hit")
	}
	if res := ResolveStrike(spec, 1, false, false, 0, 0, &scriptedRNG{floats: []float64{0.6}}); res.Hit {
		t.Error("0.6 >= 0.55 should miss")
	}
}

func TestSpecialCooldownAndStamina(t *testing.T) {
	s := &Special{Spec: SpecialStrikes[0]} // uppercut: 30 stamina, 5s
	if s.CanActivate(20) {
		t.Error("uppercut should need 30 stamina")
	}
	left, ok := s.Activate(100)
	if !ok || left != 70 {
		t.Fatalf("expected activation leaving 70 stamina, got %v %v", left, ok)
	}
	if _, ok := s.Activate(100); ok {
		t.Error("special should be on cooldown")
	}
	s.Update(4.9)
	if s.CanActivate(100) {
		t.Error("cooldown not finished after 4.9s")
	}
	s.Update(0.2)
	if !s.CanActivate(100) {
		t.Error("cooldown should be over after 5.1s")
	}
	if s.Cooldown != 0 {
		t.Errorf("cooldown should floor at 0, got %v", s.Cooldown)
	}
}

func TestSpecialFor(t *testing.T) {
	specials := NewSpecials()
	if sp := SpecialFor(specials, ActionHook); sp == nil || sp.Spec.Action != ActionHook {
		t.Error("expected the hook tracker")
	}
	if SpecialFor(specials, ActionAttack) != nil {
		t.Error("plain attack has no special tracker")
	}
}

func TestDecideByScore(t *testing.T) {
	a := NewAgent("a", "A", 0, Vec3{}, DefaultConfig().Learning, 1)
	b := NewAgent("b", "B", 1, Vec3{}, DefaultConfig().Learning, 1)

	res := DecideByScore(a, b, 3, 1, EndTimeUp)
	if res.Winner != "a" || res.Loser != "b" || res.Draw {
		t.Errorf("expected a to win, got %+v", res)
	}
	res = DecideByScore(a, b, 0, 2, EndTimeUp)
	if res.Winner != "b" {
		t.Errorf("expected b to win, got %+v", res)
	}
	res = DecideByScore(a, b, 2, 2, EndTimeUp)
	if !res.Draw || res.Winner != "" {
		t.Errorf("expected a draw, got %+v", res)
	}
}

func TestMatchStateTickAndFinish(t *testing.T) {
	ms := NewMatchState(1)
	if ms.Tick(0.5) {
		t.Error("clock not out after 0.5s")
	}
	if !ms.Tick(0.6) {
		t.Error("clock should run out after 1.1s")
	}
	if ms.TimeLeft != 0 {
		t.Errorf("time left should floor at 0, got %v", ms.TimeLeft)
	}
	if !ms.Finish(MatchResult{Reason: EndTimeUp}) {
		t.Fatal("first finish should count")
	}
	if ms.Finish(MatchResult{Reason: EndKnockout}) {
		t.Error("second finish should be ignored")
	}
	if ms.Result.Reason != EndTimeUp || !ms.Over() {
		t.Errorf("unexpected result %+v", ms.Result)
	}
	if ms.Tick(1) {
		t.Error("a finished match does not tick")
	}
}
