package main

import (
	"errors"
	"testing"
)

func newTestSandbox() (*Sandbox, *eventLog) {
	log := &eventLog{}
	return NewSandbox(testConfig(), nil, &scriptedRNG{}, log), log
}

func TestSandboxActivateSpawnsTarget(t *testing.T) {
	s, log := newTestSandbox()
	defer s.Close()

	if len(s.State().Targets) != 0 {
		t.Error("no target before activation")
	}
	s.Control(ControlCmd{Cmd: CmdActivate})
	if len(s.State().Targets) != 1 {
		t.Fatal("activation should put out a target")
	}
	if len(log.ofKind(EventTarget)) != 1 {
		t.Error("target spawn should be reported")
	}

	s.Control(ControlCmd{Cmd: CmdActivate})
	if len(log.ofKind(EventTarget)) != 1 {
		t.Error("activating twice should not spawn a second target")
	}
}

func TestSandboxDecisionInterval(t *testing.T) {
	s, _ := newTestSandbox()
	defer s.Close()

	tests := []struct {
		ms   float64
		want float64
	}{
		{2000, 2},
		{50, 0.1},
		{60000, 5},
	}
	for _, tt := range tests {
		ms := tt.ms
		if err := s.Control(ControlCmd{Cmd: CmdSetParams, DecisionIntervalMs: &ms}); err != nil {
			t.Fatal(err)
		}
		if !approx(s.DecisionInterval(), tt.want) {
			t.Errorf("interval %vms: expected %vs, got %v", tt.ms, tt.want, s.DecisionInterval())
		}
	}
}

func TestSandboxControlErrors(t *testing.T) {
	s, _ := newTestSandbox()
	defer s.Close()

	if err := s.Control(ControlCmd{Cmd: CmdSurface, Surface: "lava"}); !errors.Is(err, ErrUnknownSurface) {
		t.Errorf("expected ErrUnknownSurface, got %v", err)
	}
	if err := s.Control(ControlCmd{Cmd: "kick"}); !errors.Is(err, ErrUnsupportedControl) {
		t.Errorf("expected ErrUnsupportedControl, got %v", err)
	}
}

func TestSandboxStairsTargetOnPlatform(t *testing.T) {
	s, _ := newTestSandbox()
	defer s.Close()
	s.Control(ControlCmd{Cmd: CmdActivate})

	if err := s.Control(ControlCmd{Cmd: CmdSurface, Surface: "stairs"}); err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if st.Surface != "stairs" || len(st.Targets) != 1 {
		t.Fatalf("expected stairs with one target, got %+v", st)
	}
	if s.world.Platform == nil || st.Targets[0].Pos.Z != s.world.Platform.Rounded().Z {
		t.Error("on stairs the target belongs on the platform")
	}
	if a := s.Agent(); a.Pos.X != 0 || a.Pos.Z != 0 {
		t.Errorf("changing surface should reset the character, got %v", a.Pos)
	}
}

func TestSandboxEvaluatesAfterDelay(t *testing.T) {
	s, log := newTestSandbox()
	defer s.Close()
	s.Control(ControlCmd{Cmd: CmdActivate})

	stepFor(s, 1.9)
	if n := len(log.ofKind(EventOutcome)); n != 0 {
		t.Fatalf("nothing should be evaluated before 2s, got %d", n)
	}
	decisions := log.ofKind(EventDecision)
	if len(decisions) == 0 {
		t.Fatal("controller should have decided")
	}

	stepFor(s, 0.2)
	outcomes := log.ofKind(EventOutcome)
	if len(outcomes) != 1 {
		t.Fatalf("expected the first decision evaluated, got %d outcomes", len(outcomes))
	}
	o := outcomes[0].Data.(Outcome)
	if o.Action != ActionMoveForward || o.Source != string(SourceFallback) {
		t.Errorf("expected fallback move_forward, got %s from %s", o.Action, o.Source)
	}
	if o.Success {
		t.Error("the target is far away so the move cannot count")
	}
	if _, f := s.Agent().Learner.Counts(); f != 1 {
		t.Errorf("expected one recorded failure, got %d", f)
	}
}

func TestSandboxDeactivateCancelsEvaluation(t *testing.T) {
	s, log := newTestSandbox()
	defer s.Close()
	s.Control(ControlCmd{Cmd: CmdActivate})

	stepFor(s, 0.5)
	s.Control(ControlCmd{Cmd: CmdDeactivate})
	stepFor(s, 3)

	if n := len(log.ofKind(EventOutcome)); n != 0 {
		t.Errorf("deactivation should drop pending evaluations, got %d", n)
	}
	if len(s.State().Targets) != 0 {
		t.Error("deactivation removes the target")
	}
}

func TestSandboxTargetReachedAndRespawned(t *testing.T) {
	s, log := newTestSandbox()
	defer s.Close()
	s.Control(ControlCmd{Cmd: CmdActivate})

	s.target = NewTarget(s.Agent().Pos)
	s.Step(testTick)
	if s.Agent().Score != 1 {
		t.Fatalf("reaching the target should score, got %d", s.Agent().Score)
	}
	if len(s.State().Targets) != 0 {
		t.Error("reached target disappears")
	}

	stepFor(s, s.sc.TargetRespawn+0.1)
	if len(s.State().Targets) != 1 {
		t.Error("a new target should appear after the respawn delay")
	}
	// spawn, reached, respawn
	if n := len(log.ofKind(EventTarget)); n != 3 {
		t.Errorf("expected 3 target events, got %d", n)
	}
}

func TestSandboxQueuedDecisionKeepsSource(t *testing.T) {
	s, log := newTestSandbox()
	defer s.Close()
	s.Control(ControlCmd{Cmd: CmdActivate})
	a := s.Agent()

	if _, ok := s.exec.Start(a, ActionWait); !ok {
		t.Fatal("idle agent should start")
	}
	s.apply(Decision{Agent: a, Action: ActionJump, Source: SourceExploration})
	if len(a.Queue) != 1 {
		t.Fatalf("busy agent should queue the decision, got %v", a.Queue)
	}

	stepFor(s, 2.6)
	var found bool
	for _, ev := range log.ofKind(EventOutcome) {
		o := ev.Data.(Outcome)
		if o.Action != ActionJump {
			continue
		}
		found = true
		if o.Source != string(SourceExploration) {
			t.Errorf("queued jump should keep its source, got %q", o.Source)
		}
	}
	if !found {
		t.Error("queued jump was never evaluated")
	}
}

func TestSandboxPlan(t *testing.T) {
	s, _ := newTestSandbox()
	defer s.Close()
	a := s.Agent()

	m, err := s.Plan(a, ActionJump)
	if err != nil || m.Impulse.Y != s.sc.JumpForce {
		t.Errorf("jump from the ground should add the full jump force, got %v %v", m.Impulse, err)
	}
	a.OnGround = false
	if m, _ := s.Plan(a, ActionJump); m.Impulse.Y != 0 {
		t.Error("no jumping in mid air")
	}

	m, _ = s.Plan(a, ActionMoveForward)
	if m.Impulse.Z != -s.sc.Speed {
		t.Errorf("forward is -Z, got %v", m.Impulse)
	}
	a.Crouching = true
	m, _ = s.Plan(a, ActionMoveForward)
	if m.Impulse.Z != -s.sc.Speed*crouchFactor {
		t.Errorf("crouching halves the speed, got %v", m.Impulse)
	}

	if _, err := s.Plan(a, ActionAttack); err == nil {
		t.Error("the sandbox character cannot attack")
	}
}

func TestAxisMove(t *testing.T) {
	tests := []struct {
		dir  Vec3
		want Action
	}{
		{Vec3{1, 0, 0.2}, ActionMoveRight},
		{Vec3{-1, 0, 0.5}, ActionMoveLeft},
		{Vec3{0.1, 0, -1}, ActionMoveForward},
		{Vec3{0, 0, 1}, ActionMoveBackward},
	}
	for _, tt := range tests {
		if got := axisMove(tt.dir); got != tt.want {
			t.Errorf("axisMove(%v) = %s, want %s", tt.dir, got, tt.want)
		}
	}
}

func TestSandboxRestartKeepsLearning(t *testing.T) {
	s, _ := newTestSandbox()
	defer s.Close()
	a := s.Agent()
	a.Learner.Record(MemoryRecord{Success: true})
	a.Pos = Vec3{4, 0, 4}

	s.Control(ControlCmd{Cmd: CmdRestart})
	if a.Pos.X != 0 || a.Pos.Z != 0 {
		t.Errorf("restart should return the character to the origin, got %v", a.Pos)
	}
	if succ, _ := a.Learner.Counts(); succ != 1 {
		t.Error("restart keeps the learner")
	}
}
