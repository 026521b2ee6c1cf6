package main

import (
	"errors"
	"testing"
)

// stepPlanner moves one unit forward per move_forward and knows nothing
// about specials
type stepPlanner struct{}

func (stepPlanner) Plan(a *Agent, act Action) (Motion, error) {
	switch act {
	case ActionMoveForward:
		return Motion{Duration: 0.5, Offset: Vec3{0, 0, -1}}, nil
	case ActionJump:
		return Motion{Duration: 0.8, Impulse: Vec3{0, 5, 0}}, nil
	case ActionAttack, ActionDefend, ActionDodge, ActionWait:
		return Motion{Duration: 0.4}, nil
	}
	return Motion{}, &UnknownActionError{Label: act.String()}
}

func newTestExecutor() (*Scheduler, *Executor, *Agent) {
	sched := NewScheduler()
	ex := NewExecutor(sched, Bounds{HalfX: 5, HalfZ: 5}, stepPlanner{})
	a := NewAgent("a", "A", 0, Vec3{}, DefaultConfig().Learning, 10)
	return sched, ex, a
}

func TestExecutorSingleAction(t *testing.T) {
	sched, ex, a := newTestExecutor()

	act, ok := ex.Start(a, ActionMoveForward)
	if !ok || act != ActionMoveForward {
		t.Fatalf("expected move_forward to start, got %s %v", act, ok)
	}
	if _, ok := ex.Start(a, ActionJump); ok {
		t.Error("busy agent must not start a second action")
	}

	sched.Advance(0.25)
	ex.Advance(a)
	if a.Display.Z > -0.4 || a.Display.Z < -0.6 {
		t.Errorf("display should be halfway, got z=%v", a.Display.Z)
	}
	if a.Pos.Z != 0 {
		t.Error("position is committed only on completion")
	}

	sched.Advance(0.3)
	if a.Busy() {
		t.Fatal("action should be complete after 0.55s")
	}
	if a.Pos.Z != -1 {
		t.Errorf("expected z=-1, got %v", a.Pos.Z)
	}
	if a.LastAction != ActionMoveForward || a.History.Len() != 1 {
		t.Error("last action and history should be recorded")
	}
}

func TestExecutorClampsCommittedPosition(t *testing.T) {
	sched, ex, a := newTestExecutor()
	a.Pos = Vec3{0, 0, -4.8}
	ex.Start(a, ActionMoveForward)
	sched.Advance(1)
	if a.Pos.Z != -5 {
		t.Errorf("endpoint should be clamped to -5, got %v", a.Pos.Z)
	}
}

func TestExecutorImpulse(t *testing.T) {
	_, ex, a := newTestExecutor()
	ex.Start(a, ActionJump)
	if a.Vel.Y != 5 {
		t.Errorf("jump should add vertical velocity, got %v", a.Vel.Y)
	}
}

func TestExecutorUnknownActionWaits(t *testing.T) {
	_, ex, a := newTestExecutor()
	act, ok := ex.Start(a, ActionUppercut)
	if !ok || act != ActionWait {
		t.Errorf("unknown action should run as wait, got %s %v", act, ok)
	}
}

func TestExecutorKnockedOutAgent(t *testing.T) {
	_, ex, a := newTestExecutor()
	a.Alive = false
	if _, ok := ex.Start(a, ActionAttack); ok {
		t.Error("knocked out agent must not act")
	}
}

func TestExecutorCombo(t *testing.T) {
	sched, ex, a := newTestExecutor()

	if err := ex.StartCombo(a, []Action{ActionAttack}); !errors.Is(err, ErrComboLength) {
		t.Errorf("single action combo should be rejected, got %v", err)
	}
	if err := ex.StartCombo(a, make([]Action, 5)); !errors.Is(err, ErrComboLength) {
		t.Errorf("five action combo should be rejected, got %v", err)
	}

	if err := ex.StartCombo(a, []Action{ActionAttack, ActionAttack, ActionDefend}); err != nil {
		t.Fatal(err)
	}
	if err := ex.StartCombo(a, []Action{ActionDodge, ActionDodge}); !errors.Is(err, ErrComboActive) {
		t.Errorf("second combo should be rejected, got %v", err)
	}

	var started []Action
	for i := 0; i < 10 && (a.ComboActive || a.Busy()); i++ {
		if act, ok := ex.Drain(a); ok {
			started = append(started, act)
			if _, again := ex.Drain(a); again {
				t.Fatal("drain must not start a second action while busy")
			}
		}
		sched.Advance(0.5)
	}

	want := []Action{ActionAttack, ActionAttack, ActionDefend}
	if len(started) != len(want) {
		t.Fatalf("expected %v, got %v", want, started)
	}
	for i := range want {
		if started[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, started)
		}
	}
	if a.ComboActive || len(a.Queue) != 0 {
		t.Error("combo should be finished")
	}
}

func TestExecutorInvalidateCancelsCompletion(t *testing.T) {
	sched, ex, a := newTestExecutor()
	ex.StartCombo(a, []Action{ActionMoveForward, ActionMoveForward})
	ex.Drain(a)

	a.Invalidate()
	sched.Advance(1)

	if a.Pos.Z != 0 {
		t.Errorf("invalidated action must not commit, got z=%v", a.Pos.Z)
	}
	if a.Busy() || a.ComboActive || len(a.Queue) != 0 {
		t.Error("invalidate should leave the agent idle")
	}
	if _, ok := ex.Drain(a); ok {
		t.Error("nothing left to drain")
	}
}
