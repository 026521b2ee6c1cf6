package main

const TargetRadius = 0.5

// Target is a goal marker the sandbox character walks to. It disappears when
// reached and a new one appears after a delay.
type Target struct {
	ID    string
	Pos   Vec3
	Alive bool
}

// NewTarget places a target at p
func NewTarget(p Vec3) *Target {
	return &Target{
		ID:    GenerateID(4),
		Pos:   p,
		Alive: true,
	}
}

// Reached reports whether a point is within reach of the target on the ground plane
func (t *Target) Reached(p Vec3, reach float64) bool {
	return t.Alive && t.Pos.FlatDistance(p) < reach
}

// ToState converts to protocol state
func (t *Target) ToState() TargetState {
	return TargetState{
		ID:  t.ID,
		Pos: t.Pos.Rounded(),
	}
}
