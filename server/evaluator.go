package main

import "math"

// MoveEpsilon is how far an agent must travel on x or z for a move to count
const MoveEpsilon = 0.1

// Outcome is the notification emitted once per evaluated action
type Outcome struct {
	SessionID string    `json:"sid,omitempty"`
	AgentID   string    `json:"agent"`
	AgentName string    `json:"name"`
	Action    Action    `json:"action"`
	Success   bool      `json:"success"`
	Source    string    `json:"source,omitempty"`
	Situation Situation `json:"situation"`
	Time      float64   `json:"time"`
}

// EvaluateAction scores a sandbox action from the situations captured before
// it started and after the evaluation delay
func EvaluateAction(act Action, before, after Situation) bool {
	moved := math.Abs(after.Position.X-before.Position.X) > MoveEpsilon ||
		math.Abs(after.Position.Z-before.Position.Z) > MoveEpsilon

	switch act {
	case ActionMoveForward, ActionMoveBackward, ActionMoveLeft, ActionMoveRight:
		return moved && !after.Colliding
	case ActionJump:
		return !after.OnGround && !after.Colliding
	case ActionCrouch:
		return after.Crouching
	case ActionWait:
		return !after.Colliding
	default:
		return !after.Colliding
	}
}

// EvaluateTarget scores an action while a target is out: only being within
// reach of it counts
func EvaluateTarget(after Situation, reach float64) bool {
	return after.HasTarget && after.TargetDist < reach
}
