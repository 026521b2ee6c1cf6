package main

import "math"

// Ball dynamics, per tick
const (
	BallGravity       = 0.015
	BallMaxSpeed      = 0.8
	BallAirDrag       = 0.98
	BallFloorBounce   = 0.6
	BallFloorFriction = 0.95
	BallWallBounce    = 0.5
	BallPopLift       = 0.02 // upward nudge when a robot hits a low ball
	BallPopMax        = 0.2
)

// Ball is the soccer ball
type Ball struct {
	Pos    Vec3
	Vel    Vec3
	Radius float64
}

// NewBall places a ball resting at the centre spot
func NewBall(radius float64) *Ball {
	return &Ball{Pos: Vec3{0, radius, 0}, Radius: radius}
}

// Reset puts the ball back on the centre spot
func (b *Ball) Reset() {
	b.Pos = Vec3{0, b.Radius, 0}
	b.Vel = Vec3{}
}

// Update moves the ball one tick: gravity, speed cap, drag, floor bounce and
// the walls of a field with the given half extents
func (b *Ball) Update(field Bounds) {
	b.Pos = b.Pos.Add(b.Vel)
	b.Vel.Y -= BallGravity

	if b.Vel.Len() > BallMaxSpeed {
		b.Vel = b.Vel.Normalize().Scale(BallMaxSpeed)
	}
	b.Vel = b.Vel.Scale(BallAirDrag)

	if b.Pos.Y < b.Radius {
		b.Pos.Y = b.Radius
		b.Vel.Y = math.Abs(b.Vel.Y) * BallFloorBounce
		b.Vel.X *= BallFloorFriction
		b.Vel.Z *= BallFloorFriction
	}

	inner := Bounds{HalfX: field.HalfX - b.Radius, HalfZ: field.HalfZ - b.Radius}
	ReflectBounds(&b.Pos, &b.Vel, inner, BallWallBounce)
}

// Bump resolves contact between the ball and a robot body. A ball below the
// robot's top gets a small pop upwards.
func (b *Ball) Bump(robot *Agent, robotHeight float64, cfg ContactConfig) bool {
	ball := Body{Pos: &b.Pos, Vel: &b.Vel, Radius: b.Radius}
	body := Body{Pos: &robot.Pos, Radius: robot.Radius}
	if !ResolveContact(ball, body, cfg) {
		return false
	}
	if b.Pos.Y < robot.Pos.Y+robotHeight/2-0.2 {
		b.Vel.Y = math.Min(math.Abs(b.Vel.Y)+BallPopLift, BallPopMax)
	}
	return true
}

// ToState converts to protocol state
func (b *Ball) ToState() BallState {
	return BallState{Pos: b.Pos.Rounded(), Vel: b.Vel.Rounded()}
}
