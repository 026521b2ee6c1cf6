package main

import "math"

const (
	MovingObstacleRadius = 1.0
	MovingObstacleSpeed  = 1.0 // max speed per axis, units/s
)

// ObstacleKind tells the collider shape
type ObstacleKind string

const (
	ObstacleBox    ObstacleKind = "box"
	ObstacleSphere ObstacleKind = "sphere"
)

// Obstacle is a static box or a sphere drifting inside a square and bouncing
// off its edges
type Obstacle struct {
	ID     string
	Kind   ObstacleKind
	Pos    Vec3
	Half   Vec3 // box half extents
	Radius float64
	Vel    Vec3
	Bounds float64 // moving obstacles reflect at +-Bounds
}

// NewBoxObstacle creates a static box sitting at centre c
func NewBoxObstacle(c Vec3, w, h, d float64) *Obstacle {
	return &Obstacle{
		ID:   GenerateID(4),
		Kind: ObstacleBox,
		Pos:  c,
		Half: Vec3{w / 2, h / 2, d / 2},
	}
}

// NewMovingObstacle spawns a sphere at a random spot with a random drift
func NewMovingObstacle(rng RNG, bounds float64) *Obstacle {
	return &Obstacle{
		ID:     GenerateID(4),
		Kind:   ObstacleSphere,
		Pos:    Vec3{RandRange(rng, -bounds, bounds), 1, RandRange(rng, -bounds, bounds)},
		Radius: MovingObstacleRadius,
		Vel: Vec3{
			RandRange(rng, -MovingObstacleSpeed, MovingObstacleSpeed),
			0,
			RandRange(rng, -MovingObstacleSpeed, MovingObstacleSpeed),
		},
		Bounds: bounds,
	}
}

// Moving reports whether the obstacle drifts
func (o *Obstacle) Moving() bool {
	return o.Vel.X != 0 || o.Vel.Z != 0
}

// Update drifts a moving obstacle and reflects it off the bounds
func (o *Obstacle) Update(dt float64) {
	if !o.Moving() {
		return
	}
	o.Pos = o.Pos.Add(o.Vel.Scale(dt))
	ReflectBounds(&o.Pos, &o.Vel, Bounds{HalfX: o.Bounds, HalfZ: o.Bounds}, 1)
}

// Intersects tests a sphere at c with radius r against the obstacle
func (o *Obstacle) Intersects(c Vec3, r float64) bool {
	if o.Kind == ObstacleSphere {
		return SphereIntersectsSphere(o.Pos, o.Radius, c, r)
	}
	return SphereIntersectsBox(c, r, AABB{Center: o.Pos, Half: o.Half})
}

// Extent is the horizontal reach used for grid insertion
func (o *Obstacle) Extent() float64 {
	if o.Kind == ObstacleSphere {
		return o.Radius
	}
	return math.Max(o.Half.X, o.Half.Z)
}

// ToState converts to protocol state
func (o *Obstacle) ToState() ObstacleState {
	st := ObstacleState{
		ID:   o.ID,
		Kind: string(o.Kind),
		Pos:  o.Pos.Rounded(),
	}
	if o.Kind == ObstacleSphere {
		st.Size = Vec3{o.Radius, o.Radius, o.Radius}
	} else {
		st.Size = o.Half.Scale(2).Rounded()
	}
	return st
}
