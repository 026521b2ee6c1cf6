package main

import "math"

// CheckCollision checks if two circles overlap
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

// AABB is an axis-aligned box given by its centre and half extents
type AABB struct {
	Center Vec3
	Half   Vec3
}

// SphereIntersectsBox tests a sphere against a box using the closest point on the box
func SphereIntersectsBox(c Vec3, r float64, b AABB) bool {
	dx := math.Max(math.Abs(c.X-b.Center.X)-b.Half.X, 0)
	dy := math.Max(math.Abs(c.Y-b.Center.Y)-b.Half.Y, 0)
	dz := math.Max(math.Abs(c.Z-b.Center.Z)-b.Half.Z, 0)
	return dx*dx+dy*dy+dz*dz <= r*r
}

// SphereIntersectsSphere tests two spheres in 3D
func SphereIntersectsSphere(c1 Vec3, r1 float64, c2 Vec3, r2 float64) bool {
	d := c2.Sub(c1)
	radSum := r1 + r2
	return d.X*d.X+d.Y*d.Y+d.Z*d.Z <= radSum*radSum
}

// ContactConfig tunes soft contact resolution
type ContactConfig struct {
	Correction float64 `yaml:"correction"` // fraction of the overlap removed per call
	Impulse    float64 `yaml:"impulse"`    // velocity added along the normal
	MaxLift    float64 `yaml:"max_lift"`   // cap on upward velocity
}

// Body is a round entity taking part in contact resolution
type Body struct {
	Pos    *Vec3
	Vel    *Vec3
	Radius float64
}

// ResolveContact pushes a out of b on the ground plane. Only part of the overlap
// is removed so a little penetration may remain. Returns true when the bodies
// were touching.
func ResolveContact(a, b Body, cfg ContactConfig) bool {
	dx := a.Pos.X - b.Pos.X
	dz := a.Pos.Z - b.Pos.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	minDist := a.Radius + b.Radius
	if dist >= minDist {
		return false
	}

	nx, nz := 1.0, 0.0
	if dist > 1e-9 {
		nx, nz = dx/dist, dz/dist
	}
	overlap := minDist - dist

	a.Pos.X += nx * overlap * cfg.Correction
	a.Pos.Z += nz * overlap * cfg.Correction
	if a.Vel != nil {
		a.Vel.X += nx * cfg.Impulse
		a.Vel.Z += nz * cfg.Impulse
		if a.Vel.Y > cfg.MaxLift {
			a.Vel.Y = cfg.MaxLift
		}
	}
	return true
}

// ReflectBounds keeps a moving entity inside b. The offending velocity
// component is mirrored and scaled by restitution, the position clamped.
// Returns true if a wall was hit.
func ReflectBounds(pos, vel *Vec3, b Bounds, restitution float64) bool {
	hit := false
	if pos.X > b.HalfX || pos.X < -b.HalfX {
		vel.X = -vel.X * restitution
		pos.X = Clamp(pos.X, -b.HalfX, b.HalfX)
		hit = true
	}
	if pos.Z > b.HalfZ || pos.Z < -b.HalfZ {
		vel.Z = -vel.Z * restitution
		pos.Z = Clamp(pos.Z, -b.HalfZ, b.HalfZ)
		hit = true
	}
	return hit
}
