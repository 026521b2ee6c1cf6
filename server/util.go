package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random (v4) UUID string, used for session IDs
func GenerateUUID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points on a plane
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Vec3 is a point or direction in arena space. Y is up.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

func (v Vec3) Add(o Vec3) Vec3           { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3           { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3      { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Len() float64              { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3) Flat() Vec3                { return Vec3{v.X, 0, v.Z} }
func (v Vec3) DistanceTo(o Vec3) float64 { return o.Sub(v).Len() }

// FlatDistance ignores the vertical axis
func (v Vec3) FlatDistance(o Vec3) float64 {
	return Distance(v.X, v.Z, o.X, o.Z)
}

// Normalize returns the unit vector, or zero for a zero vector
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Rounded trims coordinates for the wire
func (v Vec3) Rounded() Vec3 {
	return Vec3{round2(v.X), round2(v.Y), round2(v.Z)}
}

// Bounds is an axis-aligned box on the ground plane centred on the origin.
type Bounds struct {
	HalfX float64 `yaml:"half_x" json:"halfX"`
	HalfZ float64 `yaml:"half_z" json:"halfZ"`
}

// Clamp keeps p inside the bounds on x/z, y is untouched
func (b Bounds) Clamp(p Vec3) Vec3 {
	return Vec3{Clamp(p.X, -b.HalfX, b.HalfX), p.Y, Clamp(p.Z, -b.HalfZ, b.HalfZ)}
}

// Contains reports whether p lies inside the bounds on x/z
func (b Bounds) Contains(p Vec3) bool {
	return math.Abs(p.X) <= b.HalfX && math.Abs(p.Z) <= b.HalfZ
}

// RNG is the randomness source used by simulations. *math/rand.Rand satisfies it;
// tests inject scripted sequences.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// NewRNG returns a seeded generator. seed 0 picks a time-based seed.
func NewRNG(seed int64) RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return mrand.New(mrand.NewSource(seed))
}

// RandRange returns a value in [min, max)
func RandRange(rng RNG, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

// WeightedPick returns an index chosen proportionally to weights
func WeightedPick(rng RNG, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	roll := rng.Intn(total)
	for i, w := range weights {
		if roll < w {
			return i
		}
		roll -= w
	}
	return len(weights) - 1
}
