package main

import (
	"errors"
	"math"
)

var ErrUnknownSurface = errors.New("unknown surface")

// SurfaceType selects how the sandbox world is generated
type SurfaceType string

const (
	SurfaceFlat      SurfaceType = "flat"
	SurfaceHills     SurfaceType = "hills"
	SurfaceStairs    SurfaceType = "stairs"
	SurfaceObstacles SurfaceType = "obstacles"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 10

	ClearZone      = 5.0 // no obstacles within this square around the spawn point
	ObstacleSpread = 20.0
	HillSpread     = 15.0
	StairWidth     = 8.0
	StairHeight    = 0.5
	StairDepth     = 2.0
	PlatformDepth  = 6.0
	GridCellSize   = 5.0
	TargetSpawnTry = 50
)

// ParseSurface validates a surface name
func ParseSurface(s string) (SurfaceType, bool) {
	switch SurfaceType(s) {
	case SurfaceFlat, SurfaceHills, SurfaceStairs, SurfaceObstacles:
		return SurfaceType(s), true
	}
	return "", false
}

func clampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Hill is a cone of terrain the character can walk over
type Hill struct {
	Pos    Vec3
	Height float64
	Radius float64
}

// World is the sandbox environment: terrain, obstacles and the spawn rules for
// targets
type World struct {
	Surface    SurfaceType
	Difficulty int
	Bounds     Bounds
	Obstacles  []*Obstacle
	Hills      []Hill
	Steps      []AABB
	Platform   *Vec3 // top of the stairs, where targets spawn on that surface

	cfg  SandboxConfig
	rng  RNG
	grid *SpatialGrid
	buf  []EntityRef
}

// NewWorld builds a world for the configured surface and difficulty
func NewWorld(cfg SandboxConfig, rng RNG) *World {
	surface, ok := ParseSurface(cfg.Surface)
	if !ok {
		surface = SurfaceFlat
	}
	w := &World{
		Surface:    surface,
		Difficulty: clampDifficulty(cfg.Difficulty),
		Bounds:     Bounds{HalfX: cfg.WorldHalf, HalfZ: cfg.WorldHalf},
		cfg:        cfg,
		rng:        rng,
		grid:       NewSpatialGrid(cfg.WorldHalf, cfg.WorldHalf, GridCellSize),
	}
	w.Generate()
	return w
}

// SetSurface regenerates the world with a new surface
func (w *World) SetSurface(s SurfaceType) {
	w.Surface = s
	w.Generate()
}

// SetDifficulty regenerates the world at a new difficulty (clamped to 1..10)
func (w *World) SetDifficulty(level int) {
	w.Difficulty = clampDifficulty(level)
	w.Generate()
}

// Generate throws away the current layout and builds a new one
func (w *World) Generate() {
	w.Obstacles = w.Obstacles[:0]
	w.Hills = w.Hills[:0]
	w.Steps = w.Steps[:0]
	w.Platform = nil

	switch w.Surface {
	case SurfaceHills:
		w.generateHills()
	case SurfaceStairs:
		w.generateStairs()
	case SurfaceObstacles:
		w.generateCourse()
	default:
		w.generateFlat()
	}
	w.rebuildGrid()
}

func (w *World) randomSpot(spread float64) (float64, float64) {
	return RandRange(w.rng, -spread, spread), RandRange(w.rng, -spread, spread)
}

func outsideClearZone(x, z float64) bool {
	return math.Abs(x) > ClearZone || math.Abs(z) > ClearZone
}

func (w *World) generateFlat() {
	for i := 0; i < w.Difficulty; i++ {
		x, z := w.randomSpot(ObstacleSpread)
		if outsideClearZone(x, z) {
			w.Obstacles = append(w.Obstacles, NewBoxObstacle(Vec3{x, 0.5, z}, 1, 1, 1))
		}
	}
}

func (w *World) generateHills() {
	hills := w.Difficulty/2 + 2
	for i := 0; i < hills; i++ {
		x, z := w.randomSpot(HillSpread)
		w.Hills = append(w.Hills, Hill{
			Pos:    Vec3{x, 0, z},
			Height: RandRange(w.rng, 1, 4),
			Radius: RandRange(w.rng, 3, 8),
		})
	}
	for i := 0; i < w.Difficulty; i++ {
		x, z := w.randomSpot(ObstacleSpread)
		if outsideClearZone(x, z) {
			y := w.HeightAt(x, z) + 0.5
			w.Obstacles = append(w.Obstacles, NewBoxObstacle(Vec3{x, y, z}, 1, 1, 1))
		}
	}
}

func (w *World) generateStairs() {
	count := w.Difficulty/2 + 3
	start := -float64(count) * StairDepth / 2
	for i := 0; i < count; i++ {
		y := float64(i) * StairHeight
		w.Steps = append(w.Steps, AABB{
			Center: Vec3{0, y + StairHeight/2, start + float64(i)*StairDepth},
			Half:   Vec3{StairWidth / 2, StairHeight / 2, StairDepth / 2},
		})
	}
	top := float64(count) * StairHeight
	platformZ := start + float64(count-1)*StairDepth + StairDepth/2 + PlatformDepth/2
	w.Steps = append(w.Steps, AABB{
		Center: Vec3{0, top + StairHeight/2, platformZ},
		Half:   Vec3{StairWidth / 2, StairHeight / 2, PlatformDepth / 2},
	})
	w.Platform = &Vec3{0, top + StairHeight + 0.5, platformZ}

	for i := 0; i < w.Difficulty; i++ {
		x, z := w.randomSpot(HillSpread)
		if outsideClearZone(x, z) {
			y := w.HeightAt(x, z) + 0.5
			w.Obstacles = append(w.Obstacles, NewBoxObstacle(Vec3{x, y, z}, 0.8, 0.8, 0.8))
		}
	}
}

func (w *World) generateCourse() {
	for i := 0; i < w.Difficulty*2; i++ {
		x, z := w.randomSpot(ObstacleSpread)
		width := RandRange(w.rng, 0.5, 2.5)
		height := RandRange(w.rng, 1, 4)
		depth := RandRange(w.rng, 0.5, 2.5)
		if outsideClearZone(x, z) {
			w.Obstacles = append(w.Obstacles, NewBoxObstacle(Vec3{x, height / 2, z}, width, height, depth))
		}
	}
	for i := 0; i < w.Difficulty/2; i++ {
		w.Obstacles = append(w.Obstacles, NewMovingObstacle(w.rng, w.cfg.MovingBounds))
	}
}

func (w *World) rebuildGrid() {
	w.grid.Clear()
	for i, o := range w.Obstacles {
		w.grid.InsertCircle(o.Pos.X, o.Pos.Z, o.Extent(), EntityRef{Kind: 'o', Idx: i})
	}
}

// Update drifts moving obstacles
func (w *World) Update(dt float64) {
	moved := false
	for _, o := range w.Obstacles {
		if o.Moving() {
			o.Update(dt)
			moved = true
		}
	}
	if moved {
		w.rebuildGrid()
	}
}

// HeightAt is the ground height at x/z: hill cones and the top of any step
func (w *World) HeightAt(x, z float64) float64 {
	h := 0.0
	for _, hill := range w.Hills {
		d := Distance(x, z, hill.Pos.X, hill.Pos.Z)
		if d < hill.Radius {
			h = math.Max(h, (1-d/hill.Radius)*hill.Height)
		}
	}
	for _, s := range w.Steps {
		if math.Abs(x-s.Center.X) <= s.Half.X && math.Abs(z-s.Center.Z) <= s.Half.Z {
			h = math.Max(h, s.Center.Y+s.Half.Y)
		}
	}
	return h
}

// SurfaceAt classifies the terrain under p
func (w *World) SurfaceAt(p Vec3) SurfaceClass {
	return ClassifyHeight(w.HeightAt(p.X, p.Z))
}

// NearbyObstacles lists obstacles whose centre is within radius of p
func (w *World) NearbyObstacles(p Vec3, radius float64) []NearbyObstacle {
	var out []NearbyObstacle
	w.buf = w.grid.QueryBuf(p.X, p.Z, radius, w.buf[:0])
	for _, ref := range w.buf {
		o := w.Obstacles[ref.Idx]
		if d := p.DistanceTo(o.Pos); d <= radius {
			out = append(out, NearbyObstacle{ID: o.ID, Kind: string(o.Kind), Distance: d})
		}
	}
	return out
}

// CheckCollision reports whether a sphere at p overlaps any obstacle
func (w *World) CheckCollision(p Vec3, radius float64) bool {
	w.buf = w.grid.QueryBuf(p.X, p.Z, radius, w.buf[:0])
	for _, ref := range w.buf {
		if w.Obstacles[ref.Idx].Intersects(p, radius) {
			return true
		}
	}
	return false
}

// RandomTargetPosition picks a free spot for a target. On the stairs surface the
// target goes on the platform. After TargetSpawnTry collisions the last spot is
// used anyway.
func (w *World) RandomTargetPosition() Vec3 {
	if w.Surface == SurfaceStairs && w.Platform != nil {
		return *w.Platform
	}
	var p Vec3
	for i := 0; i < TargetSpawnTry; i++ {
		x, z := w.randomSpot(w.cfg.TargetSpawnRange)
		p = Vec3{x, 1, z}
		if !w.CheckCollision(p, w.cfg.AgentRadius) {
			break
		}
	}
	return p
}

// ObstacleStates converts obstacles to protocol state
func (w *World) ObstacleStates() []ObstacleState {
	out := make([]ObstacleState, len(w.Obstacles))
	for i, o := range w.Obstacles {
		out[i] = o.ToState()
	}
	return out
}
