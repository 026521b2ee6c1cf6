package main

import (
	"fmt"
	"sort"
	"strings"
)

// SurfaceClass is the coarse terrain label under an agent
type SurfaceClass string

const (
	SurfaceClassFlat   SurfaceClass = "flat"
	SurfaceClassMedium SurfaceClass = "medium"
	SurfaceClassHigh   SurfaceClass = "high"
)

// ClassifyHeight maps a ground height to its surface class
func ClassifyHeight(h float64) SurfaceClass {
	switch {
	case h > 2:
		return SurfaceClassHigh
	case h > 0.5:
		return SurfaceClassMedium
	}
	return SurfaceClassFlat
}

// NearbyObstacle is an obstacle seen from the agent
type NearbyObstacle struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Distance float64 `json:"distance"`
}

// Situation is a snapshot of one agent and its surroundings. It is a plain value;
// copies never share state with the live agent.
type Situation struct {
	Time        float64          `json:"time"`
	Position    Vec3             `json:"position"`
	Velocity    Vec3             `json:"velocity"`
	OnGround    bool             `json:"onGround"`
	Crouching   bool             `json:"crouching"`
	Colliding   bool             `json:"colliding"`
	Surface     SurfaceClass     `json:"surface"`
	Obstacles   []NearbyObstacle `json:"obstacles,omitempty"`
	HasTarget   bool             `json:"hasTarget"`
	TargetDist  float64          `json:"targetDistance,omitempty"`
	Attempts    int              `json:"attempts"`
	Successes   int              `json:"successes"`
	Failures    int              `json:"failures"`
	Opponent    *OpponentView    `json:"opponent,omitempty"`
	Health      int              `json:"health,omitempty"`
	Stamina     float64          `json:"stamina,omitempty"`
	LastActions []Action         `json:"lastActions,omitempty"`
}

// OpponentView is what a fighter knows about the other fighter
type OpponentView struct {
	Distance   float64 `json:"distance"`
	Health     int     `json:"health"`
	Score      int     `json:"score"`
	LastAction Action  `json:"lastAction"`
	Busy       bool    `json:"busy"`
}

// ObstacleSignature is a stable key for the set of nearby obstacles, used to
// remember where failures happened.
func (s Situation) ObstacleSignature() string {
	if len(s.Obstacles) == 0 {
		return ""
	}
	ids := make([]string, len(s.Obstacles))
	for i, o := range s.Obstacles {
		ids[i] = o.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Describe renders the situation as an oracle prompt
func (s Situation) Describe(vocab Vocabulary) string {
	var b strings.Builder
	if s.Opponent != nil {
		fmt.Fprintf(&b, "You are a boxing robot. Your health: %d, stamina: %.0f.\n", s.Health, s.Stamina)
		fmt.Fprintf(&b, "Opponent: distance %.1f, health %d, score %d, last action %s.\n",
			s.Opponent.Distance, s.Opponent.Health, s.Opponent.Score, s.Opponent.LastAction)
	} else {
		fmt.Fprintf(&b, "You control a character learning to move.\n")
		fmt.Fprintf(&b, "Position: (%.1f, %.1f, %.1f). Surface: %s.", s.Position.X, s.Position.Y, s.Position.Z, s.Surface)
		if s.OnGround {
			b.WriteString(" On the ground.")
		} else {
			b.WriteString(" In the air.")
		}
		b.WriteString("\n")
		if len(s.Obstacles) > 0 {
			fmt.Fprintf(&b, "Nearby obstacles: %d, closest at %.1f.\n", len(s.Obstacles), s.closestObstacle())
		} else {
			b.WriteString("No obstacles nearby.\n")
		}
		if s.HasTarget {
			fmt.Fprintf(&b, "Target distance: %.1f.\n", s.TargetDist)
		}
		fmt.Fprintf(&b, "Attempts: %d, successful: %d, failed: %d.\n", s.Attempts, s.Successes, s.Failures)
	}
	fmt.Fprintf(&b, "Choose one action: %s. Answer with the action name only.", strings.Join(vocab.Labels(), ", "))
	return b.String()
}

func (s Situation) closestObstacle() float64 {
	best := -1.0
	for _, o := range s.Obstacles {
		if best < 0 || o.Distance < best {
			best = o.Distance
		}
	}
	return best
}
