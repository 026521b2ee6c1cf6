package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the arena. Values are fixed per session once a
// session has been created.
type Config struct {
	Oracle   OracleConfig   `yaml:"oracle"`
	Learning LearningConfig `yaml:"learning"`
	Contact  ContactConfig  `yaml:"contact"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Boxing   BoxingConfig   `yaml:"boxing"`
	Soccer   SoccerConfig   `yaml:"soccer"`
	Seed     int64          `yaml:"seed"` // 0 = time based
}

// OracleConfig points at an Ollama-compatible generate endpoint
type OracleConfig struct {
	URL     string  `yaml:"url"`
	Model   string  `yaml:"model"`
	Timeout float64 `yaml:"timeout"` // seconds
}

// LearningConfig controls the exploration-rate adaptation
type LearningConfig struct {
	InitialRate       float64 `yaml:"initial_rate"`
	MinRate           float64 `yaml:"min_rate"`
	MaxRate           float64 `yaml:"max_rate"`
	SuccessStep       float64 `yaml:"success_step"`
	FailureStep       float64 `yaml:"failure_step"`
	MemorySize        int     `yaml:"memory_size"`
	EvaluationDelay   float64 `yaml:"evaluation_delay"`   // seconds
	StrategyThreshold float64 `yaml:"strategy_threshold"` // success rate above which the agent exploits
}

// SandboxConfig is the character training world
type SandboxConfig struct {
	WorldHalf        float64 `yaml:"world_half"`
	Surface          string  `yaml:"surface"`
	Difficulty       int     `yaml:"difficulty"`
	DecisionInterval float64 `yaml:"decision_interval"` // seconds
	MinInterval      float64 `yaml:"min_interval"`
	MaxInterval      float64 `yaml:"max_interval"`
	ActionDuration   float64 `yaml:"action_duration"`
	SeekDuration     float64 `yaml:"seek_duration"`
	Speed            float64 `yaml:"speed"`
	JumpForce        float64 `yaml:"jump_force"`
	Gravity          float64 `yaml:"gravity"`
	Friction         float64 `yaml:"friction"` // horizontal velocity multiplier per tick
	AgentRadius      float64 `yaml:"agent_radius"`
	NearbyRadius     float64 `yaml:"nearby_radius"`
	TargetSpawnRange float64 `yaml:"target_spawn_range"`
	TargetReach      float64 `yaml:"target_reach"`
	TargetRespawn    float64 `yaml:"target_respawn"` // seconds
	MovingBounds     float64 `yaml:"moving_bounds"`
}

// BoxingConfig is the two-fighter ring
type BoxingConfig struct {
	RingHalf           float64 `yaml:"ring_half"`
	StartGap           float64 `yaml:"start_gap"`
	FighterRadius      float64 `yaml:"fighter_radius"`
	ActionDuration     float64 `yaml:"action_duration"`
	MoveDuration       float64 `yaml:"move_duration"`
	AttackStep         float64 `yaml:"attack_step"`
	DefendStep         float64 `yaml:"defend_step"`
	DodgeStep          float64 `yaml:"dodge_step"`
	TacticalStep       float64 `yaml:"tactical_step"`
	MinComfort         float64 `yaml:"min_comfort"`
	MaxComfort         float64 `yaml:"max_comfort"`
	AttackRange        float64 `yaml:"attack_range"`
	AttackDamage       int     `yaml:"attack_damage"`
	HitChance          float64 `yaml:"hit_chance"`
	BlockChance        float64 `yaml:"block_chance"`
	DodgeChance        float64 `yaml:"dodge_chance"`
	MaxHealth          int     `yaml:"max_health"`
	MaxStamina         float64 `yaml:"max_stamina"`
	StaminaRegen       float64 `yaml:"stamina_regen"` // per second
	HistorySize        int     `yaml:"history_size"`
	ThinkDelayMin      float64 `yaml:"think_delay_min"`
	ThinkDelayMax      float64 `yaml:"think_delay_max"`
	ForceActivityAfter float64 `yaml:"force_activity_after"`
}

// SoccerConfig is the robot football pitch. Ball and robot dynamics are per tick.
type SoccerConfig struct {
	FieldWidth     float64 `yaml:"field_width"`
	FieldHeight    float64 `yaml:"field_height"`
	GoalWidth      float64 `yaml:"goal_width"`
	BallRadius     float64 `yaml:"ball_radius"`
	RobotSize      float64 `yaml:"robot_size"`
	GameTime       float64 `yaml:"game_time"` // seconds
	GoalResetDelay float64 `yaml:"goal_reset_delay"`
}

// DefaultConfig returns the stock arena settings
func DefaultConfig() Config {
	return Config{
		Oracle: OracleConfig{
			URL:     "http://localhost:11434/api/generate",
			Model:   "llama3.1:latest",
			Timeout: 10,
		},
		Learning: LearningConfig{
			InitialRate:       0.3,
			MinRate:           0.1,
			MaxRate:           0.5,
			SuccessStep:       0.01,
			FailureStep:       0.02,
			MemorySize:        100,
			EvaluationDelay:   2.0,
			StrategyThreshold: 0.7,
		},
		Contact: ContactConfig{
			Correction: 0.8,
			Impulse:    0.08,
			MaxLift:    0.3,
		},
		Sandbox: SandboxConfig{
			WorldHalf:        25,
			Surface:          string(SurfaceFlat),
			Difficulty:       1,
			DecisionInterval: 1.0,
			MinInterval:      0.1,
			MaxInterval:      5.0,
			ActionDuration:   0.3,
			SeekDuration:     0.2,
			Speed:            5,
			JumpForce:        8,
			Gravity:          -20,
			Friction:         0.8,
			AgentRadius:      1,
			NearbyRadius:     5,
			TargetSpawnRange: 20,
			TargetReach:      2,
			TargetRespawn:    1.0,
			MovingBounds:     15,
		},
		Boxing: BoxingConfig{
			RingHalf:           3.5,
			StartGap:           2,
			FighterRadius:      0.5,
			ActionDuration:     0.4,
			MoveDuration:       0.3,
			AttackStep:         0.7,
			DefendStep:         0.5,
			DodgeStep:          0.7,
			TacticalStep:       0.6,
			MinComfort:         1.2,
			MaxComfort:         2.5,
			AttackRange:        2.2,
			AttackDamage:       10,
			HitChance:          0.5,
			BlockChance:        0.8,
			DodgeChance:        0.7,
			MaxHealth:          100,
			MaxStamina:         100,
			StaminaRegen:       8,
			HistorySize:        10,
			ThinkDelayMin:      0.1,
			ThinkDelayMax:      0.3,
			ForceActivityAfter: 1.5,
		},
		Soccer: SoccerConfig{
			FieldWidth:     16,
			FieldHeight:    10,
			GoalWidth:      3,
			BallRadius:     0.4,
			RobotSize:      1,
			GameTime:       60,
			GoalResetDelay: 1.2,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the simulations cannot run with
func (c *Config) Validate() error {
	l := c.Learning
	if l.MinRate < 0 || l.MaxRate > 1 || l.MinRate > l.MaxRate {
		return fmt.Errorf("learning: rate range [%v, %v] invalid", l.MinRate, l.MaxRate)
	}
	if l.MemorySize <= 0 {
		return fmt.Errorf("learning: memory_size must be positive")
	}
	c.Learning.InitialRate = Clamp(l.InitialRate, l.MinRate, l.MaxRate)

	s := c.Sandbox
	if s.MinInterval <= 0 || s.MinInterval > s.MaxInterval {
		return fmt.Errorf("sandbox: interval range [%v, %v] invalid", s.MinInterval, s.MaxInterval)
	}
	c.Sandbox.DecisionInterval = Clamp(s.DecisionInterval, s.MinInterval, s.MaxInterval)
	if _, ok := ParseSurface(s.Surface); !ok {
		return fmt.Errorf("sandbox: unknown surface %q", s.Surface)
	}
	c.Sandbox.Difficulty = clampDifficulty(s.Difficulty)

	b := c.Boxing
	if b.MinComfort >= b.MaxComfort {
		return fmt.Errorf("boxing: comfort band [%v, %v] invalid", b.MinComfort, b.MaxComfort)
	}
	if b.ActionDuration <= 0 || b.MoveDuration <= 0 {
		return fmt.Errorf("boxing: action durations must be positive")
	}
	if b.MaxHealth <= 0 {
		return fmt.Errorf("boxing: max_health must be positive")
	}
	if c.Soccer.GameTime <= 0 {
		return fmt.Errorf("soccer: game_time must be positive")
	}
	return nil
}
