package main

// Strategy names reported by the learning stats
const (
	StrategyExploration  = "exploration"
	StrategyExploitation = "exploitation"
)

// Learner tracks an agent's outcomes and adapts its exploration rate:
// successes lower it, failures raise it, always inside [MinRate, MaxRate].
type Learner struct {
	cfg       LearningConfig
	rate      float64
	successes int
	failures  int
	memory    *Ring[MemoryRecord]

	terrain   map[SurfaceClass]int // successes per surface class
	obstacles map[string]int       // failures per obstacle signature
}

// LearningStats is the observational view of a learner
type LearningStats struct {
	Attempts        int                  `json:"attempts" msgpack:"attempts"`
	SuccessfulMoves int                  `json:"successfulMoves" msgpack:"successfulMoves"`
	FailedMoves     int                  `json:"failedMoves" msgpack:"failedMoves"`
	SuccessRate     float64              `json:"successRate" msgpack:"successRate"`
	ExplorationRate float64              `json:"explorationRate" msgpack:"explorationRate"`
	CurrentStrategy string               `json:"currentStrategy" msgpack:"currentStrategy"`
	MemorySize      int                  `json:"memorySize" msgpack:"memorySize"`
	Terrain         map[SurfaceClass]int `json:"terrainMemory,omitempty" msgpack:"-"`
	Obstacles       map[string]int       `json:"obstacleMemory,omitempty" msgpack:"-"`
}

// NewLearner creates a learner at the configured initial rate
func NewLearner(cfg LearningConfig) *Learner {
	l := &Learner{cfg: cfg, memory: NewRing[MemoryRecord](cfg.MemorySize)}
	l.Reset()
	return l
}

// ExplorationRate is the probability of picking a random action
func (l *Learner) ExplorationRate() float64 { return l.rate }

// SetExplorationRate overrides the rate, clamped to the configured range
func (l *Learner) SetExplorationRate(v float64) {
	l.rate = Clamp(v, l.cfg.MinRate, l.cfg.MaxRate)
}

// Record applies one evaluated outcome
func (l *Learner) Record(rec MemoryRecord) {
	l.memory.Add(rec)
	if rec.Success {
		l.successes++
		l.rate -= l.cfg.SuccessStep
		l.terrain[rec.Situation.Surface]++
	} else {
		l.failures++
		l.rate += l.cfg.FailureStep
		if sig := rec.Situation.ObstacleSignature(); sig != "" {
			l.obstacles[sig]++
		}
	}
	l.rate = Clamp(l.rate, l.cfg.MinRate, l.cfg.MaxRate)
}

// Memory returns the remembered records, oldest first
func (l *Learner) Memory() []MemoryRecord { return l.memory.Recent() }

// Counts returns successes and failures
func (l *Learner) Counts() (int, int) { return l.successes, l.failures }

// Reset forgets everything and returns to the initial rate
func (l *Learner) Reset() {
	l.successes = 0
	l.failures = 0
	l.rate = Clamp(l.cfg.InitialRate, l.cfg.MinRate, l.cfg.MaxRate)
	l.memory.Clear()
	l.terrain = make(map[SurfaceClass]int)
	l.obstacles = make(map[string]int)
}

// Stats returns a copy of the learner's counters. It never mutates the learner.
func (l *Learner) Stats() LearningStats {
	attempts := l.successes + l.failures
	st := LearningStats{
		Attempts:        attempts,
		SuccessfulMoves: l.successes,
		FailedMoves:     l.failures,
		ExplorationRate: l.rate,
		CurrentStrategy: StrategyExploration,
		MemorySize:      l.memory.Len(),
		Terrain:         make(map[SurfaceClass]int, len(l.terrain)),
		Obstacles:       make(map[string]int, len(l.obstacles)),
	}
	if attempts > 0 {
		st.SuccessRate = float64(l.successes) / float64(attempts)
	}
	if st.SuccessRate > l.cfg.StrategyThreshold {
		st.CurrentStrategy = StrategyExploitation
	}
	for k, v := range l.terrain {
		st.Terrain[k] = v
	}
	for k, v := range l.obstacles {
		st.Obstacles[k] = v
	}
	return st
}
