package main

// MatchPhase represents the lifecycle of a match
type MatchPhase int

const (
	PhasePlaying MatchPhase = 0
	PhaseResult  MatchPhase = 1
)

func (p MatchPhase) String() string {
	if p == PhaseResult {
		return "result"
	}
	return "playing"
}

// EndReason says why a match ended
type EndReason string

const (
	EndKnockout EndReason = "knockout"
	EndTimeUp   EndReason = "time_up"
)

// MatchResult is reported once when a match ends
type MatchResult struct {
	Winner   string    `json:"winner,omitempty"` // agent ID, empty on a draw
	WinnerNm string    `json:"winnerName,omitempty"`
	Loser    string    `json:"loser,omitempty"`
	Draw     bool      `json:"draw,omitempty"`
	Reason   EndReason `json:"reason"`
	Scores   []int     `json:"scores"`
	Duration float64   `json:"duration"`
}

// MatchState holds the current match state
type MatchState struct {
	Phase    MatchPhase
	Elapsed  float64
	TimeLeft float64 // 0 = untimed
	Result   *MatchResult
}

// NewMatchState starts a match. timeLimit 0 means no clock.
func NewMatchState(timeLimit float64) MatchState {
	return MatchState{Phase: PhasePlaying, TimeLeft: timeLimit}
}

// Over reports whether the match has a result
func (ms *MatchState) Over() bool { return ms.Phase == PhaseResult }

// Tick advances the clock and returns true when a timed match just ran out
func (ms *MatchState) Tick(dt float64) bool {
	if ms.Phase != PhasePlaying {
		return false
	}
	ms.Elapsed += dt
	if ms.TimeLeft <= 0 {
		return false
	}
	ms.TimeLeft -= dt
	if ms.TimeLeft <= 0 {
		ms.TimeLeft = 0
		return true
	}
	return false
}

// Finish records the result. Only the first call counts.
func (ms *MatchState) Finish(res MatchResult) bool {
	if ms.Phase == PhaseResult {
		return false
	}
	res.Duration = round2(ms.Elapsed)
	ms.Phase = PhaseResult
	ms.Result = &res
	return true
}

// DecideByScore builds a result from two competitors' scores
func DecideByScore(a, b *Agent, scoreA, scoreB int, reason EndReason) MatchResult {
	res := MatchResult{Reason: reason, Scores: []int{scoreA, scoreB}}
	switch {
	case scoreA > scoreB:
		res.Winner, res.WinnerNm, res.Loser = a.ID, a.Name, b.ID
	case scoreB > scoreA:
		res.Winner, res.WinnerNm, res.Loser = b.ID, b.Name, a.ID
	default:
		res.Draw = true
	}
	return res
}
