package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

const (
	analyticsQueueSize = 1024
	analyticsBatchSize = 50
	analyticsFlushTick = 5 * time.Second
)

// Analytics persists evaluated outcomes and finished matches. It implements
// EventSink; Emit never blocks the tick and a background writer batches rows
// into the database.
type Analytics struct {
	db     *DB
	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup

	// Live counters, by event kind
	mu      sync.RWMutex
	counts  map[EventKind]int
	dropped int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan Event, analyticsQueueSize),
		stop:   make(chan struct{}),
		counts: make(map[EventKind]int),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Emit enqueues an event for async persistence (non-blocking)
func (a *Analytics) Emit(ev Event) {
	a.mu.Lock()
	a.counts[ev.Kind]++
	a.mu.Unlock()

	if ev.Kind != EventOutcome && ev.Kind != EventMatchEnd {
		return
	}
	select {
	case a.events <- ev:
	default:
		// Channel full, drop rather than block the tick
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
	}
}

// EventCounts returns how many events of each kind were seen since start
func (a *Analytics) EventCounts() map[EventKind]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[EventKind]int, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}

// Dropped returns the number of events lost to a full queue
func (a *Analytics) Dropped() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dropped
}

// Stop gracefully shuts down the analytics writer
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]Event, 0, 64)
	ticker := time.NewTicker(analyticsFlushTick)
	defer ticker.Stop()

	for {
		select {
		case ev := <-a.events:
			batch = append(batch, ev)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Drain whatever is queued; late Emits after Stop are dropped
			for {
				select {
				case ev := <-a.events:
					batch = append(batch, ev)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []Event) {
	if a.db == nil || len(events) == 0 {
		return
	}
	var outcomes []OutcomeRow
	for _, ev := range events {
		switch d := ev.Data.(type) {
		case Outcome:
			outcomes = append(outcomes, outcomeRow(ev, d))
		case MatchResult:
			if _, err := a.db.RecordMatch(matchRow(ev, d)); err != nil {
				log.Printf("analytics: record match: %v", err)
			}
		}
	}
	if len(outcomes) == 0 {
		return
	}
	if err := a.db.InsertOutcomes(outcomes); err != nil {
		log.Printf("analytics: insert outcomes: %v", err)
	}
}

func outcomeRow(ev Event, o Outcome) OutcomeRow {
	sit, err := json.Marshal(o.Situation)
	if err != nil {
		sit = nil
	}
	return OutcomeRow{
		SessionID: ev.SessionID,
		Mode:      string(ev.Mode),
		AgentID:   o.AgentID,
		AgentName: o.AgentName,
		Action:    o.Action.String(),
		Success:   o.Success,
		Source:    o.Source,
		SimTime:   o.Time,
		Situation: string(sit),
	}
}

func matchRow(ev Event, r MatchResult) MatchRow {
	m := MatchRow{
		SessionID: ev.SessionID,
		Mode:      string(ev.Mode),
		Winner:    r.WinnerNm,
		Draw:      r.Draw,
		Reason:    string(r.Reason),
		Duration:  r.Duration,
	}
	if len(r.Scores) > 0 {
		m.ScoreA = r.Scores[0]
	}
	if len(r.Scores) > 1 {
		m.ScoreB = r.Scores[1]
	}
	return m
}

// --- Query methods for the API ---

// OutcomeSummary returns success rates per action, optionally for one mode
func (a *Analytics) OutcomeSummary(mode string) ([]ActionSummary, error) {
	if a.db == nil {
		return nil, nil
	}
	return a.db.OutcomeSummary(mode)
}

// RecentMatches returns the latest finished matches
func (a *Analytics) RecentMatches(limit int) ([]MatchRow, error) {
	if a.db == nil {
		return nil, nil
	}
	return a.db.RecentMatches(limit)
}
