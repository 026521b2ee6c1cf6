package main

import "container/heap"

// Generation is a counter owned by an agent or a simulation. Bumping it
// invalidates every token handed out before.
type Generation struct {
	n uint64
}

// Token captures the current generation
func (g *Generation) Token() Token { return Token{g: g, n: g.n} }

// Bump invalidates outstanding tokens
func (g *Generation) Bump() { g.n++ }

// Token is the validity tag carried by deferred work
type Token struct {
	g *Generation
	n uint64
}

// Valid reports whether the generation has not moved since the token was taken.
// The zero Token is always valid.
func (t Token) Valid() bool {
	return t.g == nil || t.g.n == t.n
}

type scheduledEvent struct {
	at    float64
	seq   uint64
	token Token
	fn    func()
}

type eventQueue []*scheduledEvent

func (q eventQueue) Len() int      { return len(q) }
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(*scheduledEvent)) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// Scheduler owns simulation time and the deferred events keyed by it.
// Events due at the same instant fire in the order they were scheduled.
type Scheduler struct {
	now   float64
	seq   uint64
	queue eventQueue
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now is the current simulation time in seconds
func (s *Scheduler) Now() float64 { return s.now }

// After runs fn once delay seconds have elapsed, provided token is still valid
func (s *Scheduler) After(delay float64, token Token, fn func()) {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	heap.Push(&s.queue, &scheduledEvent{at: s.now + delay, seq: s.seq, token: token, fn: fn})
}

// Advance moves time forward by dt and fires everything that came due.
// Events scheduled by a firing event run in the same call if already due.
func (s *Scheduler) Advance(dt float64) int {
	s.now += dt
	fired := 0
	for len(s.queue) > 0 && s.queue[0].at <= s.now {
		ev := heap.Pop(&s.queue).(*scheduledEvent)
		if !ev.token.Valid() {
			continue
		}
		ev.fn()
		fired++
	}
	return fired
}

// Pending is the number of queued events, including ones whose token has
// since gone stale
func (s *Scheduler) Pending() int { return len(s.queue) }
