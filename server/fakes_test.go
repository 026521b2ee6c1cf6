package main

import (
	"context"
	"sync"
)

// scriptedRNG replays fixed draws. Once a script runs out Float64 returns
// 0.99 and Intn returns 0.
type scriptedRNG struct {
	floats []float64
	ints   []int
}

func (r *scriptedRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRNG) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// stubOracle answers every prompt with reply, or err. If release is set the
// call blocks until it is closed or the context ends.
type stubOracle struct {
	reply   string
	err     error
	release chan struct{}

	mu      sync.Mutex
	prompts []string
}

func (o *stubOracle) Decide(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	o.prompts = append(o.prompts, prompt)
	o.mu.Unlock()
	if o.release != nil {
		select {
		case <-o.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return o.reply, o.err
}

func (o *stubOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.prompts)
}

// eventLog records emitted events
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofKind(kind EventKind) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// testConfig is the default config with a fixed seed
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	return cfg
}
