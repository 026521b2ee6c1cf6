package main

// Ring is a fixed-capacity buffer that overwrites its oldest entry when full.
type Ring[T any] struct {
	entries []T
	head    int
	count   int
}

// NewRing creates a ring holding at most capacity entries
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{entries: make([]T, capacity)}
}

// Add appends v, evicting the oldest entry when the ring is full
func (r *Ring[T]) Add(v T) {
	r.entries[r.head] = v
	r.head = (r.head + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

func (r *Ring[T]) Len() int { return r.count }
func (r *Ring[T]) Cap() int { return len(r.entries) }

// Recent returns entries in chronological order (oldest first).
func (r *Ring[T]) Recent() []T {
	n := len(r.entries)
	result := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		result[i] = r.entries[(r.head-r.count+i+n)%n]
	}
	return result
}

// Last returns the newest entry
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	n := len(r.entries)
	return r.entries[(r.head-1+n)%n], true
}

// Clear drops every entry
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.entries {
		r.entries[i] = zero
	}
	r.head = 0
	r.count = 0
}

// MemoryRecord is one evaluated action in an agent's rolling memory
type MemoryRecord struct {
	Action    Action    `json:"action"`
	Success   bool      `json:"success"`
	Situation Situation `json:"situation"`
	Time      float64   `json:"time"`
}
