package profile

import (
	"sort"
	"sync"
	"time"
)

// Total is the accumulated cost of one system over the engine's lifetime.
type Total struct {
	System      string        `json:"system"`
	Invocations int64         `json:"invocations"`
	Total       time.Duration `json:"total_ns"`
	Max         time.Duration `json:"max_ns"`
}

// Mean returns the average invocation time.
func (t Total) Mean() time.Duration {
	if t.Invocations == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Invocations)
}

// Totals accumulates per-system timings. Safe for concurrent use.
type Totals struct {
	mu    sync.Mutex
	items map[string]*Total
}

// NewTotals returns an empty accumulator.
func NewTotals() *Totals {
	return &Totals{items: make(map[string]*Total)}
}

// Record adds one invocation of system.
func (t *Totals) Record(system string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	it, ok := t.items[system]
	if !ok {
		it = &Total{System: system}
		t.items[system] = it
	}
	it.Invocations++
	it.Total += d
	if d > it.Max {
		it.Max = d
	}
}

// Snapshot returns all totals, most expensive first.
func (t *Totals) Snapshot() []Total {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Total, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].System < out[j].System
	})
	return out
}
