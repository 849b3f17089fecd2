package watch

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/mattjoyce/hearth/internal/events"
)

// HealthState is the engine as seen through /healthz and the event stream.
type HealthState struct {
	Status        string
	UptimeSeconds int64
	BootID        string
	Running       bool
	Tick          uint64
	StopReason    string
	Connected     bool
	LastCheck     time.Time
}

// Failure aggregates system.failed and system.panic events per system.
type Failure struct {
	System    string
	Panics    int
	Errors    int
	LastError string
	LastTick  uint64
}

// applyEvent folds one engine event into the model state.
func (m *Model) applyEvent(e events.Event, now time.Time) {
	switch e.Type {
	case events.EngineStarted:
		var p events.Started
		if json.Unmarshal(e.Data, &p) == nil {
			m.health.BootID = p.BootID
			m.health.Running = true
			m.health.StopReason = ""
			m.failures = make(map[string]*Failure)
		}
	case events.EngineTick:
		var p events.Tick
		if json.Unmarshal(e.Data, &p) == nil {
			m.health.Tick = p.Tick
			m.ticker.Tick(now)
		}
	case events.EngineFPS:
		var p events.FPS
		if json.Unmarshal(e.Data, &p) == nil {
			m.health.Tick = max(m.health.Tick, p.Tick)
			m.fps.Push(p.FPS)
		}
	case events.SystemPanic, events.SystemFailed:
		var p events.Failure
		if json.Unmarshal(e.Data, &p) != nil || p.System == "" {
			return
		}
		f, ok := m.failures[p.System]
		if !ok {
			f = &Failure{System: p.System}
			m.failures[p.System] = f
		}
		if e.Type == events.SystemPanic {
			f.Panics++
		} else {
			f.Errors++
		}
		f.LastError = p.Error
		f.LastTick = p.Tick
	case events.EngineStopped:
		var p events.Stopped
		if json.Unmarshal(e.Data, &p) == nil {
			m.health.Running = false
			m.health.StopReason = p.Reason
			m.health.Tick = max(m.health.Tick, p.Ticks)
		}
	case events.ScheduleCommitted:
		m.scheduleStale = true
	}
}

// sortedFailures returns failures with the most recent tick first.
func (m *Model) sortedFailures() []*Failure {
	out := make([]*Failure, 0, len(m.failures))
	for _, f := range m.failures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastTick != out[j].LastTick {
			return out[i].LastTick > out[j].LastTick
		}
		return out[i].System < out[j].System
	})
	return out
}
