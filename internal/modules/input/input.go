// Package input samples a headless input source once per tick.
package input

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

// Name of the module and of its system.
const Name = "input"

// State is the input snapshot of the current tick.
type State struct {
	Tick uint64
	// Move is the requested movement direction, length at most 1.
	Move mgl64.Vec3
}

// Source produces the movement direction for a tick.
type Source func(tick uint64) mgl64.Vec3

// Idle never moves.
func Idle(uint64) mgl64.Vec3 { return mgl64.Vec3{} }

// Circle walks a circle in the XZ plane, one turn every period ticks.
func Circle(period uint64) Source {
	if period == 0 {
		period = 1
	}
	return func(tick uint64) mgl64.Vec3 {
		angle := 2 * math.Pi * float64(tick%period) / float64(period)
		return mgl64.Vec3{math.Cos(angle), 0, math.Sin(angle)}
	}
}

type Module struct {
	source Source
}

// New returns the input module. A nil source is Idle.
func New(source Source) *Module {
	if source == nil {
		source = Idle
	}
	return &Module{source: source}
}

func (m *Module) Name() string { return Name }

func (m *Module) Init(ctx *engine.InitContext, res *resource.Registry) error {
	state := resource.GetOrInsert(res, func() *State { return &State{} })
	return ctx.Dispatch(schedule.Named(Name), engine.Func(func(fr *engine.Frame) error {
		move := m.source(fr.Tick)
		if l := move.Len(); l > 1 {
			move = move.Mul(1 / l)
		}
		state.Tick = fr.Tick
		state.Move = move
		return nil
	}))
}
