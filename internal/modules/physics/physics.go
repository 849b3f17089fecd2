// Package physics integrates a handful of point bodies under gravity and
// the input direction.
package physics

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/input"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

const Name = "physics"

// MaxStep caps the integrated time of one tick.
const MaxStep = 250 * time.Millisecond

type Options struct {
	Gravity     float64
	Accel       float64
	Restitution float64
	Substeps    int
	Bodies      int
}

func DefaultOptions() Options {
	return Options{Gravity: -9.81, Accel: 4, Restitution: 0.5, Substeps: 1, Bodies: 1}
}

type Body struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

// World holds every body. It is written by the physics system only.
type World struct {
	Bodies []Body
	Steps  uint64
}

// Step advances w by dt under gravity plus move*accel. Bodies bounce on the
// y=0 plane.
func (w *World) Step(o Options, move mgl64.Vec3, dt float64) {
	if o.Substeps < 1 {
		o.Substeps = 1
	}
	h := dt / float64(o.Substeps)
	acc := mgl64.Vec3{0, o.Gravity, 0}.Add(move.Mul(o.Accel))
	for s := 0; s < o.Substeps; s++ {
		for i := range w.Bodies {
			b := &w.Bodies[i]
			b.Velocity = b.Velocity.Add(acc.Mul(h))
			b.Position = b.Position.Add(b.Velocity.Mul(h))
			if b.Position.Y() < 0 {
				b.Position[1] = 0
				if b.Velocity.Y() < 0 {
					b.Velocity[1] = -b.Velocity.Y() * o.Restitution
				}
			}
		}
	}
	w.Steps++
}

type Module struct {
	opts  Options
	input engine.Module
}

// New returns the physics module. in, when non-nil, is registered as a
// submodule so "input" always exists.
func New(opts Options, in engine.Module) *Module {
	return &Module{opts: opts, input: in}
}

func (m *Module) Name() string { return Name }

func (m *Module) Submodules() []engine.Module {
	if m.input == nil {
		return nil
	}
	return []engine.Module{m.input}
}

func (m *Module) Init(ctx *engine.InitContext, res *resource.Registry) error {
	world := resource.GetOrInsert(res, func() *World {
		w := &World{Bodies: make([]Body, max(m.opts.Bodies, 0))}
		for i := range w.Bodies {
			w.Bodies[i].Position = mgl64.Vec3{float64(i) * 2, 1, 0}
		}
		return w
	})

	d := schedule.Named(Name).RunAfter(input.Name)
	return ctx.Dispatch(d, func(bc *engine.BuildContext) (engine.System, error) {
		in, ok := resource.Get[input.State](bc.Resources)
		if !ok {
			return nil, fmt.Errorf("physics: input state missing")
		}
		return engine.SystemFunc(func(fr *engine.Frame) error {
			world.Step(m.opts, in.Move, min(fr.Delta, MaxStep).Seconds())
			return nil
		}), nil
	})
}
