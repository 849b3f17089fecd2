// Package camera follows the first physics body and publishes the
// world-view-projection matrix used by the render bracket.
package camera

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/modules/physics"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

const Name = "camera"

type Options struct {
	FovY   float64 // degrees
	Aspect float64
	Near   float64
	Far    float64
	Offset mgl64.Vec3
}

func DefaultOptions() Options {
	return Options{FovY: 60, Aspect: 16.0 / 9.0, Near: 0.1, Far: 100, Offset: mgl64.Vec3{0, 3, 8}}
}

// Camera is written by the parallel camera system and read by render_setup
// on the engine thread in the same tick, after the parallel group finished.
type Camera struct {
	opts Options

	mu     sync.RWMutex
	eye    mgl64.Vec3
	target mgl64.Vec3
	wvp    mgl64.Mat4
}

func newCamera(o Options) *Camera {
	c := &Camera{opts: o}
	c.look(mgl64.Vec3{})
	return c
}

func (c *Camera) look(target mgl64.Vec3) {
	eye := target.Add(c.opts.Offset)
	proj := mgl64.Perspective(mgl64.DegToRad(c.opts.FovY), c.opts.Aspect, c.opts.Near, c.opts.Far)
	view := mgl64.LookAtV(eye, target, mgl64.Vec3{0, 1, 0})

	c.mu.Lock()
	c.eye, c.target = eye, target
	c.wvp = proj.Mul4(view)
	c.mu.Unlock()
}

// WVP returns the current world-view-projection matrix.
func (c *Camera) WVP() mgl64.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wvp
}

// Eye returns the camera position.
func (c *Camera) Eye() mgl64.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eye
}

// Project maps a world position to clip space.
func (c *Camera) Project(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, c.WVP())
}

type Module struct {
	opts    Options
	physics engine.Module
}

func New(opts Options, phys engine.Module) *Module {
	return &Module{opts: opts, physics: phys}
}

func (m *Module) Name() string { return Name }

func (m *Module) Submodules() []engine.Module {
	if m.physics == nil {
		return nil
	}
	return []engine.Module{m.physics}
}

func (m *Module) Init(ctx *engine.InitContext, res *resource.Registry) error {
	cam := resource.GetOrInsert(res, func() *Camera { return newCamera(m.opts) })
	graphics.ProvideViewProjection(res, cam)

	return ctx.Dispatch(schedule.Named(Name).RunAfter(physics.Name), func(bc *engine.BuildContext) (engine.System, error) {
		world, _ := resource.Get[physics.World](bc.Resources)
		return engine.SystemFunc(func(*engine.Frame) error {
			if world != nil && len(world.Bodies) > 0 {
				cam.look(world.Bodies[0].Position)
			}
			return nil
		}), nil
	})
}
