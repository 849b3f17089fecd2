// Package graphics owns the render bracket of a tick: render_setup opens the
// frame's render data and render_teardown submits it to the surface.
// Drawing systems run between the two.
package graphics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

const (
	Name = "graphics"

	DepRenderSetup    = "render_setup"
	DepRenderTeardown = "render_teardown"

	// SlotRender holds the *RenderData of the tick.
	SlotRender = "graphics.render"
)

// Draw orders. Lower orders are submitted first.
const (
	OrderOpaque      = 0
	OrderTransparent = 1000
	OrderUI          = 10000
	OrderDebugUI     = 11000
)

// DrawCall is one submitted primitive.
type DrawCall struct {
	Kind  string
	Label string
	Order int
	// Pos is in clip space for world draws and in pixels for UI draws.
	Pos mgl64.Vec3
}

// RenderData is shared by every drawing system of one tick.
type RenderData struct {
	Tick  uint64
	WVP   mgl64.Mat4
	Draws []DrawCall
}

// ViewProjection is implemented by the camera resource.
type ViewProjection interface {
	WVP() mgl64.Mat4
}

// Surface is a headless render target. It keeps the last presented frame
// and running totals.
type Surface struct {
	Width, Height int

	mu        sync.Mutex
	frames    uint64
	drawCalls uint64
	last      []DrawCall
}

// Present records one frame of draw calls.
func (s *Surface) Present(draws []DrawCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.drawCalls += uint64(len(draws))
	s.last = append(s.last[:0], draws...)
}

// Stats returns presented frames and total draw calls.
func (s *Surface) Stats() (frames, drawCalls uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.drawCalls
}

// LastFrame returns a copy of the last presented draw calls.
func (s *Surface) LastFrame() []DrawCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DrawCall(nil), s.last...)
}

// Submit appends a draw call to the open render data.
func Submit(fr *engine.Frame, dc DrawCall) error {
	rd, err := engine.SlotValue[*RenderData](fr, SlotRender)
	if err != nil {
		return fmt.Errorf("graphics: submit %s outside render bracket: %w", dc.Label, err)
	}
	rd.Draws = append(rd.Draws, dc)
	return nil
}

// Current returns the open render data.
func Current(fr *engine.Frame) (*RenderData, error) {
	return engine.SlotValue[*RenderData](fr, SlotRender)
}

type Module struct {
	width, height int
}

func New(width, height int) *Module {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	return &Module{width: width, height: height}
}

func (m *Module) Name() string { return Name }

func (m *Module) Init(ctx *engine.InitContext, res *resource.Registry) error {
	surface := resource.GetOrInsert(res, func() *Surface {
		return &Surface{Width: m.width, Height: m.height}
	})

	setup := schedule.Named(DepRenderSetup).RunBefore(DepRenderTeardown).WithPriority(100)
	if err := ctx.Register(schedule.ThreadLocal, setup, func(bc *engine.BuildContext) (engine.System, error) {
		vp, hasVP := resource.Get[ViewProjection](bc.Resources)
		return engine.SystemFunc(func(fr *engine.Frame) error {
			rd := &RenderData{Tick: fr.Tick, WVP: mgl64.Ident4()}
			if hasVP {
				rd.WVP = (*vp).WVP()
			}
			return fr.Acquire(SlotRender, rd)
		}), nil
	}); err != nil {
		return err
	}

	return ctx.DispatchThreadLocal(schedule.Named(DepRenderTeardown).RunAfter(DepRenderSetup),
		engine.Func(func(fr *engine.Frame) error {
			rd, err := engine.ReleaseValue[*RenderData](fr, SlotRender)
			if err != nil {
				return err
			}
			sort.SliceStable(rd.Draws, func(i, j int) bool { return rd.Draws[i].Order < rd.Draws[j].Order })
			surface.Present(rd.Draws)
			return nil
		}))
}

// ProvideViewProjection registers vp as the source of the render WVP.
func ProvideViewProjection(res *resource.Registry, vp ViewProjection) {
	resource.Insert(res, &vp)
}

// Start logs the surface once the schedule is committed.
func (m *Module) Start(sc *engine.StartContext) error {
	surface, ok := resource.Get[Surface](sc.Resources)
	if !ok {
		return fmt.Errorf("graphics: surface missing")
	}
	sc.Logger.Info("Surface ready", "width", surface.Width, "height", surface.Height)
	return nil
}
