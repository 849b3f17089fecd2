// Package sprite draws one quad per physics body inside the render bracket.
package sprite

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/modules/physics"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

const Name = "sprite"

type Module struct {
	deps []engine.Module
}

// New returns the sprite module. deps (typically graphics and physics) are
// registered as submodules; nil entries are skipped.
func New(deps ...engine.Module) *Module {
	m := &Module{}
	for _, d := range deps {
		if d != nil {
			m.deps = append(m.deps, d)
		}
	}
	return m
}

func (m *Module) Name() string { return Name }

func (m *Module) Submodules() []engine.Module { return m.deps }

func (m *Module) Init(ctx *engine.InitContext, _ *resource.Registry) error {
	d := schedule.Named(Name).
		RunAfter(graphics.DepRenderSetup).
		RunBefore(graphics.DepRenderTeardown).
		WithPriority(graphics.OrderOpaque)

	return ctx.DispatchThreadLocal(d, func(bc *engine.BuildContext) (engine.System, error) {
		world, _ := resource.Get[physics.World](bc.Resources)
		return engine.SystemFunc(func(fr *engine.Frame) error {
			if world == nil {
				return nil
			}
			rd, err := graphics.Current(fr)
			if err != nil {
				return err
			}
			for i, b := range world.Bodies {
				rd.Draws = append(rd.Draws, graphics.DrawCall{
					Kind:  "sprite",
					Label: fmt.Sprintf("body-%d", i),
					Order: graphics.OrderOpaque,
					Pos:   mgl64.TransformCoordinate(b.Position, rd.WVP),
				})
			}
			return nil
		}), nil
	})
}
