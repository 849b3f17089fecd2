// Package ui lays out immediate-mode widgets each tick and draws them on top
// of the world.
//
// ui_layout opens a Frame before rendering starts. Widget systems scheduled
// between ui_layout and ui_render append to it, and ui_render closes it and
// submits one draw call per widget.
package ui

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

const (
	Name = "ui"

	DepLayout = "ui_layout"
	DepRender = "ui_render"

	// SlotFrame holds the *Frame of the tick.
	SlotFrame = "ui.frame"

	lineHeight = 18
	margin     = 8
)

type Widget struct {
	ID   string
	Text string
}

// Frame collects the widgets of one tick.
type Frame struct {
	Tick    uint64
	Widgets []Widget
}

// Add appends a widget to the open UI frame.
func Add(fr *engine.Frame, w Widget) error {
	f, err := engine.SlotValue[*Frame](fr, SlotFrame)
	if err != nil {
		return fmt.Errorf("ui: widget %s outside layout: %w", w.ID, err)
	}
	f.Widgets = append(f.Widgets, w)
	return nil
}

// Layout returns the pixel position of the i-th widget.
func Layout(i int) mgl64.Vec3 {
	return mgl64.Vec3{margin, float64(margin + i*lineHeight), 0}
}

type Module struct {
	graphics engine.Module
}

func New(gfx engine.Module) *Module {
	return &Module{graphics: gfx}
}

func (m *Module) Name() string { return Name }

func (m *Module) Submodules() []engine.Module {
	if m.graphics == nil {
		return nil
	}
	return []engine.Module{m.graphics}
}

func (m *Module) Init(ctx *engine.InitContext, _ *resource.Registry) error {
	layout := schedule.Named(DepLayout).RunBefore(graphics.DepRenderSetup)
	if err := ctx.DispatchThreadLocal(layout, engine.Func(func(fr *engine.Frame) error {
		return fr.Acquire(SlotFrame, &Frame{Tick: fr.Tick})
	})); err != nil {
		return err
	}

	// Built-in status line.
	status := schedule.Anonymous().RunAfter(DepLayout).RunBefore(DepRender)
	if err := ctx.DispatchThreadLocal(status, engine.Func(func(fr *engine.Frame) error {
		return Add(fr, Widget{ID: "status", Text: fmt.Sprintf("tick %d", fr.Tick)})
	})); err != nil {
		return err
	}

	render := schedule.Named(DepRender).
		RunAfter(graphics.DepRenderSetup).
		RunBefore(graphics.DepRenderTeardown).
		WithPriority(graphics.OrderUI)
	return ctx.DispatchThreadLocal(render, engine.Func(func(fr *engine.Frame) error {
		f, err := engine.ReleaseValue[*Frame](fr, SlotFrame)
		if err != nil {
			return err
		}
		for i, w := range f.Widgets {
			if err := graphics.Submit(fr, graphics.DrawCall{
				Kind:  "text",
				Label: w.ID,
				Order: graphics.OrderUI + i,
				Pos:   Layout(i),
			}); err != nil {
				return err
			}
		}
		return nil
	}))
}
