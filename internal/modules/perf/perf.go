// Package perf shows the measured frame rate as a UI widget.
package perf

import (
	"fmt"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/ui"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
	"github.com/mattjoyce/hearth/internal/timing"
)

const (
	Name     = "perf"
	WidgetID = "perf.fps"
)

type Module struct {
	ui engine.Module
}

func New(uiModule engine.Module) *Module {
	return &Module{ui: uiModule}
}

func (m *Module) Name() string { return Name }

func (m *Module) Submodules() []engine.Module {
	if m.ui == nil {
		return nil
	}
	return []engine.Module{m.ui}
}

func (m *Module) Init(ctx *engine.InitContext, _ *resource.Registry) error {
	d := schedule.Named(Name).RunAfter(ui.DepLayout).RunBefore(ui.DepRender)
	return ctx.DispatchThreadLocal(d, func(bc *engine.BuildContext) (engine.System, error) {
		info, ok := resource.Get[timing.FPSInfo](bc.Resources)
		if !ok {
			return nil, fmt.Errorf("perf: fps info missing")
		}
		return engine.SystemFunc(func(fr *engine.Frame) error {
			return ui.Add(fr, ui.Widget{ID: WidgetID, Text: Label(info.FPS)})
		}), nil
	})
}

// Label formats an FPS reading. Zero means no window has completed yet.
func Label(fps float64) string {
	if fps <= 0 {
		return "fps --"
	}
	return fmt.Sprintf("fps %.1f", fps)
}
