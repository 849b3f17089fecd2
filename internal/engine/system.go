package engine

import (
	"log/slog"

	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

// System is one unit of per-tick work.
type System interface {
	Run(*Frame) error
}

// SystemFunc adapts a function to System.
type SystemFunc func(*Frame) error

func (f SystemFunc) Run(fr *Frame) error { return f(fr) }

// Aliases for the schedule package instantiated with System.
type (
	InitContext  = schedule.InitContext[System]
	Factory      = schedule.Factory[System]
	Plan         = schedule.Plan[System]
	BuildContext = schedule.BuildContext
)

// Static returns a factory that always yields sys.
func Static(sys System) Factory {
	return func(*BuildContext) (System, error) { return sys, nil }
}

// Func returns a factory that always yields fn.
func Func(fn func(*Frame) error) Factory {
	return Static(SystemFunc(fn))
}

// Module is a feature that registers systems while the engine is built.
type Module interface {
	Name() string
	Init(ctx *InitContext, res *resource.Registry) error
}

// Starter is implemented by modules that need a hook after the schedule is
// committed and before the first tick.
type Starter interface {
	Start(*StartContext) error
}

// Composite is implemented by modules that bring submodules. Submodules are
// added depth-first before their parent.
type Composite interface {
	Submodules() []Module
}

// StartContext is handed to Starter.Start.
type StartContext struct {
	BootID    string
	Resources *resource.Registry
	Plan      *Plan
	Logger    *slog.Logger
}

// flatten expands composites depth-first, submodules first. A module name
// seen twice keeps its first position.
func flatten(mods []Module) []Module {
	var out []Module
	seen := make(map[string]struct{})
	var walk func(Module)
	walk = func(m Module) {
		if c, ok := m.(Composite); ok {
			for _, sub := range c.Submodules() {
				walk(sub)
			}
		}
		if _, dup := seen[m.Name()]; dup {
			return
		}
		seen[m.Name()] = struct{}{}
		out = append(out, m)
	}
	for _, m := range mods {
		if m != nil {
			walk(m)
		}
	}
	return out
}

type funcModule struct {
	name string
	init func(*InitContext, *resource.Registry) error
}

// NewModule wraps an init function as a Module.
func NewModule(name string, init func(*InitContext, *resource.Registry) error) Module {
	return &funcModule{name: name, init: init}
}

func (m *funcModule) Name() string { return m.name }

func (m *funcModule) Init(ctx *InitContext, res *resource.Registry) error {
	return m.init(ctx, res)
}
