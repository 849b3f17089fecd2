// Package modules assembles the builtin feature modules from configuration.
package modules

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mattjoyce/hearth/internal/config"
	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/camera"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/modules/input"
	"github.com/mattjoyce/hearth/internal/modules/perf"
	"github.com/mattjoyce/hearth/internal/modules/physics"
	"github.com/mattjoyce/hearth/internal/modules/sprite"
	"github.com/mattjoyce/hearth/internal/modules/ui"
)

// Names lists the builtin modules, dependencies first.
func Names() []string {
	return []string{
		input.Name,
		physics.Name,
		camera.Name,
		graphics.Name,
		sprite.Name,
		ui.Name,
		perf.Name,
	}
}

// Build returns the builtin modules enabled in cfg. Every module is built
// once and shared, so a dependency pulled in by a composite carries its own
// configured options. Enabling a module pulls in its dependencies even when
// they are disabled.
func Build(cfg *config.Config) ([]engine.Module, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	c := &catalog{cfg: cfg, built: make(map[string]engine.Module)}

	var out []engine.Module
	for _, name := range Names() {
		if !cfg.ModuleEnabled(name) {
			continue
		}
		m, err := c.get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

type catalog struct {
	cfg   *config.Config
	built map[string]engine.Module
}

func (c *catalog) get(name string) (engine.Module, error) {
	if m, ok := c.built[name]; ok {
		return m, nil
	}
	m, err := c.make(name)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", name, err)
	}
	c.built[name] = m
	return m, nil
}

func (c *catalog) make(name string) (engine.Module, error) {
	conf := c.cfg.Module(name)
	switch name {
	case input.Name:
		src, err := inputSource(conf)
		if err != nil {
			return nil, err
		}
		return input.New(src), nil
	case physics.Name:
		in, err := c.get(input.Name)
		if err != nil {
			return nil, err
		}
		return physics.New(physicsOptions(conf), in), nil
	case camera.Name:
		phys, err := c.get(physics.Name)
		if err != nil {
			return nil, err
		}
		return camera.New(cameraOptions(conf), phys), nil
	case graphics.Name:
		return graphics.New(conf.Int("width", 0), conf.Int("height", 0)), nil
	case sprite.Name:
		gfx, err := c.get(graphics.Name)
		if err != nil {
			return nil, err
		}
		phys, err := c.get(physics.Name)
		if err != nil {
			return nil, err
		}
		return sprite.New(gfx, phys), nil
	case ui.Name:
		gfx, err := c.get(graphics.Name)
		if err != nil {
			return nil, err
		}
		return ui.New(gfx), nil
	case perf.Name:
		u, err := c.get(ui.Name)
		if err != nil {
			return nil, err
		}
		return perf.New(u), nil
	default:
		return nil, fmt.Errorf("unknown builtin module")
	}
}

func inputSource(conf config.ModuleConf) (input.Source, error) {
	switch mode := conf.Text("source", "circle"); mode {
	case "idle":
		return input.Idle, nil
	case "circle":
		period := conf.Int("period", 240)
		if period <= 0 {
			return nil, fmt.Errorf("period must be positive, got %d", period)
		}
		return input.Circle(uint64(period)), nil
	default:
		return nil, fmt.Errorf("unknown input source %q", mode)
	}
}

func physicsOptions(conf config.ModuleConf) physics.Options {
	o := physics.DefaultOptions()
	o.Gravity = conf.Float("gravity", o.Gravity)
	o.Accel = conf.Float("accel", o.Accel)
	o.Restitution = conf.Float("restitution", o.Restitution)
	o.Substeps = conf.Int("substeps", o.Substeps)
	o.Bodies = conf.Int("bodies", o.Bodies)
	return o
}

func cameraOptions(conf config.ModuleConf) camera.Options {
	o := camera.DefaultOptions()
	o.FovY = conf.Float("fov", o.FovY)
	o.Near = conf.Float("near", o.Near)
	o.Far = conf.Float("far", o.Far)
	o.Offset = mgl64.Vec3{
		conf.Float("offset_x", o.Offset.X()),
		conf.Float("offset_y", o.Offset.Y()),
		conf.Float("offset_z", o.Offset.Z()),
	}
	return o
}
