package modules

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hearth/internal/config"
	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/modules/perf"
	"github.com/mattjoyce/hearth/internal/modules/physics"
	"github.com/mattjoyce/hearth/internal/modules/ui"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

func newEngine(t *testing.T, cfg *config.Config) (*engine.Engine, *resource.Registry) {
	t.Helper()
	mods, err := Build(cfg)
	require.NoError(t, err)

	res := resource.New()
	now := time.Unix(0, 0)
	eng, err := engine.New(engine.Options{
		Workers:   2,
		Resources: res,
		Clock: func() time.Time {
			now = now.Add(16 * time.Millisecond)
			return now
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, mods...)
	require.NoError(t, err)
	return eng, res
}

func labels(r *schedule.Resolved) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.IsAnonymous() {
			out = append(out, "<anonymous>")
			continue
		}
		out = append(out, e.Name)
	}
	return out
}

func TestBuildDefaults(t *testing.T) {
	eng, res := newEngine(t, config.Defaults())

	assert.Equal(t, Names(), eng.Modules())
	assert.Equal(t, []string{"input", "physics", "camera"},
		eng.Plan().Schedule(schedule.Parallel).Names())
	assert.Equal(t,
		[]string{"ui_layout", "<anonymous>", "perf", "render_setup", "sprite", "ui_render", "render_teardown"},
		labels(eng.Plan().Schedule(schedule.ThreadLocal)))

	for i := 0; i < 5; i++ {
		require.NoError(t, eng.Tick())
	}

	surface, ok := resource.Get[graphics.Surface](res)
	require.True(t, ok)
	frames, _ := surface.Stats()
	assert.Equal(t, uint64(5), frames)

	var got []string
	for _, dc := range surface.LastFrame() {
		got = append(got, dc.Label)
	}
	assert.Equal(t, []string{"body-0", "status", perf.WidgetID}, got)
}

func TestBuildSharesConfiguredDependencies(t *testing.T) {
	cfg := config.Defaults()
	cfg.Modules[physics.Name] = config.ModuleConf{Options: map[string]any{"bodies": 3}}
	off := false
	cfg.Modules[ui.Name] = config.ModuleConf{Enabled: &off}
	cfg.Modules[perf.Name] = config.ModuleConf{Enabled: &off}

	eng, res := newEngine(t, cfg)
	assert.NotContains(t, eng.Modules(), ui.Name)
	assert.NotContains(t, eng.Modules(), perf.Name)

	require.NoError(t, eng.Tick())
	surface, _ := resource.Get[graphics.Surface](res)
	assert.Len(t, surface.LastFrame(), 3)
}

func TestBuildPullsDependencies(t *testing.T) {
	cfg := config.Defaults()
	off := false
	for _, name := range []string{"input", "physics", "camera", "graphics", "sprite", "ui"} {
		cfg.Modules[name] = config.ModuleConf{Enabled: &off}
	}

	mods, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, mods, 1)

	eng, _ := newEngine(t, cfg)
	assert.Equal(t, []string{graphics.Name, ui.Name, perf.Name}, eng.Modules())
}

func TestBuildInputSource(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		wantErr string
	}{
		{name: "idle", options: map[string]any{"source": "idle"}},
		{name: "circle", options: map[string]any{"source": "circle", "period": 60}},
		{name: "bad period", options: map[string]any{"period": 0}, wantErr: "period must be positive"},
		{name: "unknown", options: map[string]any{"source": "gamepad"}, wantErr: `unknown input source "gamepad"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Modules["input"] = config.ModuleConf{Options: tt.options}
			_, err := Build(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), `module "input"`)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildNilConfig(t *testing.T) {
	mods, err := Build(nil)
	require.NoError(t, err)
	assert.Len(t, mods, len(Names()))
}
