package ui

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/modules/graphics"
	"github.com/mattjoyce/hearth/internal/resource"
	"github.com/mattjoyce/hearth/internal/schedule"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLayoutAndRender(t *testing.T) {
	res := resource.New()
	hint := engine.NewModule("hint", func(ctx *engine.InitContext, _ *resource.Registry) error {
		d := schedule.Named("hint").RunAfter(DepLayout).RunBefore(DepRender)
		return ctx.DispatchThreadLocal(d, engine.Func(func(fr *engine.Frame) error {
			return Add(fr, Widget{ID: "hint", Text: "press q"})
		}))
	})
	eng, err := engine.New(engine.Options{Resources: res, Logger: discard()}, New(graphics.New(0, 0)), hint)
	require.NoError(t, err)

	entries := eng.Plan().Schedule(schedule.ThreadLocal).Entries()
	require.Len(t, entries, 6)
	assert.Equal(t, DepLayout, entries[0].Name)
	assert.True(t, entries[1].IsAnonymous())
	assert.Equal(t, "hint", entries[2].Name)
	assert.Equal(t, graphics.DepRenderSetup, entries[3].Name)
	assert.Equal(t, DepRender, entries[4].Name)
	assert.Equal(t, graphics.DepRenderTeardown, entries[5].Name)

	require.NoError(t, eng.Tick())

	surface, _ := resource.Get[graphics.Surface](res)
	last := surface.LastFrame()
	require.Len(t, last, 2)
	assert.Equal(t, "status", last[0].Label)
	assert.Equal(t, "hint", last[1].Label)
	assert.Equal(t, graphics.OrderUI+1, last[1].Order)
	assert.Equal(t, Layout(1), last[1].Pos)
}

func TestAddOutsideLayout(t *testing.T) {
	fr := &engine.Frame{}
	err := Add(fr, Widget{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside layout")
}

func TestLayout(t *testing.T) {
	assert.Equal(t, mgl64.Vec3{margin, margin, 0}, Layout(0))
	assert.Equal(t, mgl64.Vec3{margin, margin + 2*lineHeight, 0}, Layout(2))
}
